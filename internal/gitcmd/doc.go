// Package gitcmd wraps the git binary for plugin repository operations.
//
// Plugins are distributed as git repositories; installing, updating and
// inspecting them all happens through a small set of git subcommands. The
// client shells out rather than reimplementing git, and every call goes
// through an Executor so tests can run without a git binary.
package gitcmd
