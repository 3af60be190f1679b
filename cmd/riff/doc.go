// Package main hosts the riff CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into plugin
// manager operations: installing and updating plugins from git repositories,
// enabling and disabling them, browsing the registry, migrating old-style
// plugins and configuration scaffolding. It centralizes configuration
// resolution and structured logging setup so subcommands can focus on user
// experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
