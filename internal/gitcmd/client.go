package gitcmd

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// RefType classifies what a plugin's pinned ref points at.
type RefType string

const (
	RefTypeTag    RefType = "tag"
	RefTypeBranch RefType = "branch"
	RefTypeCommit RefType = "commit"
)

// RemoteRef is a single entry from ls-remote.
type RemoteRef struct {
	Name   string
	Commit string
	Type   RefType
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) (stdout string, err error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client runs git subcommands against plugin repositories.
type Client struct {
	binary string
	exec   Executor
}

// New constructs a git client. An empty binary defaults to "git" from PATH.
func New(binary string, opts ...Option) *Client {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "git"
	}
	client := &Client{binary: binary, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Version reports the installed git version, used by environment checks.
func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "version")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Clone clones url into dest without checking out a working tree. Callers
// check out the selected ref afterwards.
func (c *Client) Clone(ctx context.Context, url, dest string) error {
	_, err := c.run(ctx, "clone", "--no-checkout", "--", url, dest)
	return err
}

// Fetch updates all remote refs and tags in the repository at dir.
func (c *Client) Fetch(ctx context.Context, dir string) error {
	_, err := c.runIn(ctx, dir, "fetch", "--tags", "--prune", "origin")
	return err
}

// Checkout checks out ref in the repository at dir.
func (c *Client) Checkout(ctx context.Context, dir, ref string) error {
	_, err := c.runIn(ctx, dir, "checkout", "--force", ref, "--")
	return err
}

// ResetHard discards all local changes and moves the working tree to ref.
func (c *Client) ResetHard(ctx context.Context, dir, ref string) error {
	_, err := c.runIn(ctx, dir, "reset", "--hard", ref, "--")
	return err
}

// SetRemoteURL points origin at a new URL, used when a registry redirect
// moves a plugin repository.
func (c *Client) SetRemoteURL(ctx context.Context, dir, url string) error {
	_, err := c.runIn(ctx, dir, "remote", "set-url", "origin", "--", url)
	return err
}

// ResolveCommit resolves a ref to its commit hash within dir.
func (c *Client) ResolveCommit(ctx context.Context, dir, ref string) (string, error) {
	out, err := c.runIn(ctx, dir, "rev-parse", "--verify", ref+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("resolve ref %q: %w", ref, err)
	}
	return strings.TrimSpace(out), nil
}

// CurrentCommit returns the commit the working tree is checked out at.
func (c *Client) CurrentCommit(ctx context.Context, dir string) (string, error) {
	return c.ResolveCommit(ctx, dir, "HEAD")
}

// CommitDate returns the committer date of the checked-out commit.
func (c *Client) CommitDate(ctx context.Context, dir string) (time.Time, error) {
	out, err := c.runIn(ctx, dir, "log", "-1", "--format=%cI")
	if err != nil {
		return time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(out))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse commit date: %w", err)
	}
	return ts, nil
}

// IsDirty reports whether the working tree at dir has uncommitted changes.
func (c *Client) IsDirty(ctx context.Context, dir string) (bool, error) {
	out, err := c.runIn(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// Tags lists all tags in the repository at dir.
func (c *Client) Tags(ctx context.Context, dir string) ([]string, error) {
	out, err := c.runIn(ctx, dir, "tag", "--list")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// DefaultBranch returns the remote's default branch name, falling back to
// "main" when the remote HEAD is not recorded locally.
func (c *Client) DefaultBranch(ctx context.Context, dir string) string {
	out, err := c.runIn(ctx, dir, "symbolic-ref", "--short", "refs/remotes/origin/HEAD")
	if err != nil {
		return "main"
	}
	// Output looks like "origin/main".
	name := strings.TrimSpace(out)
	if _, branch, ok := strings.Cut(name, "/"); ok {
		return branch
	}
	return "main"
}

// ClassifyRef determines whether ref names a tag, a branch or a bare commit
// in the repository at dir. Bare commits must still resolve.
func (c *Client) ClassifyRef(ctx context.Context, dir, ref string) (RefType, string, error) {
	if _, err := c.runIn(ctx, dir, "show-ref", "--verify", "--quiet", "refs/tags/"+ref); err == nil {
		commit, err := c.ResolveCommit(ctx, dir, "refs/tags/"+ref)
		return RefTypeTag, commit, err
	}
	for _, prefix := range []string{"refs/remotes/origin/", "refs/heads/"} {
		if _, err := c.runIn(ctx, dir, "show-ref", "--verify", "--quiet", prefix+ref); err == nil {
			commit, err := c.ResolveCommit(ctx, dir, prefix+ref)
			return RefTypeBranch, commit, err
		}
	}
	commit, err := c.ResolveCommit(ctx, dir, ref)
	if err != nil {
		return "", "", fmt.Errorf("unknown ref %q: %w", ref, err)
	}
	return RefTypeCommit, commit, nil
}

// LsRemote lists branch and tag refs of a remote repository without cloning.
func (c *Client) LsRemote(ctx context.Context, url string) ([]RemoteRef, error) {
	out, err := c.run(ctx, "ls-remote", "--heads", "--tags", "--refs", "--", url)
	if err != nil {
		return nil, fmt.Errorf("list remote refs: %w", err)
	}
	var refs []RemoteRef
	for _, line := range splitLines(out) {
		commit, name, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		ref := RemoteRef{Commit: strings.TrimSpace(commit)}
		switch {
		case strings.HasPrefix(name, "refs/tags/"):
			ref.Name = strings.TrimPrefix(name, "refs/tags/")
			ref.Type = RefTypeTag
		case strings.HasPrefix(name, "refs/heads/"):
			ref.Name = strings.TrimPrefix(name, "refs/heads/")
			ref.Type = RefTypeBranch
		default:
			continue
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	out, err := c.exec.Run(ctx, c.binary, args)
	if err != nil {
		return out, fmt.Errorf("git %s: %w", args[0], err)
	}
	return out, nil
}

func (c *Client) runIn(ctx context.Context, dir string, args ...string) (string, error) {
	if dir == "" {
		return "", errors.New("repository directory required")
	}
	return c.run(ctx, append([]string{"-C", dir}, args...)...)
}

func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return string(out), fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return string(out), err
	}
	return string(out), nil
}
