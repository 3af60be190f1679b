package plugins

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInstalled indicates no installed plugin matched the identifier.
	ErrNotInstalled = errors.New("plugin not installed")

	// ErrAlreadyInstalled indicates an install would clobber an existing
	// plugin from the same source. Reinstall is explicit.
	ErrAlreadyInstalled = errors.New("plugin already installed")

	// ErrDirtyWorkingTree indicates local modifications would be lost.
	ErrDirtyWorkingTree = errors.New("plugin has uncommitted local changes")

	// ErrCommitPinned indicates the plugin is pinned to an exact commit and
	// is skipped by updates.
	ErrCommitPinned = errors.New("plugin is pinned to a commit")

	// ErrIncompatible indicates the plugin supports none of the host's API
	// versions.
	ErrIncompatible = errors.New("plugin is not compatible with this version")

	// ErrUnregistered indicates the install source is not listed in any
	// configured registry and registry.allow_unregistered is off.
	ErrUnregistered = errors.New("plugin source is not listed in the registry")
)

// BlacklistedError refuses installation or enabling of a blacklisted plugin.
type BlacklistedError struct {
	URL    string
	UUID   string
	Reason string
}

func (e *BlacklistedError) Error() string {
	return fmt.Sprintf("plugin is blacklisted: %s", e.Reason)
}

// UUIDConflictError indicates the manifest UUID is already taken by a plugin
// installed from a different source.
type UUIDConflictError struct {
	UUID           string
	ExistingPlugin string
	ExistingSource string
	NewSource      string
}

func (e *UUIDConflictError) Error() string {
	return fmt.Sprintf("plugin UUID %s already used by %s (installed from %s, attempted from %s)",
		e.UUID, e.ExistingPlugin, e.ExistingSource, e.NewSource)
}

// AmbiguousError indicates an identifier prefix matched several plugins.
type AmbiguousError struct {
	Identifier string
	Matches    []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("identifier %q is ambiguous: matches %v", e.Identifier, e.Matches)
}
