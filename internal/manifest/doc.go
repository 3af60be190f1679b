// Package manifest reads and validates the MANIFEST.toml file every plugin
// ships at the root of its repository.
package manifest
