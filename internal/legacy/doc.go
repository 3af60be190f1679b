// Package legacy inspects plugins written for the old ZIP-based loader and
// helps users move to the git-based plugin system.
//
// Old-style plugins are Python files, packages or ZIP archives that declare
// their metadata in module-level PLUGIN_* constants. This package scans a
// legacy plugin directory, extracts that metadata, reports which plugins
// have a successor in the registry and generates MANIFEST.toml scaffolds
// for plugin authors.
package legacy
