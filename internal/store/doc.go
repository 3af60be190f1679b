// Package store persists plugin installation state in SQLite.
//
// The store records which plugins are installed, where they came from and
// which ref they are pinned to, plus the set of enabled plugins. Discovery
// reconciles this state against the plugin directory at startup.
package store
