// Package plugins implements the plugin manager.
//
// The manager owns the plugin directory and coordinates the store, the
// registry client, the refs cache and git to install, update, enable and
// remove plugins. Plugins are git clones living in
// <plugin_dir>/<sanitized_name>_<uuid>; all state beyond the working tree
// itself lives in the SQLite store.
package plugins
