// Package registry fetches and queries the plugin registry.
//
// The registry is a JSON document listing known plugins with their trust
// levels and a blacklist of known-bad plugins. It is fetched from a list of
// URLs with retries and cached on disk so plugin operations keep working
// offline. Registry lookups degrade gracefully: when no registry can be
// fetched, blacklist checks pass and trust falls back to unregistered.
package registry
