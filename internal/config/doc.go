// Package config loads and validates the riff configuration file.
//
// Configuration lives in ~/.config/riff/config.toml by default. All path
// values are expanded (~ and relative paths) and normalized at load time.
package config
