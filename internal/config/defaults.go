package config

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultRegistryURLs are the registry locations tried in order when the
// config file does not override them.
var DefaultRegistryURLs = []string{
	"https://plugins.riffaudio.org/registry.json",
	"https://raw.githubusercontent.com/riffaudio/plugin-registry/main/registry.json",
}

// Default returns the configuration used before the config file is applied.
func Default() Config {
	dataDir := defaultDataDir()
	cacheDir := defaultCacheDir()
	return Config{
		Paths: Paths{
			PluginDir: filepath.Join(dataDir, "plugins"),
			CacheDir:  cacheDir,
			StateDB:   filepath.Join(dataDir, "state.db"),
			LogDir:    filepath.Join(dataDir, "logs"),
		},
		Registry: Registry{
			URLs:                   append([]string{}, DefaultRegistryURLs...),
			RefreshIntervalSeconds: 3600,
			AllowUnregistered:      true,
		},
		Host: Host{
			APIVersions: []string{"3.0", "3.1"},
			Locale:      "en",
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}

func defaultDataDir() string {
	if base, ok := os.LookupEnv("XDG_DATA_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "riff")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("~", ".local", "share", "riff")
	}
	return filepath.Join(home, ".local", "share", "riff")
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "riff")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("~", ".cache", "riff")
	}
	return filepath.Join(home, ".cache", "riff")
}
