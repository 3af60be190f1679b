package testsupport

import (
	"path/filepath"
	"testing"

	"riff/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.PluginDir = filepath.Join(base, "plugins")
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	cfg.Paths.StateDB = filepath.Join(base, "state.db")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Registry.URLs = nil

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithRegistryURLs sets the registry URL list on the test config.
func WithRegistryURLs(urls ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Registry.URLs = urls
	}
}

// WithAPIVersions overrides the host API versions on the test config.
func WithAPIVersions(versions ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Host.APIVersions = versions
	}
}
