package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, path, exists, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Error("exists should be false for missing file")
	}
	if path == "" {
		t.Error("resolved path should not be empty")
	}
	if cfg.Paths.PluginDir == "" {
		t.Error("default plugin dir should be set")
	}
	if len(cfg.Registry.URLs) == 0 {
		t.Error("default registry URLs should be set")
	}
}

func TestLoadParsesFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	content := `
[paths]
plugin_dir = "` + filepath.Join(dir, "plugins") + `"
cache_dir = "` + filepath.Join(dir, "cache") + `"

[host]
api_versions = ["3.0"]
locale = "de"

[logging]
level = "debug"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Error("exists should be true")
	}
	if cfg.Paths.PluginDir != filepath.Join(dir, "plugins") {
		t.Errorf("plugin dir mismatch: %q", cfg.Paths.PluginDir)
	}
	if cfg.Host.Locale != "de" {
		t.Errorf("locale mismatch: %q", cfg.Host.Locale)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level mismatch: %q", cfg.Logging.Level)
	}
}

func TestLoadRejectsBadAPIVersion(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	content := `
[host]
api_versions = ["three"]
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, _, err := Load(configPath); err == nil {
		t.Fatal("expected validation error for bad api version")
	}
}

func TestEnvRegistryURLPrepended(t *testing.T) {
	t.Setenv(EnvRegistryURL, "https://example.com/custom.json")

	cfg, _, _, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Registry.URLs[0] != "https://example.com/custom.json" {
		t.Errorf("env URL should come first, got %v", cfg.Registry.URLs)
	}
	if len(cfg.Registry.URLs) < 2 {
		t.Error("default URLs should remain as fallback")
	}
}

func TestExpandPathHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	expanded, err := ExpandPath("~/plugins")
	if err != nil {
		t.Fatalf("ExpandPath failed: %v", err)
	}
	if !strings.HasPrefix(expanded, home) {
		t.Errorf("expected %q under %q", expanded, home)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[registry]") {
		t.Error("sample config missing registry section")
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Paths.PluginDir = filepath.Join(dir, "plugins")
	cfg.Paths.CacheDir = filepath.Join(dir, "cache")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Paths.StateDB = filepath.Join(dir, "state", "riff.db")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, p := range []string{cfg.Paths.PluginDir, cfg.Paths.CacheDir, cfg.Paths.LogDir, filepath.Dir(cfg.Paths.StateDB)} {
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			t.Errorf("directory %q not created", p)
		}
	}
}
