package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	PluginDir string `toml:"plugin_dir"`
	CacheDir  string `toml:"cache_dir"`
	StateDB   string `toml:"state_db"`
	LogDir    string `toml:"log_dir"`
	// LegacyPluginDir points at an old-style plugin directory, if the host
	// application ever used one. Optional; used for the one-time upgrade
	// notice and by the migrate command's default.
	LegacyPluginDir string `toml:"legacy_plugin_dir"`
}

// Registry contains plugin registry configuration.
type Registry struct {
	URLs                   []string `toml:"urls"`
	RefreshIntervalSeconds int      `toml:"refresh_interval_seconds"`
	// AllowUnregistered permits installing plugins whose URL is not listed
	// in any registry. Blacklist checks still apply.
	AllowUnregistered bool `toml:"allow_unregistered"`
}

// Host describes the embedding application's plugin API surface.
type Host struct {
	APIVersions []string `toml:"api_versions"`
	Locale      string   `toml:"locale"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for riff.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Registry Registry `toml:"registry"`
	Host     Host     `toml:"host"`
	Logging  Logging  `toml:"logging"`
}

// EnvRegistryURL overrides the registry URL list when set; the value is tried
// before the configured URLs.
const EnvRegistryURL = "RIFF_REGISTRY_URL"

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/riff/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("riff.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	for _, field := range []*string{&c.Paths.PluginDir, &c.Paths.CacheDir, &c.Paths.StateDB, &c.Paths.LogDir, &c.Paths.LegacyPluginDir} {
		if *field, err = expandPath(*field); err != nil {
			return err
		}
	}

	if env := strings.TrimSpace(os.Getenv(EnvRegistryURL)); env != "" {
		c.Registry.URLs = append([]string{env}, c.Registry.URLs...)
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Host.Locale = strings.TrimSpace(c.Host.Locale)
	return nil
}

// Validate reports configuration values riff cannot operate with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.PluginDir) == "" {
		return errors.New("config: paths.plugin_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		return errors.New("config: paths.cache_dir must not be empty")
	}
	if len(c.Host.APIVersions) == 0 {
		return errors.New("config: host.api_versions must list at least one version")
	}
	for _, v := range c.Host.APIVersions {
		if !validAPIVersion(v) {
			return fmt.Errorf("config: host.api_versions entry %q is not MAJOR.MINOR", v)
		}
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("config: logging.format %q is not supported", c.Logging.Format)
	}
	return nil
}

func validAPIVersion(v string) bool {
	major, minor, ok := strings.Cut(v, ".")
	if !ok || major == "" || minor == "" {
		return false
	}
	for _, part := range []string{major, minor} {
		for _, r := range part {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

// EnsureDirectories creates the directories riff needs to operate.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.PluginDir, c.Paths.CacheDir, c.Paths.LogDir}
	if c.Paths.StateDB != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.StateDB))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
