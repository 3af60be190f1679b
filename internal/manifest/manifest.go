package manifest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// FileName is the manifest file name expected at the plugin repository root.
const FileName = "MANIFEST.toml"

// Manifest holds the plugin metadata declared in MANIFEST.toml.
type Manifest struct {
	UUID            string   `toml:"uuid"`
	Name            string   `toml:"name"`
	Version         string   `toml:"version"`
	Description     string   `toml:"description"`
	LongDescription string   `toml:"long_description"`
	API             []string `toml:"api"`
	Authors         []string `toml:"authors"`
	License         string   `toml:"license"`
	LicenseURL      string   `toml:"license_url"`
	Homepage        string   `toml:"homepage"`
	UserGuideURL    string   `toml:"user_guide_url"`
	Categories      []string `toml:"categories"`
	SourceLocale    string   `toml:"source_locale"`

	NameI18n            map[string]string `toml:"name_i18n"`
	DescriptionI18n     map[string]string `toml:"description_i18n"`
	LongDescriptionI18n map[string]string `toml:"long_description_i18n"`
}

// ErrNotFound indicates the plugin directory has no MANIFEST.toml.
var ErrNotFound = errors.New("MANIFEST.toml not found")

// ValidationError carries the full list of manifest problems so callers can
// report all of them at once.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid MANIFEST.toml:\n  %s", strings.Join(e.Problems, "\n  "))
}

// Parse decodes a manifest without validating it.
func Parse(r io.Reader) (*Manifest, error) {
	var m Manifest
	decoder := toml.NewDecoder(r)
	if err := decoder.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// Load reads and validates MANIFEST.toml from a plugin directory.
func Load(pluginDir string) (*Manifest, error) {
	path := filepath.Join(pluginDir, FileName)
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w in %s", ErrNotFound, pluginDir)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	defer file.Close()

	m, err := Parse(file)
	if err != nil {
		return nil, err
	}
	if problems := m.Validate(); len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	return m, nil
}

// SourceLocaleOrDefault returns the declared source locale, defaulting to en.
func (m *Manifest) SourceLocaleOrDefault() string {
	if m.SourceLocale == "" {
		return "en"
	}
	return m.SourceLocale
}
