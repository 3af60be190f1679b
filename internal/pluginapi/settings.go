package pluginapi

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Settings manages plugin-private configuration sections, one JSON file per
// plugin UUID under the settings directory.
type Settings struct {
	dir string
	mu  sync.Mutex
}

// NewSettings creates a settings manager rooted at dir.
func NewSettings(dir string) *Settings {
	return &Settings{dir: dir}
}

// Section loads (or initializes) the section for a plugin.
func (s *Settings) Section(uuid string) (*Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, uuid+".json")
	values := map[string]string{}
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &values); err != nil {
			return nil, fmt.Errorf("parse plugin settings %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read plugin settings: %w", err)
	}
	return &Section{path: path, values: values}, nil
}

// Purge deletes a plugin's section from disk, used on uninstall.
func (s *Settings) Purge(uuid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, uuid+".json")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("purge plugin settings: %w", err)
	}
	return nil
}

// Section is one plugin's private key-value configuration. Writes persist
// immediately with an atomic replace.
type Section struct {
	path   string
	mu     sync.Mutex
	values map[string]string
}

// Get returns the value for key, or fallback when unset.
func (c *Section) Get(key, fallback string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.values[key]; ok {
		return v
	}
	return fallback
}

// Set stores a value and persists the section.
func (c *Section) Set(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return c.flush()
}

// Delete removes a key and persists the section.
func (c *Section) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.values[key]; !ok {
		return nil
	}
	delete(c.values, key)
	return c.flush()
}

// Keys returns all set keys.
func (c *Section) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	return keys
}

func (c *Section) flush() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	raw, err := json.MarshalIndent(c.values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode plugin settings: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write plugin settings: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("write plugin settings: %w", err)
	}
	return nil
}
