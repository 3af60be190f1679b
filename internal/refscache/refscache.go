// Package refscache caches git refs and version tags for plugin
// repositories so update checks avoid repeated network round trips.
package refscache

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"riff/internal/logging"
)

const (
	// FileName is the cache file stored next to the registry cache.
	FileName = "plugin_refs_cache.json"

	// TTL bounds how long cached refs are considered fresh.
	TTL = time.Hour

	// formatVersion invalidates caches written by older releases.
	formatVersion = 2
)

type tagEntry struct {
	Tags      []string `json:"tags"`
	Timestamp int64    `json:"timestamp"`
}

// Refs holds every branch and tag of a repository.
type Refs struct {
	Branches []string `json:"branches"`
	Tags     []string `json:"tags"`
}

type refsEntry struct {
	Refs      *Refs `json:"refs"`
	Timestamp int64 `json:"timestamp"`
}

type urlEntry struct {
	// Tag lists keyed by versioning scheme.
	Schemes map[string]tagEntry `json:"schemes,omitempty"`
	AllRefs *refsEntry          `json:"all_refs,omitempty"`
}

type envelope struct {
	Version int                 `json:"version"`
	Data    map[string]urlEntry `json:"data"`
}

// Cache is a versioned on-disk cache of git refs keyed by repository URL.
type Cache struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	data map[string]urlEntry
}

// New creates a refs cache stored in cacheDir.
func New(cacheDir string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Cache{
		path:   filepath.Join(cacheDir, FileName),
		logger: logging.NewComponentLogger(logger, "refscache"),
		now:    time.Now,
	}
}

// Path returns the cache file location.
func (c *Cache) Path() string {
	return c.path
}

// Clear removes the cache from memory and disk.
func (c *Cache) Clear() {
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		c.logger.Warn("cannot delete refs cache", logging.Error(err))
	}
	c.data = nil
}

func (c *Cache) load() map[string]urlEntry {
	if c.data != nil {
		return c.data
	}
	c.data = map[string]urlEntry{}

	raw, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Debug("cannot read refs cache", logging.Error(err))
		}
		return c.data
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Version != formatVersion {
		// Corrupted or written by an incompatible release; start fresh.
		c.logger.Debug("invalidating refs cache", logging.String("path", c.path))
		return c.data
	}
	if env.Data != nil {
		c.data = env.Data
	}
	return c.data
}

func (c *Cache) save() {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		c.logger.Error("cannot create cache directory", logging.Error(err))
		return
	}
	raw, err := json.MarshalIndent(envelope{Version: formatVersion, Data: c.data}, "", "  ")
	if err != nil {
		c.logger.Error("cannot encode refs cache", logging.Error(err))
		return
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		c.logger.Error("cannot write refs cache", logging.Error(err))
		return
	}
	if err := os.Rename(tmp, c.path); err != nil {
		c.logger.Error("cannot write refs cache", logging.Error(err))
	}
}

func (c *Cache) fresh(timestamp int64) bool {
	return c.now().Unix()-timestamp <= int64(TTL.Seconds())
}

// Tags returns cached version tags for url under the given scheme, or nil on
// a miss. Expired entries are returned only when allowExpired is set, which
// callers use as an offline fallback.
func (c *Cache) Tags(url, scheme string, allowExpired bool) []string {
	entry, ok := c.load()[url]
	if !ok || entry.Schemes == nil {
		return nil
	}
	tags, ok := entry.Schemes[scheme]
	if !ok {
		return nil
	}
	if !c.fresh(tags.Timestamp) && !allowExpired {
		return nil
	}
	return tags.Tags
}

// StoreTags caches version tags for url under the given scheme.
func (c *Cache) StoreTags(url, scheme string, tags []string) {
	data := c.load()
	entry := data[url]
	if entry.Schemes == nil {
		entry.Schemes = map[string]tagEntry{}
	}
	entry.Schemes[scheme] = tagEntry{Tags: tags, Timestamp: c.now().Unix()}
	data[url] = entry
	c.save()
}

// AllRefs returns the cached branch and tag listing for url, or nil on a
// miss or expiry.
func (c *Cache) AllRefs(url string, allowExpired bool) *Refs {
	entry, ok := c.load()[url]
	if !ok || entry.AllRefs == nil {
		return nil
	}
	if !c.fresh(entry.AllRefs.Timestamp) && !allowExpired {
		return nil
	}
	return entry.AllRefs.Refs
}

// StoreAllRefs caches the full branch and tag listing for url.
func (c *Cache) StoreAllRefs(url string, refs *Refs) {
	data := c.load()
	entry := data[url]
	entry.AllRefs = &refsEntry{Refs: refs, Timestamp: c.now().Unix()}
	data[url] = entry
	c.save()
}

// Invalidate drops every cached entry for url, used after pushes to local
// development repositories.
func (c *Cache) Invalidate(url string) {
	data := c.load()
	if _, ok := data[url]; !ok {
		return
	}
	delete(data, url)
	c.save()
}
