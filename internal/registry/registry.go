package registry

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"riff/internal/logging"
)

// Trust levels assigned by the registry. Plugins installed from URLs the
// registry does not know about are unregistered.
const (
	TrustOfficial     = "official"
	TrustTrusted      = "trusted"
	TrustCommunity    = "community"
	TrustUnregistered = "unregistered"
)

// Ref is a registry-advertised repository ref with its supported API range.
type Ref struct {
	Name          string `json:"name"`
	MinAPIVersion string `json:"min_api_version,omitempty"`
	MaxAPIVersion string `json:"max_api_version,omitempty"`
}

// Plugin is a registry entry describing a known plugin.
type Plugin struct {
	ID               string   `json:"id"`
	UUID             string   `json:"uuid"`
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	GitURL           string   `json:"git_url"`
	TrustLevel       string   `json:"trust_level"`
	Categories       []string `json:"categories,omitempty"`
	VersioningScheme string   `json:"versioning_scheme,omitempty"`
	Refs             []Ref    `json:"refs,omitempty"`
	RedirectFrom     []string `json:"redirect_from,omitempty"`
	RedirectFromUUID []string `json:"redirect_from_uuid,omitempty"`
}

// Trust returns the entry's trust level, defaulting to community for
// registered plugins that carry none.
func (p *Plugin) Trust() string {
	if p.TrustLevel == "" {
		return TrustCommunity
	}
	return p.TrustLevel
}

// BlacklistEntry blocks plugin installation. The entry forms, most specific
// first: uuid+url blocks a specific fork, uuid blocks all sources, url blocks
// one source, url_regex blocks a URL pattern.
type BlacklistEntry struct {
	UUID     string `json:"uuid,omitempty"`
	URL      string `json:"url,omitempty"`
	URLRegex string `json:"url_regex,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Document is the registry JSON payload.
type Document struct {
	APIVersion string           `json:"api_version"`
	Plugins    []Plugin         `json:"plugins"`
	Blacklist  []BlacklistEntry `json:"blacklist"`
}

// Info summarizes a loaded registry.
type Info struct {
	PluginCount int
	APIVersion  string
	SourceURL   string
}

// Retry configuration for registry fetches.
const (
	fetchMaxRetries     = 3
	fetchInitialTimeout = 10 * time.Second
	fetchRetryDelayBase = 2 * time.Second

	// defaultMaxCacheAge bounds how long a disk-cached registry snapshot is
	// served without refetching.
	defaultMaxCacheAge = time.Hour
)

// Option configures the client.
type Option func(*Client)

// WithHTTPClient injects a custom HTTP client (primarily for tests).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

// WithSleep overrides the retry delay function (primarily for tests).
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// WithMaxCacheAge overrides how long the disk cache stays fresh. Nonpositive
// values keep the default.
func WithMaxCacheAge(age time.Duration) Option {
	return func(c *Client) {
		if age > 0 {
			c.maxCacheAge = age
		}
	}
}

// Client loads the registry and answers blacklist, trust and search queries.
// It is not safe for concurrent use.
type Client struct {
	urls        []string
	cachePath   string
	logger      *slog.Logger
	http        *http.Client
	sleep       func(time.Duration)
	maxCacheAge time.Duration

	doc         *Document
	activeURL   string
	fetchFailed bool
}

// New constructs a registry client. cacheDir may be empty to disable the disk
// cache. The first URL determines the cache file name so switching registries
// does not serve stale data.
func New(urls []string, cacheDir string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	client := &Client{
		urls:        urls,
		logger:      logging.NewComponentLogger(logger, "registry"),
		http:        &http.Client{},
		sleep:       time.Sleep,
		maxCacheAge: defaultMaxCacheAge,
	}
	if cacheDir != "" && len(urls) > 0 {
		client.cachePath = filepath.Join(cacheDir, fmt.Sprintf("registry_cache_%x.json", sha1.Sum([]byte(urls[0]))))
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// CachePath returns the on-disk cache location, or "" when caching is off.
func (c *Client) CachePath() string {
	return c.cachePath
}

// Fetch loads the registry, preferring the disk cache when useCache is set
// and the cached snapshot is younger than the refresh interval. Expired
// snapshots trigger a refetch but remain a fallback when every URL fails.
// URLs are tried in order; each remote URL gets retries with exponential
// backoff and a doubling timeout. A URL naming a local file is read directly.
func (c *Client) Fetch(ctx context.Context, useCache bool) error {
	var stale *Document
	if useCache && c.cachePath != "" {
		if doc, err := readDocument(c.cachePath); err == nil {
			if c.cacheFresh() {
				c.doc = doc
				c.logger.Debug("loaded registry from cache", logging.String("path", c.cachePath))
				return nil
			}
			stale = doc
			c.logger.Debug("registry cache expired, refetching", logging.String("path", c.cachePath))
		} else if !os.IsNotExist(err) {
			c.logger.Warn("registry cache unreadable, fetching from URL", logging.Error(err))
		}
	}

	var lastErr error
	for i, url := range c.urls {
		c.logger.Debug("fetching registry",
			logging.String(logging.FieldURL, url),
			logging.Int("attempt_url", i+1),
			logging.Int("url_count", len(c.urls)))

		doc, err := c.fetchOne(ctx, url)
		if err != nil {
			lastErr = err
			c.logger.Warn("registry fetch failed",
				logging.String(logging.FieldURL, url),
				logging.Error(err))
			continue
		}
		c.doc = doc
		c.activeURL = url
		c.writeCache(doc)
		return nil
	}

	if stale != nil {
		c.doc = stale
		c.logger.Warn("registry unreachable, using expired cache",
			logging.String("path", c.cachePath))
		return nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no registry URLs configured")
	}
	return fmt.Errorf("fetch registry: %w", lastErr)
}

// cacheFresh reports whether the disk cache is younger than the refresh
// interval.
func (c *Client) cacheFresh() bool {
	info, err := os.Stat(c.cachePath)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) <= c.maxCacheAge
}

// Refresh bypasses the cache and refetches from the configured URLs.
func (c *Client) Refresh(ctx context.Context) error {
	c.fetchFailed = false
	c.doc = nil
	return c.Fetch(ctx, false)
}

func (c *Client) fetchOne(ctx context.Context, url string) (*Document, error) {
	if info, err := os.Stat(url); err == nil && info.Mode().IsRegular() {
		return readDocument(url)
	}

	var lastErr error
	timeout := fetchInitialTimeout
	for attempt := 0; attempt < fetchMaxRetries; attempt++ {
		doc, retryable, err := c.fetchHTTP(ctx, url, timeout)
		if err == nil {
			return doc, nil
		}
		lastErr = err
		if !retryable || attempt == fetchMaxRetries-1 {
			break
		}
		delay := fetchRetryDelayBase << attempt
		c.logger.Warn("registry fetch attempt failed, retrying",
			logging.Int("attempt", attempt+1),
			logging.Duration("delay", delay),
			logging.Error(err))
		c.sleep(delay)
		timeout *= 2
	}
	return nil, lastErr
}

func (c *Client) fetchHTTP(ctx context.Context, url string, timeout time.Duration) (*Document, bool, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %s", resp.Status)
		// Client errors other than 404 will not improve on retry. A 404 can
		// be a deploy in progress, so it stays retryable.
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusNotFound
		return nil, retryable, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}
	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, false, fmt.Errorf("parse registry: %w", err)
	}
	return &doc, false, nil
}

func (c *Client) writeCache(doc *Document) {
	if c.cachePath == "" {
		return
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.cachePath), 0o755); err != nil {
		c.logger.Warn("cannot create registry cache directory", logging.Error(err))
		return
	}
	tmp := c.cachePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		c.logger.Warn("cannot write registry cache", logging.Error(err))
		return
	}
	if err := os.Rename(tmp, c.cachePath); err != nil {
		c.logger.Warn("cannot write registry cache", logging.Error(err))
	}
}

func readDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return &doc, nil
}

// ensureLoaded lazily fetches the registry, remembering permanent failures so
// repeated queries do not hammer an unreachable registry.
func (c *Client) ensureLoaded(ctx context.Context, operation string) bool {
	if c.fetchFailed {
		return false
	}
	if c.doc != nil {
		return true
	}
	if err := c.Fetch(ctx, true); err != nil {
		c.logger.Warn("registry unavailable",
			logging.String("operation", operation),
			logging.Error(err))
		c.fetchFailed = true
		return false
	}
	return true
}

// IsBlacklisted checks a plugin URL and UUID against the blacklist and
// returns the block reason. When the registry is unavailable installation is
// not blocked.
func (c *Client) IsBlacklisted(ctx context.Context, url, pluginUUID string) (bool, string) {
	if !c.ensureLoaded(ctx, "blacklist check") {
		return false, ""
	}

	normalized := ""
	if url != "" {
		normalized = NormalizeGitURL(url)
	}

	for _, entry := range c.doc.Blacklist {
		switch {
		case entry.UUID != "" && entry.URL != "":
			if pluginUUID == entry.UUID && normalized == NormalizeGitURL(entry.URL) {
				return true, reasonOr(entry.Reason, "plugin is blacklisted")
			}
		case entry.UUID != "":
			if pluginUUID != "" && pluginUUID == entry.UUID {
				return true, reasonOr(entry.Reason, "plugin UUID is blacklisted")
			}
		case entry.URL != "":
			if normalized != "" && normalized == NormalizeGitURL(entry.URL) {
				return true, reasonOr(entry.Reason, "plugin is blacklisted")
			}
		case entry.URLRegex != "":
			if normalized == "" {
				continue
			}
			pattern, err := regexp.Compile(entry.URLRegex)
			if err != nil {
				c.logger.Warn("invalid blacklist regex", logging.String("pattern", entry.URLRegex))
				continue
			}
			if pattern.MatchString(normalized) {
				return true, reasonOr(entry.Reason, "plugin matches blacklisted pattern")
			}
		}
	}
	return false, ""
}

func reasonOr(reason, fallback string) string {
	if reason != "" {
		return reason
	}
	return fallback
}

// TrustLevel returns the trust level for a plugin source URL.
func (c *Client) TrustLevel(ctx context.Context, url string) string {
	if !c.ensureLoaded(ctx, "trust level check") {
		return TrustUnregistered
	}
	normalized := NormalizeGitURL(url)
	for i := range c.doc.Plugins {
		if NormalizeGitURL(c.doc.Plugins[i].GitURL) == normalized {
			return c.doc.Plugins[i].Trust()
		}
	}
	return TrustUnregistered
}

// Query selects a registry plugin by ID, URL or UUID.
type Query struct {
	ID   string
	URL  string
	UUID string
}

// Find locates a registry plugin, following redirect_from and
// redirect_from_uuid entries when the direct lookup misses.
func (c *Client) Find(ctx context.Context, q Query) *Plugin {
	if !c.ensureLoaded(ctx, "plugin search") {
		return nil
	}

	normalized := ""
	if q.URL != "" {
		normalized = NormalizeGitURL(q.URL)
	}

	for i := range c.doc.Plugins {
		p := &c.doc.Plugins[i]
		if q.ID != "" && p.ID == q.ID {
			return p
		}
		if q.UUID != "" && p.UUID == q.UUID {
			return p
		}
		if normalized != "" && NormalizeGitURL(p.GitURL) == normalized {
			return p
		}
	}

	if normalized == "" && q.UUID == "" {
		return nil
	}
	for i := range c.doc.Plugins {
		p := &c.doc.Plugins[i]
		if normalized != "" {
			for _, old := range p.RedirectFrom {
				if NormalizeGitURL(old) == normalized {
					c.logger.Info("found plugin via URL redirect",
						logging.String("from", q.URL),
						logging.String("to", p.GitURL))
					return p
				}
			}
		}
		if q.UUID != "" {
			for _, old := range p.RedirectFromUUID {
				if old == q.UUID {
					c.logger.Info("found plugin via UUID redirect",
						logging.String("from", q.UUID),
						logging.String("to", p.UUID))
					return p
				}
			}
		}
	}
	return nil
}

// Filter narrows List results.
type Filter struct {
	Category   string
	TrustLevel string
}

// List returns registry plugins matching the filter. An unavailable registry
// yields an empty list.
func (c *Client) List(ctx context.Context, filter Filter) []Plugin {
	if !c.ensureLoaded(ctx, "plugin listing") {
		return nil
	}
	var result []Plugin
	for _, p := range c.doc.Plugins {
		if filter.TrustLevel != "" && p.Trust() != filter.TrustLevel {
			continue
		}
		if filter.Category != "" && !contains(p.Categories, filter.Category) {
			continue
		}
		result = append(result, p)
	}
	return result
}

// RegistryInfo returns metadata about the loaded registry.
func (c *Client) RegistryInfo(ctx context.Context) (Info, error) {
	if !c.ensureLoaded(ctx, "registry info") {
		return Info{}, fmt.Errorf("registry not loaded")
	}
	source := c.activeURL
	if source == "" && len(c.urls) > 0 {
		source = c.urls[0]
	}
	return Info{
		PluginCount: len(c.doc.Plugins),
		APIVersion:  c.doc.APIVersion,
		SourceURL:   source,
	}, nil
}

// maxSuggestions bounds Suggest output: a query matching more ids than this
// is too vague to hint on.
const maxSuggestions = 10

// Suggest returns registry ids resembling the given identifier, for typo
// hints when a lookup misses.
func (c *Client) Suggest(ctx context.Context, id string) []string {
	if !c.ensureLoaded(ctx, "plugin suggestions") {
		return nil
	}
	lowered := strings.ToLower(id)
	var suggestions []string
	for _, p := range c.doc.Plugins {
		candidate := strings.ToLower(p.ID)
		if candidate == lowered {
			continue
		}
		if strings.Contains(candidate, lowered) || strings.Contains(lowered, candidate) ||
			sharedPrefix(candidate, lowered) >= 3 {
			suggestions = append(suggestions, p.ID)
		}
	}
	if len(suggestions) > maxSuggestions {
		return nil
	}
	return suggestions
}

func sharedPrefix(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
