package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var testDoc = Document{
	APIVersion: "1.0",
	Plugins: []Plugin{
		{
			ID:               "example",
			UUID:             "11111111-1111-4111-8111-111111111111",
			Name:             "Example",
			GitURL:           "https://example.org/example.git",
			TrustLevel:       TrustOfficial,
			Categories:       []string{"metadata"},
			VersioningScheme: "semver",
			RedirectFrom:     []string{"https://old.example.org/example.git"},
			RedirectFromUUID: []string{"99999999-9999-4999-8999-999999999999"},
		},
		{
			ID:     "other",
			UUID:   "22222222-2222-4222-8222-222222222222",
			Name:   "Other",
			GitURL: "https://example.org/other.git",
		},
	},
	Blacklist: []BlacklistEntry{
		{UUID: "bad00000-0000-4000-8000-000000000000", Reason: "malware"},
		{URL: "https://evil.example.org/plugin.git"},
		{URLRegex: `^https://banned\.example\.org/`, Reason: "banned host"},
	},
}

func serveDoc(t *testing.T, doc Document) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if err := json.NewEncoder(w).Encode(doc); err != nil {
			t.Errorf("encode registry: %v", err)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, urls []string) *Client {
	t.Helper()
	return New(urls, t.TempDir(), nil, WithSleep(func(time.Duration) {}))
}

func TestFetchAndQueries(t *testing.T) {
	server := serveDoc(t, testDoc)
	client := newTestClient(t, []string{server.URL})
	ctx := context.Background()

	if err := client.Fetch(ctx, false); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	info, err := client.RegistryInfo(ctx)
	if err != nil {
		t.Fatalf("RegistryInfo failed: %v", err)
	}
	if info.PluginCount != 2 || info.APIVersion != "1.0" || info.SourceURL != server.URL {
		t.Errorf("unexpected info: %+v", info)
	}

	if got := client.TrustLevel(ctx, "https://example.org/example.git"); got != TrustOfficial {
		t.Errorf("trust = %q", got)
	}
	// Registered without explicit level defaults to community.
	if got := client.TrustLevel(ctx, "https://example.org/other.git"); got != TrustCommunity {
		t.Errorf("trust = %q", got)
	}
	if got := client.TrustLevel(ctx, "https://example.org/unknown.git"); got != TrustUnregistered {
		t.Errorf("trust = %q", got)
	}
}

func TestFetchWritesAndReadsCache(t *testing.T) {
	server := serveDoc(t, testDoc)
	cacheDir := t.TempDir()
	client := New([]string{server.URL}, cacheDir, nil)
	ctx := context.Background()

	if err := client.Fetch(ctx, false); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if _, err := os.Stat(client.CachePath()); err != nil {
		t.Fatalf("cache file missing: %v", err)
	}

	// A second client must work from cache alone.
	server.Close()
	cached := New([]string{server.URL}, cacheDir, nil)
	if err := cached.Fetch(ctx, true); err != nil {
		t.Fatalf("cached Fetch failed: %v", err)
	}
	if got := cached.TrustLevel(ctx, "https://example.org/example.git"); got != TrustOfficial {
		t.Errorf("trust from cache = %q", got)
	}
}

func TestFetchCacheExpiry(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(testDoc)
	}))
	defer server.Close()
	cacheDir := t.TempDir()
	ctx := context.Background()

	client := New([]string{server.URL}, cacheDir, nil)
	if err := client.Fetch(ctx, true); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	// A fresh cache short-circuits the network.
	if err := New([]string{server.URL}, cacheDir, nil).Fetch(ctx, true); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("fresh cache refetched, calls = %d", calls)
	}

	// An expired cache triggers a refetch.
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(client.CachePath(), old, old); err != nil {
		t.Fatal(err)
	}
	if err := New([]string{server.URL}, cacheDir, nil).Fetch(ctx, true); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("expired cache not refetched, calls = %d", calls)
	}

	// When every URL fails, the expired snapshot is still better than nothing.
	if err := os.Chtimes(client.CachePath(), old, old); err != nil {
		t.Fatal(err)
	}
	server.Close()
	degraded := New([]string{server.URL}, cacheDir, nil, WithSleep(func(time.Duration) {}))
	if err := degraded.Fetch(ctx, true); err != nil {
		t.Fatalf("expected stale-cache fallback, got %v", err)
	}
	if got := degraded.TrustLevel(ctx, "https://example.org/example.git"); got != TrustOfficial {
		t.Errorf("trust from stale cache = %q", got)
	}
}

func TestFetchLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	data, err := json.Marshal(testDoc)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	client := newTestClient(t, []string{path})
	if err := client.Fetch(context.Background(), false); err != nil {
		t.Fatalf("Fetch from local file failed: %v", err)
	}
}

func TestFetchFallsBackToNextURL(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer failing.Close()
	working := serveDoc(t, testDoc)

	client := newTestClient(t, []string{failing.URL, working.URL})
	ctx := context.Background()
	if err := client.Fetch(ctx, false); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	info, err := client.RegistryInfo(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if info.SourceURL != working.URL {
		t.Errorf("active URL = %q, want fallback %q", info.SourceURL, working.URL)
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(testDoc)
	}))
	defer server.Close()

	client := newTestClient(t, []string{server.URL})
	if err := client.Fetch(context.Background(), false); err != nil {
		t.Fatalf("Fetch should succeed after retries: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestFailSafeDegradation(t *testing.T) {
	client := newTestClient(t, []string{"https://127.0.0.1:1/registry.json"})
	// Remote is unreachable; keep the test fast by failing the dial quickly.
	client.http = &http.Client{Timeout: 100 * time.Millisecond}
	ctx := context.Background()

	if blocked, _ := client.IsBlacklisted(ctx, "https://example.org/p.git", ""); blocked {
		t.Error("blacklist check should fail open")
	}
	if got := client.TrustLevel(ctx, "https://example.org/p.git"); got != TrustUnregistered {
		t.Errorf("trust = %q, want unregistered", got)
	}
	if plugins := client.List(ctx, Filter{}); plugins != nil {
		t.Errorf("list should be empty, got %v", plugins)
	}
	if p := client.Find(ctx, Query{ID: "example"}); p != nil {
		t.Errorf("find should return nil, got %v", p)
	}
}

func TestIsBlacklisted(t *testing.T) {
	server := serveDoc(t, testDoc)
	client := newTestClient(t, []string{server.URL})
	ctx := context.Background()

	cases := []struct {
		name    string
		url     string
		uuid    string
		blocked bool
		reason  string
	}{
		{"by uuid", "https://anywhere.example.org/x.git", "bad00000-0000-4000-8000-000000000000", true, "malware"},
		{"by url", "https://evil.example.org/plugin.git", "", true, "plugin is blacklisted"},
		{"by regex", "https://banned.example.org/anything.git", "", true, "banned host"},
		{"clean", "https://example.org/example.git", "11111111-1111-4111-8111-111111111111", false, ""},
	}
	for _, tc := range cases {
		blocked, reason := client.IsBlacklisted(ctx, tc.url, tc.uuid)
		if blocked != tc.blocked || reason != tc.reason {
			t.Errorf("%s: blocked=%v reason=%q, want blocked=%v reason=%q", tc.name, blocked, reason, tc.blocked, tc.reason)
		}
	}
}

func TestFind(t *testing.T) {
	server := serveDoc(t, testDoc)
	client := newTestClient(t, []string{server.URL})
	ctx := context.Background()

	if p := client.Find(ctx, Query{ID: "example"}); p == nil || p.Name != "Example" {
		t.Errorf("find by id = %v", p)
	}
	if p := client.Find(ctx, Query{UUID: "22222222-2222-4222-8222-222222222222"}); p == nil || p.ID != "other" {
		t.Errorf("find by uuid = %v", p)
	}
	if p := client.Find(ctx, Query{URL: "https://example.org/example.git"}); p == nil || p.ID != "example" {
		t.Errorf("find by url = %v", p)
	}
	// Redirects.
	if p := client.Find(ctx, Query{URL: "https://old.example.org/example.git"}); p == nil || p.ID != "example" {
		t.Errorf("find by redirect url = %v", p)
	}
	if p := client.Find(ctx, Query{UUID: "99999999-9999-4999-8999-999999999999"}); p == nil || p.ID != "example" {
		t.Errorf("find by redirect uuid = %v", p)
	}
	if p := client.Find(ctx, Query{ID: "missing"}); p != nil {
		t.Errorf("find missing = %v", p)
	}
}

func TestSuggest(t *testing.T) {
	server := serveDoc(t, testDoc)
	client := newTestClient(t, []string{server.URL})
	ctx := context.Background()

	if got := client.Suggest(ctx, "exaple"); len(got) != 1 || got[0] != "example" {
		t.Errorf("suggest typo = %v, want [example]", got)
	}
	if got := client.Suggest(ctx, "amp"); len(got) != 1 || got[0] != "example" {
		t.Errorf("suggest fragment = %v, want [example]", got)
	}
	// An exact match needs no suggestion for itself.
	if got := client.Suggest(ctx, "other"); len(got) != 0 {
		t.Errorf("suggest exact = %v, want none", got)
	}
	if got := client.Suggest(ctx, "zzz"); len(got) != 0 {
		t.Errorf("suggest unrelated = %v, want none", got)
	}

	// A query matching most of the registry is too vague to hint on.
	var wide Document
	wide.APIVersion = "1.0"
	for i := 0; i < maxSuggestions+2; i++ {
		wide.Plugins = append(wide.Plugins, Plugin{ID: fmt.Sprintf("plugin-%02d", i)})
	}
	crowded := newTestClient(t, []string{serveDoc(t, wide).URL})
	if got := crowded.Suggest(ctx, "plugin"); got != nil {
		t.Errorf("vague query suggested %d ids, want none", len(got))
	}
}

func TestList(t *testing.T) {
	server := serveDoc(t, testDoc)
	client := newTestClient(t, []string{server.URL})
	ctx := context.Background()

	if got := len(client.List(ctx, Filter{})); got != 2 {
		t.Errorf("unfiltered count = %d", got)
	}
	if got := client.List(ctx, Filter{Category: "metadata"}); len(got) != 1 || got[0].ID != "example" {
		t.Errorf("category filter = %v", got)
	}
	if got := client.List(ctx, Filter{TrustLevel: TrustOfficial}); len(got) != 1 || got[0].ID != "example" {
		t.Errorf("trust filter = %v", got)
	}
	if got := client.List(ctx, Filter{TrustLevel: TrustCommunity}); len(got) != 1 || got[0].ID != "other" {
		t.Errorf("default trust filter = %v", got)
	}
}
