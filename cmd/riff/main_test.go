package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"riff/internal/refscache"
	"riff/internal/store"
	"riff/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	stateDB    string
	pluginDir  string
	cacheDir   string
}

func setupCLITestEnv(t *testing.T, registryURLs ...string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "config.toml"),
		stateDB:    filepath.Join(base, "state.db"),
		pluginDir:  filepath.Join(base, "plugins"),
		cacheDir:   filepath.Join(base, "cache"),
	}

	urls := make([]string, 0, len(registryURLs))
	for _, u := range registryURLs {
		urls = append(urls, fmt.Sprintf("%q", u))
	}

	content := fmt.Sprintf(`[paths]
plugin_dir = %q
cache_dir = %q
state_db = %q
log_dir = %q

[registry]
urls = [%s]

[host]
api_versions = ["3.0", "3.1"]
`,
		env.pluginDir,
		env.cacheDir,
		env.stateDB,
		filepath.Join(base, "logs"),
		strings.Join(urls, ", "),
	)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, fragment string) {
	t.Helper()
	if !strings.Contains(output, fragment) {
		t.Fatalf("expected output to contain %q, got %q", fragment, output)
	}
}

func seedPlugin(t *testing.T, env *cliTestEnv, p *store.InstalledPlugin) {
	t.Helper()
	st, err := store.Open(env.stateDB)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()
	testsupport.SeedPlugin(t, st, p)
}

func TestCLIListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "No plugins installed.")
}

func TestCLIListAndInfo(t *testing.T) {
	env := setupCLITestEnv(t)
	seedPlugin(t, env, &store.InstalledPlugin{
		UUID:       "33333333-3333-4333-8333-333333333333",
		Name:       "Cover Fetcher",
		DirName:    "cover_fetcher_33333333-3333-4333-8333-333333333333",
		URL:        "https://example.org/cover-fetcher.git",
		Ref:        "main",
		RefType:    "branch",
		Commit:     "0123456789abcdef",
		Version:    "2.1.0",
		TrustLevel: "community",
	})

	out, _, err := runCLI(t, env, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "Cover Fetcher")
	requireContains(t, out, "2.1.0")

	out, _, err = runCLI(t, env, "list", "--json")
	if err != nil {
		t.Fatalf("list --json: %v", err)
	}
	requireContains(t, out, `"uuid": "33333333-3333-4333-8333-333333333333"`)

	// Info falls back to the stored record when the plugin tree is missing.
	out, _, err = runCLI(t, env, "info", "cover")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	requireContains(t, out, "Cover Fetcher")
	requireContains(t, out, "https://example.org/cover-fetcher.git")
}

func TestCLIUpdateRequiresTarget(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env, "update")
	if err == nil || !strings.Contains(err.Error(), "--all") {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestCLIRegistryUnconfigured(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env, "registry", "list")
	if err == nil || !strings.Contains(err.Error(), "no registry configured") {
		t.Fatalf("expected registry error, got %v", err)
	}
}

func TestCLIConfigInit(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err := runCLI(t, env, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error without --overwrite")
	}
	if _, _, err := runCLI(t, env, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

// writeRegistryFile writes a registry document the CLI can load as a local
// file URL.
func writeRegistryFile(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.json")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write registry: %v", err)
	}
	return path
}

func TestCLIStartupDisablesBlacklisted(t *testing.T) {
	const uuid = "55555555-5555-4555-8555-555555555555"
	regPath := writeRegistryFile(t, `{
  "api_version": "1.0",
  "plugins": [],
  "blacklist": [{"uuid": "`+uuid+`", "reason": "malware"}]
}`)
	env := setupCLITestEnv(t, regPath)

	st, err := store.Open(env.stateDB)
	if err != nil {
		t.Fatal(err)
	}
	testsupport.SeedPlugin(t, st, &store.InstalledPlugin{
		UUID:    uuid,
		Name:    "Shady Plugin",
		DirName: "shady_plugin_" + uuid,
		URL:     "https://example.org/shady.git",
		Ref:     "main",
		RefType: "branch",
		Commit:  "abc123",
	})
	if err := st.SetEnabled(context.Background(), uuid, true); err != nil {
		t.Fatal(err)
	}
	st.Close()

	// Any plugin command reconciles state against the registry first.
	if _, _, err := runCLI(t, env, "list"); err != nil {
		t.Fatalf("list: %v", err)
	}

	st, err = store.Open(env.stateDB)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	record, err := st.Get(context.Background(), uuid)
	if err != nil {
		t.Fatal(err)
	}
	if record.Enabled {
		t.Error("blacklisted plugin still enabled after startup")
	}
}

func TestCLIConfigCommandsHonorConfigFlag(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "# "+env.configPath)
	requireContains(t, out, env.pluginDir)

	out, _, err = runCLI(t, env, "config", "path")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	requireContains(t, out, env.configPath)

	out, _, err = runCLI(t, env, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, env.configPath)
}

func TestCLIRegistryRefreshClearsRefsCache(t *testing.T) {
	regPath := writeRegistryFile(t, `{"api_version": "1.0", "plugins": [], "blacklist": []}`)
	env := setupCLITestEnv(t, regPath)

	refsPath := filepath.Join(env.cacheDir, refscache.FileName)
	if err := os.MkdirAll(env.cacheDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(refsPath, []byte(`{"version": 2, "data": {}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, env, "registry", "refresh")
	if err != nil {
		t.Fatalf("registry refresh: %v", err)
	}
	requireContains(t, out, "Registry refreshed")
	if _, err := os.Stat(refsPath); !os.IsNotExist(err) {
		t.Errorf("refs cache still present: %v", err)
	}
}

func TestCLIMigrateScan(t *testing.T) {
	env := setupCLITestEnv(t)

	legacyDir := filepath.Join(env.baseDir, "legacy")
	if err := os.MkdirAll(legacyDir, 0o755); err != nil {
		t.Fatal(err)
	}
	source := "PLUGIN_NAME = \"Old Tagger\"\nPLUGIN_VERSION = \"0.3\"\nPLUGIN_API_VERSIONS = [\"2.0\"]\n"
	if err := os.WriteFile(filepath.Join(legacyDir, "old_tagger.py"), []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, env, "migrate", legacyDir)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	requireContains(t, out, "Old Tagger")

	scaffoldDir := filepath.Join(env.baseDir, "scaffolds")
	out, _, err = runCLI(t, env, "migrate", legacyDir, "--scaffold", scaffoldDir)
	if err != nil {
		t.Fatalf("migrate --scaffold: %v", err)
	}
	requireContains(t, out, "old_tagger.MANIFEST.toml")
	if _, err := os.Stat(filepath.Join(scaffoldDir, "old_tagger.MANIFEST.toml")); err != nil {
		t.Fatalf("expected scaffold file: %v", err)
	}

	// Without an argument the configured legacy dir is required.
	if _, _, err := runCLI(t, env, "migrate"); err == nil {
		t.Fatal("migrate without a directory should fail")
	}
}
