package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validManifest = `
uuid = "ad9d1f76-3b3e-4a0e-9f0a-6d3a0c2b1e11"
name = "Example Plugin"
version = "1.0.0"
description = "Does example things."
api = ["3.0"]
authors = ["Example Author"]
license = "GPL-3.0-or-later"
source_locale = "en"
`

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, validManifest)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Name != "Example Plugin" {
		t.Errorf("unexpected name: %q", m.Name)
	}
	if len(m.API) != 1 || m.API[0] != "3.0" {
		t.Errorf("unexpected api versions: %v", m.API)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadInvalidManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `name = "No UUID"`)

	_, err := Load(dir)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Problems) < 3 {
		t.Errorf("expected problems for uuid, description and api, got %v", verr.Problems)
	}
}

func TestParseMalformedTOML(t *testing.T) {
	if _, err := Parse(strings.NewReader("uuid = [unclosed")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSourceLocaleOrDefault(t *testing.T) {
	m := &Manifest{}
	if got := m.SourceLocaleOrDefault(); got != "en" {
		t.Errorf("default locale = %q, want en", got)
	}
	m.SourceLocale = "de"
	if got := m.SourceLocaleOrDefault(); got != "de" {
		t.Errorf("locale = %q, want de", got)
	}
}

func TestLocalized(t *testing.T) {
	m := &Manifest{
		Name: "Example Plugin",
		NameI18n: map[string]string{
			"de": "Beispiel-Plugin",
			"fr": "Extension exemple",
		},
	}

	if got := m.LocalizedName("de"); got != "Beispiel-Plugin" {
		t.Errorf("LocalizedName(de) = %q", got)
	}
	// Regional variant falls back to the base language entry.
	if got := m.LocalizedName("de_AT"); got != "Beispiel-Plugin" {
		t.Errorf("LocalizedName(de_AT) = %q", got)
	}
	if got := m.LocalizedName("ja"); got != "Example Plugin" {
		t.Errorf("LocalizedName(ja) should fall back, got %q", got)
	}
	if got := m.LocalizedName(""); got != "Example Plugin" {
		t.Errorf("LocalizedName(\"\") should fall back, got %q", got)
	}
	if got := m.LocalizedDescription("de"); got != "" {
		t.Errorf("LocalizedDescription with no table should be empty, got %q", got)
	}
}
