package pluginapi

import (
	"testing"

	"riff/internal/extpoint"
)

const testUUID = "11111111-1111-4111-8111-111111111111"

func newTestAPI(t *testing.T, points *extpoint.Registry) *API {
	t.Helper()
	settings := NewSettings(t.TempDir())
	section, err := settings.Section(testUUID)
	if err != nil {
		t.Fatalf("settings section: %v", err)
	}
	return New(testUUID, "example", nil, points, section)
}

func TestRegistrationsOwnedByPlugin(t *testing.T) {
	points := extpoint.NewRegistry()
	api := newTestAPI(t, points)

	if err := api.RegisterTrackMetadataProcessor(extpoint.PriorityNormal, "proc"); err != nil {
		t.Fatalf("register processor: %v", err)
	}
	if err := api.RegisterScriptFunction("swapprefix", "fn"); err != nil {
		t.Fatalf("register script function: %v", err)
	}
	if err := api.RegisterFileFormat("tak", "format"); err != nil {
		t.Fatalf("register format: %v", err)
	}

	if got := points.OwnerCount(testUUID); got != 3 {
		t.Errorf("owner count = %d, want 3", got)
	}
	if removed := api.Revoke(); removed != 3 {
		t.Errorf("revoked = %d, want 3", removed)
	}
	if got := points.OwnerCount(testUUID); got != 0 {
		t.Errorf("owner count after revoke = %d", got)
	}
}

func TestNamedRegistrationValidation(t *testing.T) {
	api := newTestAPI(t, extpoint.NewRegistry())
	if err := api.RegisterScriptFunction("", "fn"); err == nil {
		t.Error("empty script function name should fail")
	}
	if err := api.RegisterFileFormat("", "format"); err == nil {
		t.Error("empty format name should fail")
	}
}

func TestModuleRegistry(t *testing.T) {
	uuid := "33333333-3333-4333-8333-333333333333"
	RegisterModule(uuid, func() Module { return &fakeModule{} })

	if m := LookupModule(uuid); m == nil {
		t.Error("linked module should resolve")
	}
	if m := LookupModule("44444444-4444-4444-8444-444444444444"); m != nil {
		t.Error("unknown UUID should resolve to nil")
	}
}

type fakeModule struct{ enabled bool }

func (m *fakeModule) Enable(*API) error { m.enabled = true; return nil }
func (m *fakeModule) Disable() error    { m.enabled = false; return nil }

func TestSettingsSection(t *testing.T) {
	dir := t.TempDir()
	settings := NewSettings(dir)

	section, err := settings.Section(testUUID)
	if err != nil {
		t.Fatal(err)
	}
	if got := section.Get("server", "default"); got != "default" {
		t.Errorf("unset key = %q", got)
	}
	if err := section.Set("server", "https://example.org"); err != nil {
		t.Fatal(err)
	}

	// Values survive reload.
	reloaded, err := settings.Section(testUUID)
	if err != nil {
		t.Fatal(err)
	}
	if got := reloaded.Get("server", ""); got != "https://example.org" {
		t.Errorf("reloaded value = %q", got)
	}

	if err := reloaded.Delete("server"); err != nil {
		t.Fatal(err)
	}
	if got := reloaded.Get("server", "gone"); got != "gone" {
		t.Errorf("deleted key = %q", got)
	}

	if err := settings.Purge(testUUID); err != nil {
		t.Fatal(err)
	}
	fresh, err := settings.Section(testUUID)
	if err != nil {
		t.Fatal(err)
	}
	if keys := fresh.Keys(); len(keys) != 0 {
		t.Errorf("purged section has keys: %v", keys)
	}
	// Purging twice is fine.
	if err := settings.Purge(testUUID); err != nil {
		t.Errorf("repeat purge failed: %v", err)
	}
}
