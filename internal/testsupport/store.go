package testsupport

import (
	"context"
	"testing"

	"riff/internal/config"
	"riff/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg.Paths.StateDB)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

// SeedPlugin saves an installed-plugin record for tests.
func SeedPlugin(t testing.TB, st *store.Store, p *store.InstalledPlugin) {
	t.Helper()

	if err := st.Save(context.Background(), p); err != nil {
		t.Fatalf("store.Save: %v", err)
	}
}
