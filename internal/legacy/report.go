package legacy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"riff/internal/registry"
)

// Status classifies a legacy plugin's migration outlook.
type Status string

const (
	// StatusSuccessor means the registry carries a new-style version.
	StatusSuccessor Status = "successor"
	// StatusIncompatible means the plugin targets an API the host no longer
	// supports and has no known successor.
	StatusIncompatible Status = "incompatible"
	// StatusUnknown means the registry has no match; the plugin may still be
	// migrated by its author.
	StatusUnknown Status = "unknown"
)

// ReportEntry pairs a legacy plugin with its migration status.
type ReportEntry struct {
	Plugin    Plugin
	Status    Status
	Successor *registry.Plugin
}

// UpgradeWarning is shown once after upgrading from the old plugin system.
const UpgradeWarning = "Old-style plugins are no longer loaded. " +
	"Run 'riff migrate' to see which of your plugins have new versions available."

// Report matches scanned legacy plugins against the registry by name.
func Report(ctx context.Context, plugins []Plugin, reg *registry.Client) []ReportEntry {
	entries := make([]ReportEntry, 0, len(plugins))
	for _, plugin := range plugins {
		entry := ReportEntry{Plugin: plugin, Status: StatusUnknown}
		if successor := findByName(ctx, reg, plugin.Name); successor != nil {
			entry.Status = StatusSuccessor
			entry.Successor = successor
		} else if len(plugin.APIVersions) > 0 && !hasCurrentAPI(plugin.APIVersions) {
			entry.Status = StatusIncompatible
		}
		entries = append(entries, entry)
	}
	return entries
}

func findByName(ctx context.Context, reg *registry.Client, name string) *registry.Plugin {
	if reg == nil || name == "" {
		return nil
	}
	for _, p := range reg.List(ctx, registry.Filter{}) {
		if strings.EqualFold(p.Name, name) {
			found := p
			return &found
		}
	}
	return nil
}

func hasCurrentAPI(versions []string) bool {
	for _, v := range versions {
		if v == "1.0" || v == "2.0" {
			return true
		}
	}
	return false
}

const migrationMarker = "legacy_migration_notified"

// MarkNotified records that the upgrade warning was shown so it only
// appears once.
func MarkNotified(stateDir string) error {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	path := filepath.Join(stateDir, migrationMarker)
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return fmt.Errorf("write migration marker: %w", err)
	}
	return nil
}

// WasNotified reports whether the upgrade warning was already shown.
func WasNotified(stateDir string) bool {
	_, err := os.Stat(filepath.Join(stateDir, migrationMarker))
	return err == nil
}
