package plugins

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"riff/internal/logging"
	"riff/internal/manifest"
	"riff/internal/pluginver"
)

// Discovered is one plugin directory found during a scan.
type Discovered struct {
	DirName    string
	Path       string
	Manifest   *manifest.Manifest
	Compatible bool
	Err        error
}

// Discover scans the plugin directory for installed plugins. Directories
// with unreadable or invalid manifests are reported with their error instead
// of aborting the scan; dot-directories (including temp clones) are skipped.
func (m *Manager) Discover() ([]Discovered, error) {
	entries, err := os.ReadDir(m.pluginDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var found []Discovered
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(m.pluginDir, entry.Name())
		d := Discovered{DirName: entry.Name(), Path: path}

		mf, err := manifest.Load(path)
		if err != nil {
			d.Err = err
			m.logger.Warn("plugin manifest unreadable",
				logging.String("path", path), logging.Error(err))
		} else {
			d.Manifest = mf
			d.Compatible = pluginver.Compatible(mf.API, m.hostAPIVersions)
		}
		found = append(found, d)
	}
	return found, nil
}

// StartupCheck reconciles persisted state against the registry at startup:
// plugins that have become blacklisted are disabled with a warning.
func (m *Manager) StartupCheck(ctx context.Context) {
	if m.registry == nil {
		return
	}
	records, err := m.store.List(ctx)
	if err != nil {
		m.logger.Warn("cannot list installed plugins", logging.Error(err))
		return
	}
	for _, p := range records {
		if !p.Enabled {
			continue
		}
		if blocked, reason := m.registry.IsBlacklisted(ctx, p.URL, p.UUID); blocked {
			m.logger.Warn("disabling blacklisted plugin",
				logging.String(logging.FieldPlugin, p.Name),
				logging.String("reason", reason))
			if err := m.Disable(ctx, p.UUID); err != nil {
				m.logger.Error("cannot disable blacklisted plugin",
					logging.String(logging.FieldPlugin, p.Name), logging.Error(err))
			}
		}
	}
}
