package plugins

import (
	"context"
	"strings"

	"riff/internal/registry"
	"riff/internal/store"
)

// Find resolves a user-supplied identifier to an installed plugin. The
// identifier may be a directory name, display name, UUID or registry id;
// exact matches win, then a unique prefix of any of those.
func (m *Manager) Find(ctx context.Context, identifier string) (*store.InstalledPlugin, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrNotInstalled
	}

	plugins, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}

	lowered := strings.ToLower(identifier)
	for _, p := range plugins {
		if p.UUID == lowered || p.DirName == identifier ||
			strings.EqualFold(p.Name, identifier) {
			return p, nil
		}
	}

	// Registry id: resolve to UUID or URL, then match installed records.
	if m.registry != nil {
		if entry := m.registry.Find(ctx, registry.Query{ID: identifier}); entry != nil {
			for _, p := range plugins {
				if p.UUID == entry.UUID || p.URL == registry.NormalizeGitURL(entry.GitURL) {
					return p, nil
				}
			}
		}
	}

	var matches []*store.InstalledPlugin
	for _, p := range plugins {
		if strings.HasPrefix(strings.ToLower(p.DirName), lowered) ||
			strings.HasPrefix(strings.ToLower(p.Name), lowered) ||
			strings.HasPrefix(p.UUID, lowered) {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return nil, ErrNotInstalled
	default:
		names := make([]string, len(matches))
		for i, p := range matches {
			names[i] = p.DirName
		}
		return nil, &AmbiguousError{Identifier: identifier, Matches: names}
	}
}

// List returns all installed plugin records.
func (m *Manager) List(ctx context.Context) ([]*store.InstalledPlugin, error) {
	return m.store.List(ctx)
}
