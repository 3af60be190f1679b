package plugins

import (
	"context"
	"errors"
	"fmt"

	"riff/internal/gitcmd"
	"riff/internal/logging"
	"riff/internal/manifest"
	"riff/internal/pluginver"
	"riff/internal/registry"
	"riff/internal/store"
)

// UpdateOptions tune an update.
type UpdateOptions struct {
	// Discard throws away local modifications instead of refusing.
	Discard bool
}

// UpdateResult reports one plugin's update outcome.
type UpdateResult struct {
	Plugin    *store.InstalledPlugin
	OldCommit string
	NewCommit string
	NewRef    string
	// Updated is false when the plugin was already current.
	Updated bool
	// Skipped holds the reason update did not apply (commit pin).
	Skipped error
	Err     error
}

// Update brings one plugin to the newest commit of its effective ref, or to
// a newer version tag when the registry defines a versioning scheme.
func (m *Manager) Update(ctx context.Context, identifier string, opts UpdateOptions) (*UpdateResult, error) {
	var result *UpdateResult
	err := m.withLock(ctx, func() error {
		p, err := m.Find(ctx, identifier)
		if err != nil {
			return err
		}
		result = m.update(ctx, p, opts)
		return result.Err
	})
	if result == nil {
		return nil, err
	}
	return result, err
}

// UpdateAll updates every installed plugin, aggregating per-plugin results.
// Commit-pinned plugins are reported as skipped, not failed.
func (m *Manager) UpdateAll(ctx context.Context, opts UpdateOptions) ([]*UpdateResult, error) {
	var results []*UpdateResult
	err := m.withLock(ctx, func() error {
		plugins, err := m.store.List(ctx)
		if err != nil {
			return err
		}
		for _, p := range plugins {
			results = append(results, m.update(ctx, p, opts))
		}
		return nil
	})
	return results, err
}

func (m *Manager) update(ctx context.Context, p *store.InstalledPlugin, opts UpdateOptions) *UpdateResult {
	result := &UpdateResult{Plugin: p, OldCommit: p.Commit, NewRef: p.Ref}

	if p.RefType == string(gitcmd.RefTypeCommit) {
		result.Skipped = ErrCommitPinned
		return result
	}

	dir := m.pluginPath(p)
	dirty, err := m.git.IsDirty(ctx, dir)
	if err != nil {
		result.Err = err
		return result
	}
	if dirty && !opts.Discard {
		result.Err = fmt.Errorf("%w: pass discard to overwrite", ErrDirtyWorkingTree)
		return result
	}

	if m.applyRedirects(ctx, p, dir) {
		// Persist the redirect even when no new commit follows.
		if err := m.store.Save(ctx, p); err != nil {
			result.Err = err
			return result
		}
	}

	if err := m.git.Fetch(ctx, dir); err != nil {
		result.Err = fmt.Errorf("fetch %s: %w", p.Name, err)
		return result
	}

	targetRef := p.Ref
	if p.RefType == string(gitcmd.RefTypeTag) {
		// Tag installs only move to a newer tag under the plugin's
		// versioning scheme.
		scheme := m.versioningScheme(ctx, p)
		if scheme == "" {
			result.Skipped = fmt.Errorf("tag-pinned plugin has no versioning scheme")
			return result
		}
		tags := m.versionTags(ctx, p.URL, dir, scheme)
		newer := pluginver.NewerTag(tags, p.Ref, scheme)
		if newer == "" {
			return result
		}
		targetRef = newer
	}

	refType, commit, err := m.git.ClassifyRef(ctx, dir, targetRef)
	if err != nil {
		result.Err = err
		return result
	}
	if commit == p.Commit {
		return result
	}

	if err := m.checkoutValidated(ctx, p, dir, commit); err != nil {
		result.Err = err
		return result
	}

	p.Ref = targetRef
	p.RefType = string(refType)
	p.Commit = commit
	if mf, err := manifest.Load(dir); err == nil {
		p.Version = mf.Version
	}
	if err := m.store.Save(ctx, p); err != nil {
		result.Err = err
		return result
	}

	result.NewRef = targetRef
	result.NewCommit = commit
	result.Updated = true
	m.logger.Info("plugin updated",
		logging.String(logging.FieldPlugin, p.Name),
		logging.String(logging.FieldRef, targetRef),
		logging.String(logging.FieldCommit, commit))
	return result
}

// checkoutValidated checks out a commit and re-validates the manifest,
// rolling back to the previous commit when the new tree is invalid.
func (m *Manager) checkoutValidated(ctx context.Context, p *store.InstalledPlugin, dir, commit string) error {
	if err := m.git.Checkout(ctx, dir, commit); err != nil {
		return fmt.Errorf("checkout %s: %w", commit, err)
	}
	if _, err := manifest.Load(dir); err != nil {
		if rbErr := m.git.ResetHard(ctx, dir, p.Commit); rbErr != nil {
			m.logger.Error("rollback failed",
				logging.String(logging.FieldPlugin, p.Name), logging.Error(rbErr))
		}
		return fmt.Errorf("updated tree is invalid, rolled back: %w", err)
	}
	return nil
}

// applyRedirects follows registry URL and UUID redirects, preserving the
// original source in the record. Reports whether the record changed.
func (m *Manager) applyRedirects(ctx context.Context, p *store.InstalledPlugin, dir string) bool {
	if m.registry == nil {
		return false
	}
	entry := m.registry.Find(ctx, registry.Query{URL: p.URL, UUID: p.UUID})
	if entry == nil {
		return false
	}
	changed := false

	if newURL := registry.NormalizeGitURL(entry.GitURL); newURL != "" && newURL != p.URL {
		if err := m.git.SetRemoteURL(ctx, dir, newURL); err != nil {
			m.logger.Warn("cannot apply URL redirect",
				logging.String(logging.FieldPlugin, p.Name), logging.Error(err))
		} else {
			m.logger.Info("plugin repository moved",
				logging.String("from", p.URL), logging.String("to", newURL))
			if p.OriginalURL == "" {
				p.OriginalURL = p.URL
			}
			p.URL = newURL
			changed = true
		}
	}
	if entry.UUID != "" && entry.UUID != p.UUID && p.OriginalUUID == "" {
		p.OriginalUUID = p.UUID
		changed = true
	}
	return changed
}

func (m *Manager) versioningScheme(ctx context.Context, p *store.InstalledPlugin) string {
	if m.registry == nil {
		return ""
	}
	if entry := m.registry.Find(ctx, registry.Query{URL: p.URL, UUID: p.UUID}); entry != nil {
		return entry.VersioningScheme
	}
	return ""
}

// UpdateCheck is one plugin's dry-run update status.
type UpdateCheck struct {
	Plugin          *store.InstalledPlugin
	CurrentCommit   string
	LatestCommit    string
	NewerTag        string
	UpdateAvailable bool
	Pinned          bool
}

// CheckUpdates reports available updates without changing anything.
func (m *Manager) CheckUpdates(ctx context.Context) ([]*UpdateCheck, error) {
	plugins, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}

	var checks []*UpdateCheck
	for _, p := range plugins {
		check := &UpdateCheck{Plugin: p, CurrentCommit: p.Commit}
		checks = append(checks, check)

		if p.RefType == string(gitcmd.RefTypeCommit) {
			check.Pinned = true
			continue
		}

		if p.RefType == string(gitcmd.RefTypeTag) {
			scheme := m.versioningScheme(ctx, p)
			if scheme == "" {
				continue
			}
			tags := m.versionTags(ctx, p.URL, "", scheme)
			if newer := pluginver.NewerTag(tags, p.Ref, scheme); newer != "" {
				check.NewerTag = newer
				check.UpdateAvailable = true
			}
			continue
		}

		remote, err := m.git.LsRemote(ctx, p.URL)
		if err != nil {
			m.logger.Warn("cannot check updates",
				logging.String(logging.FieldPlugin, p.Name), logging.Error(err))
			continue
		}
		for _, ref := range remote {
			if ref.Type == gitcmd.RefTypeBranch && ref.Name == p.Ref {
				check.LatestCommit = ref.Commit
				check.UpdateAvailable = ref.Commit != p.Commit
				break
			}
		}
	}
	return checks, nil
}

// SwitchRef checks out an arbitrary branch, tag or commit with the same
// dirty-tree protection and validate-or-rollback behavior as updates.
func (m *Manager) SwitchRef(ctx context.Context, identifier, ref string, discard bool) (*store.InstalledPlugin, error) {
	if ref == "" {
		return nil, errors.New("target ref required")
	}
	var p *store.InstalledPlugin
	err := m.withLock(ctx, func() error {
		var err error
		p, err = m.Find(ctx, identifier)
		if err != nil {
			return err
		}
		dir := m.pluginPath(p)

		dirty, err := m.git.IsDirty(ctx, dir)
		if err != nil {
			return err
		}
		if dirty && !discard {
			return fmt.Errorf("%w: pass discard to overwrite", ErrDirtyWorkingTree)
		}
		if err := m.git.Fetch(ctx, dir); err != nil {
			return fmt.Errorf("fetch %s: %w", p.Name, err)
		}

		refType, commit, err := m.git.ClassifyRef(ctx, dir, ref)
		if err != nil {
			return err
		}
		if commit != p.Commit {
			if err := m.checkoutValidated(ctx, p, dir, commit); err != nil {
				return err
			}
		}

		p.Ref = ref
		p.RefType = string(refType)
		p.Commit = commit
		if mf, err := manifest.Load(dir); err == nil {
			p.Version = mf.Version
		}
		if err := m.store.Save(ctx, p); err != nil {
			return err
		}
		m.logger.Info("plugin switched ref",
			logging.String(logging.FieldPlugin, p.Name),
			logging.String(logging.FieldRef, ref),
			logging.String(logging.FieldCommit, commit))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
