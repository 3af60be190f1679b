package plugins

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"riff/internal/logging"
	"riff/internal/manifest"
	"riff/internal/pluginapi"
	"riff/internal/pluginver"
	"riff/internal/registry"
	"riff/internal/store"
)

// InstallOptions tune an install.
type InstallOptions struct {
	// Ref pins the install to a branch, tag or commit. Empty selects the
	// best ref automatically.
	Ref string
	// Reinstall allows replacing an existing install from the same source.
	Reinstall bool
	// Force bypasses blacklist and UUID-conflict checks.
	Force bool
	// Discard throws away local modifications on reinstall.
	Discard bool
	// Enable enables the plugin right after installing.
	Enable bool
}

// Install clones a plugin from a git URL or local repository path, validates
// it and moves it into the plugin directory.
func (m *Manager) Install(ctx context.Context, url string, opts InstallOptions) (*store.InstalledPlugin, error) {
	var installed *store.InstalledPlugin
	err := m.withLock(ctx, func() error {
		var err error
		installed, err = m.install(ctx, url, opts)
		return err
	})
	return installed, err
}

func (m *Manager) install(ctx context.Context, url string, opts InstallOptions) (*store.InstalledPlugin, error) {
	if url == "" {
		return nil, fmt.Errorf("plugin source required")
	}
	if registry.IsLocalPath(url) {
		repo := registry.LocalRepositoryPath(url)
		if repo == "" {
			return nil, fmt.Errorf("%s is not a git repository; all plugins must be git repositories", url)
		}
		url = repo
	}
	normalizedURL := registry.NormalizeGitURL(url)

	if !opts.Force && m.registry != nil {
		if blocked, reason := m.registry.IsBlacklisted(ctx, normalizedURL, ""); blocked {
			return nil, &BlacklistedError{URL: normalizedURL, Reason: reason}
		}
	}
	trust := m.trustLevel(ctx, normalizedURL)
	if m.registry != nil && trust == registry.TrustUnregistered && !m.allowUnregistered && !opts.Force {
		return nil, fmt.Errorf("%w: %s (set registry.allow_unregistered or pass force)",
			ErrUnregistered, normalizedURL)
	}
	if err := checkFreeSpace(m.pluginDir, minFreeBytes); err != nil {
		return nil, err
	}

	// Reinstall bookkeeping: preserve the previous ref when none was given
	// and refuse to clobber local modifications.
	existing, err := m.store.GetByURL(ctx, normalizedURL)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	ref := opts.Ref
	if existing != nil {
		if !opts.Reinstall {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyInstalled, existing.Name)
		}
		if ref == "" {
			ref = existing.Ref
		}
		if dirty, err := m.git.IsDirty(ctx, m.pluginPath(existing)); err == nil && dirty && !opts.Discard {
			return nil, fmt.Errorf("%w: pass discard to overwrite", ErrDirtyWorkingTree)
		}
	}

	tmpDir := filepath.Join(m.pluginDir, tempCloneDir(normalizedURL))
	_ = os.RemoveAll(tmpDir)
	if err := m.git.Clone(ctx, normalizedURL, tmpDir); err != nil {
		return nil, fmt.Errorf("clone plugin: %w", err)
	}
	success := false
	defer func() {
		if !success {
			_ = os.RemoveAll(tmpDir)
		}
	}()

	if ref == "" {
		ref = m.selectInstallRef(ctx, normalizedURL, tmpDir)
	}
	refType, commit, err := m.git.ClassifyRef(ctx, tmpDir, ref)
	if err != nil {
		if existing == nil || opts.Ref != "" {
			return nil, err
		}
		// The preserved ref is gone upstream; fall back to the default branch.
		fallback := m.git.DefaultBranch(ctx, tmpDir)
		m.logger.Warn("preserved ref no longer exists, using default branch",
			logging.String(logging.FieldRef, ref),
			logging.String("fallback", fallback))
		ref = fallback
		if refType, commit, err = m.git.ClassifyRef(ctx, tmpDir, ref); err != nil {
			return nil, err
		}
	}
	if err := m.git.Checkout(ctx, tmpDir, commit); err != nil {
		return nil, fmt.Errorf("checkout %s: %w", ref, err)
	}

	mf, err := manifest.Load(tmpDir)
	if err != nil {
		return nil, err
	}
	if !opts.Force && m.registry != nil {
		if blocked, reason := m.registry.IsBlacklisted(ctx, normalizedURL, mf.UUID); blocked {
			return nil, &BlacklistedError{URL: normalizedURL, UUID: mf.UUID, Reason: reason}
		}
	}
	if !pluginver.Compatible(mf.API, m.hostAPIVersions) {
		return nil, fmt.Errorf("%w: plugin supports API %v, host supports %v",
			ErrIncompatible, mf.API, m.hostAPIVersions)
	}
	if err := m.checkUUIDConflict(ctx, mf, normalizedURL, opts.Force); err != nil {
		return nil, err
	}

	dirName := DirName(mf.Name, mf.UUID)
	finalPath := filepath.Join(m.pluginDir, dirName)
	if existing != nil && m.containedInPluginDir(m.pluginPath(existing)) {
		if err := os.RemoveAll(m.pluginPath(existing)); err != nil {
			return nil, fmt.Errorf("remove previous install: %w", err)
		}
	}
	if err := os.RemoveAll(finalPath); err != nil {
		return nil, fmt.Errorf("clear install target: %w", err)
	}
	if err := os.Rename(tmpDir, finalPath); err != nil {
		return nil, fmt.Errorf("move plugin into place: %w", err)
	}
	success = true

	record := &store.InstalledPlugin{
		UUID:       mf.UUID,
		Name:       mf.Name,
		DirName:    dirName,
		URL:        normalizedURL,
		Ref:        ref,
		RefType:    string(refType),
		Commit:     commit,
		Version:    mf.Version,
		TrustLevel: trust,
	}
	if existing != nil {
		record.InstalledAt = existing.InstalledAt
		record.OriginalURL = existing.OriginalURL
		record.OriginalUUID = existing.OriginalUUID
	}
	if err := m.store.Save(ctx, record); err != nil {
		return nil, err
	}

	m.logger.Info("plugin installed",
		logging.String(logging.FieldPlugin, mf.Name),
		logging.String(logging.FieldURL, normalizedURL),
		logging.String(logging.FieldRef, ref),
		logging.String(logging.FieldCommit, commit))

	if opts.Enable {
		if err := m.Enable(ctx, record.UUID); err != nil {
			return record, fmt.Errorf("installed but not enabled: %w", err)
		}
	}
	return record, nil
}

func (m *Manager) trustLevel(ctx context.Context, url string) string {
	if m.registry == nil {
		return registry.TrustUnregistered
	}
	return m.registry.TrustLevel(ctx, url)
}

func (m *Manager) checkUUIDConflict(ctx context.Context, mf *manifest.Manifest, url string, force bool) error {
	existing, err := m.store.Get(ctx, mf.UUID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.URL == url || force {
		return nil
	}
	return &UUIDConflictError{
		UUID:           mf.UUID,
		ExistingPlugin: existing.Name,
		ExistingSource: existing.URL,
		NewSource:      url,
	}
}

// selectInstallRef picks the ref for a fresh install: the newest version tag
// under the registry's versioning scheme, else the first registry-advertised
// ref compatible with the host API, else the first advertised ref at all,
// else the remote default branch.
func (m *Manager) selectInstallRef(ctx context.Context, url, repoDir string) string {
	if m.registry != nil {
		if entry := m.registry.Find(ctx, registry.Query{URL: url}); entry != nil {
			if entry.VersioningScheme != "" {
				if tags := m.versionTags(ctx, url, repoDir, entry.VersioningScheme); len(tags) > 0 {
					return tags[0]
				}
				m.logger.Warn("no version tags found",
					logging.String(logging.FieldURL, url),
					logging.String("scheme", entry.VersioningScheme))
			}
			for _, ref := range entry.Refs {
				if refSupportsHost(ref, m.hostAPIVersions) {
					return ref.Name
				}
			}
			if len(entry.Refs) > 0 && entry.Refs[0].Name != "" {
				m.logger.Warn("no registry ref matches the host API, using the first advertised ref",
					logging.String(logging.FieldURL, url),
					logging.String(logging.FieldRef, entry.Refs[0].Name))
				return entry.Refs[0].Name
			}
		}
	}
	return m.git.DefaultBranch(ctx, repoDir)
}

// refSupportsHost reports whether any host API version falls within the
// registry ref's advertised min/max range. An unset bound does not constrain.
func refSupportsHost(ref registry.Ref, hostVersions []string) bool {
	if ref.Name == "" {
		return false
	}
	min, minErr := pluginver.ParseAPIVersion(ref.MinAPIVersion)
	max, maxErr := pluginver.ParseAPIVersion(ref.MaxAPIVersion)
	for _, s := range hostVersions {
		host, err := pluginver.ParseAPIVersion(s)
		if err != nil {
			continue
		}
		if minErr == nil && host.Less(min) {
			continue
		}
		if maxErr == nil && max.Less(host) {
			continue
		}
		return true
	}
	return false
}

// Uninstall disables a plugin, removes its directory and drops its record.
// purgeSettings also deletes the plugin's private configuration.
func (m *Manager) Uninstall(ctx context.Context, identifier string, purgeSettings bool) error {
	return m.withLock(ctx, func() error {
		p, err := m.Find(ctx, identifier)
		if err != nil {
			return err
		}
		if p.Enabled {
			if err := m.Disable(ctx, p.UUID); err != nil {
				return err
			}
		}

		path := m.pluginPath(p)
		if !m.containedInPluginDir(path) {
			return fmt.Errorf("refusing to remove %s: outside plugin directory", path)
		}
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("remove plugin directory: %w", err)
		}
		if err := m.store.Delete(ctx, p.UUID); err != nil {
			return err
		}
		if purgeSettings && m.settings != nil {
			if err := m.settings.Purge(p.UUID); err != nil {
				return err
			}
		}
		m.logger.Info("plugin uninstalled", logging.String(logging.FieldPlugin, p.Name))
		return nil
	})
}

// Enable marks a plugin enabled and activates its linked module, if any.
func (m *Manager) Enable(ctx context.Context, identifier string) error {
	p, err := m.Find(ctx, identifier)
	if err != nil {
		return err
	}
	if m.registry != nil {
		if blocked, reason := m.registry.IsBlacklisted(ctx, p.URL, p.UUID); blocked {
			return &BlacklistedError{URL: p.URL, UUID: p.UUID, Reason: reason}
		}
	}

	mf, err := manifest.Load(m.pluginPath(p))
	if err != nil {
		return err
	}
	if !pluginver.Compatible(mf.API, m.hostAPIVersions) {
		return fmt.Errorf("%w: plugin supports API %v, host supports %v",
			ErrIncompatible, mf.API, m.hostAPIVersions)
	}

	if module := pluginapi.LookupModule(p.UUID); module != nil {
		api, err := m.buildAPI(p)
		if err != nil {
			return err
		}
		if err := module.Enable(api); err != nil {
			api.Revoke()
			return fmt.Errorf("enable plugin %s: %w", p.Name, err)
		}
		m.enabled[p.UUID] = &enabledPlugin{module: module, api: api}
	}

	if err := m.store.SetEnabled(ctx, p.UUID, true); err != nil {
		return err
	}
	m.logger.Info("plugin enabled", logging.String(logging.FieldPlugin, p.Name))
	return nil
}

// Disable marks a plugin disabled, deactivates its module and revokes its
// extension-point registrations.
func (m *Manager) Disable(ctx context.Context, identifier string) error {
	p, err := m.Find(ctx, identifier)
	if err != nil {
		return err
	}
	if active, ok := m.enabled[p.UUID]; ok {
		if err := active.module.Disable(); err != nil {
			m.logger.Warn("plugin disable hook failed",
				logging.String(logging.FieldPlugin, p.Name), logging.Error(err))
		}
		active.api.Revoke()
		delete(m.enabled, p.UUID)
	} else {
		m.points.DeregisterOwner(p.UUID)
	}

	if err := m.store.SetEnabled(ctx, p.UUID, false); err != nil {
		return err
	}
	m.logger.Info("plugin disabled", logging.String(logging.FieldPlugin, p.Name))
	return nil
}

func (m *Manager) buildAPI(p *store.InstalledPlugin) (*pluginapi.API, error) {
	var section *pluginapi.Section
	if m.settings != nil {
		var err error
		section, err = m.settings.Section(p.UUID)
		if err != nil {
			return nil, err
		}
	}
	return pluginapi.New(p.UUID, p.DirName, m.logger, m.points, section), nil
}
