package plugins

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"riff/internal/extpoint"
	"riff/internal/gitcmd"
	"riff/internal/logging"
	"riff/internal/manifest"
	"riff/internal/pluginapi"
	"riff/internal/refscache"
	"riff/internal/registry"
	"riff/internal/store"
)

// minFreeBytes is the free-space preflight threshold for installs.
const minFreeBytes = 50 << 20

const lockRetryDelay = 100 * time.Millisecond

// GitClient is the subset of git operations the manager needs.
type GitClient interface {
	Clone(ctx context.Context, url, dest string) error
	Fetch(ctx context.Context, dir string) error
	Checkout(ctx context.Context, dir, ref string) error
	ResetHard(ctx context.Context, dir, ref string) error
	ResolveCommit(ctx context.Context, dir, ref string) (string, error)
	CurrentCommit(ctx context.Context, dir string) (string, error)
	IsDirty(ctx context.Context, dir string) (bool, error)
	Tags(ctx context.Context, dir string) ([]string, error)
	DefaultBranch(ctx context.Context, dir string) string
	ClassifyRef(ctx context.Context, dir, ref string) (gitcmd.RefType, string, error)
	LsRemote(ctx context.Context, url string) ([]gitcmd.RemoteRef, error)
	SetRemoteURL(ctx context.Context, dir, url string) error
	CommitDate(ctx context.Context, dir string) (time.Time, error)
}

// Options wires a Manager's collaborators.
type Options struct {
	PluginDir       string
	HostAPIVersions []string
	Store           *store.Store
	Registry        *registry.Client
	RefsCache       *refscache.Cache
	Git             GitClient
	Settings        *pluginapi.Settings
	Points          *extpoint.Registry
	// AllowUnregistered permits installs from URLs the registry does not
	// list. Blacklist checks apply either way.
	AllowUnregistered bool
	Logger            *slog.Logger
}

// Manager coordinates all plugin operations.
type Manager struct {
	pluginDir         string
	hostAPIVersions   []string
	store             *store.Store
	registry          *registry.Client
	refs              *refscache.Cache
	git               GitClient
	settings          *pluginapi.Settings
	points            *extpoint.Registry
	allowUnregistered bool
	logger            *slog.Logger
	lock              *flock.Flock

	enabled map[string]*enabledPlugin
}

type enabledPlugin struct {
	module pluginapi.Module
	api    *pluginapi.API
}

// NewManager constructs a plugin manager rooted at opts.PluginDir.
func NewManager(opts Options) (*Manager, error) {
	if opts.PluginDir == "" {
		return nil, fmt.Errorf("plugin directory required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if opts.Git == nil {
		return nil, fmt.Errorf("git client required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := os.MkdirAll(opts.PluginDir, 0o755); err != nil {
		return nil, fmt.Errorf("create plugin directory: %w", err)
	}
	points := opts.Points
	if points == nil {
		points = extpoint.NewRegistry()
	}
	return &Manager{
		pluginDir:         opts.PluginDir,
		hostAPIVersions:   opts.HostAPIVersions,
		store:             opts.Store,
		registry:          opts.Registry,
		refs:              opts.RefsCache,
		git:               opts.Git,
		settings:          opts.Settings,
		points:            points,
		allowUnregistered: opts.AllowUnregistered,
		logger:            logging.NewComponentLogger(logger, "plugins"),
		lock:              flock.New(filepath.Join(opts.PluginDir, ".riff.lock")),
		enabled:           map[string]*enabledPlugin{},
	}, nil
}

// Points exposes the extension-point registry for the host runtime.
func (m *Manager) Points() *extpoint.Registry {
	return m.points
}

// PluginDir returns the managed plugin directory.
func (m *Manager) PluginDir() string {
	return m.pluginDir
}

// withLock serializes mutating operations across processes via a file lock
// on the plugin directory.
func (m *Manager) withLock(ctx context.Context, fn func() error) error {
	locked, err := m.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock plugin directory: %w", err)
	}
	if !locked {
		return fmt.Errorf("plugin directory is locked by another process")
	}
	defer func() {
		if unlockErr := m.lock.Unlock(); unlockErr != nil {
			m.logger.Warn("cannot release plugin directory lock", logging.Error(unlockErr))
		}
	}()
	return fn()
}

// SweepTempDirs removes leftover temporary clone directories from crashed
// installs. Called at startup.
func (m *Manager) SweepTempDirs() {
	entries, err := os.ReadDir(m.pluginDir)
	if err != nil {
		m.logger.Warn("cannot read plugin directory", logging.Error(err))
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), ".tmp-") {
			continue
		}
		path := filepath.Join(m.pluginDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			m.logger.Warn("cannot remove stale temp directory",
				logging.String("path", path), logging.Error(err))
			continue
		}
		m.logger.Info("removed stale temp directory", logging.String("path", path))
	}
}

// pluginPath returns the installation path for a stored record.
func (m *Manager) pluginPath(p *store.InstalledPlugin) string {
	return filepath.Join(m.pluginDir, p.DirName)
}

// Manifest loads an installed plugin's manifest from disk.
func (m *Manager) Manifest(p *store.InstalledPlugin) (*manifest.Manifest, error) {
	return manifest.Load(m.pluginPath(p))
}

// CommitDate returns the committer date of a plugin's checked-out commit.
func (m *Manager) CommitDate(ctx context.Context, p *store.InstalledPlugin) (time.Time, error) {
	return m.git.CommitDate(ctx, m.pluginPath(p))
}

// containedInPluginDir guards destructive filesystem operations against
// records pointing outside the managed directory.
func (m *Manager) containedInPluginDir(path string) bool {
	rel, err := filepath.Rel(m.pluginDir, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
