package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"riff/internal/config"
	"riff/internal/gitcmd"
	"riff/internal/legacy"
	"riff/internal/logging"
	"riff/internal/pluginapi"
	"riff/internal/plugins"
	"riff/internal/refscache"
	"riff/internal/registry"
	"riff/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// configPath returns the --config flag value, or "" for the default lookup.
func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// runtime bundles the collaborators a plugin command works against. The
// store is closed when the command returns.
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	registry *registry.Client
	refs     *refscache.Cache
	manager  *plugins.Manager
}

func (c *commandContext) withManager(ctx context.Context, fn func(rt *runtime) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	logger, err := logging.NewFromConfig(cfg.Logging.Level, cfg.Logging.Format, cfg.Paths.LogDir)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Paths.StateDB)
	if err != nil {
		return err
	}
	defer st.Close()

	var reg *registry.Client
	if len(cfg.Registry.URLs) > 0 {
		reg = registry.New(cfg.Registry.URLs, cfg.Paths.CacheDir, logger,
			registry.WithMaxCacheAge(time.Duration(cfg.Registry.RefreshIntervalSeconds)*time.Second))
	}

	refs := refscache.New(cfg.Paths.CacheDir, logger)
	manager, err := plugins.NewManager(plugins.Options{
		PluginDir:         cfg.Paths.PluginDir,
		HostAPIVersions:   cfg.Host.APIVersions,
		Store:             st,
		Registry:          reg,
		RefsCache:         refs,
		Git:               gitcmd.New(""),
		Settings:          pluginapi.NewSettings(filepath.Join(cfg.Paths.CacheDir, "settings")),
		AllowUnregistered: cfg.Registry.AllowUnregistered,
		Logger:            logger,
	})
	if err != nil {
		return err
	}
	manager.SweepTempDirs()
	manager.StartupCheck(ctx)
	warnLegacyPlugins(cfg, logger)

	return fn(&runtime{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		registry: reg,
		refs:     refs,
		manager:  manager,
	})
}

// warnLegacyPlugins prints the upgrade notice the first time riff runs with
// an old-style plugin directory configured.
func warnLegacyPlugins(cfg *config.Config, logger *slog.Logger) {
	dir := cfg.Paths.LegacyPluginDir
	if dir == "" || legacy.WasNotified(cfg.Paths.CacheDir) {
		return
	}
	if _, err := os.Stat(dir); err != nil {
		return
	}
	logger.Warn(legacy.UpgradeWarning, logging.String("legacy_dir", dir))
	if err := legacy.MarkNotified(cfg.Paths.CacheDir); err != nil {
		logger.Debug("cannot record migration notice", logging.Error(err))
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
