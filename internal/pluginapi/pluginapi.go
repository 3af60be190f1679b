// Package pluginapi defines the capability surface handed to plugin modules.
//
// A plugin module is compiled into the host and linked to its installed
// plugin by UUID. On enable the host passes the module an API value scoped
// to that plugin: a namespaced logger, a private settings section and
// registration methods bound to the plugin's UUID. Disabling the plugin
// revokes every registration made through the API. Dynamic loading of
// third-party binaries is deliberately not supported.
package pluginapi

import (
	"fmt"
	"log/slog"
	"sync"

	"riff/internal/extpoint"
	"riff/internal/logging"
)

// Module is the entry point a plugin implements.
type Module interface {
	Enable(api *API) error
	Disable() error
}

var (
	modulesMu sync.RWMutex
	modules   = map[string]func() Module{}
)

// RegisterModule links a module factory to a plugin UUID. Called from the
// module's init function.
func RegisterModule(uuid string, factory func() Module) {
	modulesMu.Lock()
	defer modulesMu.Unlock()
	modules[uuid] = factory
}

// LookupModule returns a new module instance for the plugin UUID, or nil
// when no module is linked (metadata-only plugins).
func LookupModule(uuid string) Module {
	modulesMu.RLock()
	factory := modules[uuid]
	modulesMu.RUnlock()
	if factory == nil {
		return nil
	}
	return factory()
}

// API is the capability-scoped surface a plugin module works against.
type API struct {
	uuid     string
	logger   *slog.Logger
	points   *extpoint.Registry
	settings *Section
}

// New builds an API bound to one plugin.
func New(uuid, pluginID string, logger *slog.Logger, points *extpoint.Registry, settings *Section) *API {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &API{
		uuid:     uuid,
		logger:   logging.NewComponentLogger(logger, "plugin."+pluginID),
		points:   points,
		settings: settings,
	}
}

// Logger returns a logger namespaced to the plugin.
func (a *API) Logger() *slog.Logger {
	return a.logger
}

// Settings returns the plugin's private configuration section.
func (a *API) Settings() *Section {
	return a.settings
}

// Revoke removes every extension-point registration the plugin made.
func (a *API) Revoke() int {
	return a.points.DeregisterOwner(a.uuid)
}

func (a *API) register(point extpoint.Point, name string, priority extpoint.Priority, handler extpoint.Handler) error {
	if err := a.points.Register(point, a.uuid, name, priority, handler); err != nil {
		return fmt.Errorf("plugin %s: %w", a.uuid, err)
	}
	return nil
}

// Metadata processors.

func (a *API) RegisterAlbumMetadataProcessor(priority extpoint.Priority, handler extpoint.Handler) error {
	return a.register(extpoint.AlbumMetadataProcessor, "", priority, handler)
}

func (a *API) RegisterTrackMetadataProcessor(priority extpoint.Priority, handler extpoint.Handler) error {
	return a.register(extpoint.TrackMetadataProcessor, "", priority, handler)
}

// File event hooks.

func (a *API) RegisterFilePostLoadProcessor(priority extpoint.Priority, handler extpoint.Handler) error {
	return a.register(extpoint.FilePostLoadProcessor, "", priority, handler)
}

func (a *API) RegisterFilePostSaveProcessor(priority extpoint.Priority, handler extpoint.Handler) error {
	return a.register(extpoint.FilePostSaveProcessor, "", priority, handler)
}

// Named contributions.

func (a *API) RegisterCoverArtProvider(name string, handler extpoint.Handler) error {
	return a.register(extpoint.CoverArtProvider, name, extpoint.PriorityNormal, handler)
}

func (a *API) RegisterScriptFunction(name string, handler extpoint.Handler) error {
	if name == "" {
		return fmt.Errorf("plugin %s: script function name required", a.uuid)
	}
	return a.register(extpoint.ScriptFunction, name, extpoint.PriorityNormal, handler)
}

func (a *API) RegisterItemAction(name string, handler extpoint.Handler) error {
	return a.register(extpoint.ItemAction, name, extpoint.PriorityNormal, handler)
}

func (a *API) RegisterOptionsPage(name string, handler extpoint.Handler) error {
	return a.register(extpoint.OptionsPage, name, extpoint.PriorityNormal, handler)
}

func (a *API) RegisterFileFormat(name string, handler extpoint.Handler) error {
	if name == "" {
		return fmt.Errorf("plugin %s: file format name required", a.uuid)
	}
	return a.register(extpoint.FileFormat, name, extpoint.PriorityNormal, handler)
}
