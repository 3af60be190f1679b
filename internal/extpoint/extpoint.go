// Package extpoint implements the host's extension-point registry.
//
// Plugins contribute handlers to named extension points: metadata
// processors, file event hooks, cover art providers, script functions,
// item actions, options pages and file formats. Every registration is
// owned by the registering plugin's UUID so disabling a plugin removes
// all of its handlers in one call.
package extpoint

import (
	"fmt"
	"sort"
	"sync"
)

// Point names the host's extension points.
type Point string

const (
	AlbumMetadataProcessor Point = "album_metadata_processor"
	TrackMetadataProcessor Point = "track_metadata_processor"
	FilePostLoadProcessor  Point = "file_post_load_processor"
	FilePostSaveProcessor  Point = "file_post_save_processor"
	CoverArtProvider       Point = "cover_art_provider"
	ScriptFunction         Point = "script_function"
	ItemAction             Point = "item_action"
	OptionsPage            Point = "options_page"
	FileFormat             Point = "file_format"
)

// Priority orders handlers within an extension point. Higher priorities run
// first; registration order is stable within a priority.
type Priority int

const (
	PriorityLow    Priority = -100
	PriorityNormal Priority = 0
	PriorityHigh   Priority = 100
)

// Handler is a plugin-contributed extension. The concrete type depends on
// the extension point; runners assert what they expect.
type Handler any

type registration struct {
	owner    string
	name     string
	priority Priority
	seq      int
	handler  Handler
}

// Registry holds all extension-point registrations. Safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	seq  int
	regs map[Point][]registration
}

// NewRegistry creates an empty extension-point registry.
func NewRegistry() *Registry {
	return &Registry{regs: map[Point][]registration{}}
}

// Register adds a handler to an extension point on behalf of ownerUUID.
// name identifies the handler within the point (script function name, format
// name); it may be empty for anonymous processors.
func (r *Registry) Register(point Point, ownerUUID, name string, priority Priority, handler Handler) error {
	if ownerUUID == "" {
		return fmt.Errorf("register %s: owner UUID required", point)
	}
	if handler == nil {
		return fmt.Errorf("register %s: handler required", point)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if name != "" {
		for _, reg := range r.regs[point] {
			if reg.name == name {
				return fmt.Errorf("register %s: %q already registered by %s", point, name, reg.owner)
			}
		}
	}

	r.seq++
	r.regs[point] = append(r.regs[point], registration{
		owner:    ownerUUID,
		name:     name,
		priority: priority,
		seq:      r.seq,
		handler:  handler,
	})
	return nil
}

// Handlers returns the point's handlers in execution order: descending
// priority, then registration order.
func (r *Registry) Handlers(point Point) []Handler {
	r.mu.RLock()
	regs := append([]registration(nil), r.regs[point]...)
	r.mu.RUnlock()

	sort.SliceStable(regs, func(i, j int) bool {
		if regs[i].priority != regs[j].priority {
			return regs[i].priority > regs[j].priority
		}
		return regs[i].seq < regs[j].seq
	})

	handlers := make([]Handler, len(regs))
	for i, reg := range regs {
		handlers[i] = reg.handler
	}
	return handlers
}

// Lookup returns the named handler at a point, or nil.
func (r *Registry) Lookup(point Point, name string) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, reg := range r.regs[point] {
		if reg.name == name {
			return reg.handler
		}
	}
	return nil
}

// DeregisterOwner removes every registration owned by ownerUUID across all
// points and reports how many were removed.
func (r *Registry) DeregisterOwner(ownerUUID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for point, regs := range r.regs {
		kept := regs[:0]
		for _, reg := range regs {
			if reg.owner == ownerUUID {
				removed++
				continue
			}
			kept = append(kept, reg)
		}
		if len(kept) == 0 {
			delete(r.regs, point)
		} else {
			r.regs[point] = kept
		}
	}
	return removed
}

// OwnerCount returns how many registrations ownerUUID currently holds.
func (r *Registry) OwnerCount(ownerUUID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, regs := range r.regs {
		for _, reg := range regs {
			if reg.owner == ownerUUID {
				count++
			}
		}
	}
	return count
}

// RunError collects per-handler failures from a chain run.
type RunError struct {
	Point    Point
	Failures []error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%d handler(s) failed at %s", len(e.Failures), e.Point)
}

// Run invokes fn for each handler in priority order. Handler failures are
// collected, not fatal: one misbehaving plugin must not break the chain.
func (r *Registry) Run(point Point, fn func(Handler) error) error {
	var failures []error
	for _, handler := range r.Handlers(point) {
		if err := fn(handler); err != nil {
			failures = append(failures, err)
		}
	}
	if len(failures) > 0 {
		return &RunError{Point: point, Failures: failures}
	}
	return nil
}
