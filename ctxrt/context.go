// Package ctxrt implements the Context type from spec.md §4.7: the
// session-global state a require facility runs against — resolver/loader
// chains, module and package caches, the current-module stack, and event
// subscribers.
package ctxrt

import (
	"fmt"
	"sync"

	"github.com/a-h/pkgrun/loader"
	"github.com/a-h/pkgrun/module"
	"github.com/a-h/pkgrun/pkgpath"
	"github.com/a-h/pkgrun/pkgregistry"
	"github.com/a-h/pkgrun/resolver"
)

// EventKind names one of the four events a Context dispatches.
type EventKind string

const (
	// EventRequire fires before a require() call resolves its request.
	EventRequire EventKind = "require"
	// EventLoad fires before a resolved Path is loaded.
	EventLoad EventKind = "load"
	// EventEnter fires after enter() finishes acquiring resources.
	EventEnter EventKind = "enter"
	// EventLeave fires after leave() finishes releasing resources.
	EventLeave EventKind = "leave"
)

// Event is the record passed to subscribers.
type Event struct {
	Kind    EventKind
	Request *module.Request
	Module  *module.Module
}

// HostModuleSnapshotter isolates and restores the host language's own
// module table across enter()/leave(), per spec.md §4.7 ("optionally
// isolates the host language's module table (snapshots it so it can be
// restored on exit)"). Contexts that don't need isolation leave this nil.
type HostModuleSnapshotter interface {
	Snapshot() (any, error)
	Restore(snapshot any) error
}

// Context is one module-resolution session: its own resolver/loader
// chains, module cache, package registry, search path, and bindings table.
// Multiple Contexts share no cache (spec.md §5).
type Context struct {
	Resolver *resolver.Chain
	Loaders  *loader.Chain
	Registry *pkgregistry.Registry

	// SearchPath is the additional, Context-level search path prepended
	// by enter() (spec.md §4.7: "prepends workspace+global modules
	// directories").
	SearchPath []pkgpath.Path
	// Bindings is the fixed table the binding resolver/loader consult for
	// "!name" requests.
	Bindings map[string]any
	// Options is a free-form string-keyed map; "require.autoreload" is
	// the one recognized option (spec.md §4.7).
	Options map[string]any

	hostSnapshotter HostModuleSnapshotter
	hostSnapshot    any

	mu          sync.Mutex
	moduleCache map[string]*module.Module
	main        *module.Module
	stack       []*module.Module
	subscribers map[EventKind][]func(Event)
	entered     bool
}

// New builds a Context with an empty SearchPath; Enter prepends the
// workspace/global modules directories it is given.
func New(res *resolver.Chain, loaders *loader.Chain, registry *pkgregistry.Registry) *Context {
	return &Context{
		Resolver:    res,
		Loaders:     loaders,
		Registry:    registry,
		Bindings:    map[string]any{},
		Options:     map[string]any{},
		moduleCache: map[string]*module.Module{},
		subscribers: map[EventKind][]func(Event){},
	}
}

// WithHostModuleSnapshotter configures host-language module table isolation
// for enter()/leave().
func (c *Context) WithHostModuleSnapshotter(s HostModuleSnapshotter) *Context {
	c.hostSnapshotter = s
	return c
}

// Subscribe registers fn to run whenever an event of the given kind fires.
func (c *Context) Subscribe(kind EventKind, fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers[kind] = append(c.subscribers[kind], fn)
}

func (c *Context) dispatch(evt Event) {
	c.mu.Lock()
	var subs []func(Event)
	subs = append(subs, c.subscribers[evt.Kind]...)
	c.mu.Unlock()
	for _, fn := range subs {
		fn(evt)
	}
}

var (
	sessionsMu sync.Mutex
	sessions   []*Context
)

// Enter acquires session-global resources per spec.md §4.7: prepends
// workspaceAndGlobalDirs to SearchPath, pushes this Context onto the global
// session stack, snapshots the host module table if a snapshotter is
// configured, and dispatches EventEnter. It registers no bindings; Bindings
// is filled by whoever built the Context.
func (c *Context) Enter(workspaceAndGlobalDirs []pkgpath.Path) error {
	c.mu.Lock()
	if c.entered {
		c.mu.Unlock()
		return fmt.Errorf("ctxrt: Context already entered")
	}
	c.entered = true
	c.SearchPath = append(append([]pkgpath.Path(nil), workspaceAndGlobalDirs...), c.SearchPath...)
	c.mu.Unlock()

	sessionsMu.Lock()
	sessions = append(sessions, c)
	sessionsMu.Unlock()

	if c.hostSnapshotter != nil {
		snap, err := c.hostSnapshotter.Snapshot()
		if err != nil {
			return fmt.Errorf("ctxrt: enter: snapshotting host module table: %w", err)
		}
		c.hostSnapshot = snap
	}

	c.dispatch(Event{Kind: EventEnter})
	return nil
}

// Leave reverses Enter: pops this Context from the global session stack,
// restores the host module table, and dispatches EventLeave.
func (c *Context) Leave() error {
	c.mu.Lock()
	if !c.entered {
		c.mu.Unlock()
		return fmt.Errorf("ctxrt: Leave called without a matching Enter")
	}
	c.entered = false
	c.mu.Unlock()

	sessionsMu.Lock()
	for i := len(sessions) - 1; i >= 0; i-- {
		if sessions[i] == c {
			sessions = append(sessions[:i], sessions[i+1:]...)
			break
		}
	}
	sessionsMu.Unlock()

	if c.hostSnapshotter != nil && c.hostSnapshot != nil {
		if err := c.hostSnapshotter.Restore(c.hostSnapshot); err != nil {
			return fmt.Errorf("ctxrt: leave: restoring host module table: %w", err)
		}
	}

	c.dispatch(Event{Kind: EventLeave})
	return nil
}

// Main returns the Context's main module, or nil if none has been set.
func (c *Context) Main() *module.Module {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.main
}

// SetMain records m as the Context's main module. It fails if a different
// main module is already set, per spec.md §4.5 ("fails if the Context
// already has a main module").
func (c *Context) SetMain(m *module.Module) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.main != nil && c.main != m {
		return fmt.Errorf("ctxrt: Context already has a main module (%s)", c.main.CanonicalFilename.String())
	}
	c.main = m
	return nil
}

// ClearMain detaches the Context's main module without error, backing
// require.hide_main().
func (c *Context) ClearMain() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.main = nil
}

// Current returns the topmost entry in the current-module stack, or nil if
// nothing is executing.
func (c *Context) Current() *module.Module {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.stack) == 0 {
		return nil
	}
	return c.stack[len(c.stack)-1]
}

// PushCurrent pushes m onto the current-module stack; the returned func
// pops it. Callers should defer the returned func immediately.
func (c *Context) PushCurrent(m *module.Module) func() {
	c.mu.Lock()
	c.stack = append(c.stack, m)
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		if len(c.stack) > 0 {
			c.stack = c.stack[:len(c.stack)-1]
		}
		c.mu.Unlock()
	}
}

// CacheGet returns the cached Module for a canonical filename key.
func (c *Context) CacheGet(key string) (*module.Module, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.moduleCache[key]
	return m, ok
}

// CacheSet inserts m into the module cache under key, used for the
// re-entrancy insertion required by spec.md §4.5 ("constructs... resolves
// it, loads it if not cached") — callers insert before executing so a
// cyclic require sees the in-progress Module.
func (c *Context) CacheSet(key string, m *module.Module) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.moduleCache[key] = m
}

// CacheDelete removes key from the module cache, used on execution failure
// per spec.md §4.5's failure semantics ("an exception during module
// execution removes the module from the cache so a retry is possible").
func (c *Context) CacheDelete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.moduleCache, key)
}

// CacheView returns a snapshot copy of the module cache, the map view
// require.cache exposes.
func (c *Context) CacheView() map[string]*module.Module {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]*module.Module, len(c.moduleCache))
	for k, v := range c.moduleCache {
		out[k] = v
	}
	return out
}

// DispatchRequire fires EventRequire; it is invoked before the request is
// resolved (spec.md §4.7: "fire before the corresponding action completes
// for require/load").
func (c *Context) DispatchRequire(req *module.Request) {
	c.dispatch(Event{Kind: EventRequire, Request: req})
}

// DispatchLoad fires EventLoad before a resolved Path is loaded.
func (c *Context) DispatchLoad(req *module.Request) {
	c.dispatch(Event{Kind: EventLoad, Request: req})
}
