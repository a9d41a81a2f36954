// Package require implements the per-module Require facility from
// spec.md §4.5: the require(...) call modules make to pull in other
// modules, plus its require.main/require.current/require.path/etc.
// companion members.
package require

import (
	"fmt"
	"os"
	"strings"

	"github.com/a-h/pkgrun/ctxrt"
	"github.com/a-h/pkgrun/module"
	"github.com/a-h/pkgrun/pkgpath"
	"github.com/a-h/pkgrun/pkgregistry"
)

// Options configures a single require() call. Its zero value has every
// flag false; defaults() supplies the spec.md §4.5 defaults: cache=true,
// exports=true, exec=true.
type Options struct {
	CurrentDir pkgpath.Path
	IsMain     bool
	Cache      bool
	Exports    bool
	Exec       bool
	Into       map[string]any
	Symbols    []string
	Loader     string
}

// Option mutates Options; defaults() seeds the true-by-default fields
// before any Option runs.
type Option func(*Options)

func defaults() Options {
	return Options{Cache: true, Exports: true, Exec: true}
}

// WithCurrentDir overrides the directory the request resolves relative to.
func WithCurrentDir(dir pkgpath.Path) Option { return func(o *Options) { o.CurrentDir = dir } }

// WithIsMain marks this call as establishing the Context's main module.
func WithIsMain(v bool) Option { return func(o *Options) { o.IsMain = v } }

// WithCache overrides cache participation.
func WithCache(v bool) Option { return func(o *Options) { o.Cache = v } }

// WithExports overrides whether the namespace's "exports" member (or the
// whole namespace) is returned, versus the raw Module handle.
func WithExports(v bool) Option { return func(o *Options) { o.Exports = v } }

// WithExec overrides whether the module's source is executed.
func WithExec(v bool) Option { return func(o *Options) { o.Exec = v } }

// WithInto copies the returned namespace's public symbols into dst.
func WithInto(dst map[string]any) Option { return func(o *Options) { o.Into = dst } }

// WithSymbols restricts WithInto's copy to the named symbols.
func WithSymbols(names ...string) Option { return func(o *Options) { o.Symbols = names } }

// WithLoader overrides suffix-based loader dispatch.
func WithLoader(name string) Option { return func(o *Options) { o.Loader = name } }

// Require is the per-module object spec.md §4.5 describes; one is bound to
// each Module as it executes (via the "require" namespace symbol) and a
// root one is bound directly to a Context for entry-point use.
type Require struct {
	ctx    *ctxrt.Context
	owner  *module.Module
	path   []pkgpath.Path
	hidden *module.Module
	hiding bool
}

// New binds a Require facility to ctx; owner is the module whose namespace
// this Require lives in, or nil for the Context-level root Require used to
// load the entry module.
func New(ctx *ctxrt.Context, owner *module.Module) *Require {
	return &Require{ctx: ctx, owner: owner}
}

// Call implements require(request, ...), per spec.md §4.5.
func (r *Require) Call(request string, opts ...Option) (any, error) {
	o := defaults()
	for _, opt := range opts {
		opt(&o)
	}

	currentDir := o.CurrentDir
	if currentDir == nil && r.owner != nil {
		currentDir = r.owner.Directory()
	}

	req := &module.Request{
		String:     request,
		Parent:     r.owner,
		CurrentDir: currentDir,
		IsMain:     o.IsMain,
		LoaderHint: o.Loader,
		SearchPath: append(append([]pkgpath.Path(nil), r.path...), r.ctx.SearchPath...),
	}
	r.ctx.DispatchRequire(req)

	target, err := r.resolveRequest(req, o.IsMain)
	if err != nil {
		return nil, err
	}
	req.ResolveLocation = target

	m, err := r.loadOrReuse(req, target, o)
	if err != nil {
		return nil, err
	}

	if o.IsMain {
		if err := r.ctx.SetMain(m); err != nil {
			return nil, err
		}
	}

	var result any
	if !o.Exports {
		result = m
	} else if ns, ok := m.Namespace["exports"]; ok {
		result = ns
	} else {
		result = m.Namespace
	}

	if o.Into != nil {
		copyInto(o.Into, m.Namespace, o.Symbols)
	}
	return result, nil
}

// resolveRequest implements the is_main bypass from spec.md §4.5 ("permits
// the request to be resolved in current_dir even if non-relative"): a main
// request is tried as if it were relative to current_dir first, falling
// back to ordinary chain resolution (search path, etc.) if that fails.
func (r *Require) resolveRequest(req *module.Request, isMain bool) (pkgpath.Path, error) {
	if isMain && !strings.HasPrefix(req.String, "./") && !strings.HasPrefix(req.String, "../") && req.CurrentDir != nil {
		relative := req.Copy(module.WithString("./" + req.String))
		if target, err := r.ctx.Resolver.Resolve(relative); err == nil {
			return target, nil
		}
	}
	return r.ctx.Resolver.Resolve(req)
}

func (r *Require) loadOrReuse(req *module.Request, target pkgpath.Path, o Options) (*module.Module, error) {
	key := target.String()

	if o.Cache {
		if existing, ok := r.ctx.CacheGet(key); ok {
			if r.shouldAutoreload(existing) {
				return r.execute(req, target, existing)
			}
			return existing, nil
		}
	}

	m := module.New(target, target, req, r.packageFor(target))
	if o.Cache {
		// Inserted before execution so a cyclic require(A->B->A) sees A's
		// partial namespace, per spec.md §4.5's re-entrancy contract.
		r.ctx.CacheSet(key, m)
	}

	if !o.Exec {
		return m, nil
	}

	executed, err := r.execute(req, target, m)
	if err != nil {
		if o.Cache {
			r.ctx.CacheDelete(key)
		}
		return nil, err
	}
	return executed, nil
}

// packageFor looks up the Package owning target's directory, so the module
// about to be constructed carries the right Package for extension dispatch
// (spec.md §4.6) even though resolution itself only registers packages as a
// side effect (resolver.Filesystem.registerIfPackaged). Non-filesystem
// targets (bindings, JSON blobs the loader already decoded) have no owning
// package.
func (r *Require) packageFor(target pkgpath.Path) *pkgregistry.Package {
	if r.ctx.Registry == nil || target.Kind() != pkgpath.KindFS {
		return nil
	}
	pkg, found, err := r.ctx.Registry.PackageForDirectory(target.Parent().String())
	if err != nil || !found {
		return nil
	}
	return pkg
}

func (r *Require) shouldAutoreload(m *module.Module) bool {
	autoreload, _ := r.ctx.Options["require.autoreload"].(bool)
	if !autoreload || m.CanonicalFilename.Kind() != pkgpath.KindFS {
		return false
	}
	info, err := os.Stat(m.CanonicalFilename.String())
	if err != nil {
		return false
	}
	return info.ModTime().After(m.ExecMTime)
}

func (r *Require) execute(req *module.Request, target pkgpath.Path, m *module.Module) (*module.Module, error) {
	r.ctx.DispatchLoad(req)
	pop := r.ctx.PushCurrent(m)
	defer pop()

	if err := r.ctx.Loaders.Load(m, target, req.LoaderHint); err != nil {
		return nil, err
	}
	return m, nil
}

func copyInto(dst map[string]any, namespace map[string]any, symbols []string) {
	if len(symbols) > 0 {
		for _, name := range symbols {
			if v, ok := namespace[name]; ok {
				dst[name] = v
			}
		}
		return
	}
	for k, v := range namespace {
		if strings.HasPrefix(k, "_") {
			continue
		}
		dst[k] = v
	}
}

// Resolve implements require.resolve(request): resolve without loading.
func (r *Require) Resolve(request string, opts ...Option) (pkgpath.Path, error) {
	o := defaults()
	for _, opt := range opts {
		opt(&o)
	}
	currentDir := o.CurrentDir
	if currentDir == nil && r.owner != nil {
		currentDir = r.owner.Directory()
	}
	req := &module.Request{String: request, Parent: r.owner, CurrentDir: currentDir, IsMain: o.IsMain, SearchPath: append(append([]pkgpath.Path(nil), r.path...), r.ctx.SearchPath...)}
	return r.resolveRequest(req, o.IsMain)
}

// Main returns require.main: the Context's main module.
func (r *Require) Main() *module.Module { return r.ctx.Main() }

// Current returns require.current: the topmost entry in the current-module
// stack.
func (r *Require) Current() *module.Module { return r.ctx.Current() }

// Context returns require.context.
func (r *Require) Context() *ctxrt.Context { return r.ctx }

// Path returns require.path: this Require's own search-path additions.
func (r *Require) Path() []pkgpath.Path { return append([]pkgpath.Path(nil), r.path...) }

// AddPath appends an entry to require.path.
func (r *Require) AddPath(p pkgpath.Path) { r.path = append(r.path, p) }

// Cache returns require.cache: a snapshot map view of the Context's module
// cache.
func (r *Require) Cache() map[string]*module.Module { return r.ctx.CacheView() }

// HideMain implements require.hide_main(): temporarily detaches the
// Context's main module, returning a restore function. Nested calls are not
// supported, matching a single per-module Require's single-threaded use.
func (r *Require) HideMain() (restore func(), err error) {
	if r.hiding {
		return nil, fmt.Errorf("require: hide_main already in effect")
	}
	r.hidden = r.ctx.Main()
	r.hiding = true
	r.ctx.ClearMain()
	return func() {
		r.hiding = false
		if r.hidden != nil {
			_ = r.ctx.SetMain(r.hidden)
		}
		r.hidden = nil
	}, nil
}
