package module

import (
	"time"

	"github.com/a-h/pkgrun/pkgpath"
	"github.com/a-h/pkgrun/pkgregistry"
)

// Module is the result of successfully resolving and loading one Request
// (spec.md §3). Modules hold a reference to the Package they belong to, but
// per the data model's "Packages hold no references to modules" invariant
// the relationship is not reciprocal: pkgregistry never imports this
// package.
type Module struct {
	// CanonicalFilename is the normalized Path the module was resolved to
	// and is cached under (the key used by a Context's module cache).
	CanonicalFilename pkgpath.Path
	// RealFilename is the Path actually opened to read source from, which
	// can differ from CanonicalFilename when a .pkgrun-link indirection or
	// bytecache substitution took place.
	RealFilename pkgpath.Path
	// Package is the package this module belongs to, or nil if the module
	// is not contained in any package (e.g. a bare script run directly).
	Package *pkgregistry.Package
	// Request is the Request that caused this module to be loaded.
	Request *Request
	// ExecMTime is the modification time recorded at the moment the
	// module's source was executed, used to decide whether a cached
	// bytecache entry is stale.
	ExecMTime time.Time
	// Namespace holds the symbols injected into the module's execution
	// scope (require, module, __directory__, and loader-specific extras).
	Namespace map[string]any
	// Exports is the value the module produced, visible to callers of
	// require() once execution completes.
	Exports any
	// Parent is the module whose require() call caused this module to be
	// loaded, or nil for the entry module.
	Parent *Module
}

// New constructs a Module for a freshly loaded file. Namespace starts out
// empty; loaders populate it before executing source.
func New(canonical, real pkgpath.Path, req *Request, pkg *pkgregistry.Package) *Module {
	return &Module{
		CanonicalFilename: canonical,
		RealFilename:      real,
		Package:           pkg,
		Request:           req,
		Namespace:         map[string]any{},
		Parent:            req.Parent,
	}
}

// MarkExecuted records the exports value and exec time once a loader has
// finished running the module's source.
func (m *Module) MarkExecuted(exports any, at time.Time) {
	m.Exports = exports
	m.ExecMTime = at
}

// Directory returns the directory containing the module, the value exposed
// to module source as __directory__.
func (m *Module) Directory() pkgpath.Path {
	return m.CanonicalFilename.Parent()
}
