// Package module defines the Request and Module types that flow through the
// resolver, loader, and require facility (spec.md §3). A Request describes
// what the caller asked for; a Module is the result of successfully loading
// one.
package module

import "github.com/a-h/pkgrun/pkgpath"

// Request is an immutable description of a single require() call: the raw
// string the caller passed, the context it was made in, and any hints that
// narrow how it should be resolved and loaded. Resolvers and loaders never
// mutate a Request in place; Copy produces a new Request with overrides
// applied, per spec.md §3's "provides a copy() operation that produces a new
// Request with overrides" requirement.
type Request struct {
	// String is the raw request text, e.g. "./util", "some-pkg", "!binding".
	String string
	// Parent is the module that issued this request, or nil for the
	// initial entry-point request.
	Parent *Module
	// CurrentDir is the directory resolution is relative to. For a
	// non-main request this is normally Parent's containing directory;
	// it is carried explicitly so a resolver never has to re-derive it.
	CurrentDir pkgpath.Path
	// IsMain marks the process entry-point request (affects require.main
	// and the __name__-equivalent namespace symbol).
	IsMain bool
	// LoaderHint, when non-empty, names the loader that must be used
	// instead of suffix-based dispatch (the "-L" / explicit loader form).
	LoaderHint string
	// ResolveLocation is the Path the resolver chain originally resolved
	// this request to, filled in after a successful resolve and otherwise
	// nil. It lets a loader recover the resolver's decision without
	// re-resolving.
	ResolveLocation pkgpath.Path
	// SearchPath is the issuing Require's own path additions followed by a
	// snapshot of the Context's search path at the time the request was
	// issued.
	SearchPath []pkgpath.Path
}

// New builds the initial Request for a require() call made from
// currentDir with no parent module (the entry-point request, or a request
// issued directly against a Context rather than from inside another
// module).
func New(raw string, currentDir pkgpath.Path) *Request {
	return &Request{String: raw, CurrentDir: currentDir}
}

// Copy returns a new Request equal to r with the given overrides applied.
// Every option is applied as given, zero values included; fields without an
// option keep r's value.
func (r *Request) Copy(opts ...RequestOption) *Request {
	cp := *r
	cp.SearchPath = append([]pkgpath.Path(nil), r.SearchPath...)
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

// RequestOption overrides a single field when copying a Request.
type RequestOption func(*Request)

// WithString overrides the raw request string.
func WithString(s string) RequestOption {
	return func(r *Request) { r.String = s }
}

// WithParent overrides the originating module.
func WithParent(m *Module) RequestOption {
	return func(r *Request) { r.Parent = m }
}

// WithCurrentDir overrides the base directory for resolution.
func WithCurrentDir(dir pkgpath.Path) RequestOption {
	return func(r *Request) { r.CurrentDir = dir }
}

// WithIsMain marks (or unmarks) the request as the entry-point request.
func WithIsMain(isMain bool) RequestOption {
	return func(r *Request) { r.IsMain = isMain }
}

// WithLoaderHint overrides the explicit loader hint.
func WithLoaderHint(name string) RequestOption {
	return func(r *Request) { r.LoaderHint = name }
}

// WithResolveLocation records where the resolver chain landed.
func WithResolveLocation(p pkgpath.Path) RequestOption {
	return func(r *Request) { r.ResolveLocation = p }
}

// WithSearchPath overrides the search path snapshot.
func WithSearchPath(paths []pkgpath.Path) RequestOption {
	return func(r *Request) { r.SearchPath = paths }
}
