package resolver

import (
	"strings"

	"github.com/a-h/pkgrun/module"
	"github.com/a-h/pkgrun/pkgpath"
)

// Binding resolves requests of the form "!name" against a fixed table of
// built-in bindings (spec.md §4.4's binding loader operates on whatever this
// resolver hands it). It never errors: a "!"-prefixed request it doesn't
// recognize simply falls through to the next resolver, which will typically
// be a Null resolver producing a clean ResolveError.
type Binding struct {
	// Names is the set of binding names this resolver recognizes. The
	// resulting Path is a synthetic "!name" path carrying KindURL-style
	// semantics is avoided; instead bindings resolve to themselves as a
	// plain marker the binding loader recognizes by its "!" prefix.
	Names map[string]bool
}

// NewBinding builds a Binding resolver recognizing the given names.
func NewBinding(names ...string) *Binding {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return &Binding{Names: set}
}

// Resolve implements Resolver.
func (b *Binding) Resolve(req *module.Request) (pkgpath.Path, bool, error) {
	if !strings.HasPrefix(req.String, "!") {
		return nil, false, nil
	}
	name := strings.TrimPrefix(req.String, "!")
	if !b.Names[name] {
		return nil, false, nil
	}
	return pkgpath.NewFS(req.String), true, nil
}

// Null always declines, used as the tail of a chain under test so the
// ResolveError reports cleanly instead of panicking on an empty chain.
type Null struct{}

// Resolve implements Resolver.
func (Null) Resolve(*module.Request) (pkgpath.Path, bool, error) {
	return nil, false, nil
}
