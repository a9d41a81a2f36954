// Package extension implements the per-package extension dispatcher from
// spec.md §4.6: extensions hook module loading (preprocessing source,
// observing loaded modules) and are registered once per Package on first
// use.
package extension

import (
	"fmt"

	"github.com/a-h/pkgrun/module"
	"github.com/a-h/pkgrun/pkgregistry"
)

// Extension is the one method every package extension implements. The
// three hooks are separate interfaces (InitExtension, ModuleLoadedExtension,
// SourcePreprocessor) that an extension may also implement; all three are
// optional, per spec.md §4.6 ("all optional on each extension").
type Extension interface {
	Name() string
}

// InitExtension is implemented by extensions that want to run once when
// their package first uses them.
type InitExtension interface {
	InitExtension(pkg *pkgregistry.Package) error
}

// ModuleLoadedExtension is implemented by extensions that observe every
// module loaded from their package.
type ModuleLoadedExtension interface {
	ModuleLoaded(m *module.Module) error
}

// SourcePreprocessor is implemented by extensions that rewrite source text
// before it is compiled; this is the same shape loader.Preprocessor
// expects, declared independently here so this package does not need to
// import loader.
type SourcePreprocessor interface {
	PreprocessSource(pkg *pkgregistry.Package, filename, source string) (string, error)
}

// Dispatcher holds the ordered set of extensions active for one Package,
// and invokes their hooks. A failing extension aborts loading of the
// module in progress, per spec.md §4.6.
type Dispatcher struct {
	pkg        *pkgregistry.Package
	extensions []Extension
}

// NewDispatcher creates a Dispatcher with no extensions registered yet.
func NewDispatcher(pkg *pkgregistry.Package) *Dispatcher {
	return &Dispatcher{pkg: pkg}
}

// Register appends ext to the active set, in the order given, then runs its
// InitExtension hook if implemented.
func (d *Dispatcher) Register(ext Extension) error {
	d.extensions = append(d.extensions, ext)
	if init, ok := ext.(InitExtension); ok {
		if err := init.InitExtension(d.pkg); err != nil {
			return fmt.Errorf("extension %q: init_extension: %w", ext.Name(), err)
		}
	}
	return nil
}

// Preprocessors lists the
// extensions, in registration order, that implement SourcePreprocessor —
// this is what a loader.Source's ActiveExtensions hook should return,
// wrapped to satisfy loader.Preprocessor.
func (d *Dispatcher) Preprocessors() []Preprocessor {
	var out []Preprocessor
	for _, ext := range d.extensions {
		if sp, ok := ext.(SourcePreprocessor); ok {
			out = append(out, Preprocessor{name: ext.Name(), impl: sp})
		}
	}
	return out
}

// ModuleLoaded runs every registered ModuleLoadedExtension hook for m, in
// registration order, stopping at the first error.
func (d *Dispatcher) ModuleLoaded(m *module.Module) error {
	for _, ext := range d.extensions {
		if ml, ok := ext.(ModuleLoadedExtension); ok {
			if err := ml.ModuleLoaded(m); err != nil {
				return fmt.Errorf("extension %q: module_loaded: %w", ext.Name(), err)
			}
		}
	}
	return nil
}

// Preprocessor adapts a SourcePreprocessor plus its owning extension's name
// to the loader.Preprocessor interface shape (Name() + PreprocessSource()).
type Preprocessor struct {
	name string
	impl SourcePreprocessor
}

// Name implements loader.Preprocessor.
func (p Preprocessor) Name() string { return p.name }

// PreprocessSource implements loader.Preprocessor.
func (p Preprocessor) PreprocessSource(pkg *pkgregistry.Package, filename, source string) (string, error) {
	return p.impl.PreprocessSource(pkg, filename, source)
}
