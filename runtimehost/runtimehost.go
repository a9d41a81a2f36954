// Package runtimehost assembles the resolver chain, loader chain, and
// Context the runtime CLI and the package manager's lifecycle hooks both
// need to actually execute a module request (spec.md §4.3/§4.4/§4.7), so
// the two entry points share one bootstrap instead of wiring it twice.
package runtimehost

import (
	"fmt"
	"os"

	"github.com/a-h/pkgrun/ctxrt"
	"github.com/a-h/pkgrun/extension"
	"github.com/a-h/pkgrun/hostlang"
	"github.com/a-h/pkgrun/loader"
	"github.com/a-h/pkgrun/module"
	"github.com/a-h/pkgrun/pkgpath"
	"github.com/a-h/pkgrun/pkgregistry"
	"github.com/a-h/pkgrun/require"
	"github.com/a-h/pkgrun/resolver"
)

// SourceSuffixes are the source-loader suffixes the runtime registers.
var SourceSuffixes = []string{".js", ".json"}

// builtinExtensionNames are the two extensions spec.md §4.6 requires to be
// reachable by "!"-prefix binding even without a manifest declaring them.
var builtinExtensionNames = []string{"require-unpack-syntax", "require-import-syntax"}

// newBuiltinExtensions constructs fresh instances of the two built-in
// extensions, keyed by their binding name. Fresh instances per Context avoid
// UnpackSyntax's per-instance tmpCounter leaking across unrelated sessions.
func newBuiltinExtensions() map[string]extension.Extension {
	return map[string]extension.Extension{
		"require-unpack-syntax": &extension.UnpackSyntax{},
		"require-import-syntax": extension.ImportSyntax{},
	}
}

// Bootstrap builds a fresh Context wired with the filesystem/binding
// resolvers, the source/JSON/binding loaders, and a package registry.
// pymain, when true, makes the host language's __main__ detection succeed
// for every module executed through this Context (the --pymain flag's
// effect, spec.md §6).
func Bootstrap(pymain bool) *ctxrt.Context {
	registry := pkgregistry.New(nil)

	searchPath := func(req *module.Request) []pkgpath.Path {
		return append([]pkgpath.Path(nil), req.SearchPath...)
	}

	bindingNames := append([]string{"process"}, builtinExtensionNames...)
	fsResolver := resolver.NewFilesystem(SourceSuffixes, "index", registry, searchPath)
	bindingResolver := resolver.NewBinding(bindingNames...)
	resolverChain := resolver.New(fsResolver, bindingResolver, resolver.Null{})

	var rtCtx *ctxrt.Context

	builtins := newBuiltinExtensions()
	dispatchers := map[*pkgregistry.Package]*extension.Dispatcher{}
	dispatcherFor := func(pkg *pkgregistry.Package) *extension.Dispatcher {
		if pkg == nil {
			return nil
		}
		d, ok := dispatchers[pkg]
		if ok {
			return d
		}
		d = extension.NewDispatcher(pkg)
		dispatchers[pkg] = d
		for _, name := range pkg.Extensions {
			ext, err := resolveExtension(rtCtx, pkg, name, builtins)
			if err != nil {
				continue
			}
			_ = d.Register(ext)
		}
		return d
	}

	loaderChain := loader.NewChain()
	sourceLoader := loader.NewSource(SourceSuffixes, &hostlang.Goja{Pymain: pymain})
	sourceLoader.ActiveExtensions = func(pkg *pkgregistry.Package) []loader.Preprocessor {
		d := dispatcherFor(pkg)
		if d == nil {
			return nil
		}
		out := make([]loader.Preprocessor, 0, len(d.Preprocessors()))
		for _, p := range d.Preprocessors() {
			out = append(out, p)
		}
		return out
	}
	sourceLoader.ResolveFileLocal = func(names []string) ([]loader.Preprocessor, error) {
		out := make([]loader.Preprocessor, 0, len(names))
		for _, name := range names {
			ext, err := resolveExtension(rtCtx, nil, name, builtins)
			if err != nil {
				return nil, err
			}
			sp, ok := ext.(extensionPreprocessor)
			if !ok {
				continue
			}
			out = append(out, fileLocalPreprocessor{name: ext.Name(), impl: sp})
		}
		return out, nil
	}
	sourceLoader.OnExecuted = func(m *module.Module) error {
		d := dispatcherFor(m.Package)
		if d == nil {
			return nil
		}
		return d.ModuleLoaded(m)
	}
	sourceLoader.BuildNamespace = func(m *module.Module) map[string]any {
		req := require.New(rtCtx, m)
		ns := map[string]any{
			"require":       wrapRequire(req),
			"__directory__": m.Directory().String(),
			"__file__":      m.CanonicalFilename.String(),
			"exports":       map[string]any{},
		}
		if m.Request != nil && m.Request.IsMain {
			ns["__name__"] = "__main__"
		}
		return ns
	}
	loaderChain.Register("source", sourceLoader)
	loaderChain.Register("json", loader.NewJSON())
	loaderChain.Register("binding", loader.NewBinding(func() map[string]any { return rtCtx.Bindings }))

	rtCtx = ctxrt.New(resolverChain, loaderChain, registry)
	rtCtx.Bindings["process"] = map[string]any{
		"argv": append([]string(nil), os.Args...),
		"env":  os.Environ(),
	}
	for name, ext := range builtins {
		rtCtx.Bindings[name] = ext
	}
	return rtCtx
}

// extensionPreprocessor is the subset of extension.Extension a file-local
// "# nodepy-extensions:" directive needs: loader.Preprocessor's shape, minus
// the package-registry import loader already avoids.
type extensionPreprocessor interface {
	PreprocessSource(pkg *pkgregistry.Package, filename, source string) (string, error)
}

// fileLocalPreprocessor adapts an extension named by a file-local directive
// to loader.Preprocessor.
type fileLocalPreprocessor struct {
	name string
	impl extensionPreprocessor
}

func (p fileLocalPreprocessor) Name() string { return p.name }
func (p fileLocalPreprocessor) PreprocessSource(pkg *pkgregistry.Package, filename, source string) (string, error) {
	return p.impl.PreprocessSource(pkg, filename, source)
}

// resolveExtension looks an extension up by the name a manifest's
// "extensions" list or a file-local directive names. The two built-ins are
// always available under their binding names, per spec.md §4.6 ("accessible
// via '!'-prefix binding even without a manifest"); any other name is
// resolved as an ordinary require(exports=false) against pkg's root (or, for
// a file-local directive naming no owning package, the process's working
// directory), per spec.md §4.6's "extensions are modules, resolved and
// loaded as any other require() target, with exports=false."
func resolveExtension(rtCtx *ctxrt.Context, pkg *pkgregistry.Package, name string, builtins map[string]extension.Extension) (extension.Extension, error) {
	if ext, ok := builtins[name]; ok {
		return ext, nil
	}

	root := require.New(rtCtx, nil)
	opts := []require.Option{require.WithExports(false)}
	if pkg != nil {
		opts = append(opts, require.WithCurrentDir(pkgpath.NewFS(pkg.EffectiveRoot())))
	}
	result, err := root.Call(name, opts...)
	if err != nil {
		return nil, fmt.Errorf("runtimehost: resolving extension %q: %w", name, err)
	}
	m, ok := result.(*module.Module)
	if !ok {
		return nil, fmt.Errorf("runtimehost: extension %q did not resolve to a module", name)
	}
	ext, ok := m.Exports.(extension.Extension)
	if !ok {
		return nil, fmt.Errorf("runtimehost: extension %q does not implement extension.Extension", name)
	}
	return ext, nil
}

// wrapRequire adapts a *require.Require to the single-argument callable
// shape a require() call in script source expects.
func wrapRequire(r *require.Require) func(string) (any, error) {
	return func(request string) (any, error) {
		return r.Call(request)
	}
}

// Adapter satisfies hooks.ModuleRunner by running a request as a fresh main
// module against a bootstrapped Context (spec.md §4.10: a lifecycle hook
// whose script value is not shell-prefixed runs as an ordinary module).
type Adapter struct {
	Ctx *ctxrt.Context
}

// RunMain implements hooks.ModuleRunner. Each call clears any previous main
// module first so a sequence of hooks (pre-install, post-install, ...) can
// each run their own script as "the" main module in turn.
func (a *Adapter) RunMain(request, dir string) error {
	a.Ctx.ClearMain()
	root := require.New(a.Ctx, nil)
	_, err := root.Call(request,
		require.WithIsMain(true),
		require.WithCurrentDir(pkgpath.NewFS(dir)),
		require.WithCache(false),
	)
	return err
}
