// Package hostlang embeds a JavaScript engine as the runtime's host
// language, satisfying loader.Executor (spec.md §4.4): each module's
// preprocessed source is compiled and run in its own VM, with the
// namespace's symbols installed as globals beforehand and a CommonJS-style
// module.exports object read back afterward. Grounded in grafana-k6's use
// of dop251/goja to embed a scripting VM inside a Go host process.
package hostlang

import (
	"fmt"

	"github.com/dop251/goja"
)

// Goja executes module source as JavaScript using a fresh VM per call, so
// one module's globals never leak into another's.
type Goja struct {
	// Pymain, when true, sets the __main__ global to true before running a
	// module's source: the JS-host adaptation of the runtime's --pymain
	// flag (spec.md §6), which in the host language this spec is modeled on
	// makes __name__ == "__main__" checks succeed.
	Pymain bool
}

// New builds a Goja executor.
func New() *Goja {
	return &Goja{}
}

// Execute implements loader.Executor.
func (g *Goja) Execute(filename, source string, namespace map[string]any) (exports any, err error) {
	vm := goja.New()

	initialExports := vm.NewObject()
	if existing, ok := namespace["exports"]; ok && existing != nil {
		if obj, ok := vm.ToValue(existing).(*goja.Object); ok {
			initialExports = obj
		}
	}
	moduleObj := vm.NewObject()
	if err := moduleObj.Set("exports", initialExports); err != nil {
		return nil, fmt.Errorf("hostlang: setting module.exports: %w", err)
	}
	if err := vm.Set("module", moduleObj); err != nil {
		return nil, fmt.Errorf("hostlang: setting module global: %w", err)
	}
	if err := vm.Set("exports", initialExports); err != nil {
		return nil, fmt.Errorf("hostlang: setting exports global: %w", err)
	}

	for k, v := range namespace {
		if k == "module" || k == "exports" {
			continue
		}
		if err := vm.Set(k, v); err != nil {
			return nil, fmt.Errorf("hostlang: setting namespace symbol %q: %w", k, err)
		}
	}
	if g.Pymain {
		if err := vm.Set("__main__", true); err != nil {
			return nil, fmt.Errorf("hostlang: setting __main__: %w", err)
		}
	}

	prog, err := goja.Compile(filename, source, false)
	if err != nil {
		return nil, fmt.Errorf("hostlang: compiling %s: %w", filename, err)
	}
	if _, err := vm.RunProgram(prog); err != nil {
		return nil, fmt.Errorf("hostlang: executing %s: %w", filename, err)
	}

	finalModule := vm.Get("module").ToObject(vm)
	finalExports := finalModule.Get("exports")
	result := finalExports.Export()
	namespace["exports"] = result
	return result, nil
}
