package hostlang

import "testing"

func TestGojaExecuteReturnsModuleExports(t *testing.T) {
	g := New()
	exports, err := g.Execute("main.js", `module.exports = { greeting: "hi" };`, map[string]any{})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	m, ok := exports.(map[string]any)
	if !ok {
		t.Fatalf("exports = %T, want map[string]any", exports)
	}
	if m["greeting"] != "hi" {
		t.Errorf("exports[\"greeting\"] = %v, want %q", m["greeting"], "hi")
	}
}

func TestGojaExecutePlainExportsAssignment(t *testing.T) {
	g := New()
	exports, err := g.Execute("lib.js", `exports.value = 42;`, map[string]any{})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	m, ok := exports.(map[string]any)
	if !ok {
		t.Fatalf("exports = %T, want map[string]any", exports)
	}
	if m["value"] != int64(42) {
		t.Errorf("exports[\"value\"] = %v (%T), want 42", m["value"], m["value"])
	}
}

func TestGojaExecuteInjectsNamespaceGlobals(t *testing.T) {
	g := New()
	namespace := map[string]any{"__directory__": "/pkg/lib"}
	exports, err := g.Execute("main.js", `module.exports = { dir: __directory__ };`, namespace)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	m := exports.(map[string]any)
	if m["dir"] != "/pkg/lib" {
		t.Errorf("exports[\"dir\"] = %v, want /pkg/lib", m["dir"])
	}
}

func TestGojaExecuteRequireCallable(t *testing.T) {
	g := New()
	called := ""
	namespace := map[string]any{
		"require": func(request string) (any, error) {
			called = request
			return map[string]any{"padded": true}, nil
		},
	}
	exports, err := g.Execute("main.js", `module.exports = require("left-pad");`, namespace)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if called != "left-pad" {
		t.Errorf("require called with %q, want %q", called, "left-pad")
	}
	m := exports.(map[string]any)
	if m["padded"] != true {
		t.Errorf("exports[\"padded\"] = %v, want true", m["padded"])
	}
}

func TestGojaExecutePymainSetsMainGlobal(t *testing.T) {
	g := &Goja{Pymain: true}
	exports, err := g.Execute("main.js", `module.exports = { isMain: __main__ };`, map[string]any{})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	m := exports.(map[string]any)
	if m["isMain"] != true {
		t.Errorf("exports[\"isMain\"] = %v, want true", m["isMain"])
	}
}

func TestGojaExecuteCompileErrorWrapped(t *testing.T) {
	g := New()
	if _, err := g.Execute("broken.js", `function (`, map[string]any{}); err == nil {
		t.Error("expected a compile error")
	}
}

func TestGojaExecuteRuntimeErrorWrapped(t *testing.T) {
	g := New()
	if _, err := g.Execute("throws.js", `throw new Error("boom");`, map[string]any{}); err == nil {
		t.Error("expected a runtime error")
	}
}
