package manifest

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const exampleManifest = `{
  "name": "@scope/pkg",
  "version": "1.0.0",
  "main": "lib/m.js",
  "resolve_root": "lib",
  "dependencies": {
    "b-dep": "^1.0.0",
    "a-dep": "~2.0.0"
  }
}`

func TestParseValidate(t *testing.T) {
	m, err := Parse([]byte(exampleManifest))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if m.Name != "@scope/pkg" {
		t.Errorf("Name = %q", m.Name)
	}
	scope, scoped := m.IsScoped()
	if !scoped || scope != "scope" {
		t.Errorf("IsScoped() = %q, %v, want \"scope\", true", scope, scoped)
	}
	if got := m.UnscopedName(); got != "pkg" {
		t.Errorf("UnscopedName() = %q, want pkg", got)
	}
	if got := m.Dependencies.Keys(); !cmp.Equal(got, []string{"b-dep", "a-dep"}) {
		t.Errorf("Dependencies.Keys() = %v, want order preserved [b-dep a-dep]", got)
	}
}

func TestValidateRejectsBadNamesAndMissingFields(t *testing.T) {
	tests := []struct {
		name string
		m    Manifest
	}{
		{"missing name", Manifest{Version: "1.0.0"}},
		{"missing version", Manifest{Name: "pkg"}},
		{"bad characters", Manifest{Name: "pkg!!", Version: "1.0.0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.m.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateForPublishRequiresLicense(t *testing.T) {
	m := Manifest{Name: "pkg", Version: "1.0.0"}
	if err := m.ValidateForPublish(); err == nil {
		t.Error("expected error for missing license")
	}
	m.License = "MIT"
	if err := m.ValidateForPublish(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseSerializeRoundTrip(t *testing.T) {
	m, err := Parse([]byte(exampleManifest))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	out, err := m.Serialize()
	if err != nil {
		t.Fatalf("Serialize error: %v", err)
	}
	reparsed, err := Parse(out)
	if err != nil {
		t.Fatalf("reparse error: %v", err)
	}
	if diff := cmp.Diff(m, reparsed, cmp.AllowUnexported(StringMap{})); diff != "" {
		t.Errorf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestAddDependencySaveSections(t *testing.T) {
	m := Manifest{Name: "pkg", Version: "1.0.0"}
	if err := m.AddDependency("dependencies", "lodash", "^4.0.0"); err != nil {
		t.Fatalf("AddDependency error: %v", err)
	}
	if err := m.AddDependency("dev-dependencies", "jest", "^29.0.0"); err != nil {
		t.Fatalf("AddDependency error: %v", err)
	}
	if err := m.AddDependency("extensions", "my-ext", ""); err != nil {
		t.Fatalf("AddDependency error: %v", err)
	}
	if v, _ := m.Dependencies.Get("lodash"); v != "^4.0.0" {
		t.Errorf("dependencies[lodash] = %q", v)
	}
	if v, _ := m.DevDependencies.Get("jest"); v != "^29.0.0" {
		t.Errorf("dev-dependencies[jest] = %q", v)
	}
	if len(m.Extensions) != 1 || m.Extensions[0] != "my-ext" {
		t.Errorf("Extensions = %v", m.Extensions)
	}
}
