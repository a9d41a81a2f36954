package loader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/a-h/pkgrun/module"
	"github.com/a-h/pkgrun/pkgpath"
	"github.com/a-h/pkgrun/pkgregistry"
)

type fakeExecutor struct {
	lastFilename string
	lastSource   string
}

func (f *fakeExecutor) Execute(filename, source string, namespace map[string]any) (any, error) {
	f.lastFilename = filename
	f.lastSource = source
	return namespace["require"], nil
}

type upperPreprocessor struct{ calls int }

func (p *upperPreprocessor) Name() string { return "upper" }
func (p *upperPreprocessor) PreprocessSource(pkg *pkgregistry.Package, filename, source string) (string, error) {
	p.calls++
	return source + "\n# preprocessed\n", nil
}

func TestSourceLoaderExecutesAndBuildsNamespace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mod.py")
	if err := os.WriteFile(path, []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	exec := &fakeExecutor{}
	s := NewSource([]string{".py"}, exec)
	s.BuildNamespace = func(m *module.Module) map[string]any {
		return map[string]any{"require": "require-fn", "__directory__": m.Directory().String()}
	}

	req := module.New("./mod", pkgpath.NewFS(dir))
	m := module.New(pkgpath.NewFS(path), pkgpath.NewFS(path), req, nil)

	if err := s.Load(m, pkgpath.NewFS(path)); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if m.Exports != "require-fn" {
		t.Errorf("Exports = %v", m.Exports)
	}
	if m.Namespace["__directory__"] != dir {
		t.Errorf("__directory__ = %v", m.Namespace["__directory__"])
	}
	if exec.lastFilename != path {
		t.Errorf("executor filename = %q", exec.lastFilename)
	}
}

func TestSourceLoaderAppliesActiveExtensions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mod.py")
	os.WriteFile(path, []byte("x = 1\n"), 0o644)

	exec := &fakeExecutor{}
	pre := &upperPreprocessor{}
	s := NewSource([]string{".py"}, exec)
	s.ActiveExtensions = func(pkg *pkgregistry.Package) []Preprocessor {
		return []Preprocessor{pre}
	}
	s.WriteBytecode = false

	req := module.New("./mod", pkgpath.NewFS(dir))
	m := module.New(pkgpath.NewFS(path), pkgpath.NewFS(path), req, nil)
	if err := s.Load(m, pkgpath.NewFS(path)); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if pre.calls != 1 {
		t.Errorf("preprocessor calls = %d, want 1", pre.calls)
	}
	if exec.lastSource != "x = 1\n\n# preprocessed\n" {
		t.Errorf("source = %q", exec.lastSource)
	}
}

func TestSourceLoaderFileLocalDirective(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mod.py")
	os.WriteFile(path, []byte("# nodepy-extensions: my-ext\nx = 1\n"), 0o644)

	exec := &fakeExecutor{}
	pre := &upperPreprocessor{}
	s := NewSource([]string{".py"}, exec)
	s.WriteBytecode = false
	var resolvedNames []string
	s.ResolveFileLocal = func(names []string) ([]Preprocessor, error) {
		resolvedNames = names
		return []Preprocessor{pre}, nil
	}

	req := module.New("./mod", pkgpath.NewFS(dir))
	m := module.New(pkgpath.NewFS(path), pkgpath.NewFS(path), req, nil)
	if err := s.Load(m, pkgpath.NewFS(path)); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(resolvedNames) != 1 || resolvedNames[0] != "my-ext" {
		t.Errorf("resolvedNames = %v", resolvedNames)
	}
	if pre.calls != 1 {
		t.Errorf("preprocessor calls = %d", pre.calls)
	}
}

func TestSourceLoaderPrefersFreshBytecache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mod.py")
	os.WriteFile(path, []byte("x = 1\n"), 0o644)

	exec := &fakeExecutor{}
	pre := &upperPreprocessor{}
	s := NewSource([]string{".py"}, exec)
	s.ActiveExtensions = func(pkg *pkgregistry.Package) []Preprocessor { return []Preprocessor{pre} }

	req := module.New("./mod", pkgpath.NewFS(dir))
	m := module.New(pkgpath.NewFS(path), pkgpath.NewFS(path), req, nil)
	if err := s.Load(m, pkgpath.NewFS(path)); err != nil {
		t.Fatalf("first Load error: %v", err)
	}
	if pre.calls != 1 {
		t.Fatalf("preprocessor calls after first load = %d", pre.calls)
	}

	m2 := module.New(pkgpath.NewFS(path), pkgpath.NewFS(path), req, nil)
	if err := s.Load(m2, pkgpath.NewFS(path)); err != nil {
		t.Fatalf("second Load error: %v", err)
	}
	if pre.calls != 1 {
		t.Errorf("preprocessor re-ran on cached load: calls = %d", pre.calls)
	}

	future := time.Now().Add(time.Hour)
	os.Chtimes(path, future, future)
	m3 := module.New(pkgpath.NewFS(path), pkgpath.NewFS(path), req, nil)
	if err := s.Load(m3, pkgpath.NewFS(path)); err != nil {
		t.Fatalf("third Load error: %v", err)
	}
	if pre.calls != 2 {
		t.Errorf("expected re-preprocessing after source mtime advanced, calls = %d", pre.calls)
	}
}

func TestJSONLoader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	os.WriteFile(path, []byte(`{"a": 1}`), 0o644)

	j := NewJSON()
	req := module.New("./data.json", pkgpath.NewFS(dir))
	m := module.New(pkgpath.NewFS(path), pkgpath.NewFS(path), req, nil)
	if err := j.Load(m, pkgpath.NewFS(path)); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	asMap, ok := m.Exports.(map[string]any)
	if !ok || asMap["a"].(float64) != 1 {
		t.Errorf("Exports = %#v", m.Exports)
	}
}

func TestBindingLoaderMissing(t *testing.T) {
	b := NewBinding(func() map[string]any { return map[string]any{"fs": 1} })
	req := module.New("!nope", pkgpath.NewFS("/"))
	m := module.New(pkgpath.NewFS("!nope"), pkgpath.NewFS("!nope"), req, nil)
	err := b.Load(m, pkgpath.NewFS("!nope"))
	if _, ok := err.(*NoSuchBindingError); !ok {
		t.Errorf("error = %v, want *NoSuchBindingError", err)
	}
}

func TestChainDispatchesBySuffix(t *testing.T) {
	c := NewChain()
	c.Register("", NewJSON())
	c.Register("", NewSource([]string{".py"}, &fakeExecutor{}))

	l, err := c.For(pkgpath.NewFS("a/b.json"), "")
	if err != nil {
		t.Fatalf("For error: %v", err)
	}
	if _, ok := l.(*JSON); !ok {
		t.Errorf("For(.json) = %T, want *JSON", l)
	}

	_, err = c.For(pkgpath.NewFS("a/b.unknown"), "")
	if err == nil {
		t.Error("expected error for unregistered suffix")
	}
}
