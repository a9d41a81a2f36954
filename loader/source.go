package loader

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/a-h/pkgrun/module"
	"github.com/a-h/pkgrun/pkgpath"
	"github.com/a-h/pkgrun/pkgregistry"
)

// BytecacheSuffix is appended to a source file's name to find its adjacent
// cache of already-preprocessed source (spec.md §4.4's "bytecache file").
const BytecacheSuffix = ".pkgrunc"

// Executor compiles and runs preprocessed source within a namespace,
// producing the module's exported value. The loader package is agnostic to
// which host language a Package actually contains; production wiring
// supplies a concrete interpreter embedding, tests substitute a trivial one.
type Executor interface {
	Execute(filename, source string, namespace map[string]any) (exports any, err error)
}

// Preprocessor is the subset of the extension dispatcher's contract the
// source loader needs (spec.md §4.4's preprocess_python_source hook). It is
// declared here, rather than imported from the extension package, so that
// package can depend on loader without a cycle.
type Preprocessor interface {
	Name() string
	PreprocessSource(pkg *pkgregistry.Package, filename, source string) (string, error)
}

// fileLocalDirective matches a "# nodepy-extensions: a, b" comment naming
// extensions active for this file only (spec.md §4.6).
var fileLocalDirective = regexp.MustCompile(`^\s*#\s*nodepy-extensions:\s*(.+)$`)

// codingDeclaration matches a PEP 263-style "coding: xxx" comment on one of
// the first two lines (spec.md §4.4's "peek for a coding declaration").
var codingDeclaration = regexp.MustCompile(`coding[:=]\s*([-\w.]+)`)

// Source loads text source files: the default loader for ordinary script
// modules.
type Source struct {
	suffixes []string
	executor Executor

	// ActiveExtensions returns the extensions registered for a module's
	// package, in registration order.
	ActiveExtensions func(pkg *pkgregistry.Package) []Preprocessor
	// ResolveFileLocal resolves the comma-separated names from a
	// "# nodepy-extensions:" comment into Preprocessors, in the order
	// named.
	ResolveFileLocal func(names []string) ([]Preprocessor, error)
	// BuildNamespace returns the symbols to inject into a module's
	// namespace before execution (require, module, __directory__, and any
	// extension-provided bindings). Supplied by the require facility to
	// avoid an import cycle.
	BuildNamespace func(m *module.Module) map[string]any

	// OnExecuted, when set, runs immediately after a module finishes
	// executing (spec.md §4.6's module_loaded event, fired once the module
	// is fully loaded). An error here aborts the Load the same as an
	// execution failure, per "a failing extension aborts loading of that
	// module."
	OnExecuted func(m *module.Module) error

	// WriteBytecode disables bytecache writing when false.
	WriteBytecode bool
	now           func() time.Time
}

// NewSource builds a Source loader for the given suffixes.
func NewSource(suffixes []string, executor Executor) *Source {
	return &Source{
		suffixes:      suffixes,
		executor:      executor,
		WriteBytecode: true,
		now:           time.Now,
	}
}

// Suffixes implements Loader.
func (s *Source) Suffixes() []string { return s.suffixes }

// Load implements Loader, per spec.md §4.4's source-loader algorithm.
func (s *Source) Load(m *module.Module, target pkgpath.Path) error {
	sourceBytes, sourceMTime, err := readFSWithMTime(target)
	if err != nil {
		return &LoadError{Path: target.String(), Reason: err.Error()}
	}

	encoding := sniffCoding(sourceBytes)
	if !strings.EqualFold(encoding, "utf-8") {
		return &LoadError{Path: target.String(), Reason: fmt.Sprintf("unsupported source encoding %q", encoding)}
	}
	source := string(sourceBytes)

	bytecachePath := target.String() + BytecacheSuffix
	if cached, ok := s.tryBytecache(bytecachePath, sourceMTime); ok {
		source = cached
	} else {
		source, err = s.preprocess(m, target, source)
		if err != nil {
			return &LoadError{Path: target.String(), Reason: err.Error()}
		}
		if s.WriteBytecode {
			_ = os.WriteFile(bytecachePath, []byte(source), 0o644)
		}
	}

	namespace := map[string]any{}
	if s.BuildNamespace != nil {
		for k, v := range s.BuildNamespace(m) {
			namespace[k] = v
		}
	}
	m.Namespace = namespace

	exports, err := s.executor.Execute(target.String(), source, namespace)
	if err != nil {
		return &LoadError{Path: target.String(), Reason: err.Error()}
	}
	m.MarkExecuted(exports, s.now())

	if s.OnExecuted != nil {
		if err := s.OnExecuted(m); err != nil {
			return &LoadError{Path: target.String(), Reason: err.Error()}
		}
	}
	return nil
}

// tryBytecache returns the cached preprocessed source when the bytecache
// file exists, is at least as new as sourceMTime, and is readable, per
// spec.md §4.4's "prefer bytecache when its mtime >= source mtime and
// bytecache is readable; skip if not readable" rule.
func (s *Source) tryBytecache(bytecachePath string, sourceMTime time.Time) (string, bool) {
	info, err := os.Stat(bytecachePath)
	if err != nil {
		return "", false
	}
	if info.ModTime().Before(sourceMTime) {
		return "", false
	}
	data, err := os.ReadFile(bytecachePath)
	if err != nil {
		return "", false
	}
	return string(data), true
}

func (s *Source) preprocess(m *module.Module, target pkgpath.Path, source string) (string, error) {
	var active []Preprocessor
	if s.ActiveExtensions != nil {
		active = append(active, s.ActiveExtensions(m.Package)...)
	}

	if names := fileLocalExtensionNames(source); len(names) > 0 && s.ResolveFileLocal != nil {
		extra, err := s.ResolveFileLocal(names)
		if err != nil {
			return "", err
		}
		active = append(active, extra...)
	}

	for _, ext := range active {
		preprocessed, err := ext.PreprocessSource(m.Package, target.String(), source)
		if err != nil {
			return "", fmt.Errorf("extension %q: %w", ext.Name(), err)
		}
		source = preprocessed
	}
	return source, nil
}

// fileLocalExtensionNames scans the first few lines of source for a
// "# nodepy-extensions:" directive and returns the comma-separated names it
// lists, trimmed.
func fileLocalExtensionNames(source string) []string {
	scanner := bufio.NewScanner(strings.NewReader(source))
	for i := 0; i < 5 && scanner.Scan(); i++ {
		if m := fileLocalDirective.FindStringSubmatch(scanner.Text()); m != nil {
			var names []string
			for _, n := range strings.Split(m[1], ",") {
				if n = strings.TrimSpace(n); n != "" {
					names = append(names, n)
				}
			}
			return names
		}
	}
	return nil
}

// sniffCoding inspects the first two lines for a coding declaration,
// defaulting to "utf-8" when none is present.
func sniffCoding(source []byte) string {
	lines := bytes.SplitN(source, []byte("\n"), 3)
	for i := 0; i < len(lines) && i < 2; i++ {
		if m := codingDeclaration.FindSubmatch(lines[i]); m != nil {
			return string(m[1])
		}
	}
	return "utf-8"
}

func readFSWithMTime(target pkgpath.Path) ([]byte, time.Time, error) {
	if target.Kind() != pkgpath.KindFS {
		data, err := target.ReadBytes()
		return data, time.Time{}, err
	}
	info, err := os.Stat(target.String())
	if err != nil {
		return nil, time.Time{}, err
	}
	data, err := target.ReadBytes()
	if err != nil {
		return nil, time.Time{}, err
	}
	return data, info.ModTime(), nil
}
