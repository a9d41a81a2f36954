// Package pkgregistry discovers packages (a directory containing a
// manifest) from the filesystem and keeps a per-Context cache of them,
// keyed by canonicalized root directory, per spec.md §3's Package lifecycle:
// "Packages are discovered lazily when any module resolution walks into
// their root; retained for the Context's lifetime."
package pkgregistry

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/a-h/pkgrun/manifest"
)

// DefaultManifestFile is the manifest filename the resolver looks for when
// walking directories, matching the teacher's convention of a single
// well-known metadata filename per package root.
const DefaultManifestFile = "package.json"

// Package is a discovered manifest plus its root directory (spec.md §3).
// One Package exists per canonicalized root directory within a Registry.
type Package struct {
	Name                  string
	Version               string
	RootDir               string
	ResolveRoot           string
	Main                  string
	Bin                   map[string]string
	Scripts               map[string]string
	Dependencies          map[string]string
	DevDependencies       map[string]string
	NativeDependencies    map[string]string
	DevNativeDependencies map[string]string
	Extensions            []string
	Dist                  *manifest.Dist
	VendorDirectories     []string
	Private               bool

	// Manifest is the full typed manifest this Package was built from.
	Manifest manifest.Manifest
}

// EffectiveRoot returns the directory that acts as the package's root for
// in-package resolution: RootDir itself, unless ResolveRoot names a
// subdirectory, in which case requests within the package are resolved
// relative to RootDir/ResolveRoot (spec.md §4.3 step 3).
func (p *Package) EffectiveRoot() string {
	if p.ResolveRoot == "" {
		return p.RootDir
	}
	return filepath.Join(p.RootDir, p.ResolveRoot)
}

// FromManifest builds a Package from a parsed manifest rooted at rootDir.
func FromManifest(rootDir string, m manifest.Manifest) *Package {
	p := &Package{
		RootDir:           rootDir,
		Name:              m.Name,
		Version:           m.Version,
		ResolveRoot:       m.ResolveRoot,
		Main:              m.Main,
		Extensions:        append([]string(nil), m.Extensions...),
		Dist:              m.Dist,
		VendorDirectories: append([]string(nil), m.VendorDirectories...),
		Private:           m.Private,
		Manifest:          m,
	}
	p.Bin = toMap(m.Bin)
	p.Scripts = toMap(m.Scripts)
	p.Dependencies = toMap(m.Dependencies)
	p.DevDependencies = toMap(m.DevDependencies)
	p.NativeDependencies = toMap(m.PythonDependencies)
	p.DevNativeDependencies = toMap(m.DevPythonDependencies)
	return p
}

func toMap(sm *manifest.StringMap) map[string]string {
	out := map[string]string{}
	for _, k := range sm.Keys() {
		v, _ := sm.Get(k)
		out[k] = v
	}
	return out
}

// Registry discovers and caches Packages for one Context's lifetime.
// Concurrent access from multiple goroutines is safe, though per spec.md §5
// a single Context is expected to be driven from one thread.
type Registry struct {
	mu      sync.Mutex
	byRoot  map[string]*Package
	readDir func(dir string) (manifest.Manifest, bool, error)
}

// New creates an empty Registry. readManifest reads and parses the manifest
// file in dir if present; production callers pass readManifestFile (reading
// from the local filesystem), tests may substitute a fake.
func New(readManifest func(dir string) (manifest.Manifest, bool, error)) *Registry {
	if readManifest == nil {
		readManifest = readManifestFile
	}
	return &Registry{byRoot: map[string]*Package{}, readDir: readManifest}
}

// Get returns the cached Package for rootDir, if one has been discovered.
func (r *Registry) Get(rootDir string) (*Package, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byRoot[rootDir]
	return p, ok
}

// DiscoverAt discovers (or returns the cached) Package rooted exactly at
// dir. It returns ok=false, nil error if dir has no manifest.
func (r *Registry) DiscoverAt(dir string) (*Package, bool, error) {
	r.mu.Lock()
	if p, ok := r.byRoot[dir]; ok {
		r.mu.Unlock()
		return p, true, nil
	}
	r.mu.Unlock()

	m, found, err := r.readDir(dir)
	if err != nil {
		return nil, false, fmt.Errorf("pkgregistry: reading manifest in %q: %w", dir, err)
	}
	if !found {
		return nil, false, nil
	}
	p := FromManifest(dir, m)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byRoot[dir] = p
	return p, true, nil
}

// PackageForDirectory implements spec.md §4.3 step 5: starting at dir as
// given (it is not resolved or cleaned here), walk upward until a manifest
// is found or the filesystem root is reached.
func (r *Registry) PackageForDirectory(dir string) (*Package, bool, error) {
	current := dir
	for {
		p, found, err := r.DiscoverAt(current)
		if err != nil {
			return nil, false, err
		}
		if found {
			return p, true, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return nil, false, nil
		}
		current = parent
	}
}

// All returns every Package discovered so far, for diagnostic use.
func (r *Registry) All() []*Package {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Package, 0, len(r.byRoot))
	for _, p := range r.byRoot {
		out = append(out, p)
	}
	return out
}
