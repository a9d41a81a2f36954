// Package install implements the installer described in spec.md §4.8:
// resolving a set of command-line targets (registry packages, local paths,
// archives, git URLs, or host-language dependencies) into a fully placed,
// deterministic workspace tree, running lifecycle hooks and rewriting the
// manifest around each placement. Grounded in the teacher's publish/fetch
// plumbing (registryclient, distpkg) and its db packages' audit-log pattern
// (install/history), generalized from "store an uploaded package" to
// "place a resolved dependency graph."
package install

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/a-h/pkgrun/distpkg"
	"github.com/a-h/pkgrun/hooks"
	"github.com/a-h/pkgrun/install/history"
	"github.com/a-h/pkgrun/manifest"
	"github.com/a-h/pkgrun/pkgregistry"
	"github.com/dustin/go-humanize"
)

// lockRetryInterval is how often acquireModulesLock/acquirePydistutilsLock
// poll while waiting for a concurrent install to finish.
const lockRetryInterval = 100 * time.Millisecond

// Registry is the subset of registryclient.Client the installer depends on,
// declared locally so tests can substitute a fake without an httptest
// server (the same pattern hooks.ModuleRunner and distpkg.Uploader use to
// avoid an import cycle back to their owning packages).
type Registry interface {
	Versions(ctx context.Context, name string) ([]string, error)
	Manifest(ctx context.Context, name, version string) (manifest.Manifest, error)
	Fetch(ctx context.Context, name, version string) (io.ReadCloser, error)
}

// Options configures one Install call.
type Options struct {
	// ModulesDir is the workspace-local dependency directory, default
	// "packages" (distpkg.ModulesDirDefault).
	ModulesDir string
	// Global places packages under UserPrefix instead of the workspace.
	Global bool
	// UserPrefix is "<user-prefix>" for a global install.
	UserPrefix string
	// Dev expands the root targets' dev-dependencies as well.
	Dev bool
	// Save names the manifest section ("dependencies", "dev-dependencies",
	// or "extensions") newly installed root targets are recorded under, or
	// "" to skip rewriting the manifest.
	Save string
	// IgnoreInstalled forces re-placement even when history already
	// records a package version as installed.
	IgnoreInstalled bool
	// RuntimeBinary is the executable name bin shims re-invoke.
	RuntimeBinary string
	// NativeInstallerPath overrides the host package installer binary
	// (default "pip").
	NativeInstallerPath string
}

func (o Options) modulesDir() string {
	if o.ModulesDir == "" {
		return "packages"
	}
	return o.ModulesDir
}

func (o Options) runtimeBinary() string {
	if o.RuntimeBinary == "" {
		return "pkgrun"
	}
	return o.RuntimeBinary
}

// Placement records where and how one package ended up on disk.
type Placement struct {
	Name      string
	Version   string
	Dir       string
	Placement string // local, global, develop, or native
}

// Result summarizes one Install call.
type Result struct {
	Placed []Placement
	Native []string
}

// Installer resolves install targets and places them on disk.
type Installer struct {
	Registry Registry
	History  *history.History
	Hooks    *hooks.Runner
	Logger   *slog.Logger

	NativeInstallerPath string
}

// New builds an Installer.
func New(registry Registry, hist *history.History, runner *hooks.Runner, logger *slog.Logger) *Installer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Installer{Registry: registry, History: hist, Hooks: runner, Logger: logger}
}

// Install resolves targets against rootDir's workspace and places every
// package in the expanded dependency graph, per spec.md §4.8.
func (inst *Installer) Install(ctx context.Context, rootDir string, targets []Target, opts Options) (*Result, error) {
	modulesDir := filepath.Join(rootDir, opts.modulesDir())
	if err := os.MkdirAll(modulesDir, 0o755); err != nil {
		return nil, fmt.Errorf("install: creating modules directory: %w", err)
	}
	if opts.NativeInstallerPath != "" {
		inst.NativeInstallerPath = opts.NativeInstallerPath
	}

	lock, err := acquireModulesLock(ctx, modulesDir)
	if err != nil {
		return nil, err
	}
	defer lock.Unlock()

	var roots []rootRequest
	directRoots := map[string]materializedRoot{}
	var nativeOnly []nativeRequest

	for _, t := range targets {
		switch t.Kind {
		case TargetRegistry:
			roots = append(roots, rootRequest{name: t.Name, selector: t.Selector, dependent: ""})
		case TargetNative:
			nativeOnly = append(nativeOnly, nativeRequest{name: t.NativeName, selector: specFromVersion(t.NativeVersion)})
		default:
			mr, err := materializeTarget(ctx, t, modulesDir)
			if err != nil {
				return nil, err
			}
			if err := mr.manifest.Validate(); err != nil {
				return nil, fmt.Errorf("install: %w", err)
			}
			directRoots[mr.manifest.Name] = mr
			for dep, sel := range stringMapOf(mr.manifest.Dependencies) {
				roots = append(roots, rootRequest{name: dep, selector: sel, dependent: mr.manifest.Name})
			}
			for dep, sel := range stringMapOf(mr.manifest.PythonDependencies) {
				nativeOnly = append(nativeOnly, nativeRequest{name: dep, selector: sel})
			}
			if opts.Dev {
				for dep, sel := range stringMapOf(mr.manifest.DevDependencies) {
					roots = append(roots, rootRequest{name: dep, selector: sel, dependent: mr.manifest.Name})
				}
			}
		}
	}

	resolved, natives, err := inst.resolveGraph(ctx, roots, inst.History, opts.Dev)
	if err != nil {
		return nil, err
	}
	for name, mr := range directRoots {
		resolved[name] = &resolvedPackage{Name: name, Version: mr.manifest.Version, Manifest: mr.manifest}
	}
	natives = append(natives, nativeOnly...)

	result := &Result{}
	for _, pkg := range resolved {
		placement, err := inst.placeOne(ctx, pkg, directRoots[pkg.Name], modulesDir, opts)
		if err != nil {
			return nil, err
		}
		result.Placed = append(result.Placed, placement)
	}

	if len(natives) > 0 {
		if err := inst.installNative(ctx, natives, modulesDir); err != nil {
			return nil, err
		}
		for _, n := range natives {
			result.Native = append(result.Native, n.name)
		}
	}

	if opts.Save != "" {
		for _, t := range targets {
			if t.Kind != TargetRegistry {
				continue
			}
			if err := inst.saveRootManifest(rootDir, t, opts.Save); err != nil {
				return nil, err
			}
		}
	}

	return result, nil
}

func specFromVersion(version string) string {
	if version == "" {
		return ""
	}
	return "==" + version
}

// placeOne places a single resolved package, skipping it entirely when
// history already records it at the same version and IgnoreInstalled is
// false (spec.md §8's idempotence guarantee).
func (inst *Installer) placeOne(ctx context.Context, pkg *resolvedPackage, direct materializedRoot, modulesDir string, opts Options) (Placement, error) {
	destDir, placementKind := packageDestination(modulesDir, opts, pkg.Name, direct.develop)

	if !opts.IgnoreInstalled && inst.History != nil {
		if _, ok, err := inst.History.GetInstall(ctx, pkg.Name, pkg.Version); err == nil && ok {
			return Placement{Name: pkg.Name, Version: pkg.Version, Dir: destDir, Placement: placementKind}, nil
		}
	}

	pkgView := pkgregistry.FromManifest(destDir, pkg.Manifest)

	if inst.Hooks != nil {
		if err := inst.Hooks.Run(pkgView, "pre-install"); err != nil {
			return Placement{}, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(destDir), 0o755); err != nil {
		return Placement{}, fmt.Errorf("install: creating %q: %w", filepath.Dir(destDir), err)
	}
	partialPath := destDir + ".partial"
	if err := os.WriteFile(partialPath, nil, 0o644); err != nil {
		return Placement{}, fmt.Errorf("install: writing partial sentinel: %w", err)
	}

	if err := inst.materializePlacement(ctx, pkg, direct, destDir, modulesDir); err != nil {
		return Placement{}, err
	}

	if placementKind != "develop" {
		if err := writeInstalledFilesList(destDir); err != nil {
			return Placement{}, err
		}
	}

	if err := writeShims(modulesDir, opts.runtimeBinary(), stringMapOf(pkg.Manifest.Bin)); err != nil {
		return Placement{}, err
	}

	if inst.Hooks != nil {
		if err := inst.Hooks.Run(pkgView, "post-install"); err != nil {
			return Placement{}, &HookPartialError{Package: pkg.Name, Err: err}
		}
	}

	if err := os.Remove(partialPath); err != nil && !os.IsNotExist(err) {
		return Placement{}, fmt.Errorf("install: removing partial sentinel: %w", err)
	}

	if inst.History != nil {
		if err := inst.History.RecordInstall(ctx, history.InstallRecord{
			Package:     pkg.Name,
			Version:     pkg.Version,
			Placement:   placementKind,
			InstalledAt: time.Now(),
			Dependents:  pkg.Dependents,
		}); err != nil {
			return Placement{}, fmt.Errorf("install: recording install history: %w", err)
		}
	}

	return Placement{Name: pkg.Name, Version: pkg.Version, Dir: destDir, Placement: placementKind}, nil
}

func (inst *Installer) materializePlacement(ctx context.Context, pkg *resolvedPackage, direct materializedRoot, destDir, modulesDir string) error {
	if direct.place != nil {
		return direct.place(destDir)
	}

	rc, err := inst.Registry.Fetch(ctx, pkg.Name, pkg.Version)
	if err != nil {
		return fmt.Errorf("install: fetching %s@%s: %w", pkg.Name, pkg.Version, err)
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(modulesDir, "pkgrun-dist-*.tar")
	if err != nil {
		return fmt.Errorf("install: creating temp archive: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	written, err := io.Copy(tmp, rc)
	if err != nil {
		return fmt.Errorf("install: downloading %s@%s: %w", pkg.Name, pkg.Version, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("install: finalizing temp archive: %w", err)
	}
	inst.Logger.Debug("fetched package archive",
		slog.String("package", pkg.Name),
		slog.String("version", pkg.Version),
		slog.String("size", humanize.Bytes(uint64(written))))

	return distpkg.Unpack(tmp.Name(), destDir)
}

// linkFileSuffix is the develop-install link file's extension: spec.md §6's
// "<pkg>.pkgrun-link" (renamed from the original "<pkg>.nodepy-link", see
// DESIGN.md), a sibling of where the package directory would otherwise live.
const linkFileSuffix = ".pkgrun-link"

// packageDestination computes the on-disk path a package is placed at:
// "<modules-dir>/<name>/" (or "<modules-dir>/@scope/<name>/" for scoped
// names) rooted under UserPrefix instead of modulesDir for a global install
// (spec.md §4.8 step 4) — or, for a develop install, the sibling
// "<modules-dir>/<name>.pkgrun-link" file path (spec.md §4.8 step 4 /
// example 4: "produces <modules-dir>/local.nodepy-link").
func packageDestination(modulesDir string, opts Options, name string, develop bool) (dir, placementKind string) {
	base := modulesDir
	placementKind = "local"
	if opts.Global {
		base = filepath.Join(opts.UserPrefix, opts.modulesDir())
		placementKind = "global"
	}
	path := filepath.Join(base, scopedPath(name))
	if develop {
		return path + linkFileSuffix, "develop"
	}
	return path, placementKind
}

func scopedPath(name string) string {
	if strings.HasPrefix(name, "@") {
		if idx := strings.Index(name, "/"); idx > 0 {
			return filepath.Join(name[:idx], name[idx+1:])
		}
	}
	return name
}

// saveRootManifest rewrites rootDir's manifest to add a direct registry
// target under section, per spec.md §4.8 step 6's --save/--save-dev/
// --save-ext flags.
func (inst *Installer) saveRootManifest(rootDir string, t Target, section string) error {
	path := filepath.Join(rootDir, pkgregistry.DefaultManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("install: reading root manifest: %w", err)
	}
	m, err := manifest.Parse(data)
	if err != nil {
		return fmt.Errorf("install: parsing root manifest: %w", err)
	}
	selector := t.Selector
	if selector == "" {
		selector = "*"
	}
	if err := m.AddDependency(section, t.Name, selector); err != nil {
		return fmt.Errorf("install: %w", err)
	}
	out, err := m.Serialize()
	if err != nil {
		return fmt.Errorf("install: serializing root manifest: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("install: writing root manifest: %w", err)
	}
	return nil
}
