package resolver

import (
	"strings"

	"github.com/a-h/pkgrun/module"
	"github.com/a-h/pkgrun/pkgpath"
	"github.com/a-h/pkgrun/pkgregistry"
)

// LinkSuffix names package-link files: a file whose canonical name ends in
// this suffix contains a single line naming the real target path the
// request should be redirected to (spec.md §4.3 step 4).
const LinkSuffix = ".pkgrun-link"

// SearchPathFunc returns the ordered list of base directories a non-relative
// request should be tried against: typically the Request's own SearchPath,
// then the Context's additional search path, then the workspace and global
// modules directories, in that order (spec.md §4.3 step 1).
type SearchPathFunc func(req *module.Request) []pkgpath.Path

// Filesystem is the resolver described in spec.md §4.3: it walks candidate
// base directories trying a request as a bare file, as a file with each
// registered suffix appended, as a directory with an index file, or as a
// directory containing a manifest whose "main" field names the real entry.
type Filesystem struct {
	// Suffixes are tried, in order, after the bare filename.
	Suffixes []string
	// IndexFile is the basename tried inside a directory when nothing
	// else matches (e.g. "index").
	IndexFile string
	// Registry discovers and caches packages encountered along the way.
	Registry *pkgregistry.Registry
	// SearchPath supplies the base-directory list for non-relative
	// requests.
	SearchPath SearchPathFunc
	// readLink reads the single-line target of a package-link file; a
	// field so tests can substitute a fake without touching disk.
	readLink func(p pkgpath.Path) (string, error)
}

// NewFilesystem builds a Filesystem resolver with the given suffixes/index
// file, backed by registry for package discovery.
func NewFilesystem(suffixes []string, indexFile string, registry *pkgregistry.Registry, searchPath SearchPathFunc) *Filesystem {
	return &Filesystem{
		Suffixes:   suffixes,
		IndexFile:  indexFile,
		Registry:   registry,
		SearchPath: searchPath,
		readLink:   defaultReadLink,
	}
}

func defaultReadLink(p pkgpath.Path) (string, error) {
	data, err := p.ReadBytes()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func isRelative(req string) bool {
	return strings.HasPrefix(req, "./") || strings.HasPrefix(req, "../")
}

// Resolve implements Resolver.
func (f *Filesystem) Resolve(req *module.Request) (pkgpath.Path, bool, error) {
	var bases []pkgpath.Path
	if isRelative(req.String) {
		if req.CurrentDir == nil {
			return nil, false, nil
		}
		bases = []pkgpath.Path{req.CurrentDir}
	} else {
		bases = f.SearchPath(req)
	}

	for _, base := range bases {
		target, found, err := f.tryBase(base, req.String)
		if err != nil {
			return nil, false, err
		}
		if found {
			return target, true, nil
		}
	}
	return nil, false, nil
}

// tryBase implements spec.md §4.3 step 2's per-base try order, plus the
// package-link (step 4) and manifest-root (step 3) behavior.
func (f *Filesystem) tryBase(base pkgpath.Path, request string) (pkgpath.Path, bool, error) {
	candidate := joinRequest(base, request)

	// Step 4: does a package-link file exist at this exact name?
	linkPath := pkgpath.NewFS(candidate.String() + LinkSuffix)
	if exists, _ := linkPath.Exists(); exists {
		target, err := f.readLink(linkPath)
		if err != nil {
			return nil, false, err
		}
		return f.tryBase(pkgpath.NewFS(target), ".")
	}

	// base/request as a bare file.
	if isFile, _ := candidate.IsFile(); isFile {
		return f.registerIfPackaged(candidate)
	}

	// base/request + each suffix.
	for _, suffix := range f.Suffixes {
		withSuffix := pkgpath.NewFS(candidate.String() + suffix)
		if isFile, _ := withSuffix.IsFile(); isFile {
			return f.registerIfPackaged(withSuffix)
		}
	}

	isDir, _ := candidate.IsDir()
	if !isDir {
		return nil, false, nil
	}

	// Step 3: a manifest in this directory shifts the effective root and
	// names the real entry point via its "main" field.
	if f.Registry != nil {
		pkg, found, err := f.Registry.DiscoverAt(candidate.String())
		if err != nil {
			return nil, false, err
		}
		if found {
			root := pkgpath.NewFS(pkg.EffectiveRoot())
			main := pkg.Main
			if main == "" {
				main = f.IndexFile
			}
			return f.tryBase(root, main)
		}
	}

	// base/request/<index-file> + each suffix.
	if f.IndexFile != "" {
		indexBase := candidate
		for _, suffix := range f.Suffixes {
			indexPath := indexBase.Join(f.IndexFile + suffix)
			if isFile, _ := indexPath.IsFile(); isFile {
				return indexPath, true, nil
			}
		}
	}

	return nil, false, nil
}

// registerIfPackaged discovers the enclosing package for a resolved file, so
// later require() calls from within it see the right Package, then returns
// the file unchanged.
func (f *Filesystem) registerIfPackaged(target pkgpath.Path) (pkgpath.Path, bool, error) {
	if f.Registry != nil {
		if _, _, err := f.Registry.PackageForDirectory(target.Parent().String()); err != nil {
			return nil, false, err
		}
	}
	return target, true, nil
}

func joinRequest(base pkgpath.Path, request string) pkgpath.Path {
	if request == "" || request == "." {
		return base
	}
	parts := strings.Split(request, "/")
	return base.Join(parts...)
}
