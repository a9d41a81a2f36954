// Package distpkg packs a package directory into a distributable archive
// (spec.md §4.9): the manifest's include/exclude glob patterns plus a fixed
// default exclude set decide which files go in; publish wraps Pack with an
// upload step and the pre-publish/post-publish hooks.
package distpkg

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/a-h/pkgrun/manifest"
)

// DefaultExcludes are always applied, regardless of the manifest's own
// exclude_files list, per spec.md §4.9.
var DefaultExcludes = []string{
	".svn/*", ".git", ".git/*", ".DS_Store", "*.pyc", "*.pyo", "dist/*",
}

// ModulesDirDefault names the package-local dependency directory excluded
// by default (the "<modules-dir>/" entry in spec.md §4.9's default set).
const ModulesDirDefault = "packages"

// Pack walks rootDir, filters files per the include/exclude rules, and
// writes a tar archive (optionally xz- or gzip-compressed per
// m.Dist.Compression) to destPath.
func Pack(rootDir string, m manifest.Manifest, destPath string) error {
	files, err := selectFiles(rootDir, m)
	if err != nil {
		return fmt.Errorf("distpkg: selecting files: %w", err)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("distpkg: creating %q: %w", destPath, err)
	}
	defer out.Close()

	compression := "gzip"
	if m.Dist != nil && m.Dist.Compression != "" {
		compression = m.Dist.Compression
	}

	var compressed io.WriteCloser
	switch compression {
	case "gzip":
		compressed = gzip.NewWriter(out)
	case "xz":
		w, err := xz.NewWriter(out)
		if err != nil {
			return fmt.Errorf("distpkg: creating xz writer: %w", err)
		}
		compressed = w
	default:
		return fmt.Errorf("distpkg: unknown compression %q", compression)
	}
	defer compressed.Close()

	tw := tar.NewWriter(compressed)
	defer tw.Close()

	for _, rel := range files {
		if err := addFile(tw, rootDir, rel); err != nil {
			return fmt.Errorf("distpkg: adding %q: %w", rel, err)
		}
	}
	return nil
}

// DefaultName returns "dist/<name>-<version>.tar.gz" (or ".tar.xz"), the
// spec.md §4.9 default output location.
func DefaultName(m manifest.Manifest) string {
	ext := ".tar.gz"
	if m.Dist != nil && m.Dist.Compression == "xz" {
		ext = ".tar.xz"
	}
	return filepath.Join("dist", fmt.Sprintf("%s-%s%s", m.UnscopedName(), m.Version, ext))
}

func selectFiles(rootDir string, m manifest.Manifest) ([]string, error) {
	excludes := append([]string(nil), DefaultExcludes...)
	excludes = append(excludes, ModulesDirDefault+"/*")
	var includes []string
	if m.Dist != nil {
		excludes = append(excludes, m.Dist.ExcludeFiles...)
		includes = m.Dist.IncludeFiles
	}

	var matched []string
	err := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(rootDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if matchesAny(rel, includes) {
			matched = append(matched, rel)
			return nil
		}
		if matchesAny(rel, excludes) {
			return nil
		}
		matched = append(matched, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(matched)
	return matched, nil
}

func matchesAny(rel string, patterns []string) bool {
	for _, pat := range patterns {
		if ok, _ := filepath.Match(pat, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(pat, filepath.Base(rel)); ok {
			return true
		}
		// "dir/*" covers everything beneath dir, not just its direct children.
		if strings.HasSuffix(pat, "/*") && strings.HasPrefix(rel, strings.TrimSuffix(pat, "*")) {
			return true
		}
	}
	return false
}

// Unpack extracts a dist archive (gzip- or xz-compressed tar, sniffed from
// the stream rather than the file extension) into destDir, used by the
// installer to place a fetched or locally-built package.
func Unpack(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("distpkg: opening %q: %w", archivePath, err)
	}
	defer f.Close()

	var r io.Reader = f
	magic := make([]byte, 2)
	if _, err := io.ReadFull(f, magic); err != nil {
		return fmt.Errorf("distpkg: reading archive header: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("distpkg: seeking archive start: %w", err)
	}

	if magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("distpkg: opening gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	} else {
		xzr, err := xz.NewReader(f)
		if err != nil {
			return fmt.Errorf("distpkg: opening xz reader: %w", err)
		}
		r = xzr
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("distpkg: reading tar entry: %w", err)
		}

		target := filepath.Join(destDir, hdr.Name)
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("distpkg: creating directory %q: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("distpkg: creating directory %q: %w", filepath.Dir(target), err)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return fmt.Errorf("distpkg: creating file %q: %w", target, err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return fmt.Errorf("distpkg: writing file %q: %w", target, err)
			}
			out.Close()
		}
	}
}

func addFile(tw *tar.Writer, rootDir, rel string) error {
	full := filepath.Join(rootDir, rel)
	info, err := os.Lstat(full)
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = rel

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return nil
	}
	f, err := os.Open(full)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(tw, f)
	return err
}
