package distpkg

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/a-h/pkgrun/hooks"
	"github.com/a-h/pkgrun/manifest"
	"github.com/a-h/pkgrun/pkgregistry"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, contents := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func listTarGZ(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	defer gz.Close()
	tr := tar.NewReader(gz)
	var names []string
	for {
		hdr, err := tr.Next()
		if err != nil {
			break
		}
		names = append(names, hdr.Name)
	}
	return names
}

func TestPackExcludesDefaultsAndGitDir(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"index.js":       "module.exports = {}\n",
		".git/HEAD":      "ref: refs/heads/main\n",
		"compiled.pyc":   "binary",
		"packages/dep.js": "x\n",
	})

	m := manifest.Manifest{Name: "pkg", Version: "1.0.0"}
	dest := filepath.Join(t.TempDir(), "out.tar.gz")
	if err := Pack(root, m, dest); err != nil {
		t.Fatalf("Pack error: %v", err)
	}

	names := listTarGZ(t, dest)
	want := map[string]bool{"index.js": true}
	for _, n := range names {
		if n == ".git" || n == ".git/HEAD" || n == "compiled.pyc" || n == "packages/dep.js" {
			t.Errorf("unexpected file in archive: %q", n)
		}
		delete(want, n)
	}
	if len(want) != 0 {
		t.Errorf("missing expected files: %v", want)
	}
}

func TestPackIncludeOverridesExclude(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"dist/old.tar.gz": "stale",
		"index.js":        "module.exports = {}\n",
	})

	m := manifest.Manifest{
		Name: "pkg", Version: "1.0.0",
		Dist: &manifest.Dist{IncludeFiles: []string{"old.tar.gz"}},
	}
	dest := filepath.Join(t.TempDir(), "out.tar.gz")
	if err := Pack(root, m, dest); err != nil {
		t.Fatalf("Pack error: %v", err)
	}
	names := listTarGZ(t, dest)
	found := false
	for _, n := range names {
		if n == "dist/old.tar.gz" {
			found = true
		}
	}
	if !found {
		t.Error("expected include pattern to override the default dist/* exclude")
	}
}

func TestDefaultNameUsesCompression(t *testing.T) {
	m := manifest.Manifest{Name: "@scope/pkg", Version: "2.0.0"}
	if got, want := DefaultName(m), filepath.Join("dist", "pkg-2.0.0.tar.gz"); got != want {
		t.Errorf("DefaultName() = %q, want %q", got, want)
	}
	m.Dist = &manifest.Dist{Compression: "xz"}
	if got, want := DefaultName(m), filepath.Join("dist", "pkg-2.0.0.tar.xz"); got != want {
		t.Errorf("DefaultName() = %q, want %q", got, want)
	}
}

type fakeUploader struct {
	called bool
	name   string
	path   string
}

func (f *fakeUploader) Upload(ctx context.Context, name, version, archivePath string) error {
	f.called = true
	f.name = name
	f.path = archivePath
	return nil
}

func TestPublishRunsHooksAroundUpload(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"index.js": "x\n"})
	wd, _ := os.Getwd()
	t.Cleanup(func() { os.Chdir(wd) })
	os.Chdir(t.TempDir())

	modules := &recordingModuleRunner{}
	runner := hooks.New(modules, nil, ".")
	pkg := &pkgregistry.Package{
		Name: "pkg",
		Scripts: map[string]string{
			"pre-publish":  "./before",
			"post-publish": "./after",
		},
	}
	m := manifest.Manifest{Name: "pkg", Version: "1.0.0", License: "MIT"}
	uploader := &fakeUploader{}

	if err := Publish(context.Background(), root, pkg, m, uploader, runner); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if !uploader.called || uploader.name != "pkg" {
		t.Errorf("uploader not called correctly: %+v", uploader)
	}
	if len(modules.calls) != 2 || modules.calls[0] != "./before" || modules.calls[1] != "./after" {
		t.Errorf("hook calls = %v", modules.calls)
	}
}

type recordingModuleRunner struct{ calls []string }

func (r *recordingModuleRunner) RunMain(request, dir string) error {
	r.calls = append(r.calls, request)
	return nil
}
