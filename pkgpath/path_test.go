package pkgpath

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFSPathResolveToleratesNonexistentTail(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "a"), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}

	p := NewFS(filepath.Join(dir, "a", "sub", "..", "does-not-exist.js"))

	resolved, err := p.Resolve(false)
	if err != nil {
		t.Fatalf("unexpected error resolving non-strict path: %v", err)
	}

	want := filepath.Join(dir, "a", "does-not-exist.js")
	if resolved.String() != want {
		t.Errorf("got %q, want %q", resolved.String(), want)
	}
}

func TestFSPathResolveStrictFailsOnMissingTail(t *testing.T) {
	dir := t.TempDir()
	p := NewFS(filepath.Join(dir, "missing"))
	if _, err := p.Resolve(true); err == nil {
		t.Error("expected an error resolving a strict path that does not exist")
	}
}

func TestFSPathJoinSuffixStemName(t *testing.T) {
	p := NewFS("/a/b").Join("c.txt")
	if got, want := p.Name(), "c.txt"; got != want {
		t.Errorf("Name() = %q, want %q", got, want)
	}
	if got, want := p.Suffix(), ".txt"; got != want {
		t.Errorf("Suffix() = %q, want %q", got, want)
	}
	if got, want := p.Stem(), "c"; got != want {
		t.Errorf("Stem() = %q, want %q", got, want)
	}
	if got, want := p.Parent().String(), filepath.FromSlash("/a/b"); got != want {
		t.Errorf("Parent() = %q, want %q", got, want)
	}
}

func TestFSPathExistsIsFileIsDir(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(filePath, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	f := NewFS(filePath)
	if ok, err := f.Exists(); err != nil || !ok {
		t.Errorf("Exists() = %v, %v, want true, nil", ok, err)
	}
	if ok, err := f.IsFile(); err != nil || !ok {
		t.Errorf("IsFile() = %v, %v, want true, nil", ok, err)
	}
	if ok, err := f.IsDir(); err != nil || ok {
		t.Errorf("IsDir() = %v, %v, want false, nil", ok, err)
	}

	d := NewFS(dir)
	if ok, err := d.IsDir(); err != nil || !ok {
		t.Errorf("IsDir() = %v, %v, want true, nil", ok, err)
	}

	missing := NewFS(filepath.Join(dir, "nope"))
	if ok, err := missing.Exists(); err != nil || ok {
		t.Errorf("Exists() for missing file = %v, %v, want false, nil", ok, err)
	}
}

func TestArchiveMemberRoundTrip(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "pkg.tar")
	writeTestTar(t, archivePath, map[string]string{
		"package/index.js":      "module.exports = 1;",
		"package/lib/helper.js": "exports.helper = true;",
	})

	member := NewArchiveMember(archivePath, "package/index.js")
	ok, err := member.Exists()
	if err != nil || !ok {
		t.Fatalf("Exists() = %v, %v, want true, nil", ok, err)
	}

	data, err := member.ReadBytes()
	if err != nil {
		t.Fatalf("ReadBytes() error: %v", err)
	}
	if string(data) != "module.exports = 1;" {
		t.Errorf("ReadBytes() = %q", data)
	}

	dirMember := NewArchiveMember(archivePath, "package")
	children, err := dirMember.Iterdir()
	if err != nil {
		t.Fatalf("Iterdir() error: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("Iterdir() returned %d children, want 2", len(children))
	}
}
