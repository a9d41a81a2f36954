package pkgpath

import (
	"archive/tar"
	"os"
	"testing"
)

// writeTestTar writes an uncompressed tar archive at dst containing files
// keyed by member path.
func writeTestTar(t *testing.T, dst string, files map[string]string) {
	t.Helper()

	f, err := os.Create(dst)
	if err != nil {
		t.Fatalf("failed to create tar file: %v", err)
	}
	defer f.Close()

	tw := tar.NewWriter(f)
	defer tw.Close()

	for name, content := range files {
		hdr := &tar.Header{
			Name: name,
			Mode: 0644,
			Size: int64(len(content)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("failed to write tar header: %v", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("failed to write tar content: %v", err)
		}
	}
}
