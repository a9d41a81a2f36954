package pkgregistry

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/a-h/pkgrun/manifest"
)

// readManifestFile is the default manifest reader: it looks for
// DefaultManifestFile directly inside dir.
func readManifestFile(dir string) (manifest.Manifest, bool, error) {
	data, err := os.ReadFile(filepath.Join(dir, DefaultManifestFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return manifest.Manifest{}, false, nil
		}
		return manifest.Manifest{}, false, err
	}
	m, err := manifest.Parse(data)
	if err != nil {
		return manifest.Manifest{}, false, err
	}
	return m, true, nil
}
