package install

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/a-h/pkgrun/pkgregistry"
)

// installedFilesName is the per-package file manifest uninstall consults,
// per spec.md §6: "<modules-dir>/<pkg>/installed-files.txt — file manifest
// for uninstallation."
const installedFilesName = "installed-files.txt"

// writeInstalledFilesList records every regular file placed under destDir,
// relative to destDir, so a later Uninstall can remove exactly what was
// placed without guessing at directory contents added by the package
// itself afterward.
func writeInstalledFilesList(destDir string) error {
	var rels []string
	err := filepath.Walk(destDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(destDir, path)
		if err != nil {
			return err
		}
		rels = append(rels, rel)
		return nil
	})
	if err != nil {
		return fmt.Errorf("install: listing placed files in %q: %w", destDir, err)
	}
	listPath := filepath.Join(destDir, installedFilesName)
	return os.WriteFile(listPath, []byte(strings.Join(rels, "\n")+"\n"), 0o644)
}

// Uninstall reverses a prior placement for name: runs pre-uninstall/
// post-uninstall hooks around removing the files installed-files.txt
// recorded, per spec.md §4.8 step 7. Files placed by the native installer
// are not removed.
func (inst *Installer) Uninstall(ctx context.Context, rootDir, name string, opts Options) error {
	modulesDir := filepath.Join(rootDir, opts.modulesDir())

	lock, err := acquireModulesLock(ctx, modulesDir)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	destDir := filepath.Join(modulesDir, scopedPath(name))
	linkPath := destDir + linkFileSuffix

	var pkgView *pkgregistry.Package
	if m, rerr := readLocalManifest(destDir); rerr == nil {
		pkgView = pkgregistry.FromManifest(destDir, m)
	}

	if inst.Hooks != nil && pkgView != nil {
		if err := inst.Hooks.Run(pkgView, "pre-uninstall"); err != nil {
			return err
		}
	}

	if err := removeInstalledFiles(destDir); err != nil {
		return err
	}
	if err := os.Remove(linkPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("install: removing link file %q: %w", linkPath, err)
	}

	if inst.Hooks != nil && pkgView != nil {
		if err := inst.Hooks.Run(pkgView, "post-uninstall"); err != nil {
			return err
		}
	}

	if inst.History != nil {
		records, err := inst.History.ListInstalls(ctx, name)
		if err != nil {
			return fmt.Errorf("install: listing install history for %q: %w", name, err)
		}
		for _, rec := range records {
			if err := inst.History.RemoveInstall(ctx, name, rec.Version); err != nil {
				return err
			}
		}
	}

	return nil
}

// removeInstalledFiles deletes destDir's contents. When installed-files.txt
// is present it removes exactly the files it lists first (matching the
// native installer's own uninstall bookkeeping), then removes the
// now-empty directory tree.
func removeInstalledFiles(destDir string) error {
	listPath := filepath.Join(destDir, installedFilesName)
	data, err := os.ReadFile(listPath)
	if err != nil {
		if os.IsNotExist(err) {
			return os.RemoveAll(destDir)
		}
		return fmt.Errorf("install: reading %q: %w", listPath, err)
	}
	for _, rel := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if rel == "" {
			continue
		}
		if err := os.Remove(filepath.Join(destDir, rel)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("install: removing %q: %w", rel, err)
		}
	}
	return os.RemoveAll(destDir)
}
