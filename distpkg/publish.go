package distpkg

import (
	"context"
	"fmt"
	"os"

	"github.com/a-h/pkgrun/hooks"
	"github.com/a-h/pkgrun/manifest"
	"github.com/a-h/pkgrun/pkgregistry"
)

// Uploader pushes a packed archive to a registry. Implemented by
// registryclient.Client in production wiring.
type Uploader interface {
	Upload(ctx context.Context, name, version, archivePath string) error
}

// Publish packs rootDir per m, uploads the result via u, and runs the
// pre-publish/post-publish hooks around it, per spec.md §4.9 ("publish =
// dist + upload + pre-publish/post-publish hook invocation").
func Publish(ctx context.Context, rootDir string, pkg *pkgregistry.Package, m manifest.Manifest, u Uploader, runner *hooks.Runner) error {
	if err := m.ValidateForPublish(); err != nil {
		return fmt.Errorf("distpkg: publish: %w", err)
	}
	if runner != nil {
		if err := runner.Run(pkg, "pre-publish"); err != nil {
			return err
		}
	}

	destPath := DefaultName(m)
	if err := os.MkdirAll("dist", 0o755); err != nil {
		return fmt.Errorf("distpkg: publish: %w", err)
	}
	if err := Pack(rootDir, m, destPath); err != nil {
		return fmt.Errorf("distpkg: publish: %w", err)
	}

	if err := u.Upload(ctx, m.Name, m.Version, destPath); err != nil {
		return fmt.Errorf("distpkg: publish: upload: %w", err)
	}

	if runner != nil {
		if err := runner.Run(pkg, "post-publish"); err != nil {
			return err
		}
	}
	return nil
}
