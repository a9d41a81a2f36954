package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/a-h/pkgrun/cmd/globals"
)

// UploadCmd uploads a pre-built dist archive directly, for workflows that
// pack out-of-band (e.g. a CI step that already ran "pm dist").
type UploadCmd struct {
	Archive  string `arg:"" help:"Path to a dist/<name>-<version>.tar.gz archive"`
	Name     string `name:"name" help:"Package name (inferred from the archive filename if omitted)"`
	Version  string `name:"version" help:"Package version (inferred from the archive filename if omitted)"`
	Registry string `name:"registry" help:"Named registry section to upload to" default:"default"`
}

func (cmd *UploadCmd) Run(g *globals.Globals) error {
	name, version := cmd.Name, cmd.Version
	if name == "" || version == "" {
		n, v, err := inferNameVersion(cmd.Archive)
		if err != nil {
			return err
		}
		if name == "" {
			name = n
		}
		if version == "" {
			version = v
		}
	}

	cfg, err := loadConfig(g)
	if err != nil {
		return fmt.Errorf("pm: loading config: %w", err)
	}
	client, err := registryClientFor(cfg, newLogger(g), cmd.Registry)
	if err != nil {
		return err
	}
	if err := client.Upload(context.Background(), name, version, cmd.Archive); err != nil {
		return err
	}
	fmt.Printf("uploaded %s@%s\n", name, version)
	return nil
}

// inferNameVersion parses "<name>-<version>.tar.gz" (or .tar.xz), the
// layout distpkg.DefaultName produces.
func inferNameVersion(archivePath string) (name, version string, err error) {
	base := archivePath
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	for _, ext := range []string{".tar.gz", ".tar.xz", ".tgz"} {
		base = strings.TrimSuffix(base, ext)
	}
	idx := strings.LastIndexByte(base, '-')
	if idx < 0 {
		return "", "", fmt.Errorf("pm: cannot infer name/version from %q; pass --name/--version", archivePath)
	}
	return base[:idx], base[idx+1:], nil
}
