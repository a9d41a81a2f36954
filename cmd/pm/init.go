package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/a-h/pkgrun/cmd/globals"
	"github.com/a-h/pkgrun/manifest"
	"github.com/a-h/pkgrun/pkgregistry"
)

// InitCmd writes a minimal package.json into the current directory,
// seeding author/license from the config file's [default] section when
// present (spec.md §6's config file section).
type InitCmd struct {
	Name    string `help:"Package name" required:""`
	Version string `help:"Initial version" default:"0.1.0"`
	License string `help:"License identifier"`
	Main    string `help:"Entry module request" default:"index"`
}

func (cmd *InitCmd) Run(g *globals.Globals) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("pm: determining working directory: %w", err)
	}
	path := filepath.Join(wd, pkgregistry.DefaultManifestFile)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("pm: %s already exists", path)
	}

	license := cmd.License
	if license == "" {
		if cfg, err := loadConfig(g); err == nil {
			license, _ = cfg.Get("license")
		}
	}

	m := manifest.Manifest{
		Name:    cmd.Name,
		Version: cmd.Version,
		License: license,
		Main:    cmd.Main,
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("pm: %w", err)
	}
	data, err := m.Serialize()
	if err != nil {
		return fmt.Errorf("pm: serializing new manifest: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("pm: writing %s: %w", path, err)
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
