package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/a-h/pkgrun/cmd/globals"
	"github.com/a-h/pkgrun/distpkg"
	"github.com/a-h/pkgrun/manifest"
	"github.com/a-h/pkgrun/pkgregistry"
)

// DistCmd packs the current directory's package per spec.md §4.9.
type DistCmd struct {
	Out string `name:"out" help:"Override the default dist/<name>-<version>.tar.gz output path"`
}

func readLocalManifestFile(dir string) (manifest.Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, pkgregistry.DefaultManifestFile))
	if err != nil {
		return manifest.Manifest{}, fmt.Errorf("pm: reading %s: %w", pkgregistry.DefaultManifestFile, err)
	}
	return manifest.Parse(data)
}

func (cmd *DistCmd) Run(g *globals.Globals) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("pm: determining working directory: %w", err)
	}
	m, err := readLocalManifestFile(wd)
	if err != nil {
		return err
	}
	if err := m.Validate(); err != nil {
		return err
	}

	dest := cmd.Out
	if dest == "" {
		dest = distpkg.DefaultName(m)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("pm: creating %s: %w", filepath.Dir(dest), err)
	}
	if err := distpkg.Pack(wd, m, dest); err != nil {
		return err
	}
	fmt.Println(dest)
	return nil
}
