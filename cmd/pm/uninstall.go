package main

import (
	"context"
	"fmt"
	"os"

	"github.com/a-h/pkgrun/cmd/globals"
	"github.com/a-h/pkgrun/install"
)

// UninstallCmd reverses a prior install placement, per spec.md §4.8 step 7.
type UninstallCmd struct {
	Name       string `arg:"" help:"Package name to uninstall"`
	Global     bool   `short:"g" name:"global" help:"Uninstall from the user-global prefix instead of the workspace"`
	ModulesDir string `name:"modules-dir" help:"Override the workspace-local dependency directory"`
}

func (cmd *UninstallCmd) Run(g *globals.Globals) error {
	ctx := context.Background()
	log := newLogger(g)

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("pm: determining working directory: %w", err)
	}

	modulesDirName := cmd.ModulesDir
	if modulesDirName == "" {
		modulesDirName = "packages"
	}
	rootDir := wd
	modulesDir := wd + string(os.PathSeparator) + modulesDirName
	if cmd.Global {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("pm: determining user home directory: %w", err)
		}
		rootDir = home + string(os.PathSeparator) + ".pkgrun"
		modulesDir = rootDir + string(os.PathSeparator) + modulesDirName
	}

	hist, closer, err := openHistory(ctx, modulesDir)
	if err != nil {
		return err
	}
	defer closer()

	inst := newInstaller(nil, hist, wd, log, false)

	opts := install.Options{ModulesDir: modulesDirName, Global: cmd.Global}
	if err := inst.Uninstall(ctx, rootDir, cmd.Name, opts); err != nil {
		return err
	}
	fmt.Printf("- %s\n", cmd.Name)
	return nil
}
