package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/a-h/pkgrun/cmd/globals"
	"github.com/a-h/pkgrun/distpkg"
)

// BinCmd prints the workspace's shim directory, "<modules-dir>/.bin",
// per spec.md §6's persisted-state entry for that path.
type BinCmd struct {
	CurrentDir string `name:"current-dir" help:"Directory to resolve the workspace modules dir relative to"`
}

func (cmd *BinCmd) Run(g *globals.Globals) error {
	dir := cmd.CurrentDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("pm: determining working directory: %w", err)
		}
		dir = wd
	}
	fmt.Println(filepath.Join(dir, distpkg.ModulesDirDefault, ".bin"))
	return nil
}
