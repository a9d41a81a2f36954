package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/a-h/pkgrun/cmd/globals"
	"github.com/a-h/pkgrun/distpkg"
)

// DirsCmd prints the workspace-local and user-global modules directories
// the resolver's filesystem search path consults, per spec.md §4.3 step 1
// ("workspace <modules-dir>/, then global <modules-dir>/, in that order").
type DirsCmd struct {
	CurrentDir string `name:"current-dir" help:"Directory to resolve the workspace modules dir relative to"`
}

func (cmd *DirsCmd) Run(g *globals.Globals) error {
	dir := cmd.CurrentDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("pm: determining working directory: %w", err)
		}
		dir = wd
	}
	fmt.Println(filepath.Join(dir, distpkg.ModulesDirDefault))
	if home, err := os.UserHomeDir(); err == nil {
		fmt.Println(filepath.Join(home, ".pkgrun", distpkg.ModulesDirDefault))
	}
	return nil
}
