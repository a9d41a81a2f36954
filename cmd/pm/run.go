package main

import (
	"fmt"
	"os"

	"github.com/a-h/pkgrun/cmd/globals"
	"github.com/a-h/pkgrun/hooks"
	"github.com/a-h/pkgrun/pkgregistry"
	"github.com/a-h/pkgrun/runtimehost"
)

// RunCmd runs a named script from the current package's manifest, per
// spec.md §4.10: a script value is either a module request (run as a fresh
// main module) or a shell command prefixed with "!".
type RunCmd struct {
	Script string `arg:"" help:"Script name declared under package.json's scripts map"`
	Pymain bool   `name:"pymain" help:"Run a module-request script with host __main__ detection enabled"`
}

func (cmd *RunCmd) Run(g *globals.Globals) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("pm: determining working directory: %w", err)
	}
	m, err := readLocalManifestFile(wd)
	if err != nil {
		return err
	}
	pkgView := pkgregistry.FromManifest(wd, m)
	if _, ok := pkgView.Scripts[cmd.Script]; !ok {
		return fmt.Errorf("pm: no script named %q in %s", cmd.Script, pkgregistry.DefaultManifestFile)
	}

	log := newLogger(g)
	rtCtx := runtimehost.Bootstrap(cmd.Pymain)
	if err := rtCtx.Enter(nil); err != nil {
		return fmt.Errorf("pm: entering runtime context: %w", err)
	}
	defer rtCtx.Leave()

	runner := hooks.New(&runtimehost.Adapter{Ctx: rtCtx}, log, wd)
	return runner.Run(pkgView, cmd.Script)
}
