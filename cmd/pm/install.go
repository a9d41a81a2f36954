package main

import (
	"context"
	"fmt"
	"os"

	"github.com/a-h/pkgrun/cmd/globals"
	"github.com/a-h/pkgrun/install"
)

// InstallCmd installs one or more targets into the workspace, per spec.md
// §4.8. Target forms: "<pkg>[@<ver>]", "./path", "../path", "<file>.tar.gz",
// "git+<url>[@<ref>]", "py/<host-pkg>[==ver]".
type InstallCmd struct {
	Targets []string `arg:"" help:"Install targets"`

	Develop         bool   `short:"e" name:"develop" help:"Install local path targets as a link instead of copying"`
	Dev             bool   `name:"dev" help:"Also expand dev-dependencies for root targets"`
	Production      bool   `name:"production" help:"Exclude dev-dependencies even if the manifest declares them"`
	Global          bool   `short:"g" name:"global" help:"Install into the user-global prefix instead of the workspace"`
	Root            string `name:"root" help:"System prefix to install into (takes precedence over --global's user prefix)"`
	Save            bool   `name:"save" help:"Record new root targets under dependencies"`
	SaveDev         bool   `name:"save-dev" help:"Record new root targets under dev-dependencies"`
	SaveExt         bool   `name:"save-ext" help:"Record new root targets under extensions"`
	IgnoreInstalled bool   `name:"ignore-installed" help:"Re-place packages even if already recorded as installed"`
	Recursive       bool   `name:"recursive" help:"Re-evaluate satisfied dependencies' sub-trees"`
	ModulesDir      string `name:"modules-dir" help:"Override the workspace-local dependency directory"`
	Registry        string `name:"registry" help:"Named registry section to install from" default:"default"`
	RuntimeBinary   string `name:"runtime-binary" help:"Executable name bin shims re-invoke" default:"runtime"`
	Pymain          bool   `name:"pymain" help:"Run lifecycle hook scripts with host __main__ detection enabled"`
}

func (cmd *InstallCmd) saveSection() string {
	switch {
	case cmd.SaveDev:
		return "dev-dependencies"
	case cmd.SaveExt:
		return "extensions"
	case cmd.Save:
		return "dependencies"
	default:
		return ""
	}
}

func (cmd *InstallCmd) Run(g *globals.Globals) error {
	ctx := context.Background()
	log := newLogger(g)

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("pm: determining working directory: %w", err)
	}

	cfg, err := loadConfig(g)
	if err != nil {
		return fmt.Errorf("pm: loading config: %w", err)
	}

	var registry install.Registry
	if client, err := registryClientFor(cfg, log, cmd.Registry); err == nil {
		registry = client
	} else if registryNeeded(cmd.Targets) {
		return err
	}

	modulesDirName := cmd.ModulesDir
	if modulesDirName == "" {
		modulesDirName = "packages"
	}
	modulesDir := wd + string(os.PathSeparator) + modulesDirName
	if cmd.Global {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("pm: determining user home directory: %w", err)
		}
		modulesDir = home + string(os.PathSeparator) + ".pkgrun" + string(os.PathSeparator) + modulesDirName
	}

	hist, closer, err := openHistory(ctx, modulesDir)
	if err != nil {
		return err
	}
	defer closer()

	inst := newInstaller(registry, hist, wd, log, cmd.Pymain)

	userPrefix := cmd.Root
	if userPrefix == "" {
		if home, err := os.UserHomeDir(); err == nil {
			userPrefix = home + string(os.PathSeparator) + ".pkgrun"
		}
	}

	opts := install.Options{
		ModulesDir:      modulesDirName,
		Global:          cmd.Global || cmd.Root != "",
		UserPrefix:      userPrefix,
		Dev:             cmd.Dev && !cmd.Production,
		Save:            cmd.saveSection(),
		IgnoreInstalled: cmd.IgnoreInstalled,
		RuntimeBinary:   cmd.RuntimeBinary,
	}

	var targets []install.Target
	for _, arg := range cmd.Targets {
		t, err := install.ParseTarget(arg, cmd.Develop)
		if err != nil {
			return err
		}
		targets = append(targets, t)
	}

	result, err := inst.Install(ctx, wd, targets, opts)
	if err != nil {
		return err
	}
	for _, p := range result.Placed {
		fmt.Printf("+ %s@%s (%s)\n", p.Name, p.Version, p.Placement)
	}
	for _, n := range result.Native {
		fmt.Printf("+ py/%s\n", n)
	}
	return nil
}

// registryNeeded reports whether any target requires a working registry
// client (everything except local paths, archives, Git URLs, and native
// host-language deps).
func registryNeeded(args []string) bool {
	for _, arg := range args {
		t, err := install.ParseTarget(arg, false)
		if err != nil {
			continue
		}
		if t.Kind == install.TargetRegistry {
			return true
		}
	}
	return false
}
