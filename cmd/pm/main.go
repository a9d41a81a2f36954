// Command pm is the package manager's CLI entry point (spec.md §6):
// subcommands bin, dist, init, install, publish, register, run, uninstall,
// upload, version, dirs, each wiring the installer/registryclient/distpkg/
// hooks packages against the current workspace.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/a-h/pkgrun/cmd/globals"
	"github.com/alecthomas/kong"
)

var Version = "dev"

type CLI struct {
	globals.Globals

	Version   VersionCmd   `cmd:"" help:"Show version information"`
	Dirs      DirsCmd      `cmd:"" help:"Print the resolved workspace/global modules directories"`
	Init      InitCmd      `cmd:"" help:"Create a new package.json in the current directory"`
	Install   InstallCmd   `cmd:"" help:"Install one or more targets into the workspace"`
	Uninstall UninstallCmd `cmd:"" help:"Remove a previously installed package"`
	Dist      DistCmd      `cmd:"" help:"Pack the current package into a dist archive"`
	Publish   PublishCmd   `cmd:"" help:"Pack and upload the current package"`
	Register  RegisterCmd  `cmd:"" help:"Register the current package with a registry"`
	Upload    UploadCmd    `cmd:"" help:"Upload a pre-built dist archive"`
	Bin       BinCmd       `cmd:"" help:"Print the workspace's bin shim directory"`
	Run       RunCmd       `cmd:"" help:"Run a script declared in package.json"`
}

type VersionCmd struct{}

func (cmd *VersionCmd) Run(g *globals.Globals) error {
	fmt.Println(Version)
	return nil
}

func newLogger(g *globals.Globals) *slog.Logger {
	opts := &slog.HandlerOptions{}
	if g.Verbose || os.Getenv("RUNTIME_DEBUG") == "true" {
		opts.Level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func main() {
	cli := CLI{
		Globals: globals.Globals{},
	}
	ctx := kong.Parse(&cli,
		kong.Name("pm"),
		kong.Description("Install, publish, and run pkgrun packages"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
