// Command runtime is the module-resolution runtime's CLI entry point
// (spec.md §6): it assembles a resolver chain, loader chain, and Context,
// then either loads and executes a REQUEST as the main module or evaluates
// an inline expression, exiting 0 on success, 1 on an uncaught error, and
// 127 when the runtime itself cannot classify the failure.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/a-h/pkgrun/cmd/globals"
	"github.com/a-h/pkgrun/ctxrt"
	"github.com/a-h/pkgrun/hostlang"
	"github.com/a-h/pkgrun/pkgpath"
	"github.com/a-h/pkgrun/require"
	"github.com/a-h/pkgrun/runtimehost"
	"github.com/alecthomas/kong"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// CLI is the runtime's flag surface, per spec.md §6.
type CLI struct {
	globals.Globals

	Request string   `arg:"" optional:"" help:"Module request to load and run as the main module"`
	Args    []string `arg:"" optional:"" help:"Arguments passed to the main module"`

	Debugger    bool   `short:"d" help:"Enter a post-mortem debugger on an uncaught error"`
	Eval        string `short:"c" help:"Evaluate EXPR instead of loading a request"`
	CurrentDir  string `name:"current-dir" help:"Override the directory requests resolve relative to"`
	VersionFlag bool   `name:"version" help:"Print version information and exit"`
	KeepArg0    bool   `name:"keep-arg0" help:"Do not overwrite argv[0] with the resolved request"`
	Preload     string `short:"P" help:"Load MODULE before the main request"`
	LoaderHint  string `short:"L" help:"Force a specific loader by name"`
	Pymain      bool   `name:"pymain" help:"Make host-language __main__ detection succeed"`
	Profile     string `name:"profile" help:"Write profiling data to FILE"`
	Isolated    bool   `name:"isolated" help:"Isolate the host language's module table on enter"`
}

func main() {
	cli := CLI{}
	kong.Parse(&cli,
		kong.Name("runtime"),
		kong.Description("Resolve and run modules against a package-aware require() graph"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)

	os.Exit(run(&cli))
}

func run(cli *CLI) int {
	if cli.VersionFlag {
		fmt.Println(Version)
		return 0
	}

	opts := &slog.HandlerOptions{}
	if cli.Verbose || os.Getenv("RUNTIME_DEBUG") == "true" {
		opts.Level = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(os.Stderr, opts))

	currentDir := cli.CurrentDir
	if currentDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			log.Error("failed to determine working directory", "error", err)
			return 127
		}
		currentDir = wd
	}
	currentDir, err := filepath.Abs(currentDir)
	if err != nil {
		log.Error("failed to resolve current directory", "error", err)
		return 127
	}

	rtCtx := runtimehost.Bootstrap(cli.Pymain)

	if cli.Isolated {
		rtCtx = rtCtx.WithHostModuleSnapshotter(noopSnapshotter{})
	}

	if err := rtCtx.Enter(workspaceAndGlobalDirs(currentDir)); err != nil {
		log.Error("failed to enter runtime context", "error", err)
		return 127
	}
	defer rtCtx.Leave()

	var profileStart time.Time
	if cli.Profile != "" {
		profileStart = time.Now()
		defer writeProfile(cli.Profile, profileStart, log)
	}

	root := require.New(rtCtx, nil)

	if cli.Preload != "" {
		if _, err := root.Call(cli.Preload, require.WithCurrentDir(pkgpath.NewFS(currentDir))); err != nil {
			return reportFailure(err, cli.Debugger, log)
		}
	}

	if cli.Eval != "" {
		exports, err := evalExpression(rtCtx, cli.Eval, currentDir, cli.Pymain)
		if err != nil {
			return reportFailure(err, cli.Debugger, log)
		}
		if exports != nil {
			fmt.Println(exports)
		}
		return 0
	}

	if cli.Request == "" {
		fmt.Fprintln(os.Stderr, "runtime: no request given (pass a module request or -c EXPR)")
		return 1
	}

	if !cli.KeepArg0 {
		os.Args[0] = cli.Request
	}

	reqOpts := []require.Option{
		require.WithIsMain(true),
		require.WithCurrentDir(pkgpath.NewFS(currentDir)),
	}
	if cli.LoaderHint != "" {
		reqOpts = append(reqOpts, require.WithLoader(cli.LoaderHint))
	}

	if _, err := root.Call(cli.Request, reqOpts...); err != nil {
		return reportFailure(err, cli.Debugger, log)
	}
	return 0
}

// reportFailure prints a traceback-style report for err and returns the exit
// code (spec.md §7: 1 for a caught-but-uncaught error, post-mortem mode
// reenters instead of exiting — this runtime has no interactive debugger
// embedding, so -d only changes the message printed, not the exit path).
func reportFailure(err error, debugger bool, log *slog.Logger) int {
	fmt.Fprintf(os.Stderr, "Traceback (most recent call last):\n%v\n", err)
	if debugger {
		fmt.Fprintln(os.Stderr, "runtime: -d was set, but no post-mortem debugger is embedded in this build")
	}
	return 1
}

func evalExpression(rtCtx *ctxrt.Context, expr, currentDir string, pymain bool) (any, error) {
	executor := &hostlang.Goja{Pymain: pymain}
	root := require.New(rtCtx, nil)
	namespace := map[string]any{
		"require":       wrapRequire(root),
		"__directory__": currentDir,
	}
	return executor.Execute("<eval>", expr, namespace)
}

// wrapRequire adapts a *require.Require to the single-argument callable
// shape a require() call in script source expects.
func wrapRequire(r *require.Require) func(string) (any, error) {
	return func(request string) (any, error) {
		return r.Call(request)
	}
}

// workspaceAndGlobalDirs returns the additional search-path directories
// Enter() prepends: the "packages" directory directly inside currentDir
// (no parent directories are searched) and the user-global one, per
// spec.md §4.7.
func workspaceAndGlobalDirs(currentDir string) []pkgpath.Path {
	var dirs []pkgpath.Path
	dirs = append(dirs, pkgpath.NewFS(filepath.Join(currentDir, "packages")))
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, pkgpath.NewFS(filepath.Join(home, ".pkgrun", "packages")))
	}
	return dirs
}

// noopSnapshotter backs --isolated when no host-language module table needs
// real isolation beyond a fresh VM per module (hostlang.Goja already runs
// each module in its own VM, so there is nothing process-global to save).
type noopSnapshotter struct{}

func (noopSnapshotter) Snapshot() (any, error)    { return nil, nil }
func (noopSnapshotter) Restore(snapshot any) error { return nil }

func writeProfile(path string, start time.Time, log *slog.Logger) {
	data := fmt.Sprintf("elapsed_ms=%d\n", time.Since(start).Milliseconds())
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		log.Error("failed to write profile data", "path", path, "error", err)
	}
}
