// Package hooks runs lifecycle hooks (spec.md §4.10): a manifest's
// "scripts" map names an event (pre-install, post-install, pre-uninstall,
// post-uninstall, pre-publish, post-publish) to either a module request
// (run as a fresh main module) or a shell command (prefixed with "!").
package hooks

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/a-h/pkgrun/pkgregistry"
)

// HookFailedError reports a lifecycle hook that exited non-zero or errored.
type HookFailedError struct {
	Hook    string
	Package string
	Err     error
}

func (e *HookFailedError) Error() string {
	return fmt.Sprintf("hooks: hook %q for package %q failed: %v", e.Hook, e.Package, e.Err)
}

func (e *HookFailedError) Unwrap() error { return e.Err }

// ModuleRunner runs a module request as a fresh main module, the form a
// hook takes when its script value is not shell-prefixed. Supplied by the
// require/ctxrt wiring layer to avoid hooks depending on them directly.
type ModuleRunner interface {
	RunMain(request string, dir string) error
}

// Runner executes lifecycle hooks declared in a package's manifest.
type Runner struct {
	Modules ModuleRunner
	Logger  *slog.Logger
	Dir     string
	Shell   string
}

// New builds a Runner. shell defaults to "sh -c" ("cmd /C" on Windows is
// the caller's responsibility to configure through the Shell field).
func New(modules ModuleRunner, logger *slog.Logger, dir string) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{Modules: modules, Logger: logger, Dir: dir, Shell: "sh"}
}

// Run executes the hook named event if pkg's manifest scripts declare one;
// it is a no-op if the event isn't declared.
func (r *Runner) Run(pkg *pkgregistry.Package, event string) error {
	if pkg == nil || pkg.Scripts == nil {
		return nil
	}
	script, ok := pkg.Scripts[event]
	if !ok {
		return nil
	}

	r.Logger.Debug("running lifecycle hook", slog.String("event", event), slog.String("package", pkg.Name), slog.String("script", script))

	var err error
	if len(script) > 0 && script[0] == '!' {
		err = r.runShell(script[1:])
	} else {
		err = r.Modules.RunMain(script, r.Dir)
	}
	if err != nil {
		return &HookFailedError{Hook: event, Package: pkg.Name, Err: err}
	}
	return nil
}

func (r *Runner) runShell(command string) error {
	cmd := exec.Command(r.Shell, "-c", command)
	cmd.Dir = r.Dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	return cmd.Run()
}

// RunSequence runs each named event in order, stopping at the first
// failure, per spec.md §4.8 step 6's "pre-install, placement, post-install"
// ordering (placement itself is not a hook; callers interleave it between
// calls to RunSequence for the pre/post pairs).
func (r *Runner) RunSequence(pkg *pkgregistry.Package, events ...string) error {
	for _, event := range events {
		if err := r.Run(pkg, event); err != nil {
			return err
		}
	}
	return nil
}
