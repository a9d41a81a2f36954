package install

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/a-h/pkgrun/install/native"
)

// NativeSubdir is the modules-dir subdirectory host-language dependencies
// are installed into (spec.md §6: "<modules-dir>/.<native-subdir>/").
const NativeSubdir = ".native"

// pydistutilsBrewfix is the empty-prefix override the historical "brewfix"
// workaround writes to ~/.pydistutils.cfg for the duration of a native
// install, per spec.md §8.
const pydistutilsBrewfix = "[install]\nprefix=\n"

// installNative delegates a batch of host-language dependencies to the
// native package installer (spec.md §4.8 step 4: "invokes the host's native
// package installer (e.g., 'pip') targeting <modules-dir>/.<native-subdir>/").
// On darwin, where prefix-based installs historically fail (the "brewfix"
// bug), it temporarily empties ~/.pydistutils.cfg for the duration of the
// call and restores it afterward, guarded by an advisory lock since the
// file is a process-global resource.
func (inst *Installer) installNative(ctx context.Context, reqs []nativeRequest, modulesDir string) error {
	if len(reqs) == 0 {
		return nil
	}

	targetDir := filepath.Join(modulesDir, NativeSubdir)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return fmt.Errorf("install: creating native target directory: %w", err)
	}

	if runtime.GOOS == "darwin" {
		restore, err := inst.applyBrewfix(ctx)
		if err != nil {
			return err
		}
		defer restore()
	}

	args := []string{"install", "--target", targetDir}
	for _, r := range reqs {
		spec, err := inst.nativeSpecArg(r)
		if err != nil {
			return err
		}
		args = append(args, spec)
	}

	pip := inst.NativeInstallerPath
	if pip == "" {
		pip = "pip"
	}
	cmd := exec.CommandContext(ctx, pip, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("install: native installer failed: %w", err)
	}
	return nil
}

// nativeSpecArg renders one pip-style requirement argument, validating the
// selector as a PEP 440 specifier first so a malformed entry fails before
// any subprocess is spawned.
func (inst *Installer) nativeSpecArg(r nativeRequest) (string, error) {
	if r.selector == "" {
		return r.name, nil
	}
	if _, err := native.ParseSpecifier(r.selector); err != nil {
		return "", fmt.Errorf("install: python-dependencies entry %q: %w", r.name, err)
	}
	return r.name + r.selector, nil
}

func (inst *Installer) applyBrewfix(ctx context.Context) (restore func(), err error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("install: resolving home directory for brewfix: %w", err)
	}

	lock, err := acquirePydistutilsLock(ctx, home)
	if err != nil {
		return nil, err
	}

	cfgPath := filepath.Join(home, ".pydistutils.cfg")
	original, readErr := os.ReadFile(cfgPath)
	hadOriginal := readErr == nil

	if err := os.WriteFile(cfgPath, []byte(pydistutilsBrewfix), 0o644); err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("install: writing brewfix %q: %w", cfgPath, err)
	}

	return func() {
		defer lock.Unlock()
		if hadOriginal {
			os.WriteFile(cfgPath, original, 0o644)
		} else {
			os.Remove(cfgPath)
		}
	}, nil
}
