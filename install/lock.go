package install

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// acquireModulesLock takes the exclusive file lock at "<modules-dir>/.lock"
// for the install duration, per spec.md §8: "the workspace modules
// directory is the installer's exclusive write target during an install;
// the installer acquires a file lock at <modules-dir>/.lock for the install
// duration."
func acquireModulesLock(ctx context.Context, modulesDir string) (*flock.Flock, error) {
	lockPath := filepath.Join(modulesDir, ".lock")
	lock := flock.New(lockPath)
	locked, err := lock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("install: acquiring lock %q: %w", lockPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("install: lock %q is held by another install", lockPath)
	}
	return lock, nil
}

// acquirePydistutilsLock guards the process-global "~/.pydistutils.cfg" file
// the brewfix workaround rewrites, per spec.md §8: "~/.pydistutils.cfg is a
// process-global resource; the installer takes an advisory lock (file-based)
// when overwriting it."
func acquirePydistutilsLock(ctx context.Context, home string) (*flock.Flock, error) {
	lockPath := filepath.Join(home, ".pydistutils.cfg.lock")
	lock := flock.New(lockPath)
	locked, err := lock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("install: acquiring pydistutils lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("install: pydistutils lock is held by another install")
	}
	return lock, nil
}
