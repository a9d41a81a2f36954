package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/a-h/pkgrun/cmd/globals"
	"github.com/a-h/pkgrun/config"
	"github.com/a-h/pkgrun/hooks"
	"github.com/a-h/pkgrun/install"
	"github.com/a-h/pkgrun/install/history"
	"github.com/a-h/pkgrun/registryclient"
	"github.com/a-h/pkgrun/runtimehost"
	"github.com/a-h/pkgrun/store"
)

// loadConfig reads g.ConfigFile, falling back to config.DefaultPath().
func loadConfig(g *globals.Globals) (*config.Config, error) {
	path := g.ConfigFile
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("pm: resolving default config path: %w", err)
		}
	}
	return config.Load(path)
}

// historyDBPath is where the installer's kv-backed audit log lives,
// relative to the workspace modules directory.
const historyDBPath = ".pkgrun-history.db"

// openHistory opens (creating if necessary) the sqlite-backed install
// history store rooted at modulesDir, per install/history's kv.Store
// backing.
func openHistory(ctx context.Context, modulesDir string) (*history.History, func() error, error) {
	if err := os.MkdirAll(modulesDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("pm: creating modules directory: %w", err)
	}
	url := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_busy_timeout=5000&_txlock=immediate&_journal_mode=DELETE",
		filepath.Join(modulesDir, historyDBPath))
	s, closer, err := store.New(ctx, "sqlite", url)
	if err != nil {
		return nil, nil, fmt.Errorf("pm: opening install history: %w", err)
	}
	return history.New(s), closer, nil
}

// registryClientFor builds a registryclient.Client for the named registry
// section of cfg, defaulting to "default" when name is empty, and installs
// any cached bearer token.
func registryClientFor(cfg *config.Config, log *slog.Logger, name string) (*registryclient.Client, error) {
	if name == "" {
		name = "default"
	}
	reg, ok := cfg.Registry(name)
	if !ok || reg.URL == "" {
		return nil, fmt.Errorf("pm: no registry %q configured (add a [registry:%s] section)", name, name)
	}
	client := registryclient.New(log, reg.URL)
	if reg.Token != "" {
		client.SetAuthToken(reg.Token)
	}
	return client, nil
}

// newInstaller wires an install.Installer against rootDir: the install
// history store, a hooks.Runner backed by runtimehost's goja-executing
// Adapter, and the given registry client.
func newInstaller(registry install.Registry, hist *history.History, rootDir string, log *slog.Logger, pymain bool) *install.Installer {
	rtCtx := runtimehost.Bootstrap(pymain)
	if err := rtCtx.Enter(nil); err != nil {
		log.Warn("failed to enter hook runtime context", slog.String("error", err.Error()))
	}
	runner := hooks.New(&runtimehost.Adapter{Ctx: rtCtx}, log, rootDir)
	return install.New(registry, hist, runner, log)
}
