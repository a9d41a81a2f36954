// Package store opens the kv.Store backing install/history's audit log.
// The teacher's own store package (_examples/a-h-depot/store) dispatches
// across sqlite, rqlite, and postgres backends for a package registry's
// storage; pkgrun only ever persists its own install-history database
// (cmd/pm/wiring.go's openHistory, install/history/history_test.go,
// install/installer_test.go all open it as "sqlite"), a single
// process-local file nothing else in the tree contends for, so this
// package keeps only the sqlite backend.
package store

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/a-h/kv"
	"github.com/a-h/kv/sqlitekv"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// New opens the kv.Store backing the install-history audit log at dsn.
// dbType is kept as a parameter (rather than dropped) so a caller passing
// anything other than "sqlite" gets a clear error instead of a silent
// fallback; pkgrun has no multi-backend registry storage to dispatch to.
func New(ctx context.Context, dbType, dsn string) (store kv.Store, closer func() error, err error) {
	if dbType != "sqlite" {
		return nil, nil, fmt.Errorf("unsupported database type: %s (pkgrun's install history is sqlite-only)", dbType)
	}
	store, closer, err = newSqliteStore(dsn)
	if err != nil {
		return nil, nil, err
	}
	if err = store.Init(ctx); err != nil {
		_ = closer()
		return nil, nil, err
	}
	return store, closer, nil
}

func newSqliteStore(dsn string) (store kv.Store, closer func() error, err error) {
	dsnURI, err := url.Parse(dsn)
	if err != nil {
		return nil, nil, err
	}
	opts := sqlitex.PoolOptions{
		Flags: sqlite.OpenReadWrite | sqlite.OpenCreate | sqlite.OpenURI,
	}
	// Enable WAL mode if specified in the DSN.
	// WAL doesn't work well with container volumes.
	journalMode := dsnURI.Query().Get("_journal_mode")
	if strings.EqualFold(journalMode, "wal") {
		opts.Flags |= sqlite.OpenWAL
	}
	pool, err := sqlitex.NewPool(dsn, opts)
	if err != nil {
		return nil, nil, err
	}
	store = sqlitekv.NewStore(pool)
	return store, pool.Close, nil
}
