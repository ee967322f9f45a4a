// Package bridges opens database stores and runs directory based migrations
// on top of the record, statement and migration packages.
package bridges

import (
	"context"
	"io/fs"

	"github.com/loykin/bridges/internal/common"
	"github.com/loykin/bridges/internal/store"
	"github.com/loykin/bridges/internal/store/postgresql"
	"github.com/loykin/bridges/internal/store/sqlite"
	"github.com/loykin/bridges/pkg/migration"
)

// Re-export commonly used types for public API

// Store is an open database pool with its dialect.
type Store = store.Store

// StoreConfig selects a driver and its settings.
type StoreConfig = store.Config

// StoreRegistry keeps one store per name.
type StoreRegistry = store.Registry

type SqliteConfig = sqlite.Config

type PostgresConfig = postgresql.Config

const (
	DriverSqlite     = store.DriverSqlite
	DriverPostgresql = store.DriverPostgresql
)

// Logger is the structured logger used by every package.
type Logger = common.Logger

// SetDefaultLogger replaces the process wide logger.
func SetDefaultLogger(l *Logger) { common.SetDefaultLogger(l) }

// OpenStore connects to the database described by cfg.
func OpenStore(ctx context.Context, cfg StoreConfig) (*Store, error) { return store.Open(ctx, cfg) }

// LoadStoreConfig decodes a driver settings map, as found in a config file.
func LoadStoreConfig(driver string, settings map[string]interface{}) (StoreConfig, error) {
	return store.Load(driver, settings)
}

func NewStoreRegistry() *StoreRegistry { return store.NewRegistry() }

// NewDirRunner loads the migration files in dir and returns a runner for them.
func NewDirRunner(st *Store, fsys fs.FS, dir string, opts ...migration.Option) (*migration.Runner, error) {
	units, err := migration.LoadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	reg := &migration.Registry{}
	reg.Add(units...)
	return migration.NewRunner(st.Database, reg, opts...), nil
}

// MigrateDir applies the pending migration files in dir as one batch.
func MigrateDir(ctx context.Context, st *Store, fsys fs.FS, dir string, opts ...migration.Option) (migration.Report, error) {
	r, err := NewDirRunner(st, fsys, dir, opts...)
	if err != nil {
		return migration.Report{}, err
	}
	return r.Migrate(ctx)
}

// RevertDir reverts the last batch applied from dir.
func RevertDir(ctx context.Context, st *Store, fsys fs.FS, dir string, opts ...migration.Option) (migration.Report, error) {
	r, err := NewDirRunner(st, fsys, dir, opts...)
	if err != nil {
		return migration.Report{}, err
	}
	return r.RevertLast(ctx)
}
