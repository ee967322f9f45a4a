// Package store opens database pools for the supported drivers and keeps
// them by name for reuse.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/loykin/bridges/internal/common"
	"github.com/loykin/bridges/internal/retry"
	"github.com/loykin/bridges/internal/store/postgresql"
	"github.com/loykin/bridges/internal/store/sqlite"
	"github.com/loykin/bridges/pkg/bridge"
	"github.com/loykin/bridges/pkg/dialect"
)

// Store is an open pool together with its dialect.
type Store struct {
	*bridge.Database
	driver string
	dsn    string
}

// Driver returns DriverSqlite or DriverPostgresql.
func (s *Store) Driver() string { return s.driver }

// DSN returns the connection string with any password masked.
func (s *Store) DSN() string { return common.MaskDSN(s.dsn) }

func (s *Store) Close() error {
	if s == nil || s.Database == nil {
		return nil
	}
	return s.Database.Close()
}

// Open connects to the database described by cfg. A nil DriverConfig uses
// the driver's defaults. With cfg.Retry set, connectivity failures are
// retried with backoff.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	driver, err := NormalizeDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}
	logger := common.GetLogger().WithStore(driver)

	var (
		db  *sql.DB
		d   dialect.Dialect
		dsn string
	)
	switch driver {
	case DriverPostgresql:
		pc, err := postgresConfig(cfg.DriverConfig)
		if err != nil {
			return nil, err
		}
		dsn = pc.ConnString()
		err = retry.WithRetry(ctx, cfg.Retry, func(ctx context.Context) (err error) {
			db, err = pc.Connect(ctx)
			return err
		})
		if err != nil {
			logger.Error("failed to connect", "dsn", dsn, "error", err)
			return nil, err
		}
		d = dialect.Postgres()
	default:
		sc, err := sqliteConfig(cfg.DriverConfig)
		if err != nil {
			return nil, err
		}
		dsn = sc.ConnString()
		err = retry.WithRetry(ctx, cfg.Retry, func(ctx context.Context) (err error) {
			db, err = sc.Connect(ctx)
			return err
		})
		if err != nil {
			logger.Error("failed to connect", "dsn", dsn, "error", err)
			return nil, err
		}
		d = dialect.SQLite()
	}
	logger.Info("database connection established", "dsn", dsn)
	return &Store{Database: bridge.New(db, d), driver: driver, dsn: dsn}, nil
}

func postgresConfig(dc DriverConfig) (*postgresql.Config, error) {
	switch c := dc.(type) {
	case nil:
		return &postgresql.Config{}, nil
	case *postgresql.Config:
		return c, nil
	default:
		return nil, fmt.Errorf("postgresql store: unexpected driver config %T", dc)
	}
}

func sqliteConfig(dc DriverConfig) (*sqlite.Config, error) {
	switch c := dc.(type) {
	case nil:
		return &sqlite.Config{}, nil
	case *sqlite.Config:
		return c, nil
	default:
		return nil, fmt.Errorf("sqlite store: unexpected driver config %T", dc)
	}
}
