// Package bridge executes statements built from records against a pool or a
// transaction and decodes RETURNING rows back into records.
package bridge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/loykin/bridges/internal/common"
	"github.com/loykin/bridges/pkg/dialect"
)

// Conn is a connection, pool or transaction statements can run on.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	Dialect() dialect.Dialect
}

// Database is a connection pool bound to its dialect.
type Database struct {
	db      *sql.DB
	dialect dialect.Dialect
}

// New wraps an open pool.
func New(db *sql.DB, d dialect.Dialect) *Database {
	return &Database{db: db, dialect: d}
}

// DB returns the underlying pool.
func (d *Database) DB() *sql.DB { return d.db }

func (d *Database) Dialect() dialect.Dialect { return d.dialect }

func (d *Database) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.db.ExecContext(ctx, query, args...)
}

func (d *Database) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.db.QueryContext(ctx, query, args...)
}

func (d *Database) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }

func (d *Database) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Tx is a transaction bound to its dialect.
type Tx struct {
	tx      *sql.Tx
	dialect dialect.Dialect
}

func (t *Tx) Dialect() dialect.Dialect { return t.dialect }

func (t *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

// Transaction runs fn inside one transaction. The transaction commits when fn
// returns nil and rolls back otherwise. There is no retry.
func (d *Database) Transaction(ctx context.Context, fn func(context.Context, Conn) error) (err error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, &Tx{tx: tx, dialect: d.dialect}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			common.GetLogger().WithStore(d.dialect.Name()).Warn("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
