// Package migration applies and reverts ordered migration units in batches,
// recording each applied unit in a "migrations" ledger table.
package migration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/loykin/bridges/pkg/bridge"
	"github.com/loykin/bridges/pkg/record"
)

var (
	// ErrDuplicateMigration is returned when two registered units share a name.
	ErrDuplicateMigration = errors.New("duplicate migration name")
	// ErrUnknownMigration is returned when the ledger holds a name with no
	// registered unit, so it cannot be reverted.
	ErrUnknownMigration = errors.New("migration not registered")
	// ErrSchemaUnsupported is returned for a dedicated schema on a dialect
	// without schemas.
	ErrSchemaUnsupported = errors.New("dedicated schema not supported by dialect")
	// ErrInvalidSource is returned by LoadDir for a file that cannot form a unit.
	ErrInvalidSource = errors.New("invalid migration file")
)

// Migration is one unit of schema change.
type Migration interface {
	Prepare(ctx context.Context, conn bridge.Conn) error
	Revert(ctx context.Context, conn bridge.Conn) error
}

// Named lets a unit choose its ledger name.
type Named interface {
	MigrationName() string
}

// Name returns the ledger name of m: MigrationName when implemented,
// otherwise the unqualified Go type name.
func Name(m Migration) string {
	if n, ok := m.(Named); ok {
		return n.MigrationName()
	}
	name := strings.TrimLeft(fmt.Sprintf("%T", m), "*")
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// Func adapts a pair of functions to a Migration.
type Func struct {
	Name string
	Up   func(ctx context.Context, conn bridge.Conn) error
	Down func(ctx context.Context, conn bridge.Conn) error
}

func (f Func) MigrationName() string { return f.Name }

func (f Func) Prepare(ctx context.Context, conn bridge.Conn) error {
	if f.Up == nil {
		return nil
	}
	return f.Up(ctx, conn)
}

func (f Func) Revert(ctx context.Context, conn bridge.Conn) error {
	if f.Down == nil {
		return nil
	}
	return f.Down(ctx, conn)
}

// Registry is the ordered list of units known to a runner.
type Registry struct {
	units []Migration
}

// Add appends units in order. Names are checked when migrating.
func (r *Registry) Add(units ...Migration) {
	r.units = append(r.units, units...)
}

func (r *Registry) Units() []Migration {
	return append([]Migration(nil), r.units...)
}

func (r *Registry) Len() int { return len(r.units) }

func (r *Registry) lookup() (map[string]Migration, error) {
	byName := make(map[string]Migration, len(r.units))
	for _, u := range r.units {
		n := Name(u)
		if _, dup := byName[n]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMigration, n)
		}
		byName[n] = u
	}
	return byName, nil
}

// LedgerTable is the ledger table name.
const LedgerTable = "migrations"

// Ledger is one applied unit.
type Ledger struct {
	ID    record.Column[int64]
	Name  record.Column[string]
	Batch record.Column[int64]
}

func (l *Ledger) TableName() string { return LedgerTable }

func (l *Ledger) Fields() []record.Field {
	return []record.Field{
		record.Bind("id", &l.ID),
		record.Bind("name", &l.Name),
		record.Bind("batch", &l.Batch),
	}
}
