package migration

import (
	"context"
	"fmt"
	"hash/fnv"
	"slices"

	"github.com/loykin/bridges/internal/common"
	"github.com/loykin/bridges/pkg/bridge"
	"github.com/loykin/bridges/pkg/schema"
	"github.com/loykin/bridges/pkg/statement"
)

// DefaultSchema is the ledger schema used by WithDedicatedSchema("").
const DefaultSchema = "bridges"

// Option configures a Runner.
type Option func(*Runner)

// WithDedicatedSchema keeps the ledger in its own schema, created on demand.
func WithDedicatedSchema(name string) Option {
	return func(r *Runner) {
		if name == "" {
			name = DefaultSchema
		}
		r.schema = name
	}
}

// WithoutLock skips the advisory lock taken at the start of every run.
func WithoutLock() Option {
	return func(r *Runner) { r.lock = false }
}

// Runner applies and reverts the units of a registry.
type Runner struct {
	db       *bridge.Database
	registry *Registry
	schema   string
	lock     bool
}

func NewRunner(db *bridge.Database, registry *Registry, opts ...Option) *Runner {
	r := &Runner{db: db, registry: registry, lock: true}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Report lists the units touched by one batch.
type Report struct {
	Batch int64
	Names []string
}

// Empty reports whether nothing was applied or reverted.
func (r Report) Empty() bool { return len(r.Names) == 0 }

func (r *Runner) logger() *common.Logger {
	return common.GetLogger().WithComponent("migration").WithStore(r.db.Dialect().Name())
}

func (r *Runner) ledgerOpts() []statement.Option {
	return []statement.Option{statement.InSchema(r.schema)}
}

// lockKey identifies the ledger for the advisory lock.
func (r *Runner) lockKey() int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(r.schema + "." + LedgerTable))
	return int64(h.Sum64() & 0x7FFFFFFFFFFFFFFF)
}

// begin locks the ledger and makes sure it exists.
func (r *Runner) begin(ctx context.Context, conn bridge.Conn) error {
	d := conn.Dialect()
	if r.lock {
		if q, args := d.LockStatement(r.lockKey()); q != "" {
			if _, err := conn.ExecContext(ctx, q, args...); err != nil {
				return fmt.Errorf("failed to lock migrations ledger: %w", err)
			}
		}
	}
	if r.schema != "" {
		if !d.Features().Schemas {
			return fmt.Errorf("%w: %s", ErrSchemaUnsupported, d.Name())
		}
		if _, err := bridge.Exec(ctx, conn, schema.CreateSchema(r.schema).IfNotExists()); err != nil {
			return fmt.Errorf("failed to create schema %s: %w", r.schema, err)
		}
	}
	ledger := schema.CreateTable(LedgerTable).InSchema(r.schema).IfNotExists().
		AutoIncrementKey("id").
		Column("name", "TEXT", "NOT NULL", "UNIQUE").
		Column("batch", "INTEGER", "NOT NULL")
	if _, err := bridge.Exec(ctx, conn, ledger); err != nil {
		return fmt.Errorf("failed to ensure migrations ledger: %w", err)
	}
	return nil
}

func (r *Runner) readLedger(ctx context.Context, conn bridge.Conn) ([]*Ledger, error) {
	rows, err := bridge.All[Ledger](ctx, conn, statement.Query{OrderBy: []string{"id"}}, r.ledgerOpts()...)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations ledger: %w", err)
	}
	return rows, nil
}

func lastBatch(rows []*Ledger) int64 {
	var last int64
	for _, l := range rows {
		last = max(last, l.Batch.Get())
	}
	return last
}

// Migrate applies every registered unit missing from the ledger, in
// registration order, as one batch inside one transaction.
func (r *Runner) Migrate(ctx context.Context) (Report, error) {
	if _, err := r.registry.lookup(); err != nil {
		return Report{}, err
	}
	var report Report
	err := r.db.Transaction(ctx, func(ctx context.Context, conn bridge.Conn) error {
		if err := r.begin(ctx, conn); err != nil {
			return err
		}
		rows, err := r.readLedger(ctx, conn)
		if err != nil {
			return err
		}
		applied := make(map[string]struct{}, len(rows))
		for _, l := range rows {
			applied[l.Name.Get()] = struct{}{}
		}
		batch := lastBatch(rows) + 1
		log := r.logger().WithBatch(int(batch))

		var names []string
		for _, u := range r.registry.units {
			name := Name(u)
			if _, ok := applied[name]; ok {
				continue
			}
			if err := u.Prepare(ctx, conn); err != nil {
				log.WithMigration(name).Error("migration failed", "error", err)
				return fmt.Errorf("failed to apply migration %s: %w", name, err)
			}
			entry := &Ledger{}
			entry.Name.Set(name)
			entry.Batch.Set(batch)
			if err := bridge.InsertOnly(ctx, conn, entry, r.ledgerOpts()...); err != nil {
				return fmt.Errorf("failed to record migration %s: %w", name, err)
			}
			log.WithMigration(name).Info("migration applied")
			names = append(names, name)
		}
		if len(names) == 0 {
			log.Debug("nothing to migrate")
			return nil
		}
		report = Report{Batch: batch, Names: names}
		return nil
	})
	if err != nil {
		return Report{}, err
	}
	return report, nil
}

// RevertLast reverts every unit of the highest batch, in reverse apply
// order, inside one transaction. An empty ledger is a no-op.
func (r *Runner) RevertLast(ctx context.Context) (Report, error) {
	byName, err := r.registry.lookup()
	if err != nil {
		return Report{}, err
	}
	var report Report
	err = r.db.Transaction(ctx, func(ctx context.Context, conn bridge.Conn) error {
		if err := r.begin(ctx, conn); err != nil {
			return err
		}
		rows, err := r.readLedger(ctx, conn)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			r.logger().Debug("nothing to revert")
			return nil
		}
		batch := lastBatch(rows)
		log := r.logger().WithBatch(int(batch))

		var names []string
		for _, l := range slices.Backward(rows) {
			if l.Batch.Get() != batch {
				continue
			}
			name := l.Name.Get()
			u, ok := byName[name]
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnknownMigration, name)
			}
			if err := u.Revert(ctx, conn); err != nil {
				log.WithMigration(name).Error("revert failed", "error", err)
				return fmt.Errorf("failed to revert migration %s: %w", name, err)
			}
			if err := bridge.Delete(ctx, conn, l, "name", r.ledgerOpts()...); err != nil {
				return fmt.Errorf("failed to remove ledger entry %s: %w", name, err)
			}
			log.WithMigration(name).Info("migration reverted")
			names = append(names, name)
		}
		report = Report{Batch: batch, Names: names}
		return nil
	})
	if err != nil {
		return Report{}, err
	}
	return report, nil
}

// RevertAll reverts batch after batch, each in its own transaction, until
// the ledger is empty. Batches reverted before a failure stay reverted.
func (r *Runner) RevertAll(ctx context.Context) ([]Report, error) {
	var reports []Report
	for {
		rep, err := r.RevertLast(ctx)
		if err != nil {
			return reports, err
		}
		if rep.Empty() {
			return reports, nil
		}
		reports = append(reports, rep)
	}
}

// Status describes one unit known to the registry or the ledger.
type Status struct {
	Name    string
	Batch   int64
	Applied bool
	// Registered is false for ledger entries with no matching unit.
	Registered bool
}

// Status lists registered units in order followed by ledger entries with no
// registered unit.
func (r *Runner) Status(ctx context.Context) ([]Status, error) {
	var out []Status
	err := r.db.Transaction(ctx, func(ctx context.Context, conn bridge.Conn) error {
		if err := r.begin(ctx, conn); err != nil {
			return err
		}
		rows, err := r.readLedger(ctx, conn)
		if err != nil {
			return err
		}
		batches := make(map[string]int64, len(rows))
		for _, l := range rows {
			batches[l.Name.Get()] = l.Batch.Get()
		}
		seen := map[string]struct{}{}
		for _, u := range r.registry.units {
			name := Name(u)
			seen[name] = struct{}{}
			b, ok := batches[name]
			out = append(out, Status{Name: name, Batch: b, Applied: ok, Registered: true})
		}
		for _, l := range rows {
			if _, ok := seen[l.Name.Get()]; !ok {
				out = append(out, Status{Name: l.Name.Get(), Batch: l.Batch.Get(), Applied: true})
			}
		}
		return nil
	})
	return out, err
}

// Pending lists the names of registered units not yet applied.
func (r *Runner) Pending(ctx context.Context) ([]string, error) {
	st, err := r.Status(ctx)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, s := range st {
		if s.Registered && !s.Applied {
			names = append(names, s.Name)
		}
	}
	return names, nil
}
