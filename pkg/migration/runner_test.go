package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	_ "modernc.org/sqlite"

	"github.com/loykin/bridges/pkg/bridge"
	"github.com/loykin/bridges/pkg/dialect"
	"github.com/loykin/bridges/pkg/schema"
	"github.com/loykin/bridges/pkg/statement"
)

func openTempDB(t *testing.T) *bridge.Database {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "migrations.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return bridge.New(db, dialect.SQLite())
}

// createTable returns a unit creating and dropping table, appending its
// name to trace on every call.
func createTable(table string, trace *[]string) Func {
	return Func{
		Name: "create_" + table,
		Up: func(ctx context.Context, conn bridge.Conn) error {
			*trace = append(*trace, "up:"+table)
			_, err := conn.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE %q (id INTEGER PRIMARY KEY)`, table))
			return err
		},
		Down: func(ctx context.Context, conn bridge.Conn) error {
			*trace = append(*trace, "down:"+table)
			_, err := conn.ExecContext(ctx, fmt.Sprintf(`DROP TABLE %q`, table))
			return err
		},
	}
}

func tableExists(t *testing.T, db *bridge.Database, table string) bool {
	t.Helper()
	var n int
	err := db.DB().QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
	if err != nil {
		t.Fatalf("sqlite_master: %v", err)
	}
	return n == 1
}

func ledger(t *testing.T, db *bridge.Database) []*Ledger {
	t.Helper()
	rows, err := bridge.All[Ledger](context.Background(), db, statement.Query{OrderBy: []string{"id"}})
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	return rows
}

func TestMigrateIsIdempotentAndBatched(t *testing.T) {
	ctx := context.Background()
	db := openTempDB(t)
	var trace []string
	reg := &Registry{}
	reg.Add(createTable("a", &trace), createTable("b", &trace), createTable("c", &trace))
	r := NewRunner(db, reg)

	rep, err := r.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if rep.Batch != 1 || len(rep.Names) != 3 {
		t.Fatalf("unexpected report %+v", rep)
	}
	rows := ledger(t, db)
	if len(rows) != 3 {
		t.Fatalf("ledger rows = %d, want 3", len(rows))
	}
	for _, l := range rows {
		if l.Batch.Get() != 1 {
			t.Fatalf("%s in batch %d, want 1", l.Name.Get(), l.Batch.Get())
		}
	}
	want := []string{"up:a", "up:b", "up:c"}
	if fmt.Sprint(trace) != fmt.Sprint(want) {
		t.Fatalf("applied order %v, want %v", trace, want)
	}

	rep, err = r.Migrate(ctx)
	if err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	if !rep.Empty() {
		t.Fatalf("second Migrate applied %v", rep.Names)
	}
	if len(ledger(t, db)) != 3 || len(trace) != 3 {
		t.Fatal("second Migrate must not touch anything")
	}
}

func TestMigrateIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	db := openTempDB(t)
	var trace []string
	boom := errors.New("boom")
	reg := &Registry{}
	reg.Add(
		createTable("a", &trace),
		Func{Name: "broken", Up: func(context.Context, bridge.Conn) error { return boom }},
		createTable("c", &trace),
	)

	_, err := NewRunner(db, reg).Migrate(ctx)
	if !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
	if tableExists(t, db, "a") {
		t.Fatal("first unit must be rolled back")
	}
	if tableExists(t, db, "c") {
		t.Fatal("third unit must never run")
	}
	if tableExists(t, db, LedgerTable) {
		t.Fatal("ledger creation must be rolled back too")
	}
}

func TestMigrateAppliesInRegistrationOrder(t *testing.T) {
	var trace []string
	addColumn := Func{
		Name: "add_accounts_email",
		Up: func(ctx context.Context, conn bridge.Conn) error {
			_, err := bridge.Exec(ctx, conn, schema.AlterTable("accounts").AddColumn("email", "TEXT"))
			return err
		},
		Down: func(ctx context.Context, conn bridge.Conn) error {
			_, err := bridge.Exec(ctx, conn, schema.AlterTable("accounts").DropColumn("email"))
			return err
		},
	}

	t.Run("dependent unit first fails", func(t *testing.T) {
		db := openTempDB(t)
		reg := &Registry{}
		reg.Add(addColumn, createTable("accounts", &trace))
		if _, err := NewRunner(db, reg).Migrate(context.Background()); err == nil {
			t.Fatal("expected the column change to fail before its table exists")
		}
		if tableExists(t, db, LedgerTable) || tableExists(t, db, "accounts") {
			t.Fatal("failed batch must leave nothing behind")
		}
	})

	t.Run("dependency first succeeds", func(t *testing.T) {
		ctx := context.Background()
		db := openTempDB(t)
		reg := &Registry{}
		reg.Add(createTable("accounts", &trace), addColumn)
		r := NewRunner(db, reg)
		rep, err := r.Migrate(ctx)
		if err != nil {
			t.Fatalf("Migrate: %v", err)
		}
		if fmt.Sprint(rep.Names) != "[create_accounts add_accounts_email]" {
			t.Fatalf("unexpected report %+v", rep)
		}
		if _, err := db.ExecContext(ctx, `INSERT INTO accounts (email) VALUES ('a@x.io')`); err != nil {
			t.Fatalf("added column missing: %v", err)
		}
		if _, err := r.RevertLast(ctx); err != nil {
			t.Fatalf("RevertLast: %v", err)
		}
		if tableExists(t, db, "accounts") {
			t.Fatal("accounts must be dropped")
		}
	})
}

func TestRevertLastOnlyTouchesLastBatch(t *testing.T) {
	ctx := context.Background()
	db := openTempDB(t)
	var trace []string
	reg := &Registry{}
	reg.Add(createTable("a", &trace), createTable("b", &trace))
	r := NewRunner(db, reg)
	if _, err := r.Migrate(ctx); err != nil {
		t.Fatalf("Migrate 1: %v", err)
	}
	reg.Add(createTable("c", &trace), createTable("d", &trace))
	rep, err := r.Migrate(ctx)
	if err != nil || rep.Batch != 2 {
		t.Fatalf("Migrate 2: %+v %v", rep, err)
	}

	trace = nil
	rep, err = r.RevertLast(ctx)
	if err != nil {
		t.Fatalf("RevertLast: %v", err)
	}
	if rep.Batch != 2 || fmt.Sprint(rep.Names) != "[create_d create_c]" {
		t.Fatalf("unexpected report %+v", rep)
	}
	if fmt.Sprint(trace) != "[down:d down:c]" {
		t.Fatalf("revert order %v", trace)
	}
	rows := ledger(t, db)
	if len(rows) != 2 || rows[0].Name.Get() != "create_a" || rows[1].Name.Get() != "create_b" {
		t.Fatalf("batch 1 must stay intact, got %d rows", len(rows))
	}
	if !tableExists(t, db, "a") || tableExists(t, db, "c") {
		t.Fatal("unexpected tables after revert")
	}

	// reverted units are pending again
	pending, err := r.Pending(ctx)
	if err != nil || fmt.Sprint(pending) != "[create_c create_d]" {
		t.Fatalf("Pending = %v, %v", pending, err)
	}
}

func TestRevertAll(t *testing.T) {
	ctx := context.Background()
	db := openTempDB(t)
	var trace []string
	reg := &Registry{}
	reg.Add(createTable("a", &trace))
	r := NewRunner(db, reg)
	if _, err := r.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	reg.Add(createTable("b", &trace))
	if _, err := r.Migrate(ctx); err != nil {
		t.Fatal(err)
	}

	reports, err := r.RevertAll(ctx)
	if err != nil {
		t.Fatalf("RevertAll: %v", err)
	}
	if len(reports) != 2 || reports[0].Batch != 2 || reports[1].Batch != 1 {
		t.Fatalf("unexpected reports %+v", reports)
	}
	if len(ledger(t, db)) != 0 {
		t.Fatal("ledger must be empty")
	}

	rep, err := r.RevertLast(ctx)
	if err != nil || !rep.Empty() {
		t.Fatalf("RevertLast on empty ledger = %+v, %v", rep, err)
	}
}

func TestRevertUnknownMigration(t *testing.T) {
	ctx := context.Background()
	db := openTempDB(t)
	var trace []string
	reg := &Registry{}
	reg.Add(createTable("a", &trace))
	if _, err := NewRunner(db, reg).Migrate(ctx); err != nil {
		t.Fatal(err)
	}

	_, err := NewRunner(db, &Registry{}).RevertLast(ctx)
	if !errors.Is(err, ErrUnknownMigration) {
		t.Fatalf("expected ErrUnknownMigration, got %v", err)
	}
	if len(ledger(t, db)) != 1 {
		t.Fatal("ledger must be untouched")
	}

	st, err := NewRunner(db, &Registry{}).Status(ctx)
	if err != nil || len(st) != 1 || st[0].Registered || !st[0].Applied {
		t.Fatalf("Status = %+v, %v", st, err)
	}
}

func TestDuplicateNamesFailBeforeAnyStatement(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = sqlDB.Close() }()

	reg := &Registry{}
	reg.Add(Func{Name: "same"}, Func{Name: "same"})
	r := NewRunner(bridge.New(sqlDB, dialect.Postgres()), reg)

	if _, err := r.Migrate(context.Background()); !errors.Is(err, ErrDuplicateMigration) {
		t.Fatalf("expected ErrDuplicateMigration, got %v", err)
	}
	if _, err := r.RevertLast(context.Background()); !errors.Is(err, ErrDuplicateMigration) {
		t.Fatalf("expected ErrDuplicateMigration, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresLocksAndUsesDedicatedSchema(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = sqlDB.Close() }()

	reg := &Registry{}
	reg.Add(Func{Name: "noop"})
	r := NewRunner(bridge.New(sqlDB, dialect.Postgres()), reg, WithDedicatedSchema(""))

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(\$1\)`).WithArgs(r.lockKey()).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS "bridges"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "bridges"."migrations"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM "bridges"."migrations" ORDER BY id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "batch"}).AddRow(int64(1), "older", int64(4)))
	mock.ExpectExec(`INSERT INTO "bridges"."migrations" \("name","batch"\) VALUES \(\$1,\$2\)`).
		WithArgs("noop", int64(5)).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	rep, err := r.Migrate(context.Background())
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if rep.Batch != 5 {
		t.Fatalf("batch = %d, want 5", rep.Batch)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestWithoutLockSkipsAdvisoryLock(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = sqlDB.Close() }()

	r := NewRunner(bridge.New(sqlDB, dialect.Postgres()), &Registry{}, WithoutLock())
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "migrations"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM "migrations"`).WillReturnRows(sqlmock.NewRows([]string{"id", "name", "batch"}))
	mock.ExpectCommit()

	if _, err := r.RevertLast(context.Background()); err != nil {
		t.Fatalf("RevertLast: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestDedicatedSchemaUnsupportedOnSQLite(t *testing.T) {
	db := openTempDB(t)
	reg := &Registry{}
	reg.Add(Func{Name: "x"})
	_, err := NewRunner(db, reg, WithDedicatedSchema("bridges")).Migrate(context.Background())
	if !errors.Is(err, ErrSchemaUnsupported) {
		t.Fatalf("expected ErrSchemaUnsupported, got %v", err)
	}
}

type CreateUsers struct{}

func (CreateUsers) Prepare(context.Context, bridge.Conn) error { return nil }
func (CreateUsers) Revert(context.Context, bridge.Conn) error  { return nil }

type generic[T any] struct{ CreateUsers }

func TestName(t *testing.T) {
	tests := []struct {
		m    Migration
		want string
	}{
		{CreateUsers{}, "CreateUsers"},
		{&CreateUsers{}, "CreateUsers"},
		{generic[int]{}, "generic"},
		{Func{Name: "custom"}, "custom"},
		{&SQLMigration{Version: 7, Label: "add_index"}, "007_add_index"},
	}
	for _, tt := range tests {
		if got := Name(tt.m); got != tt.want {
			t.Errorf("Name(%T) = %q, want %q", tt.m, got, tt.want)
		}
	}
}
