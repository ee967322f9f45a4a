package bridge

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/loykin/bridges/pkg/dialect"
	"github.com/loykin/bridges/pkg/record"
	"github.com/loykin/bridges/pkg/statement"
)

type user struct {
	ID    record.Column[int64]
	Email record.Column[string]
	Name  record.Column[string]
	Age   record.Column[*int64]
}

func (u *user) TableName() string { return "users" }

func (u *user) Fields() []record.Field {
	return []record.Field{
		record.Bind("id", &u.ID),
		record.Bind("email", &u.Email),
		record.Bind("name", &u.Name),
		record.Bind("age", &u.Age),
	}
}

func newUser(email, name string) *user {
	u := &user{}
	u.Email.Set(email)
	u.Name.Set(name)
	return u
}

func newMock(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(db, dialect.Postgres()), mock
}

// openSQLite opens a temp database with a users table.
func openSQLite(t *testing.T) *Database {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bridges.db")
	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		age INTEGER NULL
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return New(db, dialect.SQLite())
}

func TestUpdateNoopSkipsRoundTrip(t *testing.T) {
	d, mock := newMock(t)
	u := &user{}
	if err := record.Decode(u, []string{"id", "email", "name", "age"}, []any{int64(1), "a@x.io", "alice", nil}); err != nil {
		t.Fatalf("decode: %v", err)
	}

	got, err := Update(context.Background(), d, u, "id")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got != u {
		t.Fatal("expected the same record back")
	}

	rows, err := UpdateWhere(context.Background(), d, u, sq.Eq{"email": "a@x.io"})
	if err != nil {
		t.Fatalf("UpdateWhere: %v", err)
	}
	if len(rows) != 1 || rows[0] != u {
		t.Fatalf("expected the same record back, got %v", rows)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected round trip: %v", err)
	}
}

func TestInsertDecodesReturnedRow(t *testing.T) {
	d, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users" ("email","name") VALUES ($1,$2) RETURNING *`)).
		WithArgs("a@x.io", "alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "age"}).AddRow(int64(42), "a@x.io", "alice", nil))

	got, err := Insert(context.Background(), d, newUser("a@x.io", "alice"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if got.ID.Get() != 42 || got.Age.Get() != nil {
		t.Fatalf("unexpected row: id=%d age=%v", got.ID.Get(), got.Age.Get())
	}
	if got.Name.IsChanged() {
		t.Fatal("returned record must start clean")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestInsertNoRowsIsDecodeFailure(t *testing.T) {
	d, mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "age"}))

	_, err := Insert(context.Background(), d, newUser("a@x.io", "alice"))
	if !errors.Is(err, ErrDecodeFailure) {
		t.Fatalf("expected ErrDecodeFailure, got %v", err)
	}
}

func TestStatementErrorsPropagate(t *testing.T) {
	d, mock := newMock(t)
	boom := errors.New("boom")
	mock.ExpectExec(`DELETE FROM "users"`).WithArgs(int64(7)).WillReturnError(boom)

	u := &user{}
	u.ID.Set(7)
	if err := Delete(context.Background(), d, u, "id"); !errors.Is(err, boom) {
		t.Fatalf("expected driver error, got %v", err)
	}
}

func TestTransactionRollsBackOnError(t *testing.T) {
	d, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "users"`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectRollback()

	boom := errors.New("second step failed")
	err := d.Transaction(context.Background(), func(ctx context.Context, c Conn) error {
		if err := InsertOnly(ctx, c, newUser("a@x.io", "alice")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestTransactionCommits(t *testing.T) {
	d, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "users"`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := d.Transaction(context.Background(), func(ctx context.Context, c Conn) error {
		return InsertOnly(ctx, c, newUser("a@x.io", "alice"))
	})
	if err != nil {
		t.Fatalf("Transaction: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := openSQLite(t)

	alice, err := Insert(ctx, d, newUser("a@x.io", "alice"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if alice.ID.Get() == 0 {
		t.Fatal("expected generated id")
	}

	age := int64(30)
	alice.Age.Set(&age)
	updated, err := Update(ctx, d, alice, "id")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Age.Get() == nil || *updated.Age.Get() != 30 {
		t.Fatalf("age not stored: %v", updated.Age.Get())
	}

	if err := BatchInsert(ctx, d, []*user{newUser("b@x.io", "bob"), newUser("c@x.io", "carol")}); err != nil {
		t.Fatalf("BatchInsert: %v", err)
	}

	n, err := Count[user](ctx, d, nil)
	if err != nil || n != 3 {
		t.Fatalf("Count = %d, %v; want 3", n, err)
	}

	all, err := All[user](ctx, d, statement.Query{OrderBy: []string{"email"}})
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 3 || all[0].Email.Get() != "a@x.io" || all[2].Name.Get() != "carol" {
		t.Fatalf("unexpected rows: %d", len(all))
	}

	bob, err := First[user](ctx, d, statement.Query{Where: sq.Eq{"name": "bob"}})
	if err != nil || bob == nil {
		t.Fatalf("First: %v %v", bob, err)
	}
	missing, err := First[user](ctx, d, statement.Query{Where: sq.Eq{"name": "nobody"}})
	if err != nil || missing != nil {
		t.Fatalf("First(missing) = %v, %v", missing, err)
	}

	deleted, err := DeleteReturning(ctx, d, bob, "id")
	if err != nil || len(deleted) != 1 || deleted[0].Email.Get() != "b@x.io" {
		t.Fatalf("DeleteReturning: %v %v", deleted, err)
	}

	renamed := &user{}
	renamed.Name.Set("caz")
	rows, err := UpdateWhere(ctx, d, renamed, sq.Eq{"email": "c@x.io"})
	if err != nil || len(rows) != 1 || rows[0].Name.Get() != "caz" {
		t.Fatalf("UpdateWhere: %v %v", rows, err)
	}
}

func TestSQLiteUpsertUpdatesOnlyChangedFields(t *testing.T) {
	ctx := context.Background()
	d := openSQLite(t)

	first := newUser("a@x.io", "alice")
	age := int64(41)
	first.Age.Set(&age)
	if _, err := Upsert(ctx, d, first, statement.OnColumn("email")); err != nil {
		t.Fatalf("first Upsert: %v", err)
	}

	// second upsert only knows the email and a new name; age must survive
	second := newUser("a@x.io", "alicia")
	got, err := Upsert(ctx, d, second, statement.OnColumn("email"))
	if err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	if got.Name.Get() != "alicia" {
		t.Fatalf("name = %q, want alicia", got.Name.Get())
	}
	if got.Age.Get() == nil || *got.Age.Get() != 41 {
		t.Fatalf("age overwritten: %v", got.Age.Get())
	}

	n, err := Count[user](ctx, d, nil)
	if err != nil || n != 1 {
		t.Fatalf("Count = %d, %v; want 1", n, err)
	}
}

func TestSQLiteUpsertDoNothingReturnsInput(t *testing.T) {
	ctx := context.Background()
	d := openSQLite(t)
	if err := InsertOnly(ctx, d, newUser("a@x.io", "alice")); err != nil {
		t.Fatalf("InsertOnly: %v", err)
	}

	in := newUser("a@x.io", "ignored")
	got, err := Upsert(ctx, d, in, statement.OnColumn("email"),
		statement.Excluding("name"), statement.OnEmptyUpdate(statement.DoNothing))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if got != in {
		t.Fatal("expected the input record when the conflict is ignored")
	}
}

func TestSQLiteStatementErrorClassification(t *testing.T) {
	ctx := context.Background()
	d := openSQLite(t)
	if err := InsertOnly(ctx, d, newUser("a@x.io", "alice")); err != nil {
		t.Fatalf("InsertOnly: %v", err)
	}
	err := InsertOnly(ctx, d, newUser("a@x.io", "again"))
	if err == nil {
		t.Fatal("expected unique violation")
	}
	if !IsStatementError(err) || IsConnectivityError(err) {
		t.Fatalf("misclassified %v", err)
	}
}

func TestIsConnectivityError(t *testing.T) {
	if IsConnectivityError(nil) {
		t.Fatal("nil is not an error")
	}
	if !IsConnectivityError(sql.ErrConnDone) {
		t.Fatal("ErrConnDone is a connectivity error")
	}
	if IsConnectivityError(errors.New("syntax error")) {
		t.Fatal("plain error is not connectivity")
	}
	if SQLState(errors.New("x")) != "" {
		t.Fatal("expected empty sql state")
	}
}
