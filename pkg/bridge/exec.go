package bridge

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/loykin/bridges/internal/common"
	"github.com/loykin/bridges/pkg/record"
	"github.com/loykin/bridges/pkg/statement"
)

// Ptr constrains a pointer to a record struct so results can be allocated.
type Ptr[R any] interface {
	*R
	record.Record
}

func render(conn Conn, s statement.Renderer) (string, []any, error) {
	q, args, err := s.ToSQL(conn.Dialect())
	if err != nil {
		return "", nil, fmt.Errorf("failed to render statement: %w", err)
	}
	common.GetLogger().WithComponent("bridge").WithStore(conn.Dialect().Name()).Debug("sql", "query", q, "args", len(args))
	return q, args, nil
}

// Exec runs a statement and returns the number of affected rows. No-op
// statements never reach the database.
func Exec(ctx context.Context, conn Conn, s statement.Renderer) (int64, error) {
	if st, ok := s.(*statement.Statement); ok && st.IsNoop() {
		return 0, nil
	}
	q, args, err := render(conn, s)
	if err != nil {
		return 0, err
	}
	res, err := conn.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	// not every driver reports affected rows
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Query runs a row returning statement and decodes every row.
func Query[R any, P Ptr[R]](ctx context.Context, conn Conn, s statement.Renderer) ([]P, error) {
	if st, ok := s.(*statement.Statement); ok && st.IsNoop() {
		return nil, nil
	}
	q, args, err := render(conn, s)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return decodeRows[R, P](rows)
}

func decodeRows[R any, P Ptr[R]](rows *sql.Rows) ([]P, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []P
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		p := P(new(R))
		if err := record.Decode(p, cols, vals); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func one[R any, P Ptr[R]](ctx context.Context, conn Conn, s *statement.Statement) (P, error) {
	rows, err := Query[R, P](ctx, conn, s)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s returned no rows", ErrDecodeFailure, s.Table())
	}
	return rows[0], nil
}

// Insert writes rec and returns the stored row.
func Insert[R any, P Ptr[R]](ctx context.Context, conn Conn, rec P, opts ...statement.Option) (P, error) {
	s := statement.Insert(rec, opts...)
	if !s.Returning() {
		_, err := Exec(ctx, conn, s)
		return rec, err
	}
	return one[R, P](ctx, conn, s)
}

// InsertOnly writes rec without reading it back.
func InsertOnly(ctx context.Context, conn Conn, rec record.Record, opts ...statement.Option) error {
	_, err := Exec(ctx, conn, statement.Insert(rec, append(opts, statement.NoReturning())...))
	return err
}

// Update writes the changed fields of rec to the row matching its key
// column and returns the stored row. When nothing changed rec is returned
// as is without a round trip.
func Update[R any, P Ptr[R]](ctx context.Context, conn Conn, rec P, key string, opts ...statement.Option) (P, error) {
	s, err := statement.Update(rec, key, opts...)
	if err != nil {
		return nil, err
	}
	if s.IsNoop() {
		return rec, nil
	}
	if !s.Returning() {
		_, err := Exec(ctx, conn, s)
		return rec, err
	}
	return one[R, P](ctx, conn, s)
}

// UpdateWhere writes every changed field of rec to the rows matching pred
// and returns them. When nothing changed rec alone is returned without a
// round trip.
func UpdateWhere[R any, P Ptr[R]](ctx context.Context, conn Conn, rec P, pred sq.Sqlizer, opts ...statement.Option) ([]P, error) {
	s, err := statement.UpdateWhere(rec, pred, opts...)
	if err != nil {
		return nil, err
	}
	if s.IsNoop() {
		return []P{rec}, nil
	}
	if !s.Returning() {
		_, err := Exec(ctx, conn, s)
		return nil, err
	}
	return Query[R, P](ctx, conn, s)
}

// Delete removes the row matching rec's key column.
func Delete(ctx context.Context, conn Conn, rec record.Record, key string, opts ...statement.Option) error {
	s, err := statement.Delete(rec, key, opts...)
	if err != nil {
		return err
	}
	_, err = Exec(ctx, conn, s)
	return err
}

// DeleteReturning removes the rows matching rec's key column and returns them.
func DeleteReturning[R any, P Ptr[R]](ctx context.Context, conn Conn, rec P, key string, opts ...statement.Option) ([]P, error) {
	s, err := statement.Delete(rec, key, append(opts, statement.Returning())...)
	if err != nil {
		return nil, err
	}
	return Query[R, P](ctx, conn, s)
}

// Upsert inserts rec or updates its changed fields on conflict and returns
// the stored row. When the conflict resolves to DO NOTHING no row comes back
// and rec is returned.
func Upsert[R any, P Ptr[R]](ctx context.Context, conn Conn, rec P, target statement.Target, opts ...statement.Option) (P, error) {
	s, err := statement.Upsert(rec, target, opts...)
	if err != nil {
		return nil, err
	}
	if !s.Returning() {
		_, err := Exec(ctx, conn, s)
		return rec, err
	}
	rows, err := Query[R, P](ctx, conn, s)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return rec, nil
	}
	return rows[0], nil
}

// UpsertOnly is Upsert without reading the row back.
func UpsertOnly(ctx context.Context, conn Conn, rec record.Record, target statement.Target, opts ...statement.Option) error {
	s, err := statement.Upsert(rec, target, append(opts, statement.NoReturning())...)
	if err != nil {
		return err
	}
	_, err = Exec(ctx, conn, s)
	return err
}

// BatchInsert writes all records in one statement.
func BatchInsert[R record.Record](ctx context.Context, conn Conn, rs []R, opts ...statement.Option) error {
	_, err := Exec(ctx, conn, statement.BatchInsert(rs, opts...))
	return err
}

// All reads the rows of P's table matching q.
func All[R any, P Ptr[R]](ctx context.Context, conn Conn, q statement.Query, opts ...statement.Option) ([]P, error) {
	return Query[R, P](ctx, conn, statement.Select(P(new(R)), q, opts...))
}

// First returns the first row matching q, or nil when there is none.
func First[R any, P Ptr[R]](ctx context.Context, conn Conn, q statement.Query, opts ...statement.Option) (P, error) {
	q.Limit = 1
	rows, err := All[R, P](ctx, conn, q, opts...)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// Count counts the rows of P's table matching where, which may be nil.
func Count[R any, P Ptr[R]](ctx context.Context, conn Conn, where sq.Sqlizer, opts ...statement.Option) (int64, error) {
	q, args, err := render(conn, statement.Count(P(new(R)), where, opts...))
	if err != nil {
		return 0, err
	}
	var n int64
	if err := queryRow(ctx, conn, q, args).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

type rowScanner struct {
	rows *sql.Rows
	err  error
}

func queryRow(ctx context.Context, conn Conn, q string, args []any) rowScanner {
	rows, err := conn.QueryContext(ctx, q, args...)
	return rowScanner{rows: rows, err: err}
}

func (r rowScanner) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	defer func() { _ = r.rows.Close() }()
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return err
		}
		return sql.ErrNoRows
	}
	if err := r.rows.Scan(dest...); err != nil {
		return err
	}
	return r.rows.Err()
}
