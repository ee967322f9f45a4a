// Package statement turns records into INSERT, UPDATE, UPSERT, DELETE and
// SELECT statements. Builders are pure; nothing touches the database until a
// Statement is handed to an executor.
package statement

import (
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/loykin/bridges/pkg/dialect"
	"github.com/loykin/bridges/pkg/record"
)

var (
	// ErrDefaultUnsupported is returned when a batch row needs the DEFAULT
	// sentinel on a dialect that cannot express it.
	ErrDefaultUnsupported = errors.New("dialect does not support DEFAULT in VALUES")
	// ErrConstraintTargetUnsupported is returned for ON CONFLICT ON CONSTRAINT
	// on a dialect without named constraint targets.
	ErrConstraintTargetUnsupported = errors.New("dialect does not support conflict constraint targets")
	// ErrNoPredicate is returned when a predicate update has no WHERE clause.
	ErrNoPredicate = errors.New("update requires a predicate")
)

// Renderer is anything that renders to SQL for a dialect.
type Renderer interface {
	ToSQL(d dialect.Dialect) (string, []any, error)
}

type buildFunc func(d dialect.Dialect, sb sq.StatementBuilderType) (sq.Sqlizer, error)

// Statement is a rendered-on-demand SQL statement.
type Statement struct {
	table     string
	returning bool
	noop      bool
	build     buildFunc
}

// Table is the unqualified table the statement targets.
func (s *Statement) Table() string { return s.table }

// Returning reports whether the statement yields rows.
func (s *Statement) Returning() bool { return s.returning }

// IsNoop reports whether there is nothing to send to the database.
func (s *Statement) IsNoop() bool { return s.noop }

// ToSQL renders the statement. A no-op statement renders to an empty string.
func (s *Statement) ToSQL(d dialect.Dialect) (string, []any, error) {
	if s.noop {
		return "", nil, nil
	}
	q, err := s.build(d, sq.StatementBuilder.PlaceholderFormat(d.Placeholder()))
	if err != nil {
		return "", nil, err
	}
	return q.ToSql()
}

func noop(table string) *Statement {
	return &Statement{table: table, noop: true}
}

// Raw wraps literal SQL written with ? placeholders. Without args the text
// is sent untouched.
func Raw(query string, args ...any) *Statement {
	return &Statement{build: func(d dialect.Dialect, _ sq.StatementBuilderType) (sq.Sqlizer, error) {
		return rawSQL{format: d.Placeholder(), sql: query, args: args}, nil
	}}
}

type rawSQL struct {
	format sq.PlaceholderFormat
	sql    string
	args   []any
}

func (r rawSQL) ToSql() (string, []any, error) {
	if len(r.args) == 0 {
		return r.sql, nil, nil
	}
	s, err := r.format.ReplacePlaceholders(r.sql)
	return s, r.args, err
}

// split quotes the columns of vals and returns them with their values.
func split(d dialect.Dialect, vals []record.Value) ([]string, []any) {
	cols := make([]string, len(vals))
	args := make([]any, len(vals))
	for i, v := range vals {
		cols[i] = d.Quote(v.Column)
		args[i] = v.Value
	}
	return cols, args
}

// assignments renders "col" = ? pairs, inlining SQL expressions.
func assignments(d dialect.Dialect, vals []record.Value) (string, []any, error) {
	parts := make([]string, 0, len(vals))
	var args []any
	for _, v := range vals {
		if e, ok := v.Value.(sq.Sqlizer); ok {
			s, a, err := e.ToSql()
			if err != nil {
				return "", nil, fmt.Errorf("column %s: %w", v.Column, err)
			}
			parts = append(parts, d.Quote(v.Column)+" = "+s)
			args = append(args, a...)
			continue
		}
		parts = append(parts, d.Quote(v.Column)+" = ?")
		args = append(args, v.Value)
	}
	return strings.Join(parts, ", "), args, nil
}
