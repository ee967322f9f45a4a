package statement

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/loykin/bridges/pkg/dialect"
	"github.com/loykin/bridges/pkg/record"
)

// Query narrows a SELECT.
type Query struct {
	Where   sq.Sqlizer
	OrderBy []string
	Limit   uint64
	Offset  uint64
}

// Select reads rows of r's table.
func Select(r record.Record, q Query, opts ...Option) *Statement {
	o := apply(r, true, opts)
	return &Statement{
		table:     r.TableName(),
		returning: true,
		build: func(d dialect.Dialect, sb sq.StatementBuilderType) (sq.Sqlizer, error) {
			b := sb.Select("*").From(o.table(d, r.TableName()))
			if q.Where != nil {
				b = b.Where(q.Where)
			}
			if len(q.OrderBy) > 0 {
				b = b.OrderBy(q.OrderBy...)
			}
			if q.Limit > 0 {
				b = b.Limit(q.Limit)
			}
			if q.Offset > 0 {
				b = b.Offset(q.Offset)
			}
			return b, nil
		},
	}
}

// Count counts rows of r's table matching where, which may be nil.
func Count(r record.Record, where sq.Sqlizer, opts ...Option) *Statement {
	o := apply(r, true, opts)
	return &Statement{
		table:     r.TableName(),
		returning: true,
		build: func(d dialect.Dialect, sb sq.StatementBuilderType) (sq.Sqlizer, error) {
			b := sb.Select("COUNT(*)").From(o.table(d, r.TableName()))
			if where != nil {
				b = b.Where(where)
			}
			return b, nil
		},
	}
}
