package statement

import (
	"errors"
	"sort"

	sq "github.com/Masterminds/squirrel"

	"github.com/loykin/bridges/pkg/dialect"
	"github.com/loykin/bridges/pkg/record"
)

var errEmptyBatchColumns = errors.New("batch insert: records have no values")

// BatchInsert writes all records with one multi-row INSERT. The column list
// is the sorted union of the columns set in any record; a record missing a
// column gets DEFAULT. Batch inserts never use RETURNING. An empty batch is
// a no-op.
func BatchInsert[R record.Record](rs []R, opts ...Option) *Statement {
	if len(rs) == 0 {
		return noop("")
	}
	first := rs[0]
	o := apply(first, false, opts)

	rows := make([]map[string]any, len(rs))
	union := map[string]struct{}{}
	for i, r := range rs {
		row := map[string]any{}
		for _, v := range record.Values(r) {
			row[v.Column] = v.Value
			union[v.Column] = struct{}{}
		}
		rows[i] = row
	}
	columns := make([]string, 0, len(union))
	for c := range union {
		columns = append(columns, c)
	}
	sort.Strings(columns)

	return &Statement{
		table: first.TableName(),
		build: func(d dialect.Dialect, sb sq.StatementBuilderType) (sq.Sqlizer, error) {
			if len(columns) == 0 {
				return nil, errEmptyBatchColumns
			}
			q := sb.Insert(o.table(d, first.TableName())).Columns(dialect.QuoteAll(d, columns)...)
			for _, row := range rows {
				vals := make([]any, len(columns))
				for i, c := range columns {
					v, ok := row[c]
					if !ok {
						if !d.Features().DefaultValues {
							return nil, ErrDefaultUnsupported
						}
						v = sq.Expr("DEFAULT")
					}
					vals[i] = v
				}
				q = q.Values(vals...)
			}
			return q, nil
		},
	}
}
