package statement

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/loykin/bridges/pkg/dialect"
	"github.com/loykin/bridges/pkg/record"
)

const returningAll = "RETURNING *"

// Insert writes every set field of r. RETURNING * is on by default.
func Insert(r record.Record, opts ...Option) *Statement {
	o := apply(r, true, opts)
	vals := record.Values(r)
	return &Statement{
		table:     r.TableName(),
		returning: *o.returning,
		build: func(d dialect.Dialect, sb sq.StatementBuilderType) (sq.Sqlizer, error) {
			table := o.table(d, r.TableName())
			if len(vals) == 0 {
				q := "INSERT INTO " + table + " DEFAULT VALUES"
				if *o.returning {
					q += " " + returningAll
				}
				return rawSQL{format: d.Placeholder(), sql: q}, nil
			}
			cols, args := split(d, vals)
			q := sb.Insert(table).Columns(cols...).Values(args...)
			if *o.returning {
				q = q.Suffix(returningAll)
			}
			return q, nil
		},
	}
}

// Update writes the changed fields of r to the row whose key column matches.
// An unchanged record yields a no-op statement.
func Update(r record.Record, key string, opts ...Option) (*Statement, error) {
	o := apply(r, true, opts)
	kv, err := record.KeyValue(r, key)
	if err != nil {
		return nil, err
	}
	changed := record.Changed(r, key)
	if len(changed) == 0 {
		return noop(r.TableName()), nil
	}
	return update(r, o, changed, func(d dialect.Dialect) sq.Sqlizer {
		return sq.Eq{d.Quote(key): kv}
	}), nil
}

// UpdateWhere writes every changed field of r to the rows matching pred.
// RETURNING * is on by default.
func UpdateWhere(r record.Record, pred sq.Sqlizer, opts ...Option) (*Statement, error) {
	if pred == nil {
		return nil, ErrNoPredicate
	}
	o := apply(r, true, opts)
	changed := record.Changed(r)
	if len(changed) == 0 {
		return noop(r.TableName()), nil
	}
	return update(r, o, changed, func(dialect.Dialect) sq.Sqlizer { return pred }), nil
}

func update(r record.Record, o options, changed []record.Value, where func(dialect.Dialect) sq.Sqlizer) *Statement {
	return &Statement{
		table:     r.TableName(),
		returning: *o.returning,
		build: func(d dialect.Dialect, sb sq.StatementBuilderType) (sq.Sqlizer, error) {
			q := sb.Update(o.table(d, r.TableName()))
			for _, v := range changed {
				q = q.Set(d.Quote(v.Column), v.Value)
			}
			q = q.Where(where(d))
			if *o.returning {
				q = q.Suffix(returningAll)
			}
			return q, nil
		},
	}
}

// Delete removes the row whose key column matches r. RETURNING is off
// unless Returning is passed.
func Delete(r record.Record, key string, opts ...Option) (*Statement, error) {
	o := apply(r, false, opts)
	kv, err := record.KeyValue(r, key)
	if err != nil {
		return nil, err
	}
	return &Statement{
		table:     r.TableName(),
		returning: *o.returning,
		build: func(d dialect.Dialect, sb sq.StatementBuilderType) (sq.Sqlizer, error) {
			q := sb.Delete(o.table(d, r.TableName())).Where(sq.Eq{d.Quote(key): kv})
			if *o.returning {
				q = q.Suffix(returningAll)
			}
			return q, nil
		},
	}, nil
}
