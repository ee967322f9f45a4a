package statement

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/loykin/bridges/pkg/dialect"
	"github.com/loykin/bridges/pkg/record"
)

// Target is the conflict target of an upsert.
type Target struct {
	column     string
	constraint string
}

// OnColumn targets a unique column.
func OnColumn(name string) Target { return Target{column: name} }

// OnConstraint targets a named unique constraint.
func OnConstraint(name string) Target { return Target{constraint: name} }

func (t Target) String() string {
	if t.constraint != "" {
		return "constraint " + t.constraint
	}
	return "column " + t.column
}

func (t Target) clause(d dialect.Dialect) (string, error) {
	if t.constraint != "" {
		if !d.Features().ConstraintTarget {
			return "", ErrConstraintTargetUnsupported
		}
		return "ON CONFLICT ON CONSTRAINT " + d.Quote(t.constraint), nil
	}
	return "ON CONFLICT (" + d.Quote(t.column) + ")", nil
}

// Upsert inserts every set field of r and, on conflict with target, updates
// the changed fields other than the target column and any Excluding columns.
// A column target must hold a value. RETURNING * is on by default.
func Upsert(r record.Record, target Target, opts ...Option) (*Statement, error) {
	if target.column == "" && target.constraint == "" {
		return nil, fmt.Errorf("upsert on %s: empty conflict target", r.TableName())
	}
	o := apply(r, true, opts)
	vals := record.Values(r)

	exclude := append([]string{}, o.excluding...)
	var key any
	if target.column != "" {
		kv, err := record.KeyValue(r, target.column)
		if err != nil {
			return nil, err
		}
		key = kv
		exclude = append(exclude, target.column)
	}
	updates := record.Changed(r, exclude...)
	if len(updates) == 0 && o.policy == ReassignTarget && target.column != "" {
		updates = []record.Value{{Column: target.column, Value: key}}
	}

	return &Statement{
		table:     r.TableName(),
		returning: *o.returning,
		build: func(d dialect.Dialect, sb sq.StatementBuilderType) (sq.Sqlizer, error) {
			conflict, err := target.clause(d)
			if err != nil {
				return nil, err
			}
			action := "DO NOTHING"
			var actionArgs []any
			if len(updates) > 0 {
				set, args, err := assignments(d, updates)
				if err != nil {
					return nil, err
				}
				action = "DO UPDATE SET " + set
				actionArgs = args
			}
			suffix := []string{conflict, action}
			if *o.returning {
				suffix = append(suffix, returningAll)
			}
			tail := strings.Join(suffix, " ")

			table := o.table(d, r.TableName())
			if len(vals) == 0 {
				return rawSQL{
					format: d.Placeholder(),
					sql:    "INSERT INTO " + table + " DEFAULT VALUES " + tail,
					args:   actionArgs,
				}, nil
			}
			cols, args := split(d, vals)
			return sb.Insert(table).Columns(cols...).Values(args...).Suffix(tail, actionArgs...), nil
		},
	}, nil
}
