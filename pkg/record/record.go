// Package record is the change-tracking data model shared by the statement
// builder and the migration ledger.
//
// A record exposes a static table of its columns through Fields. No struct
// reflection is involved: each record lists its own columns with Bind.
package record

import (
	"database/sql/driver"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/loykin/bridges/internal/common"
)

var (
	// ErrMissingKeyValue is returned when a key column has no value.
	ErrMissingKeyValue = errors.New("value is nil in key column")
	// ErrDecode is returned when a row cannot be decoded into a record.
	ErrDecode = errors.New("failed to decode row")
)

// Record is a row of a table.
type Record interface {
	TableName() string
	Fields() []Field
}

// SchemaAffinity is implemented by records living in a non-default schema.
type SchemaAffinity interface {
	SchemaName() string
}

type column interface {
	IsSet() bool
	IsChanged() bool
	Load(src any) error
	raw() any
}

// Field binds a column name to a Column of a record.
type Field struct {
	name string
	col  column
}

// Bind exposes c under the given column name.
func Bind[T any](name string, c *Column[T]) Field {
	return Field{name: name, col: c}
}

func (f Field) Name() string    { return f.name }
func (f Field) IsSet() bool     { return f.col.IsSet() }
func (f Field) IsChanged() bool { return f.col.IsChanged() }
func (f Field) Value() any      { return f.col.raw() }

// Value is a resolved column/value pair ready to be written.
type Value struct {
	Column string
	Value  any
}

// Schema returns the schema a record declares, if any.
func Schema(r Record) string {
	if s, ok := r.(SchemaAffinity); ok {
		return s.SchemaName()
	}
	return ""
}

// Values returns every set field whose value can be sent to the database.
// Unrepresentable values are skipped with a warning.
func Values(r Record) []Value {
	var out []Value
	for _, f := range r.Fields() {
		if !f.IsSet() {
			continue
		}
		v := f.Value()
		if !Representable(v) {
			common.GetLogger().WithComponent("record").WithTable(r.TableName()).
				Warn("skipping unrepresentable value", "column", f.Name(), "type", fmt.Sprintf("%T", v))
			continue
		}
		out = append(out, Value{Column: f.Name(), Value: v})
	}
	return out
}

// Changed returns the subset of Values that were assigned since load,
// minus the excluded column names.
func Changed(r Record, exclude ...string) []Value {
	skip := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		skip[e] = struct{}{}
	}
	changed := make(map[string]bool)
	for _, f := range r.Fields() {
		changed[f.Name()] = f.IsChanged()
	}
	var out []Value
	for _, v := range Values(r) {
		if _, ok := skip[v.Column]; ok || !changed[v.Column] {
			continue
		}
		out = append(out, v)
	}
	return out
}

// KeyValue returns the current value of the named column.
func KeyValue(r Record, name string) (any, error) {
	f, ok := Lookup(r, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no column %q", ErrMissingKeyValue, r.TableName(), name)
	}
	if !f.IsSet() {
		return nil, fmt.Errorf("%w: %s.%s", ErrMissingKeyValue, r.TableName(), name)
	}
	v := f.Value()
	if v == nil || !Representable(v) {
		return nil, fmt.Errorf("%w: %s.%s", ErrMissingKeyValue, r.TableName(), name)
	}
	if dv, err := driver.DefaultParameterConverter.ConvertValue(v); err == nil && dv == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrMissingKeyValue, r.TableName(), name)
	}
	return v, nil
}

// Lookup finds a field by column name.
func Lookup(r Record, name string) (Field, bool) {
	for _, f := range r.Fields() {
		if f.Name() == name {
			return f, true
		}
	}
	return Field{}, false
}

// Representable reports whether v can be bound as a statement argument or
// inlined as a SQL expression.
func Representable(v any) bool {
	if _, ok := v.(sq.Sqlizer); ok {
		return true
	}
	_, err := driver.DefaultParameterConverter.ConvertValue(v)
	return err == nil
}
