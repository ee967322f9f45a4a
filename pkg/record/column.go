package record

import (
	"database/sql"
	"errors"
	"reflect"
)

var errNull = errors.New("NULL into non-nullable field")

// Column holds one field value together with its dirty state.
//
// The zero Column is unset. Set marks the column changed; Load stores a value
// read from the database and clears the changed flag.
type Column[T any] struct {
	value   T
	set     bool
	changed bool
}

// Of returns a column holding v, marked changed.
func Of[T any](v T) Column[T] {
	return Column[T]{value: v, set: true, changed: true}
}

func (c *Column[T]) Get() T { return c.value }

func (c *Column[T]) Set(v T) {
	c.value = v
	c.set = true
	c.changed = true
}

// IsSet reports whether the column holds a value, either assigned or loaded.
func (c *Column[T]) IsSet() bool { return c.set }

// IsChanged reports whether the column was assigned since it was last loaded.
func (c *Column[T]) IsChanged() bool { return c.changed }

// Unset forgets the value so the column is left out of writes.
func (c *Column[T]) Unset() {
	var zero T
	c.value, c.set, c.changed = zero, false, false
}

// Load decodes a driver value into the column.
func (c *Column[T]) Load(src any) error {
	var v T
	switch {
	case isScanner(&v):
		if err := any(&v).(sql.Scanner).Scan(src); err != nil {
			return err
		}
	case src == nil:
		if !nullable(reflect.TypeFor[T]()) {
			return errNull
		}
	default:
		var n sql.Null[T]
		if err := n.Scan(src); err != nil {
			return err
		}
		v = n.V
	}
	c.value, c.set, c.changed = v, true, false
	return nil
}

func (c *Column[T]) raw() any { return c.value }

func isScanner(p any) bool {
	_, ok := p.(sql.Scanner)
	return ok
}

func nullable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return true
	}
	return false
}
