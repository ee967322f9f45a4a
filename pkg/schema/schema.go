// Package schema builds DDL statements: tables, columns, schemas and enum types.
// Every builder renders through a dialect and can be passed to bridge.Exec.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/loykin/bridges/pkg/dialect"
)

// ErrUnsupported is returned when a dialect cannot express a DDL statement.
var ErrUnsupported = errors.New("statement not supported by dialect")

func unsupported(d dialect.Dialect, what string) error {
	return fmt.Errorf("%w: %s on %s", ErrUnsupported, what, d.Name())
}

// literal quotes a SQL string literal.
func literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// CreateSchemaBuilder renders CREATE SCHEMA.
type CreateSchemaBuilder struct {
	name        string
	ifNotExists bool
}

func CreateSchema(name string) *CreateSchemaBuilder {
	return &CreateSchemaBuilder{name: name}
}

func (b *CreateSchemaBuilder) IfNotExists() *CreateSchemaBuilder {
	b.ifNotExists = true
	return b
}

func (b *CreateSchemaBuilder) ToSQL(d dialect.Dialect) (string, []any, error) {
	if !d.Features().Schemas {
		return "", nil, unsupported(d, "CREATE SCHEMA")
	}
	q := "CREATE SCHEMA "
	if b.ifNotExists {
		q += "IF NOT EXISTS "
	}
	return q + d.Quote(b.name), nil, nil
}

// DropSchemaBuilder renders DROP SCHEMA.
type DropSchemaBuilder struct {
	name     string
	ifExists bool
	cascade  bool
}

func DropSchema(name string) *DropSchemaBuilder {
	return &DropSchemaBuilder{name: name}
}

func (b *DropSchemaBuilder) IfExists() *DropSchemaBuilder {
	b.ifExists = true
	return b
}

func (b *DropSchemaBuilder) Cascade() *DropSchemaBuilder {
	b.cascade = true
	return b
}

func (b *DropSchemaBuilder) ToSQL(d dialect.Dialect) (string, []any, error) {
	if !d.Features().Schemas {
		return "", nil, unsupported(d, "DROP SCHEMA")
	}
	q := "DROP SCHEMA "
	if b.ifExists {
		q += "IF EXISTS "
	}
	q += d.Quote(b.name)
	if b.cascade {
		q += " CASCADE"
	}
	return q, nil, nil
}
