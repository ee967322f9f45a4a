package schema

import (
	"fmt"
	"strings"

	"github.com/loykin/bridges/pkg/dialect"
)

// CreateEnumBuilder renders CREATE TYPE ... AS ENUM.
type CreateEnumBuilder struct {
	schema string
	name   string
	values []string
}

func CreateEnum(name string, values ...string) *CreateEnumBuilder {
	return &CreateEnumBuilder{name: name, values: values}
}

func (b *CreateEnumBuilder) InSchema(schema string) *CreateEnumBuilder {
	b.schema = schema
	return b
}

func (b *CreateEnumBuilder) ToSQL(d dialect.Dialect) (string, []any, error) {
	if !d.Features().Enums {
		return "", nil, unsupported(d, "CREATE TYPE")
	}
	labels := make([]string, len(b.values))
	for i, v := range b.values {
		labels[i] = literal(v)
	}
	return fmt.Sprintf("CREATE TYPE %s AS ENUM (%s)", dialect.Qualify(d, b.schema, b.name), strings.Join(labels, ", ")), nil, nil
}

// AddEnumValueBuilder renders ALTER TYPE ... ADD VALUE.
type AddEnumValueBuilder struct {
	schema   string
	name     string
	value    string
	position string
	neighbor string
}

func AddEnumValue(name, value string) *AddEnumValueBuilder {
	return &AddEnumValueBuilder{name: name, value: value}
}

func (b *AddEnumValueBuilder) InSchema(schema string) *AddEnumValueBuilder {
	b.schema = schema
	return b
}

func (b *AddEnumValueBuilder) Before(v string) *AddEnumValueBuilder {
	b.position, b.neighbor = "BEFORE", v
	return b
}

func (b *AddEnumValueBuilder) After(v string) *AddEnumValueBuilder {
	b.position, b.neighbor = "AFTER", v
	return b
}

func (b *AddEnumValueBuilder) ToSQL(d dialect.Dialect) (string, []any, error) {
	if !d.Features().Enums {
		return "", nil, unsupported(d, "ALTER TYPE")
	}
	q := fmt.Sprintf("ALTER TYPE %s ADD VALUE %s", dialect.Qualify(d, b.schema, b.name), literal(b.value))
	if b.position != "" {
		q += " " + b.position + " " + literal(b.neighbor)
	}
	return q, nil, nil
}

// DropEnumBuilder renders DROP TYPE.
type DropEnumBuilder struct {
	schema   string
	name     string
	ifExists bool
}

func DropEnum(name string) *DropEnumBuilder {
	return &DropEnumBuilder{name: name}
}

func (b *DropEnumBuilder) InSchema(schema string) *DropEnumBuilder {
	b.schema = schema
	return b
}

func (b *DropEnumBuilder) IfExists() *DropEnumBuilder {
	b.ifExists = true
	return b
}

func (b *DropEnumBuilder) ToSQL(d dialect.Dialect) (string, []any, error) {
	if !d.Features().Enums {
		return "", nil, unsupported(d, "DROP TYPE")
	}
	q := "DROP TYPE "
	if b.ifExists {
		q += "IF EXISTS "
	}
	return q + dialect.Qualify(d, b.schema, b.name), nil, nil
}
