package schema

import (
	"fmt"
	"strings"

	"github.com/loykin/bridges/pkg/dialect"
)

type columnDef func(d dialect.Dialect) string

// CreateTableBuilder renders CREATE TABLE.
type CreateTableBuilder struct {
	schema      string
	name        string
	ifNotExists bool
	columns     []columnDef
	constraints []columnDef
}

// CreateTable starts a CREATE TABLE statement.
func CreateTable(name string) *CreateTableBuilder {
	return &CreateTableBuilder{name: name}
}

func (b *CreateTableBuilder) InSchema(schema string) *CreateTableBuilder {
	b.schema = schema
	return b
}

func (b *CreateTableBuilder) IfNotExists() *CreateTableBuilder {
	b.ifNotExists = true
	return b
}

// AutoIncrementKey adds an auto-increment primary key column.
func (b *CreateTableBuilder) AutoIncrementKey(name string) *CreateTableBuilder {
	b.columns = append(b.columns, func(d dialect.Dialect) string {
		return d.AutoIncrementKey(name)
	})
	return b
}

// Column adds a column. Constraints are raw SQL such as "NOT NULL" or "UNIQUE".
func (b *CreateTableBuilder) Column(name, typ string, constraints ...string) *CreateTableBuilder {
	return b.column(name, typ, "", constraints)
}

// ColumnDefault adds a column with a DEFAULT expression.
func (b *CreateTableBuilder) ColumnDefault(name, typ, def string, constraints ...string) *CreateTableBuilder {
	return b.column(name, typ, def, constraints)
}

func (b *CreateTableBuilder) column(name, typ, def string, constraints []string) *CreateTableBuilder {
	b.columns = append(b.columns, columnSQL(name, typ, def, constraints))
	return b
}

func columnSQL(name, typ, def string, constraints []string) columnDef {
	return func(d dialect.Dialect) string {
		parts := []string{d.Quote(name), typ}
		if def != "" {
			parts = append(parts, "DEFAULT "+def)
		}
		parts = append(parts, constraints...)
		return strings.Join(parts, " ")
	}
}

// Unique adds a named multi-column UNIQUE constraint.
func (b *CreateTableBuilder) Unique(name string, columns ...string) *CreateTableBuilder {
	b.constraints = append(b.constraints, func(d dialect.Dialect) string {
		return fmt.Sprintf("CONSTRAINT %s UNIQUE (%s)", d.Quote(name), strings.Join(dialect.QuoteAll(d, columns), ", "))
	})
	return b
}

// ForeignKey references another table's column.
func (b *CreateTableBuilder) ForeignKey(column, refTable, refColumn string, actions ...string) *CreateTableBuilder {
	b.constraints = append(b.constraints, func(d dialect.Dialect) string {
		parts := []string{fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)", d.Quote(column), d.Quote(refTable), d.Quote(refColumn))}
		return strings.Join(append(parts, actions...), " ")
	})
	return b
}

func (b *CreateTableBuilder) ToSQL(d dialect.Dialect) (string, []any, error) {
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("create table %s: no columns", b.name)
	}
	defs := make([]string, 0, len(b.columns)+len(b.constraints))
	for _, c := range b.columns {
		defs = append(defs, c(d))
	}
	for _, c := range b.constraints {
		defs = append(defs, c(d))
	}
	q := "CREATE TABLE "
	if b.ifNotExists {
		q += "IF NOT EXISTS "
	}
	q += dialect.Qualify(d, b.schema, b.name) + " (" + strings.Join(defs, ", ") + ")"
	return q, nil, nil
}

// DropTableBuilder renders DROP TABLE.
type DropTableBuilder struct {
	schema   string
	name     string
	ifExists bool
	cascade  bool
}

func DropTable(name string) *DropTableBuilder {
	return &DropTableBuilder{name: name}
}

func (b *DropTableBuilder) InSchema(schema string) *DropTableBuilder {
	b.schema = schema
	return b
}

func (b *DropTableBuilder) IfExists() *DropTableBuilder {
	b.ifExists = true
	return b
}

// Cascade drops dependent objects too. Ignored by SQLite.
func (b *DropTableBuilder) Cascade() *DropTableBuilder {
	b.cascade = true
	return b
}

func (b *DropTableBuilder) ToSQL(d dialect.Dialect) (string, []any, error) {
	q := "DROP TABLE "
	if b.ifExists {
		q += "IF EXISTS "
	}
	q += dialect.Qualify(d, b.schema, b.name)
	if b.cascade && d.Features().Schemas {
		q += " CASCADE"
	}
	return q, nil, nil
}

// AlterTableBuilder renders ALTER TABLE with column additions and removals.
// SQLite takes one action per statement.
type AlterTableBuilder struct {
	schema  string
	name    string
	actions []columnDef
}

func AlterTable(name string) *AlterTableBuilder {
	return &AlterTableBuilder{name: name}
}

func (b *AlterTableBuilder) InSchema(schema string) *AlterTableBuilder {
	b.schema = schema
	return b
}

func (b *AlterTableBuilder) AddColumn(name, typ string, constraints ...string) *AlterTableBuilder {
	return b.add(name, typ, "", constraints)
}

// AddColumnDefault adds a column with a DEFAULT expression, which existing
// rows receive.
func (b *AlterTableBuilder) AddColumnDefault(name, typ, def string, constraints ...string) *AlterTableBuilder {
	return b.add(name, typ, def, constraints)
}

func (b *AlterTableBuilder) add(name, typ, def string, constraints []string) *AlterTableBuilder {
	col := columnSQL(name, typ, def, constraints)
	b.actions = append(b.actions, func(d dialect.Dialect) string {
		return "ADD COLUMN " + col(d)
	})
	return b
}

func (b *AlterTableBuilder) DropColumn(name string) *AlterTableBuilder {
	b.actions = append(b.actions, func(d dialect.Dialect) string {
		return "DROP COLUMN " + d.Quote(name)
	})
	return b
}

func (b *AlterTableBuilder) ToSQL(d dialect.Dialect) (string, []any, error) {
	switch {
	case len(b.actions) == 0:
		return "", nil, fmt.Errorf("alter table %s: no actions", b.name)
	case len(b.actions) > 1 && !d.Features().AlterActions:
		return "", nil, unsupported(d, "multiple ALTER TABLE actions")
	}
	actions := make([]string, len(b.actions))
	for i, a := range b.actions {
		actions[i] = a(d)
	}
	return "ALTER TABLE " + dialect.Qualify(d, b.schema, b.name) + " " + strings.Join(actions, ", "), nil, nil
}
