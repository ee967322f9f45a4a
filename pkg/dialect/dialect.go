// Package dialect describes the SQL differences between the supported
// database engines that the statement builder and schema builders care about.
package dialect

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Features lists optional SQL capabilities of a dialect.
type Features struct {
	// Schemas reports CREATE SCHEMA / DROP SCHEMA support.
	Schemas bool
	// Enums reports CREATE TYPE ... AS ENUM support.
	Enums bool
	// DefaultValues reports support for the DEFAULT keyword inside VALUES rows.
	DefaultValues bool
	// ConstraintTarget reports support for ON CONFLICT ON CONSTRAINT.
	ConstraintTarget bool
	// AlterActions reports support for several actions in one ALTER TABLE.
	AlterActions bool
}

// Dialect renders the engine specific parts of a statement.
type Dialect interface {
	Name() string
	// Placeholder is the bind parameter format used when rendering statements.
	Placeholder() sq.PlaceholderFormat
	// Quote quotes a single identifier.
	Quote(ident string) string
	// AutoIncrementKey returns the column definition of an auto-increment primary key.
	AutoIncrementKey(column string) string
	Features() Features
	// LockStatement returns the statement taking a transaction scoped advisory
	// lock on key, or an empty string when the engine has none.
	LockStatement(key int64) (string, []any)
}

// Qualify joins an optional schema and a table into a quoted identifier.
func Qualify(d Dialect, schema, table string) string {
	if schema == "" {
		return d.Quote(table)
	}
	return d.Quote(schema) + "." + d.Quote(table)
}

// QuoteAll quotes every identifier in names.
func QuoteAll(d Dialect, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = d.Quote(n)
	}
	return out
}

// Lookup resolves a dialect by driver name.
func Lookup(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pg", "pgx":
		return Postgres(), nil
	case "sqlite", "sqlite3", "":
		return SQLite(), nil
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", name)
	}
}

func quoteDouble(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
