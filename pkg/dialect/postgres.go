package dialect

import sq "github.com/Masterminds/squirrel"

type postgres struct{}

// Postgres returns the PostgreSQL dialect.
func Postgres() Dialect { return postgres{} }

func (postgres) Name() string                      { return "postgresql" }
func (postgres) Placeholder() sq.PlaceholderFormat { return sq.Dollar }
func (postgres) Quote(ident string) string         { return quoteDouble(ident) }

func (p postgres) AutoIncrementKey(column string) string {
	return p.Quote(column) + " BIGSERIAL PRIMARY KEY"
}

func (postgres) Features() Features {
	return Features{Schemas: true, Enums: true, DefaultValues: true, ConstraintTarget: true, AlterActions: true}
}

func (postgres) LockStatement(key int64) (string, []any) {
	return "SELECT pg_advisory_xact_lock($1)", []any{key}
}
