package dialect

import sq "github.com/Masterminds/squirrel"

type sqlite struct{}

// SQLite returns the SQLite dialect. Writers are serialized by the database
// file lock, so it has no advisory lock statement.
func SQLite() Dialect { return sqlite{} }

func (sqlite) Name() string                      { return "sqlite" }
func (sqlite) Placeholder() sq.PlaceholderFormat { return sq.Question }
func (sqlite) Quote(ident string) string         { return quoteDouble(ident) }

func (s sqlite) AutoIncrementKey(column string) string {
	return s.Quote(column) + " INTEGER PRIMARY KEY AUTOINCREMENT"
}

func (sqlite) Features() Features { return Features{} }

func (sqlite) LockStatement(int64) (string, []any) { return "", nil }
