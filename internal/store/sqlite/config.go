package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/loykin/bridges/internal/constants"
	"github.com/loykin/bridges/internal/util"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

type Config struct {
	Path string `mapstructure:"path" yaml:"path"`
	// DSN is used verbatim when set, e.g. "file::memory:?cache=shared".
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// ConnString returns the DSN, or a file DSN for Path with a busy timeout and
// foreign keys enabled.
func (c *Config) ConnString() string {
	if dsn, ok := util.Setting(c.DSN); ok {
		return dsn
	}
	path := util.SettingOr(c.Path, constants.DefaultSQLiteFileName)
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", constants.DefaultSQLiteBusyTimeoutMS))
	q.Add("_pragma", "foreign_keys(1)")
	return "file:" + path + "?" + q.Encode()
}

func (c *Config) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"path": c.Path,
		"dsn":  c.ConnString(),
	}
}

// Connect opens the database file, creating its directory when needed.
// The pool holds a single connection since SQLite allows one writer.
func (c *Config) Connect(ctx context.Context) (*sql.DB, error) {
	if strings.TrimSpace(c.DSN) == "" {
		if dir := filepath.Dir(util.SettingOr(c.Path, constants.DefaultSQLiteFileName)); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
			}
		}
	}
	db, err := sql.Open(DriverName, c.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	db.SetMaxOpenConns(constants.DefaultSQLiteMaxConnections)
	db.SetMaxIdleConns(constants.DefaultSQLiteMaxIdleConns)
	db.SetConnMaxLifetime(constants.DefaultSQLiteLifetime)
	db.SetConnMaxIdleTime(constants.DefaultSQLiteIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	return db, nil
}
