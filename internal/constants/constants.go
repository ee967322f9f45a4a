package constants

import "time"

// Database Constants
const (
	// PostgreSQL defaults
	DefaultPostgresPort    = 5432
	DefaultPostgresSSLMode = "disable"

	// Connection pool settings
	DefaultPostgresMaxConnections = 25
	DefaultPostgresMaxIdleConns   = 5
	DefaultSQLiteMaxConnections   = 1 // SQLite allows only one writer
	DefaultSQLiteMaxIdleConns     = 1

	// SQLite pragmas applied to every connection
	DefaultSQLiteBusyTimeoutMS = 5000

	// Default SQLite database file when no path is configured
	DefaultSQLiteFileName = "bridges.db"
)

// Time and Duration Constants
const (
	// Connection pool lifetimes
	DefaultMaxConnLifetime = 5 * time.Minute
	DefaultMaxIdleTime     = 1 * time.Minute
	DefaultSQLiteLifetime  = 10 * time.Minute
	DefaultSQLiteIdleTime  = 5 * time.Minute

	// Upper bound for the initial ping of a new pool
	DefaultPingTimeout = 10 * time.Second
)

// CLI defaults
const (
	DefaultConfigPath = "./config/config.yaml"
	DefaultMigrateDir = "./migrations"
)
