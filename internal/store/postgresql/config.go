package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/loykin/bridges/internal/constants"
	"github.com/loykin/bridges/internal/util"
)

// DriverName is the database/sql driver registered by pgx.
const DriverName = "pgx"

type Config struct {
	DSN      string `mapstructure:"dsn" yaml:"dsn"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	DBName   string `mapstructure:"dbname" yaml:"dbname"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode"`
	// MaxConns overrides the pool size when positive.
	MaxConns int `mapstructure:"max_conns" yaml:"max_conns"`
}

// ConnString prefers an explicit DSN; otherwise it builds one from the
// components when a host is provided.
func (p *Config) ConnString() string {
	dsn, hasDSN := util.Setting(p.DSN)
	host, hasHost := util.Setting(p.Host)
	if hasDSN || !hasHost {
		return dsn
	}
	port := p.Port
	if port == 0 {
		port = constants.DefaultPostgresPort
	}
	user, password, dbname := strings.TrimSpace(p.User), strings.TrimSpace(p.Password), strings.TrimSpace(p.DBName)

	u := url.URL{
		Scheme:   "postgres",
		Host:     host + ":" + strconv.Itoa(port),
		Path:     "/" + dbname,
		RawQuery: "sslmode=" + url.QueryEscape(util.SettingOr(p.SSLMode, constants.DefaultPostgresSSLMode)),
	}
	switch {
	case user != "" && password != "":
		u.User = url.UserPassword(user, password)
	case user != "":
		u.User = url.User(user)
	}
	return u.String()
}

func (p *Config) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"dsn": p.ConnString(),
	}
}

func (p *Config) Validate() error {
	if p.ConnString() == "" {
		return fmt.Errorf("postgresql: dsn or host is required")
	}
	return nil
}

// Connect opens a pgx pool with the default pool settings and pings it.
func (p *Config) Connect(ctx context.Context) (*sql.DB, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	db, err := sql.Open(DriverName, p.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}

	maxConns := constants.DefaultPostgresMaxConnections
	if p.MaxConns > 0 {
		maxConns = p.MaxConns
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(min(constants.DefaultPostgresMaxIdleConns, maxConns))
	db.SetConnMaxLifetime(constants.DefaultMaxConnLifetime)
	db.SetConnMaxIdleTime(constants.DefaultMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, constants.DefaultPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL database: %w", err)
	}
	return db, nil
}
