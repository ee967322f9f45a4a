package store

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/loykin/bridges/internal/retry"
	"github.com/loykin/bridges/internal/store/postgresql"
	"github.com/loykin/bridges/internal/store/sqlite"
	"github.com/loykin/bridges/internal/util"
)

const (
	DriverSqlite     = "sqlite"
	DriverPostgresql = "postgresql"
)

type Config struct {
	Driver       string `mapstructure:"driver"`
	DriverConfig DriverConfig
	// Retry, when set, retries the initial connection.
	Retry *retry.Config `mapstructure:"-"`
}

type DriverConfig interface {
	ToMap() map[string]interface{}
}

// NormalizeDriver maps driver aliases to DriverSqlite or DriverPostgresql.
func NormalizeDriver(driver string) (string, error) {
	switch util.Keyword(driver) {
	case "", "sqlite", "sqlite3":
		return DriverSqlite, nil
	case "postgres", "postgresql", "pg", "pgx":
		return DriverPostgresql, nil
	default:
		return "", fmt.Errorf("unsupported store driver %q", driver)
	}
}

// Load decodes the driver section of a config document into the driver's
// Config type.
func Load(driver string, raw map[string]interface{}) (Config, error) {
	name, err := NormalizeDriver(driver)
	if err != nil {
		return Config{}, err
	}
	var dc DriverConfig
	switch name {
	case DriverPostgresql:
		dc = &postgresql.Config{}
	default:
		dc = &sqlite.Config{}
	}
	if raw != nil {
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           dc,
			WeaklyTypedInput: true,
			ErrorUnused:      true,
		})
		if err != nil {
			return Config{}, err
		}
		if err := dec.Decode(raw); err != nil {
			return Config{}, fmt.Errorf("invalid %s store config: %w", name, err)
		}
	}
	return Config{Driver: name, DriverConfig: dc}, nil
}
