package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/loykin/bridges"
	"github.com/loykin/bridges/internal/common"
	"github.com/loykin/bridges/internal/constants"
	"github.com/loykin/bridges/internal/retry"
	"github.com/loykin/bridges/internal/store"
	"github.com/loykin/bridges/internal/util"
	"github.com/loykin/bridges/pkg/migration"
)

type StoreConfig struct {
	Driver   string                 `yaml:"driver"`
	SQLite   map[string]interface{} `yaml:"sqlite"`
	Postgres map[string]interface{} `yaml:"postgres"`
	// ConnectRetries retries an unreachable database on startup.
	ConnectRetries int `yaml:"connect_retries"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // error, warn, info, debug
	Format string `yaml:"format"` // text, json
}

type ConfigDoc struct {
	Store      StoreConfig `yaml:"store"`
	MigrateDir string      `yaml:"migrate_dir"`
	// DedicatedSchema keeps the ledger in its own schema (PostgreSQL only).
	DedicatedSchema bool   `yaml:"dedicated_schema"`
	SchemaName      string `yaml:"schema_name"`
	// Lock defaults to true.
	Lock    *bool         `yaml:"lock"`
	Logging LoggingConfig `yaml:"logging"`
}

func (c *ConfigDoc) Load(path string) error {
	clean := filepath.Clean(path)
	// Ensure path points to a regular file to avoid opening directories/special files
	if info, statErr := os.Stat(clean); statErr != nil || !info.Mode().IsRegular() {
		if statErr != nil {
			return statErr
		}
		return fmt.Errorf("not a regular file: %s", clean)
	}
	// #nosec G304 -- config path is provided intentionally by the user/CI; cleaned and validated above
	f, err := os.Open(clean)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config %s: %w", clean, err)
	}
	return nil
}

// loadConfig reads path. A missing file at the default location yields an
// empty document.
func loadConfig(path string) (ConfigDoc, error) {
	var doc ConfigDoc
	path, ok := util.Setting(path)
	if !ok {
		return doc, nil
	}
	err := doc.Load(path)
	if errors.Is(err, fs.ErrNotExist) && path == constants.DefaultConfigPath {
		return doc, nil
	}
	return doc, err
}

// StoreSettings returns the store config for the configured driver.
func (c *ConfigDoc) StoreSettings() (bridges.StoreConfig, error) {
	settings := c.Store.SQLite
	driver, err := store.NormalizeDriver(c.Store.Driver)
	if err != nil {
		return bridges.StoreConfig{}, err
	}
	if driver == bridges.DriverPostgresql {
		settings = c.Store.Postgres
	}
	cfg, err := bridges.LoadStoreConfig(driver, settings)
	if err != nil {
		return cfg, err
	}
	if c.Store.ConnectRetries > 0 {
		cfg.Retry = retry.DefaultRetryConfig()
		cfg.Retry.MaxRetries = c.Store.ConnectRetries
	}
	return cfg, nil
}

func (c *ConfigDoc) Dir() string {
	return util.SettingOr(c.MigrateDir, constants.DefaultMigrateDir)
}

func (c *ConfigDoc) RunnerOptions() []migration.Option {
	var opts []migration.Option
	name, named := util.Setting(c.SchemaName)
	if c.DedicatedSchema || named {
		opts = append(opts, migration.WithDedicatedSchema(name))
	}
	if c.Lock != nil && !*c.Lock {
		opts = append(opts, migration.WithoutLock())
	}
	return opts
}

// SetupLogging configures the global logger based on config settings.
// Logs go to stderr so command output stays on stdout.
func (c *ConfigDoc) SetupLogging() error {
	level := util.Keyword(c.Logging.Level)
	switch level {
	case "", "error", "warn", "warning", "info", "debug":
	default:
		return fmt.Errorf("invalid logging level: %s (valid: error, warn, info, debug)", c.Logging.Level)
	}
	var logger *common.Logger
	switch format := util.Keyword(c.Logging.Format); format {
	case "json":
		logger = common.NewLoggerTo(os.Stderr, common.ParseLogLevel(level), true)
	case "text", "":
		logger = common.NewLoggerTo(os.Stderr, common.ParseLogLevel(level), false)
	default:
		return fmt.Errorf("invalid logging format: %s (valid: text, json)", c.Logging.Format)
	}
	bridges.SetDefaultLogger(logger)
	logger.Debug("logging configured", "level", logger.Level().String())
	return nil
}
