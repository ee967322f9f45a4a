package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/loykin/bridges"
	"github.com/loykin/bridges/internal/util"
	"github.com/loykin/bridges/pkg/migration"
)

// session is an open store and a runner over the migrations directory.
type session struct {
	store  *bridges.Store
	runner *migration.Runner
	dir    string
}

func (s *session) Close() error { return s.store.Close() }

// openSession resolves config, flags and environment, in increasing
// precedence, into a ready runner.
func openSession(ctx context.Context) (*session, error) {
	v := viper.GetViper()
	doc, err := loadConfig(v.GetString("config"))
	if err != nil {
		return nil, err
	}
	if err := doc.SetupLogging(); err != nil {
		return nil, err
	}
	if dir, ok := util.Setting(v.GetString("dir")); ok {
		doc.MigrateDir = dir
	}
	cfg, err := doc.StoreSettings()
	if err != nil {
		return nil, err
	}
	if dsn, ok := util.Setting(v.GetString("dsn")); ok {
		switch dc := cfg.DriverConfig.(type) {
		case *bridges.PostgresConfig:
			dc.DSN = dsn
		case *bridges.SqliteConfig:
			dc.DSN = dsn
		}
	}

	st, err := bridges.OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	dir := doc.Dir()
	runner, err := bridges.NewDirRunner(st, os.DirFS(dir), ".", doc.RunnerOptions()...)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to load migrations from %s: %w", dir, err)
	}
	return &session{store: st, runner: runner, dir: dir}, nil
}
