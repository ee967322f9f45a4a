package bridges

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestMigrateAndRevertDir(t *testing.T) {
	ctx := context.Background()
	st, err := OpenStore(ctx, StoreConfig{Driver: DriverSqlite, DriverConfig: &SqliteConfig{Path: filepath.Join(t.TempDir(), "app.db")}})
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer func() { _ = st.Close() }()

	fsys := fstest.MapFS{
		"db/001_create_items.up.sql":   {Data: []byte(`CREATE TABLE items (id INTEGER PRIMARY KEY, sku TEXT NOT NULL UNIQUE);`)},
		"db/001_create_items.down.sql": {Data: []byte(`DROP TABLE items;`)},
		"db/002_seed.up.sql":           {Data: []byte(`INSERT INTO items (sku) VALUES ('a'); INSERT INTO items (sku) VALUES ('b');`)},
		"db/002_seed.down.sql":         {Data: []byte(`DELETE FROM items;`)},
	}

	rep, err := MigrateDir(ctx, st, fsys, "db")
	if err != nil {
		t.Fatalf("MigrateDir: %v", err)
	}
	if rep.Batch != 1 || len(rep.Names) != 2 || rep.Names[1] != "002_seed" {
		t.Fatalf("unexpected report %+v", rep)
	}
	var n int
	if err := st.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil || n != 2 {
		t.Fatalf("items = %d, %v", n, err)
	}

	rep, err = RevertDir(ctx, st, fsys, "db")
	if err != nil {
		t.Fatalf("RevertDir: %v", err)
	}
	if len(rep.Names) != 2 || rep.Names[0] != "002_seed" {
		t.Fatalf("unexpected revert report %+v", rep)
	}
	if err := st.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE name = 'items'`).Scan(&n); err != nil || n != 0 {
		t.Fatalf("items table still present: %d, %v", n, err)
	}
}

func TestLoadStoreConfig(t *testing.T) {
	cfg, err := LoadStoreConfig("pg", map[string]interface{}{"dsn": "postgres://u@h/db"})
	if err != nil {
		t.Fatalf("LoadStoreConfig: %v", err)
	}
	pc, ok := cfg.DriverConfig.(*PostgresConfig)
	if cfg.Driver != DriverPostgresql || !ok || pc.ConnString() != "postgres://u@h/db" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestStoreRegistry(t *testing.T) {
	reg := NewStoreRegistry()
	defer func() { _ = reg.Shutdown() }()
	cfg := StoreConfig{Driver: DriverSqlite, DriverConfig: &SqliteConfig{Path: filepath.Join(t.TempDir(), "r.db")}}
	a, err := reg.Get(context.Background(), "primary", cfg)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	b, _ := reg.Get(context.Background(), "primary", cfg)
	if a != b {
		t.Fatal("expected one store per name")
	}
}
