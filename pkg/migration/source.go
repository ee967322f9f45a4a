package migration

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/loykin/bridges/pkg/bridge"
	"github.com/loykin/bridges/pkg/statement"
)

// fileRegex matches 001_create_users.up.sql, 001_create_users.down.sql and
// 002_seed.yaml style names.
var fileRegex = regexp.MustCompile(`^(\d+)_([^.]+)\.(up\.sql|down\.sql|ya?ml)$`)

// SQLMigration is a unit loaded from files. Up and Down are executed as
// given; either may hold several statements.
type SQLMigration struct {
	Version int
	Label   string
	Up      string
	Down    string
}

// MigrationName is the file stem, e.g. "001_create_users".
func (m *SQLMigration) MigrationName() string {
	return fmt.Sprintf("%03d_%s", m.Version, m.Label)
}

func (m *SQLMigration) Prepare(ctx context.Context, conn bridge.Conn) error {
	return execScript(ctx, conn, m.Up)
}

func (m *SQLMigration) Revert(ctx context.Context, conn bridge.Conn) error {
	return execScript(ctx, conn, m.Down)
}

func execScript(ctx context.Context, conn bridge.Conn, script string) error {
	if strings.TrimSpace(script) == "" {
		return nil
	}
	_, err := bridge.Exec(ctx, conn, statement.Raw(script))
	return err
}

// yamlMigration is the document form of a unit.
type yamlMigration struct {
	Name string `yaml:"name"`
	Up   string `yaml:"up"`
	Down string `yaml:"down"`
}

// LoadDir reads migration files from dir in fsys and returns them ordered by
// their numeric prefix. A version may come as an .up.sql/.down.sql pair or as
// one YAML document with up and down keys, not both. Every unit needs an up
// script; unknown YAML keys are rejected.
func LoadDir(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	byVersion := map[int]*SQLMigration{}
	// seen records the file kinds found per version
	seen := map[int]map[string]bool{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := fileRegex.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		version, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		raw, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		unit, ok := byVersion[version]
		if !ok {
			unit = &SQLMigration{Version: version, Label: m[2]}
			byVersion[version] = unit
			seen[version] = map[string]bool{}
		} else if unit.Label != m[2] {
			return nil, fmt.Errorf("%w: version %d used by %q and %q", ErrDuplicateMigration, version, unit.Label, m[2])
		}

		kind := m[3]
		if kind == "yml" {
			kind = "yaml"
		}
		kinds := seen[version]
		if kinds[kind] || (kind == "yaml" && len(kinds) > 0) || (kind != "yaml" && kinds["yaml"]) {
			return nil, fmt.Errorf("%w: version %d defined twice", ErrDuplicateMigration, version)
		}
		kinds[kind] = true

		switch kind {
		case "up.sql":
			unit.Up = string(raw)
		case "down.sql":
			unit.Down = string(raw)
		default:
			doc, err := decodeYAML(raw)
			if err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", e.Name(), err)
			}
			if doc.Name != "" {
				unit.Label = doc.Name
			}
			unit.Up, unit.Down = doc.Up, doc.Down
		}
	}

	versions := make([]int, 0, len(byVersion))
	for v := range byVersion {
		versions = append(versions, v)
	}
	sort.Ints(versions)
	out := make([]Migration, 0, len(versions))
	for _, v := range versions {
		unit := byVersion[v]
		if strings.TrimSpace(unit.Up) == "" {
			return nil, fmt.Errorf("%w: version %d has no up script", ErrInvalidSource, v)
		}
		out = append(out, unit)
	}
	return out, nil
}

func decodeYAML(raw []byte) (yamlMigration, error) {
	var doc yamlMigration
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return doc, nil
		}
		return doc, fmt.Errorf("%w: %w", ErrInvalidSource, err)
	}
	return doc, nil
}
