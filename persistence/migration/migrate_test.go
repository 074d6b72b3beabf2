package migration_test

import (
	"errors"
	"slices"
	"testing"
	"testing/fstest"

	"github.com/kbukum/persistkit/logger"
	"github.com/kbukum/persistkit/persistence"
	"github.com/kbukum/persistkit/persistence/migration"
	"github.com/kbukum/persistkit/persistence/testutil"
)

var migrations = fstest.MapFS{
	"sql/1_create_notes.up.sql":   {Data: []byte("CREATE TABLE notes (id TEXT PRIMARY KEY, title TEXT NOT NULL);")},
	"sql/1_create_notes.down.sql": {Data: []byte("DROP TABLE notes;")},
	"sql/2_add_body.up.sql":       {Data: []byte("ALTER TABLE notes ADD COLUMN body TEXT;")},
	"sql/2_add_body.down.sql":     {Data: []byte("ALTER TABLE notes DROP COLUMN body;")},
}

func hasTable(t *testing.T, f *persistence.Factory, table string) bool {
	t.Helper()
	tables, err := testutil.TableNames(testutil.Session(t, f))
	if err != nil {
		t.Fatalf("TableNames failed: %v", err)
	}
	return slices.Contains(tables, table)
}

func assertVersion(t *testing.T, m *migration.Migrator, want uint) {
	t.Helper()
	v, dirty, err := m.Version()
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	if v != want || dirty {
		t.Errorf("version = %d (dirty=%v), want %d", v, dirty, want)
	}
}

func TestMigratorUpDown(t *testing.T) {
	f := testutil.NewFactory(t, "orders")
	m, err := migration.New(f, migrations, "sql", logger.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	assertVersion(t, m, 0)

	if err := m.Up(); err != nil {
		t.Fatalf("Up failed: %v", err)
	}
	assertVersion(t, m, 2)
	if !hasTable(t, f, "notes") || !hasTable(t, f, migration.MigrationsTable) {
		t.Error("expected notes and version tables after Up")
	}

	// Nothing pending is not an error.
	if err := m.Up(); err != nil {
		t.Fatalf("second Up failed: %v", err)
	}

	if err := m.Steps(-1); err != nil {
		t.Fatalf("Steps(-1) failed: %v", err)
	}
	assertVersion(t, m, 1)

	if err := m.Down(); err != nil {
		t.Fatalf("Down failed: %v", err)
	}
	assertVersion(t, m, 0)
	if hasTable(t, f, "notes") {
		t.Error("notes table should be dropped after Down")
	}
}

func TestMigratorClosedFactory(t *testing.T) {
	f := testutil.NewFactory(t, "orders")
	m, err := migration.New(f, migrations, "sql", logger.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	f.Close()

	if err := m.Up(); !errors.Is(err, persistence.ErrFactoryClosed) {
		t.Errorf("expected ErrFactoryClosed, got %v", err)
	}
}

func TestDriverFor(t *testing.T) {
	for _, name := range []string{"sqlite", "sqlite3", "postgres", "PostgreSQL"} {
		if _, err := migration.DriverFor(name); err != nil {
			t.Errorf("DriverFor(%q) failed: %v", name, err)
		}
	}
	if _, err := migration.DriverFor("mysql"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}
