// Package testutil provides in-memory SQLite persistence units, factories
// and fixture helpers for tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kbukum/persistkit/logger"
	"github.com/kbukum/persistkit/persistence"
)

// Unit returns a unit backed by a private shared-cache in-memory SQLite
// database. Every connection in the factory's pool sees the same data.
func Unit(name string) persistence.Unit {
	return persistence.Unit{
		Name:         name,
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		MaxRetries:   1,
		RetryBackoff: "10ms",
		LogLevel:     "silent",
	}
}

// NewManager returns a manager whose registry holds Unit(name).
func NewManager(t *testing.T, name string) *persistence.Manager {
	t.Helper()
	reg, err := persistence.NewRegistry(Unit(name))
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	return persistence.NewManager(reg, logger.NewNop())
}

// NewFactory opens a factory on Unit(name), migrates models and closes it
// when the test ends.
func NewFactory(t *testing.T, name string, models ...interface{}) *persistence.Factory {
	t.Helper()
	f, err := persistence.Open(context.Background(), Unit(name), logger.NewNop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })

	if len(models) > 0 {
		if err := f.AutoMigrate(context.Background(), models...); err != nil {
			t.Fatalf("AutoMigrate failed: %v", err)
		}
	}
	return f
}

// Session opens a handle on f for the rest of the test and returns its session.
func Session(t *testing.T, f *persistence.Factory) *gorm.DB {
	t.Helper()
	h, err := f.CreateHandle(context.Background())
	if err != nil {
		t.Fatalf("CreateHandle failed: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })

	db, err := h.Session()
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	return db
}

// LoadFixture inserts rows into table.
func LoadFixture(db *gorm.DB, table string, rows []map[string]interface{}) error {
	for _, row := range rows {
		if err := db.Table(table).Create(row).Error; err != nil {
			return fmt.Errorf("failed to insert fixture row into %s: %w", table, err)
		}
	}
	return nil
}

// MustLoadFixture loads rows and fails the test on error.
func MustLoadFixture(t *testing.T, db *gorm.DB, table string, rows []map[string]interface{}) {
	t.Helper()
	if err := LoadFixture(db, table, rows); err != nil {
		t.Fatalf("LoadFixture failed: %v", err)
	}
}

// TableNames lists the non-system SQLite tables.
func TableNames(db *gorm.DB) ([]string, error) {
	var tables []string
	err := db.Raw("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'").
		Scan(&tables).Error
	return tables, err
}

// CountRows returns the number of rows in table.
func CountRows(db *gorm.DB, table string) (int64, error) {
	var count int64
	err := db.Table(table).Count(&count).Error
	return count, err
}

// AssertRowCount fails the test if table does not hold want rows.
func AssertRowCount(t *testing.T, db *gorm.DB, table string, want int64) {
	t.Helper()
	count, err := CountRows(db, table)
	if err != nil {
		t.Fatalf("failed to count rows in %s: %v", table, err)
	}
	if count != want {
		t.Errorf("table %s row count = %d, want %d", table, count, want)
	}
}
