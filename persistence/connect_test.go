package persistence

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// capturingDialector remembers the *gorm.DB gorm.Open builds, so a test can
// inspect the pool after connect has given up on it.
type capturingDialector struct {
	gorm.Dialector
	db *gorm.DB
}

func (d *capturingDialector) Initialize(db *gorm.DB) error {
	d.db = db
	return d.Dialector.Initialize(db)
}

func TestConnectReleasesPoolOnFailure(t *testing.T) {
	d := &capturingDialector{Dialector: sqlite.Open("file:/nonexistent-persistkit-dir/sub/orders.db?mode=ro")}

	_, _, err := connect(context.Background(), d, &gorm.Config{Logger: gormlogger.Discard})
	if err == nil {
		t.Fatal("expected connect to fail")
	}
	if d.db == nil {
		t.Fatal("dialector was never initialized")
	}
	sqlDB, err := d.db.DB()
	if err != nil {
		t.Fatalf("DB() failed: %v", err)
	}
	if err := sqlDB.Ping(); err == nil || err.Error() != "sql: database is closed" {
		t.Errorf("pool should be closed after a failed attempt, Ping = %v", err)
	}
}

func TestConnectKeepsPoolOnSuccess(t *testing.T) {
	d := &capturingDialector{Dialector: sqlite.Open("file:connect-ok?mode=memory&cache=shared")}

	_, sqlDB, err := connect(context.Background(), d, &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer sqlDB.Close()
	if err := sqlDB.Ping(); err != nil {
		t.Errorf("Ping on a successful connection: %v", err)
	}
}

func TestClosePoolNil(t *testing.T) {
	closePool(nil)
	closePool(&gorm.DB{Config: &gorm.Config{}})
}
