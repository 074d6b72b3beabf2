// Package migration applies versioned SQL migrations to the database behind
// a persistence Factory using golang-migrate.
//
//	//go:embed migrations/*.sql
//	var migrationsFS embed.FS
//
//	m, err := migration.New(factory, migrationsFS, "migrations", log)
//	if err != nil {
//	    return err
//	}
//	err = m.Up()
//
// Migration files follow golang-migrate naming: VERSION_name.up.sql and
// VERSION_name.down.sql.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/kbukum/persistkit/logger"
	"github.com/kbukum/persistkit/persistence"
)

// MigrationsTable is the version table golang-migrate maintains.
const MigrationsTable = "schema_migrations"

// DriverFunc creates a migrate database driver from the factory's pool.
type DriverFunc func(*sql.DB) (database.Driver, error)

// DriverFor returns the migrate driver matching a persistence unit driver name.
func DriverFor(name string) (DriverFunc, error) {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return func(db *sql.DB) (database.Driver, error) {
			return migratesqlite.WithInstance(db, &migratesqlite.Config{MigrationsTable: MigrationsTable})
		}, nil
	case "postgres", "postgresql":
		return func(db *sql.DB) (database.Driver, error) {
			return migratepg.WithInstance(db, &migratepg.Config{MigrationsTable: MigrationsTable})
		}, nil
	default:
		return nil, fmt.Errorf("no migration driver for %q", name)
	}
}

// Migrator runs migrations from one source against one factory.
type Migrator struct {
	factory *persistence.Factory
	source  fs.FS
	path    string
	driver  DriverFunc
	log     *logger.Logger
}

// New creates a migrator for the factory's unit. The migrate driver is
// chosen from the unit's driver name.
func New(f *persistence.Factory, source fs.FS, path string, log *logger.Logger) (*Migrator, error) {
	driver, err := DriverFor(f.Unit().Driver)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Migrator{
		factory: f,
		source:  source,
		path:    path,
		driver:  driver,
		log:     log.WithComponent("migration").WithFields(logger.Fields(logger.FieldUnit, f.Name())),
	}, nil
}

// Up applies every pending migration. No pending migrations is not an error.
func (m *Migrator) Up() error {
	mg, err := m.instance()
	if err != nil {
		return err
	}
	m.log.Info("Applying migrations")
	if err := mg.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return m.logVersion(mg)
}

// Down rolls back every applied migration.
func (m *Migrator) Down() error {
	mg, err := m.instance()
	if err != nil {
		return err
	}
	m.log.Warn("Rolling back all migrations")
	if err := mg.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return m.logVersion(mg)
}

// Steps applies n migrations forward, or rolls back -n when n is negative.
func (m *Migrator) Steps(n int) error {
	mg, err := m.instance()
	if err != nil {
		return err
	}
	if err := mg.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate steps %d: %w", n, err)
	}
	return m.logVersion(mg)
}

// Version returns the applied version and whether it is dirty. A database
// with no migrations applied reports version 0.
func (m *Migrator) Version() (uint, bool, error) {
	mg, err := m.instance()
	if err != nil {
		return 0, false, err
	}
	return version(mg)
}

func version(mg *migrate.Migrate) (uint, bool, error) {
	v, dirty, err := mg.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("migrate version: %w", err)
	}
	return v, dirty, nil
}

func (m *Migrator) logVersion(mg *migrate.Migrate) error {
	v, dirty, err := version(mg)
	if err != nil {
		return err
	}
	if dirty {
		m.log.Warn("Schema is dirty, manual intervention required", logger.Fields("version", v))
		return nil
	}
	m.log.Info("Schema version", logger.Fields("version", v))
	return nil
}

// instance builds a migrate.Migrate over the factory's pool. It is never
// closed: closing it would close the shared pool.
func (m *Migrator) instance() (*migrate.Migrate, error) {
	if !m.factory.IsOpen() {
		return nil, persistence.ErrFactoryClosed
	}
	driver, err := m.driver(m.factory.SQLDB())
	if err != nil {
		return nil, fmt.Errorf("create database driver: %w", err)
	}
	source, err := iofs.New(m.source, m.path)
	if err != nil {
		return nil, fmt.Errorf("create iofs source: %w", err)
	}
	mg, err := migrate.NewWithInstance("iofs", source, m.factory.Unit().Driver, driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return mg, nil
}
