package persistence

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// DriverFunc builds a GORM dialector from a DSN.
type DriverFunc func(dsn string) gorm.Dialector

var builtinDrivers = map[string]DriverFunc{
	"sqlite":     sqlite.Open,
	"sqlite3":    sqlite.Open,
	"postgres":   postgres.Open,
	"postgresql": postgres.Open,
}

// dialectorFor picks the dialector for unit. A custom driver, when given,
// wins over the unit's driver name.
func dialectorFor(unit Unit, custom DriverFunc) (gorm.Dialector, error) {
	if custom != nil {
		return custom(unit.DSN), nil
	}
	fn, ok := builtinDrivers[strings.ToLower(unit.Driver)]
	if !ok {
		return nil, fmt.Errorf("unit %q: unsupported driver %q", unit.Name, unit.Driver)
	}
	return fn(unit.DSN), nil
}
