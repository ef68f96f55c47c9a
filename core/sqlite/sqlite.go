// Package sqlite opens the SQLite exports produced by Arkindex, using either
// the pure Go driver (modernc.org/sqlite) or the CGO one (mattn/go-sqlite3).
//
// Build modes:
//   - Default (CGO_ENABLED=0): uses modernc.org/sqlite
//   - CGO mode (CGO_ENABLED=1 -tags cgo_sqlite): uses mattn/go-sqlite3
//
// Use Open() instead of sql.Open() so the right driver name is picked.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/FocuswithJustin/horae/core/errors"
)

// DriverName returns the database/sql driver name of the linked driver.
func DriverName() string {
	return driverName
}

// DriverType returns "cgo" for mattn/go-sqlite3 and "purego" for
// modernc.org/sqlite.
func DriverType() string {
	return driverType
}

// IsCGO returns true if the CGO implementation is being used.
func IsCGO() bool {
	return driverType == "cgo"
}

// Open opens a SQLite database using the linked driver.
func Open(dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}

// OpenReadOnly opens an existing database file in read-only mode. Exports
// are never written to, so every reader goes through here.
func OpenReadOnly(path string) (*sql.DB, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	if info.IsDir() {
		return nil, errors.NewValidation("database", path+" is a directory")
	}
	db, err := Open("file:" + path + "?mode=ro")
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.NewIO("open", path, err)
	}
	return db, nil
}

// MustOpen opens a SQLite database and panics on error. Intended for tests.
func MustOpen(dataSourceName string) *sql.DB {
	db, err := Open(dataSourceName)
	if err != nil {
		panic(fmt.Sprintf("sqlite: failed to open %s: %v", dataSourceName, err))
	}
	return db
}

// HasTables reports which of the named tables are missing from db.
func HasTables(db *sql.DB, names ...string) ([]string, error) {
	var missing []string
	for _, name := range names {
		var n int
		err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
		if err != nil {
			return nil, errors.Wrapf(err, "check table %s", name)
		}
		if n == 0 {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

// Info contains information about the SQLite driver configuration.
type Info struct {
	DriverName string `json:"driver_name"`
	DriverType string `json:"driver_type"`
	IsCGO      bool   `json:"is_cgo"`
	Package    string `json:"package"`
}

// GetInfo returns information about the current SQLite configuration.
func GetInfo() Info {
	return Info{
		DriverName: driverName,
		DriverType: driverType,
		IsCGO:      IsCGO(),
		Package:    driverPackage,
	}
}
