package sqlite

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/FocuswithJustin/horae/core/errors"
)

func TestDriverInfo(t *testing.T) {
	info := GetInfo()

	if info.DriverName == "" {
		t.Error("DriverName should not be empty")
	}
	if info.Package == "" {
		t.Error("Package should not be empty")
	}
	if info.DriverName != DriverName() {
		t.Errorf("DriverName mismatch: info=%s, func=%s", info.DriverName, DriverName())
	}
	if info.DriverType != DriverType() {
		t.Errorf("DriverType mismatch: info=%s, func=%s", info.DriverType, DriverType())
	}
	if info.IsCGO != IsCGO() {
		t.Errorf("IsCGO mismatch: info=%v, func=%v", info.IsCGO, IsCGO())
	}

	t.Logf("SQLite driver: %s (%s) from %s", info.DriverName, info.DriverType, info.Package)
}

func createExport(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "export.sqlite")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE element (id VARCHAR(37) PRIMARY KEY, name TEXT)`)
	if err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	_, err = db.Exec(`INSERT INTO element (id, name) VALUES (?, ?)`, "e1", "Heures de Rouen")
	if err != nil {
		t.Fatalf("failed to insert: %v", err)
	}
	return dbPath
}

func TestOpenReadOnly(t *testing.T) {
	dbPath := createExport(t)

	db, err := OpenReadOnly(dbPath)
	if err != nil {
		t.Fatalf("OpenReadOnly() error = %v", err)
	}
	defer db.Close()

	var name string
	if err := db.QueryRow(`SELECT name FROM element WHERE id = ?`, "e1").Scan(&name); err != nil {
		t.Fatalf("failed to query: %v", err)
	}
	if name != "Heures de Rouen" {
		t.Errorf("expected 'Heures de Rouen', got '%s'", name)
	}

	if _, err := db.Exec(`INSERT INTO element (id, name) VALUES ('e2', 'x')`); err == nil {
		t.Error("write to read-only database should fail")
	}
}

func TestOpenReadOnlyMissing(t *testing.T) {
	_, err := OpenReadOnly(filepath.Join(t.TempDir(), "missing.sqlite"))
	var ioErr *errors.IOError
	if !errors.As(err, &ioErr) {
		t.Errorf("error = %v, want IOError", err)
	}

	_, err = OpenReadOnly(t.TempDir())
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("directory error = %v, want ErrInvalidInput", err)
	}
}

func TestHasTables(t *testing.T) {
	db := MustOpen(createExport(t))
	defer db.Close()

	missing, err := HasTables(db, "element", "transcription", "element_path")
	if err != nil {
		t.Fatalf("HasTables() error = %v", err)
	}
	if want := []string{"transcription", "element_path"}; !reflect.DeepEqual(missing, want) {
		t.Errorf("missing = %v, want %v", missing, want)
	}
}

func TestDriverTypeConsistency(t *testing.T) {
	switch DriverType() {
	case "purego":
		if IsCGO() {
			t.Error("IsCGO() should be false for purego driver")
		}
		if DriverName() != "sqlite" {
			t.Errorf("purego driver should use 'sqlite' name, got '%s'", DriverName())
		}
	case "cgo":
		if !IsCGO() {
			t.Error("IsCGO() should be true for cgo driver")
		}
		if DriverName() != "sqlite3" {
			t.Errorf("cgo driver should use 'sqlite3' name, got '%s'", DriverName())
		}
	default:
		t.Errorf("unknown driver type: %s", DriverType())
	}
}
