package sqlitemigrate

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "migrate.db")
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB
}

func TestApplyMigrationsRunsInOrderOnce(t *testing.T) {
	sqlDB := openTestDB(t)
	migrations := fstest.MapFS{
		"0001_create.sql": &fstest.MapFile{Data: []byte("CREATE TABLE widgets (id TEXT PRIMARY KEY);")},
		"0002_alter.sql":  &fstest.MapFile{Data: []byte("ALTER TABLE widgets ADD COLUMN name TEXT;")},
	}

	if err := ApplyMigrations(sqlDB, migrations); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	// Re-applying must be a no-op.
	if err := ApplyMigrations(sqlDB, migrations); err != nil {
		t.Fatalf("re-apply migrations: %v", err)
	}

	if _, err := sqlDB.Exec("INSERT INTO widgets (id, name) VALUES ('w1', 'first')"); err != nil {
		t.Fatalf("insert into migrated table: %v", err)
	}

	var applied int
	if err := sqlDB.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied); err != nil {
		t.Fatalf("count applied migrations: %v", err)
	}
	if applied != 2 {
		t.Fatalf("expected 2 applied migrations, got %d", applied)
	}
}

func TestApplyMigrationsRequiresDB(t *testing.T) {
	if err := ApplyMigrations(nil, fstest.MapFS{}); err == nil {
		t.Fatal("expected error for nil db")
	}
}
