package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCreate_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.bim")

	s, err := Create(context.Background(), path, LatestVersion)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if s.Path() != path {
		t.Errorf("Path() = %q, want %q", s.Path(), path)
	}
}

func TestCreate_RejectsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.bim")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Create(context.Background(), path, LatestVersion)
	if !errors.Is(err, ErrExists) {
		t.Fatalf("Create() error = %v, want ErrExists", err)
	}
}

func TestCreate_RemovesFileOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.bim")
	beyond := LatestVersion
	beyond.Minor++

	if _, err := Create(context.Background(), path, beyond); err == nil {
		t.Fatal("expected error creating beyond the latest layout")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("failed Create() left the file behind")
	}
}

func TestOpen_OpensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.bim")
	ctx := context.Background()

	s1, err := Create(ctx, path, LatestVersion)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s2.Close()

	v, err := s2.ProfileVersion(ctx)
	if err != nil {
		t.Fatalf("ProfileVersion() failed: %v", err)
	}
	if v != LatestVersion {
		t.Errorf("ProfileVersion() = %s, want %s", v, LatestVersion)
	}
}

func TestOpen_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.bim")

	if _, err := Open(path); err == nil {
		t.Error("expected error for missing file, got nil")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Open() must not create the file")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestDB_ReturnsUnderlyingConnection(t *testing.T) {
	s := createTestStore(t)

	db := s.DB()
	if db == nil {
		t.Fatal("DB() returned nil")
	}
	if err := db.Ping(); err != nil {
		t.Errorf("DB() connection not usable: %v", err)
	}
}

func TestTx_RollbackAfterCommitIsNoop(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Errorf("Rollback() after Commit() = %v, want nil", err)
	}
}

// Pragma tests

func TestPragma_JournalMode(t *testing.T) {
	s := createTestStore(t)
	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Error(err)
	}
}

func TestPragma_Synchronous(t *testing.T) {
	s := createTestStore(t)
	// NORMAL = 1
	if err := s.verifyPragma("synchronous", "1"); err != nil {
		t.Error(err)
	}
}

func TestPragma_BusyTimeout(t *testing.T) {
	s := createTestStore(t)
	if err := s.verifyPragma("busy_timeout", "5000"); err != nil {
		t.Error(err)
	}
}

func TestPragma_ForeignKeys(t *testing.T) {
	s := createTestStore(t)
	// ON = 1
	if err := s.verifyPragma("foreign_keys", "1"); err != nil {
		t.Error(err)
	}
}

// Layout tests

func TestSchema_EntitiesTable(t *testing.T) {
	s := createTestStore(t)

	columns := getTableColumns(t, s.db, "entities")
	expected := append([]string{"id"}, Columns(TableEntities)...)
	for _, col := range expected {
		if !contains(columns, col) {
			t.Errorf("entities table missing column %q", col)
		}
	}
}

func TestSchema_EveryWritableTableExists(t *testing.T) {
	s := createTestStore(t)

	for _, table := range idTables {
		columns := getTableColumns(t, s.db, table)
		for _, col := range Columns(table) {
			if !contains(columns, col) {
				t.Errorf("%s table missing column %q", table, col)
			}
		}
	}
}
