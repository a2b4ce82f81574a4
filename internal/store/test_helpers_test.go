package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/roach88/briefcase/internal/changeset"
	"github.com/roach88/briefcase/internal/ids"
)

// createTestStore creates a new repository file at the latest layout.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.bim")
	s, err := Create(context.Background(), path, LatestVersion)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// applyOps writes ops in one transaction.
func applyOps(t *testing.T, s *Store, ops ...changeset.Op) {
	t.Helper()
	ctx := context.Background()
	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	defer tx.Rollback()
	for _, op := range ops {
		if err := tx.ApplyOp(ctx, op); err != nil {
			t.Fatalf("ApplyOp(%s %s %s) failed: %v", op.Kind, op.Table, op.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
}

// seedCoreSchema inserts one schema with an entity class.
func seedCoreSchema(t *testing.T, s *Store, schemaID, classID ids.EntityID) {
	t.Helper()
	applyOps(t, s,
		changeset.Op{Kind: changeset.Insert, Table: TableSchemas, ID: schemaID,
			Row: Schema{Name: "Core", NameKey: "core", Version: "1.0.0"}.Row()},
		changeset.Op{Kind: changeset.Insert, Table: TableClasses, ID: classID,
			Row: Class{SchemaID: schemaID, Name: "Element", NameKey: "element", Kind: KindEntity}.Row()},
	)
}

// getTableColumns returns all column names for a table.
func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("PRAGMA table_info failed: %v", err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid       int
			name, typ string
			notNull   int
			dflt      any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			t.Fatalf("scan table_info: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

// getIndexes returns all index names for a table.
func getIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ?", table)
	if err != nil {
		t.Fatalf("query indexes failed: %v", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan index: %v", err)
		}
		names = append(names, name)
	}
	return names
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
