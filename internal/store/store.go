package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/briefcase/internal/changeset"
	"github.com/roach88/briefcase/internal/profile"
)

//go:embed schema.sql
var schemaSQL string

var (
	// ErrNotFound is returned by single-row reads when the row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrExists is returned by Create when the file already exists.
	ErrExists = errors.New("repository file already exists")
)

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Conn carries the reads and writes shared by Store and Tx.
type Conn struct {
	q queryer
}

// Store is an open repository file.
type Store struct {
	Conn
	db   *sql.DB
	path string
}

// Tx is a write transaction. Callers must Commit or Rollback.
type Tx struct {
	Conn
	tx *sql.Tx
}

// Open opens an existing repository file. Unlike Create it performs no DDL:
// the profile version is left as stored so the caller can decide whether
// the file may be used.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return openDB(path)
}

// Create creates a new repository file at the base layout and upgrades it
// to version. It fails with ErrExists if path is already present.
func Create(ctx context.Context, path string, version profile.Version) (*Store, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("create %s: %w", path, ErrExists)
	}

	s, err := openDB(path)
	if err != nil {
		return nil, err
	}

	if err := s.createBase(ctx); err != nil {
		s.Close()
		os.Remove(path)
		return nil, err
	}
	if err := s.Upgrade(ctx, version); err != nil {
		s.Close()
		os.Remove(path)
		return nil, err
	}
	return s, nil
}

func openDB(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return &Store{Conn: Conn{q: db}, db: db, path: path}, nil
}

// createBase executes the embedded base layout and stamps the base version.
func (s *Store) createBase(ctx context.Context) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return fmt.Errorf("create base layout: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := tx.setProfileVersion(ctx, BaseVersion); err != nil {
		return err
	}
	return tx.Commit()
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the repository file path.
func (s *Store) Path() string {
	return s.path
}

// Begin starts a write transaction.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &Tx{Conn: Conn{q: tx}, tx: tx}, nil
}

// BeginApply implements changeset.Target.
func (s *Store) BeginApply(ctx context.Context) (changeset.ApplyTx, error) {
	return s.Begin(ctx)
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Rollback aborts the transaction. It is a no-op after Commit.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback tx: %w", err)
	}
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
