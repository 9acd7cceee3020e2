package session

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	_ "github.com/mattn/go-sqlite3"
)

// ErrKeyNotFound is returned by Get for keys that were never stored or have
// been deleted.
var ErrKeyNotFound = errors.New("key not found")

// Store is a small persistent key/value table in SQLite, the durable
// counterpart of browser storage.
type Store struct {
	db    *sql.DB
	clock clockwork.Clock

	putStmt *sql.Stmt
	getStmt *sql.Stmt
}

// NewStore opens (or creates) the SQLite database at dbPath, applies schema
// migrations, and prepares common statements.
func NewStore(dbPath string, clock clockwork.Clock) (*Store, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	store := &Store{db: db, clock: clock}
	if err := store.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases prepared statements and closes the DB.
func (s *Store) Close() error {
	if s.putStmt != nil {
		s.putStmt.Close()
	}
	if s.getStmt != nil {
		s.getStmt.Close()
	}
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	// WAL lets a second process read while another logs in.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS storage (
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL,
            saved_at DATETIME NOT NULL
        );`,
		`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt, schemaVersion); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Store) prepareStatements() error {
	var err error
	if s.putStmt, err = s.db.Prepare(`INSERT INTO storage(key,value,saved_at) VALUES(?,?,?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value, saved_at=excluded.saved_at`); err != nil {
		return err
	}
	if s.getStmt, err = s.db.Prepare(`SELECT value, saved_at FROM storage WHERE key=?`); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Key/value helpers
// ---------------------------------------------------------------------------

// Put stores a single value.
func (s *Store) Put(key, value string) error {
	_, err := s.putStmt.Exec(key, value, s.clock.Now().UTC())
	return err
}

// PutAll stores every pair in one transaction.
func (s *Store) PutAll(values map[string]string) error {
	return s.Replace(values)
}

// Replace stores values and removes the keys in del, all in one transaction.
func (s *Store) Replace(values map[string]string, del ...string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := s.clock.Now().UTC()
	stmt := tx.Stmt(s.putStmt)
	defer stmt.Close()
	for key, value := range values {
		if _, err := stmt.Exec(key, value, now); err != nil {
			return fmt.Errorf("put %s: %w", key, err)
		}
	}
	for _, key := range del {
		if _, err := tx.Exec(`DELETE FROM storage WHERE key=?`, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// Get returns the value and the time it was saved.
func (s *Store) Get(key string) (string, time.Time, error) {
	var (
		value   string
		savedAt time.Time
	)
	err := s.getStmt.QueryRow(key).Scan(&value, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", time.Time{}, fmt.Errorf("%s: %w", key, ErrKeyNotFound)
	}
	if err != nil {
		return "", time.Time{}, err
	}
	return value, savedAt, nil
}

// Delete removes the keys in one transaction. Missing keys are ignored.
func (s *Store) Delete(keys ...string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, key := range keys {
		if _, err := tx.Exec(`DELETE FROM storage WHERE key=?`, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return tx.Commit()
}
