// ABOUTME: Database connection management and the transactional Store
// ABOUTME: Opens SQLite in WAL mode and maps constraint violations to sentinel errors
package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicateHash   = errors.New("screenshot already uploaded")
	ErrDuplicateStage  = errors.New("stage already recorded for this cycle")
	ErrDuplicateCycle  = errors.New("prospect already has an active cycle for this staff")
	ErrDuplicateHandle = errors.New("handle already belongs to another prospect")
	ErrAlreadyReviewed = errors.New("message already reviewed")
)

// OpenDatabase opens the database at path and initializes the schema.
func OpenDatabase(path string) (*sqlx.DB, error) {
	db, err := Connect(path)
	if err != nil {
		return nil, err
	}

	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Connect opens the database at path without touching the schema.
func Connect(path string) (*sqlx.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	// Single connection: SQLite has one writer and transactions must not
	// interleave with reads on other connections.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Store runs queries against the database or, inside WithTx, a transaction.
type Store struct {
	db *sqlx.DB
	q  sqlx.ExtContext
}

// NewStore wraps an open database.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, q: db}
}

// DB returns the underlying handle.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn against a Store bound to a new transaction and commits when
// fn returns nil. Calls nested inside a transaction reuse it.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	if _, ok := s.q.(*sqlx.Tx); ok {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // Safe even after commit
	}()

	if err := fn(&Store{db: s.db, q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// constraintError maps a unique constraint violation to its sentinel. Other
// errors pass through unchanged.
func constraintError(err error) error {
	var se sqlite3.Error
	if !errors.As(err, &se) || se.ExtendedCode != sqlite3.ErrConstraintUnique {
		return err
	}

	msg := se.Error()
	switch {
	case strings.Contains(msg, "messages.screenshot_hash"):
		return fmt.Errorf("%w: %v", ErrDuplicateHash, err)
	case strings.Contains(msg, "messages.cycle_id"):
		return fmt.Errorf("%w: %v", ErrDuplicateStage, err)
	case strings.Contains(msg, "canvassing_cycles."), strings.Contains(msg, "idx_cycles_one_active"):
		return fmt.Errorf("%w: %v", ErrDuplicateCycle, err)
	case strings.Contains(msg, "prospects.handle"):
		return fmt.Errorf("%w: %v", ErrDuplicateHandle, err)
	case strings.Contains(msg, "quality_checks.message_id"):
		return fmt.Errorf("%w: %v", ErrAlreadyReviewed, err)
	}
	return err
}

// IsDuplicate reports whether err is one of the uniqueness sentinels.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateHash) ||
		errors.Is(err, ErrDuplicateStage) ||
		errors.Is(err, ErrDuplicateCycle) ||
		errors.Is(err, ErrDuplicateHandle) ||
		errors.Is(err, ErrAlreadyReviewed)
}
