package store

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// SQLite implements Store on a SQLite database opened with db.Open.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// NewSQLite wraps an open database. The schema must already exist.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// DB returns the underlying database handle.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func newID() string {
	return uuid.NewString()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// isConstraint reports whether err is a SQLite constraint violation.
func isConstraint(err error) bool {
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
