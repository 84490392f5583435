package store

import (
	"context"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite is the single-node file backend, selected when SQLITE_PATH is set.
// Timestamps are stored as fixed-width UTC text so ordering comparisons work
// lexically.
type SQLite struct {
	*sqlStore
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := openSQL("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;`); err != nil {
		return nil, fmt.Errorf("sqlite pragmas: %w", err)
	}
	return &SQLite{sqlStore: &sqlStore{
		db:       db,
		bindTime: func(t time.Time) any { return t.UTC().Format("2006-01-02 15:04:05.000000000") },
	}}, nil
}

func (s *SQLite) EnsureSchema(ctx context.Context) error {
	return s.ensureSchema(ctx, "TEXT", "TEXT")
}
