package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/artpar/readerspec/adapters/idgen"
	"github.com/artpar/readerspec/ports"
)

// HistoryStore implements ports.HistoryStore using SQLite.
type HistoryStore struct {
	db  *DB
	ids ports.IDGenerator
}

// NewHistoryStore creates a new SQLite history store that assigns
// time-ordered UUIDs.
func NewHistoryStore(db *DB) *HistoryStore {
	return &HistoryStore{db: db, ids: idgen.UUID{}}
}

// WithIDGenerator replaces the ID generator and returns s.
func (s *HistoryStore) WithIDGenerator(ids ports.IDGenerator) *HistoryStore {
	s.ids = ids
	return s
}

// Record stores a translation run. Missing IDs and timestamps are filled in.
func (s *HistoryStore) Record(ctx context.Context, e ports.HistoryEntry) error {
	if e.ID == "" {
		e.ID = s.ids.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO translation_history (id, path, digest, success, confidence, error, block, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Path, e.Digest, e.Success, e.Confidence, e.Error, e.Block, e.CreatedAt.UTC())
	return err
}

// LastSuccess returns the most recent successful run for path.
func (s *HistoryStore) LastSuccess(ctx context.Context, path string) (ports.HistoryEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, path, digest, success, confidence, error, block, created_at
		FROM translation_history
		WHERE path = ? AND success = 1
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, path)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.HistoryEntry{}, ports.ErrNotFound
	}
	return e, err
}

// List returns the most recent runs, newest first. A non-positive limit
// returns every run.
func (s *HistoryStore) List(ctx context.Context, limit int) ([]ports.HistoryEntry, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, digest, success, confidence, error, block, created_at
		FROM translation_history
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ports.HistoryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (ports.HistoryEntry, error) {
	var e ports.HistoryEntry
	err := row.Scan(&e.ID, &e.Path, &e.Digest, &e.Success, &e.Confidence, &e.Error, &e.Block, &e.CreatedAt)
	if err != nil {
		return ports.HistoryEntry{}, err
	}
	return e, nil
}

// Ensure interface compliance.
var _ ports.HistoryStore = (*HistoryStore)(nil)
