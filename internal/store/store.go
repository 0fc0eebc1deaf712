// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists extraction placeholders and products keyed by
// (paper_id, id_type). Writes overwrite any existing record for the key.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/pdiddy/fulltext/pkg/types"
)

// ErrStorage marks every failure reported by a Store so callers can tell a
// storage fault from a domain error.
var ErrStorage = errors.New("storage failure")

// Store is the durable record contract consumed by the orchestrator.
// Get methods return nil, nil when no record exists for the key.
type Store interface {
	PutPlaceholder(ctx context.Context, p types.ExtractionPlaceholder) error
	GetPlaceholder(ctx context.Context, key types.Key) (*types.ExtractionPlaceholder, error)
	PutProduct(ctx context.Context, p types.ExtractionProduct) error
	GetProduct(ctx context.Context, key types.Key) (*types.ExtractionProduct, error)
}

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps db and creates the record tables if they do not exist.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.createSchema(); err != nil {
		return nil, errors.Wrap(err, "creating store schema")
	}
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS placeholders (
			key TEXT PRIMARY KEY,
			paper_id TEXT NOT NULL,
			id_type TEXT NOT NULL,
			task_id TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			key TEXT PRIMARY KEY,
			paper_id TEXT NOT NULL,
			id_type TEXT NOT NULL,
			version TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.Wrap(err, "executing schema statement")
		}
	}
	return nil
}

// PutPlaceholder records p, replacing any placeholder already stored for
// its key (last write wins).
func (s *SQLiteStore) PutPlaceholder(ctx context.Context, p types.ExtractionPlaceholder) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO placeholders (key, paper_id, id_type, task_id, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			task_id = excluded.task_id,
			created_at = excluded.created_at`,
		p.Key().String(), p.PaperID, string(p.IDType), p.TaskID, p.CreatedAt.UTC(),
	)
	if err != nil {
		return storageError(err, "storing placeholder", p.Key())
	}
	return nil
}

// GetPlaceholder returns the placeholder for key, or nil if there is none.
func (s *SQLiteStore) GetPlaceholder(ctx context.Context, key types.Key) (*types.ExtractionPlaceholder, error) {
	var (
		p      types.ExtractionPlaceholder
		idType string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT paper_id, id_type, task_id, created_at FROM placeholders WHERE key = ?`,
		key.String(),
	).Scan(&p.PaperID, &idType, &p.TaskID, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError(err, "reading placeholder", key)
	}
	p.IDType = types.IDType(idType)
	return &p, nil
}

// PutProduct records p, replacing any product already stored for its key.
// Re-running an extraction therefore never accumulates records.
func (s *SQLiteStore) PutProduct(ctx context.Context, p types.ExtractionProduct) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products (key, paper_id, id_type, version, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			version = excluded.version,
			content = excluded.content,
			created_at = excluded.created_at`,
		p.Key().String(), p.PaperID, string(p.IDType), p.Version, p.Content, p.CreatedAt.UTC(),
	)
	if err != nil {
		return storageError(err, "storing product", p.Key())
	}
	return nil
}

// GetProduct returns the product for key, or nil if there is none.
func (s *SQLiteStore) GetProduct(ctx context.Context, key types.Key) (*types.ExtractionProduct, error) {
	var (
		p      types.ExtractionProduct
		idType string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT paper_id, id_type, version, content, created_at FROM products WHERE key = ?`,
		key.String(),
	).Scan(&p.PaperID, &idType, &p.Version, &p.Content, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError(err, "reading product", key)
	}
	p.IDType = types.IDType(idType)
	return &p, nil
}

func storageError(err error, op string, key types.Key) error {
	err = errors.Wrapf(err, "%s for %s", op, key)
	return errors.Mark(err, ErrStorage)
}
