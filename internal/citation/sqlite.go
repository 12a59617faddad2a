package citation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hyperjump/shiori/internal/models"
)

// SQLiteRegistry persists numbers in a citations table so they survive restarts.
type SQLiteRegistry struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRegistry creates the citations table in db if needed. The caller owns db.
func NewSQLiteRegistry(db *sql.DB) (*SQLiteRegistry, error) {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS citations (
		key TEXT PRIMARY KEY,
		number INTEGER NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("create citations table: %w", err)
	}
	return &SQLiteRegistry{db: db}, nil
}

func (r *SQLiteRegistry) Register(ctx context.Context, key string) (*models.Registration, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	reg := &models.Registration{}
	err = tx.QueryRowContext(ctx, `SELECT number FROM citations WHERE key = ?`, key).Scan(&reg.Number)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(number), 0) + 1 FROM citations`).Scan(&reg.Number); err != nil {
			return nil, fmt.Errorf("next citation number: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO citations (key, number, created_at) VALUES (?, ?, ?)`,
			key, reg.Number, time.Now().UTC()); err != nil {
			return nil, fmt.Errorf("insert citation: %w", err)
		}
		reg.IsNew = true
	case err != nil:
		return nil, fmt.Errorf("lookup citation: %w", err)
	}
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM citations`).Scan(&reg.TotalDistinctCitations); err != nil {
		return nil, fmt.Errorf("count citations: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return reg, nil
}

func (r *SQLiteRegistry) Lookup(ctx context.Context, key string) (*models.CitationRecord, error) {
	rec := &models.CitationRecord{Key: key}
	err := r.db.QueryRowContext(ctx, `SELECT number FROM citations WHERE key = ?`, key).Scan(&rec.Number)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("citation %q: %w", key, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup citation: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRegistry) List(ctx context.Context) ([]models.CitationRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, number FROM citations ORDER BY number`)
	if err != nil {
		return nil, fmt.Errorf("list citations: %w", err)
	}
	defer rows.Close()
	out := []models.CitationRecord{}
	for rows.Next() {
		var rec models.CitationRecord
		if err := rows.Scan(&rec.Key, &rec.Number); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRegistry) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM citations`).Scan(&n)
	return n, err
}

// Close is a no-op; the database belongs to the document store.
func (r *SQLiteRegistry) Close() error { return nil }
