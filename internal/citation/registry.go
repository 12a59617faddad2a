// Package citation assigns stable, dense display numbers to citation keys and formats references.
package citation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/models"
)

// Registry numbers citation keys in first-seen order. Numbers start at 1, are never reused,
// and each distinct key receives exactly one number even under concurrent registration.
type Registry interface {
	// Register returns the key's number, assigning the next one if the key is new.
	Register(ctx context.Context, key string) (*models.Registration, error)
	// Lookup returns the record for key or an error wrapping models.ErrNotFound.
	Lookup(ctx context.Context, key string) (*models.CitationRecord, error)
	// List returns all records ordered by number.
	List(ctx context.Context) ([]models.CitationRecord, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// NewRegistry builds the registry selected by cfg.Backend. db is required for the sqlite backend.
func NewRegistry(cfg config.CitationConfig, db *sql.DB, logger *zap.Logger) (Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Backend {
	case "", config.BackendMemory:
		return NewMemoryRegistry(), nil
	case config.BackendSQLite:
		if db == nil {
			return nil, fmt.Errorf("sqlite citation backend needs a database: %w", models.ErrInvalidArgument)
		}
		return NewSQLiteRegistry(db)
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		reg := NewRedisRegistry(client, cfg.Redis.KeyPrefix)
		if err := reg.Ping(context.Background()); err != nil {
			_ = reg.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		logger.Info("Citation registry using redis", zap.String("addr", cfg.Redis.Addr))
		return reg, nil
	}
	return nil, fmt.Errorf("unknown citation backend %q: %w", cfg.Backend, models.ErrInvalidArgument)
}

// Key builds the citation key for a chunk of a document.
func Key(documentID, chunkID string) string {
	return documentID + "#" + chunkID
}

// validateKey rejects empty and whitespace-only keys.
func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("citation key is required: %w", models.ErrInvalidArgument)
	}
	return nil
}
