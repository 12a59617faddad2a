package citation

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/shiori/internal/models"
)

// MemoryRegistry keeps numbers for the lifetime of the value.
type MemoryRegistry struct {
	mu      sync.Mutex
	numbers map[string]int
	keys    []string
}

// NewMemoryRegistry returns an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{numbers: make(map[string]int)}
}

func (r *MemoryRegistry) Register(_ context.Context, key string) (*models.Registration, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if n, ok := r.numbers[key]; ok {
		return &models.Registration{Number: n, TotalDistinctCitations: len(r.keys)}, nil
	}
	r.keys = append(r.keys, key)
	n := len(r.keys)
	r.numbers[key] = n
	return &models.Registration{Number: n, IsNew: true, TotalDistinctCitations: n}, nil
}

func (r *MemoryRegistry) Lookup(_ context.Context, key string) (*models.CitationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.numbers[key]
	if !ok {
		return nil, fmt.Errorf("citation %q: %w", key, models.ErrNotFound)
	}
	return &models.CitationRecord{Key: key, Number: n}, nil
}

func (r *MemoryRegistry) List(_ context.Context) ([]models.CitationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.CitationRecord, len(r.keys))
	for i, k := range r.keys {
		out[i] = models.CitationRecord{Key: k, Number: i + 1}
	}
	return out, nil
}

func (r *MemoryRegistry) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys), nil
}

func (r *MemoryRegistry) Close() error { return nil }
