package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryIndex is a brute-force in-memory index. Vectors are rebuilt from storage at startup.
type MemoryIndex struct {
	dimensions int
	entries    map[string]*Entry
	byDoc      map[string]map[string]struct{}
	mu         sync.RWMutex
}

// NewMemoryIndex creates an index for vectors of the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		entries:    make(map[string]*Entry),
		byDoc:      make(map[string]map[string]struct{}),
	}, nil
}

// Upsert validates every vector before storing any of them.
func (m *MemoryIndex) Upsert(ctx context.Context, entries []Entry) error {
	for _, e := range entries {
		if e.ChunkID == "" || e.DocumentID == "" {
			return fmt.Errorf("entry needs chunk and document ids")
		}
		if len(e.Vector) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch for %s: got %d, expected %d", e.ChunkID, len(e.Vector), m.dimensions)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		if old, ok := m.entries[e.ChunkID]; ok && old.DocumentID != e.DocumentID {
			delete(m.byDoc[old.DocumentID], e.ChunkID)
		}
		vec := make([]float32, m.dimensions)
		copy(vec, e.Vector)
		m.entries[e.ChunkID] = &Entry{ChunkID: e.ChunkID, DocumentID: e.DocumentID, Vector: vec}
		ids, ok := m.byDoc[e.DocumentID]
		if !ok {
			ids = make(map[string]struct{})
			m.byDoc[e.DocumentID] = ids
		}
		ids[e.ChunkID] = struct{}{}
	}
	return nil
}

// Search scores every candidate by inner product and returns the top k, ties broken by chunk id.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int, documentIDs []string) ([]*Result, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []*Result
	score := func(e *Entry) {
		results = append(results, &Result{ChunkID: e.ChunkID, DocumentID: e.DocumentID, Score: InnerProduct(query, e.Vector)})
	}
	if len(documentIDs) > 0 {
		for _, docID := range documentIDs {
			for id := range m.byDoc[docID] {
				score(m.entries[id])
			}
		}
	} else {
		for _, e := range m.entries {
			score(e)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// RemoveDocument drops the document's vectors.
func (m *MemoryIndex) RemoveDocument(ctx context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.byDoc[documentID] {
		delete(m.entries, id)
	}
	delete(m.byDoc, documentID)
	return nil
}

// Size returns the number of stored vectors.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Dimensions returns the vector dimension.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

// Close releases the stored vectors.
func (m *MemoryIndex) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*Entry)
	m.byDoc = make(map[string]map[string]struct{})
	return nil
}
