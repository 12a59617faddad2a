// Package vector holds chunk embeddings and answers nearest-neighbour queries.
package vector

import "context"

// Index stores chunk vectors grouped by document.
type Index interface {
	// Upsert adds or replaces the vectors of the given chunks.
	Upsert(ctx context.Context, entries []Entry) error
	// Search returns up to k chunks by similarity. A non-empty documentIDs restricts the scope.
	Search(ctx context.Context, query []float32, k int, documentIDs []string) ([]*Result, error)
	// RemoveDocument drops every vector belonging to the document.
	RemoveDocument(ctx context.Context, documentID string) error
	Size() int
	Dimensions() int
	Close() error
}

// Entry is one chunk vector.
type Entry struct {
	ChunkID    string
	DocumentID string
	Vector     []float32
}

// Result is a single vector search hit.
type Result struct {
	ChunkID    string
	DocumentID string
	// Score is the inner product, which is cosine similarity for unit vectors.
	Score float64
}
