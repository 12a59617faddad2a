// Package keyword provides lexical (BM25-style) search over chunk text.
package keyword

import "context"

// Doc is the indexed form of a chunk.
type Doc struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Index      int    `json:"chunk_index"`
}

// SearchOptions tunes a keyword search. Nil means defaults.
type SearchOptions struct {
	// DocumentIDs restricts hits to these documents when non-empty.
	DocumentIDs []string
	// TitleBoost multiplies matches in the document title. Values <= 0 mean 1.
	TitleBoost float64
	// PhraseBoost multiplies chunks that contain the query as an exact phrase. Values <= 1 disable it.
	PhraseBoost float64
	// Fuzziness is the maximum edit distance per term (0 disables fuzzy matching).
	Fuzziness int
}

// Index defines keyword indexing and search over chunks.
type Index interface {
	IndexChunks(ctx context.Context, chunks map[string]*Doc) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error)
	DeleteDocument(ctx context.Context, documentID string) error
	DocCount() (uint64, error)
	Close() error
}

// Result is a single keyword hit.
type Result struct {
	ChunkID string
	Score   float64
}
