// Package storage persists documents, their uploaded bytes, and their chunks.
package storage

import (
	"context"

	"github.com/hyperjump/shiori/internal/models"
)

// Storage defines document, file and chunk persistence. Lookups of unknown ids return errors
// wrapping models.ErrNotFound; creating an existing document wraps models.ErrConflict.
type Storage interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	UpdateDocument(ctx context.Context, doc *models.Document) error
	// ListDocuments returns documents newest first, without their extracted text.
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)
	// ListUnfinishedDocuments returns documents whose pipeline has not reached a final state:
	// a phase in processing, extraction pending, or vectorization pending after extraction
	// produced text.
	ListUnfinishedDocuments(ctx context.Context) ([]*models.Document, error)
	CountDocuments(ctx context.Context) (int64, error)

	SaveFile(ctx context.Context, documentID string, content []byte) error
	GetFile(ctx context.Context, documentID string) ([]byte, error)

	// ReplaceChunks atomically swaps the document's chunks and updates its chunk count.
	ReplaceChunks(ctx context.Context, documentID string, chunks []*models.Chunk) error
	GetChunksByDocumentID(ctx context.Context, documentID string) ([]*models.Chunk, error)
	GetChunk(ctx context.Context, id string) (*models.Chunk, error)
	// GetChunks loads chunks by id; unknown ids are absent from the map.
	GetChunks(ctx context.Context, ids []string) (map[string]*models.Chunk, error)
	// FindChunksContaining returns chunks whose content contains needle, case-insensitively for ASCII.
	FindChunksContaining(ctx context.Context, needle string, documentIDs []string, limit int) ([]*models.Chunk, error)
	// ForEachChunkVector streams every chunk with its embedding, for rebuilding the vector index.
	ForEachChunkVector(ctx context.Context, fn func(*models.Chunk) error) error
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
