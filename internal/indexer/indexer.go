package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/embedding"
	"github.com/hyperjump/shiori/internal/keyword"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/storage"
	"github.com/hyperjump/shiori/internal/vector"
)

// rebuildPageSize is how many documents are read per page when repopulating the keyword index.
const rebuildPageSize = 100

// Indexer chunks and embeds document text, then writes the chunks to storage, the vector
// index and the keyword index.
type Indexer struct {
	storage      storage.Storage
	embedder     embedding.Provider
	vectorIndex  vector.Index
	keywordIndex keyword.Index
	chunker      *Chunker
	logger       *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer. Chunk sizes come from cfg.
func NewIndexer(
	store storage.Storage,
	embedder embedding.Provider,
	vectorIndex vector.Index,
	keywordIndex keyword.Index,
	cfg config.PipelineConfig,
	opts ...IndexerOption,
) *Indexer {
	idx := &Indexer{
		storage:      store,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		chunker:      NewChunker(cfg.MaxChunkWords, cfg.ChunkOverlapWords),
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IndexDocument replaces the chunks of doc with chunks of text. Empty text fails with
// models.ErrEmptyInput and an embedding failure leaves the previous chunks untouched. A failed
// write leaves the document with no chunks in storage or either index.
func (idx *Indexer) IndexDocument(ctx context.Context, doc *models.Document, text string) ([]*models.Chunk, error) {
	chunks, err := idx.chunker.Chunk(doc.ID, text)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}
	embeddings, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(chunks))
	}
	entries := make([]vector.Entry, len(chunks))
	for i, ch := range chunks {
		if len(embeddings[i]) != idx.vectorIndex.Dimensions() {
			return nil, fmt.Errorf("embedding for %s has %d dimensions, index expects %d",
				ch.ID, len(embeddings[i]), idx.vectorIndex.Dimensions())
		}
		ch.Embedding = embeddings[i]
		entries[i] = vector.Entry{ChunkID: ch.ID, DocumentID: doc.ID, Vector: embeddings[i]}
	}

	if err := idx.writeChunks(ctx, doc, chunks, entries); err != nil {
		idx.purge(doc.ID)
		return nil, err
	}
	doc.ChunkCount = len(chunks)
	idx.logger.Debug("document indexed",
		zap.String("document_id", doc.ID),
		zap.Int("chunks", len(chunks)))
	return chunks, nil
}

// writeChunks swaps the document's entries in both indexes, then commits the chunks to storage.
func (idx *Indexer) writeChunks(ctx context.Context, doc *models.Document, chunks []*models.Chunk, entries []vector.Entry) error {
	if err := idx.vectorIndex.RemoveDocument(ctx, doc.ID); err != nil {
		return fmt.Errorf("failed to clear vector index: %w", err)
	}
	if err := idx.vectorIndex.Upsert(ctx, entries); err != nil {
		return fmt.Errorf("failed to index vectors: %w", err)
	}
	if err := idx.keywordIndex.DeleteDocument(ctx, doc.ID); err != nil {
		return fmt.Errorf("failed to clear keyword index: %w", err)
	}
	if err := idx.keywordIndex.IndexChunks(ctx, keywordDocs(doc, chunks)); err != nil {
		return fmt.Errorf("failed to index keywords: %w", err)
	}
	if err := idx.storage.ReplaceChunks(ctx, doc.ID, chunks); err != nil {
		return fmt.Errorf("failed to store chunks: %w", err)
	}
	return nil
}

// purge drops a document from storage and both indexes after a failed write. It ignores the
// caller's context, which may already be done.
func (idx *Indexer) purge(documentID string) {
	ctx := context.Background()
	if err := idx.vectorIndex.RemoveDocument(ctx, documentID); err != nil {
		idx.logger.Warn("failed to purge vectors", zap.String("document_id", documentID), zap.Error(err))
	}
	if err := idx.keywordIndex.DeleteDocument(ctx, documentID); err != nil {
		idx.logger.Warn("failed to purge keyword entries", zap.String("document_id", documentID), zap.Error(err))
	}
	if err := idx.storage.ReplaceChunks(ctx, documentID, nil); err != nil && !errors.Is(err, models.ErrNotFound) {
		idx.logger.Warn("failed to purge chunks", zap.String("document_id", documentID), zap.Error(err))
	}
}

func keywordDocs(doc *models.Document, chunks []*models.Chunk) map[string]*keyword.Doc {
	title := normalizeTitleForKeywordSearch(doc.Title())
	out := make(map[string]*keyword.Doc, len(chunks))
	for _, ch := range chunks {
		out[ch.ID] = &keyword.Doc{
			DocumentID: doc.ID,
			Title:      title,
			Content:    ch.Content,
			Index:      ch.Index,
		}
	}
	return out
}

// normalizeTitleForKeywordSearch replaces underscores with spaces so the standard analyzer
// splits filenames like "smith_2021_transformers.pdf" into words.
func normalizeTitleForKeywordSearch(title string) string {
	return strings.ReplaceAll(title, "_", " ")
}

// Rebuild loads every stored vector into the vector index. When the keyword index is empty
// (in-memory, or deleted on disk) it is repopulated from stored chunks as well.
func (idx *Indexer) Rebuild(ctx context.Context) (int, error) {
	const batchSize = 256
	var batch []vector.Entry
	vectors := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := idx.vectorIndex.Upsert(ctx, batch); err != nil {
			return err
		}
		vectors += len(batch)
		batch = batch[:0]
		return nil
	}
	err := idx.storage.ForEachChunkVector(ctx, func(ch *models.Chunk) error {
		if len(ch.Embedding) != idx.vectorIndex.Dimensions() {
			idx.logger.Warn("skipping chunk with mismatched embedding",
				zap.String("chunk_id", ch.ID),
				zap.Int("dimensions", len(ch.Embedding)))
			return nil
		}
		batch = append(batch, vector.Entry{ChunkID: ch.ID, DocumentID: ch.DocumentID, Vector: ch.Embedding})
		if len(batch) >= batchSize {
			return flush()
		}
		return nil
	})
	if err == nil {
		err = flush()
	}
	if err != nil {
		return vectors, fmt.Errorf("rebuild vector index: %w", err)
	}

	count, err := idx.keywordIndex.DocCount()
	if err != nil {
		return vectors, fmt.Errorf("keyword doc count: %w", err)
	}
	if count == 0 && vectors > 0 {
		if err := idx.rebuildKeywords(ctx); err != nil {
			return vectors, err
		}
	}
	idx.logger.Info("indexes rebuilt", zap.Int("vectors", vectors))
	return vectors, nil
}

func (idx *Indexer) rebuildKeywords(ctx context.Context) error {
	for offset := 0; ; offset += rebuildPageSize {
		docs, err := idx.storage.ListDocuments(ctx, offset, rebuildPageSize)
		if err != nil {
			return fmt.Errorf("rebuild keyword index: %w", err)
		}
		for _, doc := range docs {
			if doc.ChunkCount == 0 {
				continue
			}
			chunks, err := idx.storage.GetChunksByDocumentID(ctx, doc.ID)
			if err != nil {
				return fmt.Errorf("rebuild keyword index: %w", err)
			}
			if err := idx.keywordIndex.IndexChunks(ctx, keywordDocs(doc, chunks)); err != nil {
				return fmt.Errorf("rebuild keyword index: %w", err)
			}
		}
		if len(docs) < rebuildPageSize {
			return nil
		}
	}
}
