// Package search ranks document chunks by fusing keyword, semantic and exact-phrase signals.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/embedding"
	"github.com/hyperjump/shiori/internal/keyword"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/storage"
	"github.com/hyperjump/shiori/internal/vector"
)

// titleBoost weights document-title matches below chunk-content matches.
const titleBoost = 0.5

// Engine runs hybrid chunk search.
type Engine struct {
	storage      storage.Storage
	embedder     embedding.Provider
	vectorIndex  vector.Index
	keywordIndex keyword.Index
	config       config.SearchConfig
	logger       *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(
	store storage.Storage,
	embedder embedding.Provider,
	vectorIndex vector.Index,
	keywordIndex keyword.Index,
	cfg config.SearchConfig,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		storage:      store,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		config:       cfg,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SearchChunks returns at most query.TopK chunks ranked by fused score. Queries shorter than
// three characters fail with models.ErrQueryTooShort.
func (e *Engine) SearchChunks(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := ProcessQuery(query, e.config); err != nil {
		return nil, err
	}
	candidates := e.config.TopKCandidates
	if candidates < query.TopK {
		candidates = query.TopK
	}
	w := Weights{Keyword: e.config.KeywordWeight, Semantic: e.config.SemanticWeight, Phrase: e.config.PhraseWeight}

	var (
		keywordResults  []*keyword.Result
		semanticResults []*vector.Result
		phraseChunks    []*models.Chunk
	)
	g, gctx := errgroup.WithContext(ctx)
	if w.Keyword > 0 {
		g.Go(func() error {
			results, err := e.keywordIndex.Search(gctx, query.Query, candidates, &keyword.SearchOptions{
				DocumentIDs: query.DocumentIDs,
				TitleBoost:  titleBoost,
			})
			if err != nil {
				return fmt.Errorf("keyword search failed: %w", err)
			}
			keywordResults = results
			return nil
		})
	}
	if w.Semantic > 0 {
		g.Go(func() error {
			queryEmbedding, err := e.embedder.Embed(gctx, query.Query)
			if err != nil {
				return fmt.Errorf("embedding failed: %w", err)
			}
			results, err := e.vectorIndex.Search(gctx, queryEmbedding, candidates, query.DocumentIDs)
			if err != nil {
				return fmt.Errorf("vector search failed: %w", err)
			}
			semanticResults = results
			return nil
		})
	}
	if w.Phrase > 0 {
		g.Go(func() error {
			chunks, err := e.storage.FindChunksContaining(gctx, query.Query, query.DocumentIDs, candidates)
			if err != nil {
				return fmt.Errorf("phrase search failed: %w", err)
			}
			phraseChunks = chunks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	chunkToDoc := make(map[string]string)
	for _, r := range semanticResults {
		chunkToDoc[r.ChunkID] = r.DocumentID
	}
	for _, c := range phraseChunks {
		chunkToDoc[c.ID] = c.DocumentID
	}
	fused := Fuse(
		NormalizeKeywordScores(keywordResults),
		NormalizeSemanticScores(semanticResults),
		PhraseScores(phraseChunks),
		chunkToDoc, w, e.config.MinSemanticScore,
	)

	top := fused
	if len(top) > query.TopK {
		top = top[:query.TopK]
	}
	ids := make([]string, len(top))
	for i, r := range top {
		ids[i] = r.ChunkID
	}
	chunks, err := e.storage.GetChunks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}

	response := &models.SearchResponse{
		Query:   query.Query,
		Results: make([]*models.SearchResult, 0, len(top)),
		Total:   len(fused),
	}
	titles := make(map[string]string)
	for _, r := range top {
		chunk, ok := chunks[r.ChunkID]
		if !ok {
			// Replaced by a concurrent re-vectorization.
			continue
		}
		title, ok := titles[chunk.DocumentID]
		if !ok {
			if doc, err := e.storage.GetDocument(ctx, chunk.DocumentID); err == nil {
				title = doc.Title()
			}
			titles[chunk.DocumentID] = title
		}
		response.Results = append(response.Results, &models.SearchResult{
			ChunkID:       chunk.ID,
			DocumentID:    chunk.DocumentID,
			DocumentTitle: title,
			PageOrIndex:   chunk.Index,
			Content:       chunk.Content,
			Score:         r.Score,
			KeywordScore:  r.KeywordScore,
			SemanticScore: r.SemanticScore,
			HighlightSpan: HighlightSpan(chunk.Content, query.Query),
			Rank:          len(response.Results) + 1,
		})
	}
	response.QueryTime = time.Since(startTime).Milliseconds()
	e.logger.Debug("chunk search",
		zap.String("query", query.Query),
		zap.Int("keyword_hits", len(keywordResults)),
		zap.Int("semantic_hits", len(semanticResults)),
		zap.Int("phrase_hits", len(phraseChunks)),
		zap.Int("results", len(response.Results)),
		zap.Duration("duration", time.Since(startTime)))
	return response, nil
}

// VectorIndexSize returns the number of chunk vectors in the index.
func (e *Engine) VectorIndexSize() int {
	return e.vectorIndex.Size()
}

// KeywordDocCount returns the number of chunks in the keyword index.
func (e *Engine) KeywordDocCount() uint64 {
	n, err := e.keywordIndex.DocCount()
	if err != nil {
		e.logger.Warn("keyword doc count failed", zap.Error(err))
		return 0
	}
	return n
}
