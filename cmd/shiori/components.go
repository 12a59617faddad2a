package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/citation"
	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/embedding"
	"github.com/hyperjump/shiori/internal/extract"
	"github.com/hyperjump/shiori/internal/indexer"
	"github.com/hyperjump/shiori/internal/keyword"
	"github.com/hyperjump/shiori/internal/metrics"
	"github.com/hyperjump/shiori/internal/pipeline"
	"github.com/hyperjump/shiori/internal/search"
	"github.com/hyperjump/shiori/internal/storage"
	"github.com/hyperjump/shiori/internal/vector"
)

// Components holds initialized services.
type Components struct {
	Storage      *storage.SQLiteStorage
	Embedder     embedding.Provider
	VectorIndex  *vector.MemoryIndex
	KeywordIndex *keyword.BleveIndex
	Registry     citation.Registry
	Metrics      *metrics.Metrics
	Indexer      *indexer.Indexer
	Pipeline     *pipeline.Pipeline
	Engine       *search.Engine
}

// Close stops the pipeline and releases everything in reverse order of creation.
func (c *Components) Close() {
	if c.Pipeline != nil {
		_ = c.Pipeline.Close()
	}
	if c.Registry != nil {
		_ = c.Registry.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{}
	fail := func(err error) (*Components, error) {
		c.Close()
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize storage: %w", err))
	}
	c.Storage = store

	c.Embedder, err = embedding.NewProvider(cfg.Embedding, logger)
	if err != nil {
		return fail(err)
	}

	c.VectorIndex, err = vector.NewMemoryIndex(c.Embedder.Dimensions())
	if err != nil {
		return fail(fmt.Errorf("failed to initialize vector index: %w", err))
	}

	c.KeywordIndex, err = keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize keyword index: %w", err))
	}

	c.Indexer = indexer.NewIndexer(store, c.Embedder, c.VectorIndex, c.KeywordIndex, cfg.Pipeline,
		indexer.WithLogger(logger))
	loaded, err := c.Indexer.Rebuild(ctx)
	if err != nil {
		return fail(fmt.Errorf("failed to rebuild indexes: %w", err))
	}
	logger.Info("indexes loaded", zap.Int("chunks", loaded))

	c.Registry, err = citation.NewRegistry(cfg.Citation, store.DB(), logger)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize citation registry: %w", err))
	}

	c.Metrics = metrics.New()
	c.Pipeline = pipeline.New(store, extract.NewExtractor(extract.WithLogger(logger)), c.Indexer, cfg.Pipeline,
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(c.Metrics),
		pipeline.WithMaxUploadBytes(cfg.Server.MaxUploadBytes),
	)
	recovered, err := c.Pipeline.Recover(ctx)
	if err != nil {
		return fail(fmt.Errorf("failed to recover pipeline state: %w", err))
	}
	if recovered > 0 {
		logger.Warn("marked interrupted stages as failed", zap.Int("documents", recovered))
	}

	c.Engine = search.NewEngine(store, c.Embedder, c.VectorIndex, c.KeywordIndex, cfg.Search,
		search.WithLogger(logger))
	return c, nil
}
