// Package embedding turns chunk text into fixed-dimension vectors. Providers are pluggable:
// a deterministic hashing provider for development and tests, a local ONNX model, and any
// OpenAI-compatible embeddings endpoint.
package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/config"
)

// Provider produces vector embeddings for text. Every vector returned has length Dimensions().
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// NewProvider builds the provider named by cfg.Provider and wraps it in an LRU cache when
// cfg.CacheSize is positive.
func NewProvider(cfg config.EmbeddingConfig, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		p   Provider
		err error
	)
	switch cfg.Provider {
	case config.ProviderMock, "":
		p = NewMockEmbedder(cfg.Dimensions)
	case config.ProviderONNX:
		p, err = NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
	case config.ProviderOpenAI:
		p, err = NewOpenAIEmbedder(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL, cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("embedding provider %s: %w", cfg.Provider, err)
	}
	logger.Info("embedding provider ready",
		zap.String("provider", cfg.Provider),
		zap.Int("dimensions", p.Dimensions()))
	if cfg.CacheSize > 0 {
		p = NewCachedProvider(p, cfg.CacheSize)
	}
	return p, nil
}

// embedEach embeds texts one at a time, checking ctx between calls.
func embedEach(ctx context.Context, p Provider, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		emb, err := p.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return out, nil
}
