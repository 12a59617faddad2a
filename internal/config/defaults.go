package config

import (
	"os"
	"time"
)

const (
	ProviderMock   = "mock"
	ProviderONNX   = "onnx"
	ProviderOpenAI = "openai"

	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 10 << 20
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/shiori/data/db/library.db"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderMock
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 768
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 512
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.OpenAI.APIKey == "" {
		cfg.Embedding.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Pipeline.ExtractTimeout == 0 {
		cfg.Pipeline.ExtractTimeout = 60 * time.Second
	}
	if cfg.Pipeline.VectorizeTimeout == 0 {
		cfg.Pipeline.VectorizeTimeout = 120 * time.Second
	}
	if cfg.Pipeline.MaxChunkWords == 0 {
		cfg.Pipeline.MaxChunkWords = 400
	}
	if cfg.Pipeline.ChunkOverlapWords == 0 {
		cfg.Pipeline.ChunkOverlapWords = 40
	}
	if cfg.Search.DefaultTopK == 0 {
		cfg.Search.DefaultTopK = 5
	}
	if cfg.Search.MaxTopK == 0 {
		cfg.Search.MaxTopK = 50
	}
	if cfg.Search.TopKCandidates == 0 {
		cfg.Search.TopKCandidates = 100
	}
	if cfg.Search.KeywordWeight == 0 && cfg.Search.SemanticWeight == 0 && cfg.Search.PhraseWeight == 0 {
		cfg.Search.KeywordWeight = 0.4
		cfg.Search.SemanticWeight = 0.4
		cfg.Search.PhraseWeight = 0.2
	}
	if cfg.Search.MinSemanticScore == 0 {
		cfg.Search.MinSemanticScore = 0.5
	}
	if cfg.Search.SnippetLength == 0 {
		cfg.Search.SnippetLength = 300
	}
	if cfg.Citation.Backend == "" {
		cfg.Citation.Backend = BackendMemory
	}
	if cfg.Citation.Redis.Addr == "" {
		cfg.Citation.Redis.Addr = "localhost:6379"
	}
	if cfg.Citation.Redis.KeyPrefix == "" {
		cfg.Citation.Redis.KeyPrefix = "shiori:citations:"
	}
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
