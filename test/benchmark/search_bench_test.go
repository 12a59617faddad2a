package benchmark

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/hyperjump/shiori/internal/embedding"
	"github.com/hyperjump/shiori/internal/indexer"
	"github.com/hyperjump/shiori/internal/search"
	"github.com/hyperjump/shiori/internal/vector"
)

func BenchmarkFuse(b *testing.B) {
	kw := make(map[string]float64)
	sem := make(map[string]float64)
	phrase := make(map[string]float64)
	docs := make(map[string]string)
	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("chunk-%03d", i)
		kw[id] = float64(i) / 100
		sem[id] = float64(100-i) / 100
		if i%10 == 0 {
			phrase[id] = 1
		}
		docs[id] = fmt.Sprintf("doc-%d", i%7)
	}
	w := search.Weights{Keyword: 0.4, Semantic: 0.4, Phrase: 0.2}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = search.Fuse(kw, sem, phrase, docs, w, 0.5)
	}
}

func BenchmarkMemoryIndexSearch(b *testing.B) {
	const dims = 768
	idx, _ := vector.NewMemoryIndex(dims)
	ctx := context.Background()
	entries := make([]vector.Entry, 1000)
	for i := range entries {
		v := make([]float32, dims)
		v[0] = float32(i) / 1000
		v[1] = 1
		entries[i] = vector.Entry{
			ChunkID:    fmt.Sprintf("chunk-%04d", i),
			DocumentID: fmt.Sprintf("doc-%d", i%50),
			Vector:     v,
		}
	}
	_ = idx.Upsert(ctx, entries)
	query := make([]float32, dims)
	query[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(ctx, query, 5, nil)
	}
}

func BenchmarkMockEmbedder_Embed(b *testing.B) {
	e := embedding.NewMockEmbedder(768)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "benchmark query text for embedding")
	}
}

func BenchmarkChunker_Chunk(b *testing.B) {
	para := strings.Repeat("word ", 120)
	text := strings.Repeat(para+"\n\n", 40)
	c := indexer.NewChunker(400, 40)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Chunk("doc", text)
	}
}
