package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/hyperjump/shiori/pkg/utils"
)

// DefaultDimensions matches the reference sentence embedding model.
const DefaultDimensions = 768

// MockEmbedder is a deterministic feature-hashing embedder. Each token is hashed to a signed
// bucket, so texts sharing words get a positive cosine similarity and identical texts score 1.
// It needs no model files, which makes it the default for development and tests.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns an embedder of the given dimensions (DefaultDimensions when <= 0).
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns the unit-length hashed bag-of-words vector for text.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emb := make([]float32, e.dimensions)
	tokens := Tokens(text)
	if len(tokens) == 0 {
		// No word content: spread the raw text hash so the vector is never zero.
		h := uint64(HashString(text)) + 1
		for i := range emb {
			emb[i] = float32(math.Sin(float64(h) * float64(i+1)))
		}
	}
	for _, tok := range tokens {
		f := fnv.New64a()
		_, _ = f.Write([]byte(tok))
		sum := f.Sum64()
		idx := int(sum % uint64(e.dimensions))
		if sum>>63 == 1 {
			emb[idx]--
		} else {
			emb[idx]++
		}
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, e, texts)
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *MockEmbedder) Close() error {
	return nil
}
