package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/shiori/internal/config"
)

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestMockEmbedder(t *testing.T) {
	ctx := context.Background()
	e := NewMockEmbedder(0)
	require.Equal(t, DefaultDimensions, e.Dimensions())

	a, err := e.Embed(ctx, "graph neural networks for molecules")
	require.NoError(t, err)
	require.Len(t, a, 768)
	assert.InDelta(t, 1.0, math.Sqrt(dot(a, a)), 1e-5)

	again, _ := e.Embed(ctx, "graph neural networks for molecules")
	assert.Equal(t, a, again, "embedding must be deterministic")

	related, _ := e.Embed(ctx, "neural networks")
	unrelated, _ := e.Embed(ctx, "medieval poetry")
	assert.Greater(t, dot(a, related), dot(a, unrelated))

	punct, err := e.Embed(ctx, "...")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, math.Sqrt(dot(punct, punct)), 1e-5, "non-word text still gets a unit vector")
}

func TestMockEmbedder_batchAndCancel(t *testing.T) {
	e := NewMockEmbedder(16)
	vecs, err := e.EmbedBatch(context.Background(), []string{"a b", "c d", "e f"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.EmbedBatch(ctx, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"deep", "learning", "2024"}, Tokens("Deep-Learning, 2024!"))
	assert.Equal(t, []string{"bert", "模", "型"}, Tokens("BERT模型"))
	assert.Empty(t, Tokens(" ... "))
}

func TestSimpleTokenizer(t *testing.T) {
	ids, mask, types := (&SimpleTokenizer{}).Tokenize("one two three four", 4)
	require.Len(t, ids, 4)
	assert.Equal(t, int64(clsToken), ids[0])
	assert.Equal(t, int64(sepToken), ids[3])
	assert.Equal(t, []int64{1, 1, 1, 1}, mask)
	assert.Equal(t, []int64{0, 0, 0, 0}, types)
}

func TestEmbeddingCache_evictsLeastRecentlyUsed(t *testing.T) {
	c := NewEmbeddingCache(2)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})
	_, _ = c.Get("a")
	c.Set("c", []float32{3})

	_, okA := c.Get("a")
	_, okB := c.Get("b")
	assert.True(t, okA)
	assert.False(t, okB)
	assert.Equal(t, 2, c.Len())
}

type countingProvider struct {
	*MockEmbedder
	texts atomic.Int64
}

func (c *countingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.texts.Add(int64(len(texts)))
	return c.MockEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedProvider_onlyEmbedsMisses(t *testing.T) {
	inner := &countingProvider{MockEmbedder: NewMockEmbedder(8)}
	p := NewCachedProvider(inner, 10)
	ctx := context.Background()

	first, err := p.EmbedBatch(ctx, []string{"x", "y"})
	require.NoError(t, err)
	second, err := p.EmbedBatch(ctx, []string{"y", "z", "x"})
	require.NoError(t, err)

	assert.Equal(t, int64(3), inner.texts.Load())
	assert.Equal(t, first[0], second[2])
	assert.Equal(t, first[1], second[0])
}

func TestOpenAIEmbedder(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var req openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 4, req.Dimensions)

		type item struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		// Reply in reverse order to exercise index-based reordering.
		data := make([]item, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, item{Index: i, Embedding: []float32{float32(len(req.Input[i])), 0, 0, 0}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder("sk-test", "", srv.URL+"/v1/", 4)
	require.NoError(t, err)
	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "bbb"})
	require.NoError(t, err)
	assert.Equal(t, float32(1), vecs[0][0])
	assert.Equal(t, float32(3), vecs[1][0])
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAIEmbedder_apiError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder("sk-bad", "", srv.URL, 4)
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "bad key"))
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(config.EmbeddingConfig{Provider: config.ProviderMock, Dimensions: 32, CacheSize: 4}, nil)
	require.NoError(t, err)
	assert.Equal(t, 32, p.Dimensions())
	_, isCached := p.(*CachedProvider)
	assert.True(t, isCached)

	_, err = NewProvider(config.EmbeddingConfig{Provider: config.ProviderOpenAI}, nil)
	assert.Error(t, err, "missing api key")

	_, err = NewProvider(config.EmbeddingConfig{Provider: "word2vec"}, nil)
	assert.Error(t, err)
}
