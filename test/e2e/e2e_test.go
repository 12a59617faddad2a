package e2e

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/citation"
	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/embedding"
	"github.com/hyperjump/shiori/internal/extract"
	"github.com/hyperjump/shiori/internal/fileid"
	"github.com/hyperjump/shiori/internal/indexer"
	"github.com/hyperjump/shiori/internal/keyword"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/pipeline"
	"github.com/hyperjump/shiori/internal/search"
	"github.com/hyperjump/shiori/internal/storage"
	"github.com/hyperjump/shiori/internal/vector"
	"github.com/hyperjump/shiori/internal/watcher"
)

const e2eTopK = 10

// stack is a full ingestion and search setup over on-disk storage.
type stack struct {
	cfg      *config.Config
	store    *storage.SQLiteStorage
	vecIdx   *vector.MemoryIndex
	kwIdx    *keyword.BleveIndex
	indexer  *indexer.Indexer
	pipeline *pipeline.Pipeline
	engine   *search.Engine
	once     sync.Once
}

func newStack(t *testing.T, dir string) *stack {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.DatabasePath = filepath.Join(dir, "library.db")
	cfg.Storage.BleveIndexPath = filepath.Join(dir, "bleve")
	cfg.Pipeline.MaxChunkWords = 64
	cfg.Pipeline.ChunkOverlapWords = 8

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	embedder := embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	vecIdx, err := vector.NewMemoryIndex(cfg.Embedding.Dimensions)
	if err != nil {
		t.Fatal(err)
	}
	kwIdx, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		t.Fatal(err)
	}
	idx := indexer.NewIndexer(store, embedder, vecIdx, kwIdx, cfg.Pipeline)
	s := &stack{
		cfg:      cfg,
		store:    store,
		vecIdx:   vecIdx,
		kwIdx:    kwIdx,
		indexer:  idx,
		pipeline: pipeline.New(store, extract.NewExtractor(), idx, cfg.Pipeline),
		engine:   search.NewEngine(store, embedder, vecIdx, kwIdx, cfg.Search),
	}
	t.Cleanup(s.close)
	return s
}

func (s *stack) close() {
	s.once.Do(func() {
		_ = s.pipeline.Close()
		_ = s.kwIdx.Close()
		_ = s.vecIdx.Close()
		_ = s.store.Close()
	})
}

// assertQueries runs every query and checks that the expected document is among the results.
func (s *stack) assertQueries(t *testing.T, queries []QueryCase, docID func(key string) string) {
	t.Helper()
	ctx := context.Background()
	for _, q := range queries {
		t.Run(q.Describe(), func(t *testing.T) {
			resp, err := s.engine.SearchChunks(ctx, &models.SearchQuery{Query: q.Query, TopK: e2eTopK})
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			want := docID(q.ExpectedKey)
			for _, r := range resp.Results {
				if r.DocumentID == want {
					return
				}
			}
			t.Errorf("query %q: document %s not among %d results", q.Query, want, len(resp.Results))
		})
	}
}

func TestE2E_UploadedLibraryIsSearchable(t *testing.T) {
	s := newStack(t, t.TempDir())
	lib := BuildLibrary()
	ctx := context.Background()

	for _, d := range lib.Documents {
		_, err := s.pipeline.Upload(ctx, &models.UploadInput{
			ID:       d.Key,
			Filename: d.Key + ".txt",
			Content:  []byte(d.Text()),
		})
		if err != nil {
			t.Fatalf("upload %s: %v", d.Key, err)
		}
	}
	s.pipeline.Wait()

	for _, d := range lib.Documents {
		doc, err := s.store.GetDocument(ctx, d.Key)
		if err != nil {
			t.Fatal(err)
		}
		if doc.VectorizationStatus != models.StatusCompleted {
			t.Fatalf("%s: vectorization %s (%s)", d.Key, doc.VectorizationStatus, doc.ErrorMessage)
		}
		if doc.ChunkCount < 1 {
			t.Errorf("%s: no chunks", d.Key)
		}
	}
	s.assertQueries(t, lib.Queries, func(key string) string { return key })
}

func TestE2E_InboxFilesAreSearchable(t *testing.T) {
	dir := t.TempDir()
	inboxDir := filepath.Join(dir, "inbox")
	if err := os.MkdirAll(inboxDir, 0o755); err != nil {
		t.Fatal(err)
	}
	s := newStack(t, dir)
	inbox := watcher.NewInbox(s.pipeline, s.cfg.Server.MaxUploadBytes, zap.NewNop())
	lib := BuildLibrary()
	ctx := context.Background()

	ids := make(map[string]string, len(lib.Documents))
	for i, d := range lib.Documents {
		ext := Extensions[i%len(Extensions)]
		path := filepath.Join(inboxDir, d.Key+ext)
		if err := os.WriteFile(path, EncodeFile(ext, d.Text()), 0o644); err != nil {
			t.Fatal(err)
		}
		doc, err := inbox.Handle(ctx, path)
		if err != nil {
			t.Fatalf("inbox %s: %v", path, err)
		}
		if doc.ID != fileid.FileDocID(path) {
			t.Errorf("%s: id %s is not derived from the path", path, doc.ID)
		}
		ids[d.Key] = doc.ID
	}
	s.pipeline.Wait()

	// The same file dropped again is already in the library.
	again, err := inbox.Handle(ctx, filepath.Join(inboxDir, lib.Documents[0].Key+Extensions[0]))
	if err != nil || again != nil {
		t.Errorf("second Handle = %v, %v; want nil, nil", again, err)
	}

	s.assertQueries(t, lib.Queries, func(key string) string { return ids[key] })
}

func TestE2E_ReopenRebuildsIndexes(t *testing.T) {
	dir := t.TempDir()
	lib := BuildLibrary()
	ctx := context.Background()

	first := newStack(t, dir)
	for _, d := range lib.Documents[:5] {
		if _, err := first.pipeline.Upload(ctx, &models.UploadInput{
			ID: d.Key, Filename: d.Key + ".txt", Content: []byte(d.Text()),
		}); err != nil {
			t.Fatal(err)
		}
	}
	first.pipeline.Wait()
	first.close()

	second := newStack(t, dir)
	n, err := second.indexer.Rebuild(ctx)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if n == 0 {
		t.Fatal("rebuild loaded no chunks")
	}
	if second.vecIdx.Size() != n {
		t.Errorf("vector index size %d, want %d", second.vecIdx.Size(), n)
	}
	second.assertQueries(t, lib.Queries[:5], func(key string) string { return key })
}

func TestE2E_CitingSearchResultsNumbersDensely(t *testing.T) {
	s := newStack(t, t.TempDir())
	lib := BuildLibrary()
	ctx := context.Background()
	for _, d := range lib.Documents {
		if _, err := s.pipeline.Upload(ctx, &models.UploadInput{
			ID: d.Key, Filename: d.Key + ".txt", Content: []byte(d.Text()),
		}); err != nil {
			t.Fatal(err)
		}
	}
	s.pipeline.Wait()

	registry, err := citation.NewRegistry(config.CitationConfig{Backend: config.BackendSQLite}, s.store.DB(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer registry.Close()

	queries := []string{"residual shortcut connections", "BM25 term weighting", "residual shortcut connections"}
	wantNumbers := []int{1, 2, 1}
	for i, q := range queries {
		resp, err := s.engine.SearchChunks(ctx, &models.SearchQuery{Query: q, TopK: 1})
		if err != nil || len(resp.Results) == 0 {
			t.Fatalf("search %q: %v", q, err)
		}
		top := resp.Results[0]
		reg, err := registry.Register(ctx, citation.Key(top.DocumentID, top.ChunkID))
		if err != nil {
			t.Fatal(err)
		}
		if reg.Number != wantNumbers[i] {
			t.Errorf("citation %d for %q = [%d], want [%d]", i, q, reg.Number, wantNumbers[i])
		}
	}
	if n, _ := registry.Count(ctx); n != 2 {
		t.Errorf("distinct citations = %d, want 2", n)
	}
}
