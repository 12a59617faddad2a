package keyword

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex("")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	ctx := context.Background()
	err = idx.IndexChunks(ctx, map[string]*Doc{
		"d1-chunk-0": {DocumentID: "d1", Title: "Transformers", Content: "Self attention replaces recurrence in sequence models."},
		"d1-chunk-1": {DocumentID: "d1", Title: "Transformers", Content: "Positional encodings inject order information."},
		"d2-chunk-0": {DocumentID: "d2", Title: "Graph Networks", Content: "Message passing aggregates neighbour features with attention."},
	})
	if err != nil {
		t.Fatal(err)
	}
	return idx
}

func TestBleveIndex_Search(t *testing.T) {
	idx := newTestIndex(t)
	res, err := idx.Search(context.Background(), "attention", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(res))
	}
	for _, r := range res {
		if r.Score <= 0 {
			t.Errorf("hit %s has non-positive score", r.ChunkID)
		}
	}
}

func TestBleveIndex_SearchScoped(t *testing.T) {
	idx := newTestIndex(t)
	res, err := idx.Search(context.Background(), "attention", 10, &SearchOptions{DocumentIDs: []string{"d2"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].ChunkID != "d2-chunk-0" {
		t.Fatalf("unexpected scoped hits: %+v", res)
	}
}

func TestBleveIndex_SearchTitleAndFuzzy(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	res, err := idx.Search(ctx, "graph", 10, &SearchOptions{TitleBoost: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].ChunkID != "d2-chunk-0" {
		t.Errorf("title match expected, got %+v", res)
	}

	res, err = idx.Search(ctx, "positonal", 10, &SearchOptions{Fuzziness: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].ChunkID != "d1-chunk-1" {
		t.Errorf("fuzzy match expected, got %+v", res)
	}
}

func TestBleveIndex_PhraseBoost(t *testing.T) {
	idx := newTestIndex(t)
	res, err := idx.Search(context.Background(), "self attention", 10, &SearchOptions{PhraseBoost: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(res) == 0 || res[0].ChunkID != "d1-chunk-0" {
		t.Errorf("phrase hit should rank first, got %+v", res)
	}
}

func TestBleveIndex_DeleteDocument(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	if err := idx.DeleteDocument(ctx, "d1"); err != nil {
		t.Fatal(err)
	}
	n, err := idx.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("DocCount() = %d, want 1", n)
	}
}

func TestNewBleveIndex_reopensOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bleve")
	idx, err := NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.IndexChunks(context.Background(), map[string]*Doc{"c": {DocumentID: "d", Content: "persisted text"}}); err != nil {
		t.Fatal(err)
	}
	_ = idx.Close()

	reopened, err := NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if n, _ := reopened.DocCount(); n != 1 {
		t.Errorf("DocCount() after reopen = %d, want 1", n)
	}
}
