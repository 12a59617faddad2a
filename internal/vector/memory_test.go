package vector

import (
	"context"
	"math"
	"testing"
)

func TestMemoryIndex_UpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	idx, err := NewMemoryIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	err = idx.Upsert(ctx, []Entry{
		{ChunkID: "d1-chunk-0", DocumentID: "d1", Vector: []float32{1, 0, 0}},
		{ChunkID: "d1-chunk-1", DocumentID: "d1", Vector: []float32{0, 1, 0}},
		{ChunkID: "d2-chunk-0", DocumentID: "d2", Vector: []float32{0.8, 0.6, 0}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", idx.Size())
	}

	res, err := idx.Search(ctx, []float32{1, 0, 0}, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 || res[0].ChunkID != "d1-chunk-0" || res[1].ChunkID != "d2-chunk-0" {
		t.Fatalf("unexpected results: %+v, %+v", res[0], res[1])
	}
	if res[1].DocumentID != "d2" || math.Abs(res[1].Score-0.8) > 1e-6 {
		t.Errorf("unexpected second hit: %+v", res[1])
	}

	scoped, err := idx.Search(ctx, []float32{1, 0, 0}, 5, []string{"d2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(scoped) != 1 || scoped[0].DocumentID != "d2" {
		t.Errorf("scope not applied: %+v", scoped)
	}
}

func TestMemoryIndex_UpsertReplaces(t *testing.T) {
	ctx := context.Background()
	idx, _ := NewMemoryIndex(2)
	_ = idx.Upsert(ctx, []Entry{{ChunkID: "c", DocumentID: "d", Vector: []float32{1, 0}}})
	_ = idx.Upsert(ctx, []Entry{{ChunkID: "c", DocumentID: "d", Vector: []float32{0, 1}}})
	if idx.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", idx.Size())
	}
	res, _ := idx.Search(ctx, []float32{0, 1}, 1, nil)
	if res[0].Score < 0.99 {
		t.Errorf("vector not replaced: %+v", res[0])
	}
}

func TestMemoryIndex_RemoveDocument(t *testing.T) {
	ctx := context.Background()
	idx, _ := NewMemoryIndex(2)
	_ = idx.Upsert(ctx, []Entry{
		{ChunkID: "a0", DocumentID: "a", Vector: []float32{1, 0}},
		{ChunkID: "a1", DocumentID: "a", Vector: []float32{0, 1}},
		{ChunkID: "b0", DocumentID: "b", Vector: []float32{1, 0}},
	})
	if err := idx.RemoveDocument(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 1 {
		t.Errorf("Size() = %d, want 1", idx.Size())
	}
	res, _ := idx.Search(ctx, []float32{1, 0}, 5, []string{"a"})
	if len(res) != 0 {
		t.Errorf("removed document still searchable: %+v", res)
	}
}

func TestMemoryIndex_Validation(t *testing.T) {
	if _, err := NewMemoryIndex(0); err == nil {
		t.Error("expected error for zero dimensions")
	}
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	err := idx.Upsert(ctx, []Entry{
		{ChunkID: "ok", DocumentID: "d", Vector: []float32{1, 0}},
		{ChunkID: "bad", DocumentID: "d", Vector: []float32{1, 0, 0}},
	})
	if err == nil {
		t.Fatal("expected dimension error")
	}
	if idx.Size() != 0 {
		t.Error("a failed upsert must not store partial entries")
	}
	if _, err := idx.Search(ctx, []float32{1}, 1, nil); err == nil {
		t.Error("expected query dimension error")
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity([]float32{2, 0}, []float32{5, 0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("CosineSimilarity() = %f, want 1", got)
	}
	if CosineSimilarity([]float32{0, 0}, []float32{1, 0}) != 0 {
		t.Error("zero vector should score 0")
	}
	if InnerProduct([]float32{1}, []float32{1, 2}) != 0 {
		t.Error("mismatched lengths should score 0")
	}
}
