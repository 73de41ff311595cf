package vector

import (
	"context"
	"testing"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", 4)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertAndSearch(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	vectors := map[string][]float32{
		"a": {1, 0, 0, 0},
		"b": {0, 1, 0, 0},
		"c": {0.9, 0.1, 0, 0},
	}
	for id, v := range vectors {
		if err := s.Upsert(ctx, CollectionMemories, id, v, map[string]string{"kind": "fact"}); err != nil {
			t.Fatalf("Upsert %s: %v", id, err)
		}
	}

	hits, err := s.Search(ctx, CollectionMemories, []float32{1, 0, 0, 0}, 2, "", "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID != "a" {
		t.Fatalf("expected closest hit to be 'a', got %s (score %f)", hits[0].ID, hits[0].Score)
	}
}

func TestSearchFilter(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, CollectionMemories, "a", []float32{1, 0, 0, 0}, map[string]string{"kind": "fact"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Upsert(ctx, CollectionMemories, "b", []float32{1, 0, 0, 0}, map[string]string{"kind": "decision"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	hits, err := s.Search(ctx, CollectionMemories, []float32{1, 0, 0, 0}, 10, "kind", "decision")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "b" {
		t.Fatalf("expected only 'b', got %+v", hits)
	}
}

func TestDelete(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, CollectionMemories, "a", []float32{1, 0, 0, 0}, nil); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Delete(ctx, CollectionMemories, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	hits, err := s.Search(ctx, CollectionMemories, []float32{1, 0, 0, 0}, 10, "", "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no hits after delete, got %+v", hits)
	}
}

func TestUpsertDimensionMismatch(t *testing.T) {
	s := tempStore(t)
	if err := s.Upsert(context.Background(), CollectionMemories, "a", []float32{1, 2}, nil); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}
