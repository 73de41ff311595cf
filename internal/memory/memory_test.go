package memory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/cwaproj/cwa/internal/store"
	"github.com/cwaproj/cwa/internal/vector"
)

// stubEmbedder returns a deterministic, trivially-bucketed vector per text
// so semantic search exercises real cosine math without a live model.
type stubEmbedder struct {
	vectors map[string][]float32
}

func (e *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := e.vectors[t]; ok {
			out[i] = v
			continue
		}
		out[i] = []float32{0, 0, 0, 1}
	}
	return out, nil
}

func tempService(t *testing.T, embedder *stubEmbedder) (*Service, *store.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	s := store.NewWithClient(client, "proj1")

	vs, err := vector.Open(":memory:", 4)
	if err != nil {
		t.Fatalf("vector.Open: %v", err)
	}
	t.Cleanup(func() { vs.Close() })

	var ec vector.EmbeddingClient
	if embedder != nil {
		ec = embedder
	}
	return NewService(s, vs, ec), s
}

func TestAddAndTimeline(t *testing.T) {
	svc, _ := tempService(t, nil)
	ctx := context.Background()

	if _, err := svc.Observe(ctx, "bugfix", "fixed race", "details", nil, nil, nil, ""); err != nil {
		t.Fatalf("Observe: %v", err)
	}
	rows, err := svc.Timeline(ctx, 0, 10)
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if len(rows) != 1 || rows[0].Title != "fixed race" {
		t.Fatalf("unexpected timeline: %+v", rows)
	}
	if rows[0].Confidence != DefaultConfidence {
		t.Fatalf("expected default confidence, got %f", rows[0].Confidence)
	}
}

func TestDecayAndCompact(t *testing.T) {
	svc, _ := tempService(t, nil)
	ctx := context.Background()

	if _, err := svc.Observe(ctx, "decision", "Use X", "", nil, nil, nil, ""); err != nil {
		t.Fatalf("Observe 1: %v", err)
	}
	if _, err := svc.Observe(ctx, "decision", "Use X again", "", nil, nil, nil, ""); err != nil {
		t.Fatalf("Observe 2: %v", err)
	}

	if _, err := svc.Decay(ctx, 0.5); err != nil {
		t.Fatalf("Decay: %v", err)
	}
	rows, err := svc.Timeline(ctx, 0, 10)
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	for _, r := range rows {
		if r.Confidence != DefaultConfidence*0.5 {
			t.Fatalf("expected decayed confidence 0.4, got %f", r.Confidence)
		}
	}

	n, err := svc.Compact(ctx, 0.5, nil)
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected both observations compacted, got %d", n)
	}
	rows, _ = svc.Timeline(ctx, 0, 10)
	if len(rows) != 0 {
		t.Fatalf("expected empty timeline after compaction, got %+v", rows)
	}
}

func TestSearchKeyword(t *testing.T) {
	svc, _ := tempService(t, nil)
	ctx := context.Background()

	if _, err := svc.Add(ctx, "fact", "the cache uses redis for storage"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := svc.Add(ctx, "fact", "unrelated note about something else"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	hits, err := svc.SearchKeyword(ctx, "redis cache", 0, true, false)
	if err != nil {
		t.Fatalf("SearchKeyword: %v", err)
	}
	if len(hits) == 0 || hits[0].Score <= 0 {
		t.Fatalf("expected a scored hit, got %+v", hits)
	}
}

func TestSearchHybridBlendsScores(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"query":         {1, 0, 0, 0},
		"keyword only":  {0, 0, 0, 1},
		"vector only":   {1, 0, 0, 0},
		"partial match": {0.7, 0.1, 0.1, 0.1},
	}}
	svc, _ := tempService(t, embedder)
	ctx := context.Background()

	if _, err := svc.Add(ctx, "fact", "vector only"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := svc.Add(ctx, "fact", "keyword only"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	hits, err := svc.SearchHybrid(ctx, "query", 0.7, 10)
	if err != nil {
		t.Fatalf("SearchHybrid: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected at least one hybrid hit")
	}
	// "query" matches no stored text by keyword, so the top hit's blended
	// score is alpha times its cosine similarity: 0.7 * 1.0.
	if hits[0].Score != 0.7 {
		t.Fatalf("expected top hybrid score 0.7 (alpha * cosine 1.0), got %f", hits[0].Score)
	}
}

func TestSummarize(t *testing.T) {
	svc, _ := tempService(t, nil)
	ctx := context.Background()

	if _, err := svc.Observe(ctx, "feature", "added auth", "narrative", []string{"uses JWT"}, nil, nil, ""); err != nil {
		t.Fatalf("Observe: %v", err)
	}
	time.Sleep(time.Millisecond)
	if _, err := svc.Observe(ctx, "feature", "added logging", "narrative", []string{"uses zap"}, nil, nil, ""); err != nil {
		t.Fatalf("Observe: %v", err)
	}

	summary, err := svc.Summarize(ctx, 2)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.ObservationsCount != 2 {
		t.Fatalf("expected 2 observations summarized, got %d", summary.ObservationsCount)
	}
}
