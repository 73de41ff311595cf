package memory

import (
	"context"
	"strings"

	"github.com/cwaproj/cwa/internal/domain"
)

// BackfillJob retries embeddings for entries queued in the pending-embeddings
// set, implementing scheduler.Job, so entities written while the embedding
// service was down become semantically searchable once it recovers.
type BackfillJob struct {
	svc *Service
}

// NewBackfillJob builds the periodic pending-embeddings backfill job.
func NewBackfillJob(svc *Service) *BackfillJob {
	return &BackfillJob{svc: svc}
}

func (j *BackfillJob) Name() string { return "embedding_backfill" }

func (j *BackfillJob) Run(ctx context.Context) error {
	if j.svc.embedder == nil || j.svc.vectors == nil {
		return nil
	}
	pending, err := j.svc.store.PendingEmbeddings(ctx)
	if err != nil {
		return err
	}
	for _, entry := range pending {
		collection, id, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}
		text, payload, err := j.svc.loadText(ctx, collection, id)
		if err != nil {
			continue
		}
		vecs, err := j.svc.embedder.Embed(ctx, []string{text})
		if err != nil || len(vecs) != 1 {
			continue
		}
		if err := j.svc.vectors.Upsert(ctx, collection, id, vecs[0], payload); err != nil {
			continue
		}
		_ = j.svc.store.RemovePendingEmbedding(ctx, collection, id)
		_ = j.svc.markEmbedded(ctx, collection, id)
	}
	return nil
}

// markEmbedded stamps embedding_id onto the backing entity now that its
// vector has been written, so progressive-disclosure reads can tell it's
// semantically searchable.
func (s *Service) markEmbedded(ctx context.Context, collection, id string) error {
	switch collection {
	case "memories":
		var m domain.Memory
		if err := s.store.Get(ctx, "memory", id, &m); err != nil {
			return err
		}
		m.EmbeddingID = id
		return s.store.Save(ctx, "memory", memoryEntity{&m}, m.Version, "memory_embedded")
	case "observations":
		var o domain.Observation
		if err := s.store.Get(ctx, "observation", id, &o); err != nil {
			return err
		}
		o.EmbeddingID = id
		return s.store.Save(ctx, "observation", observationEntity{&o}, o.Version, "observation_embedded")
	default:
		return nil
	}
}

// loadText resolves the embeddable text and payload for a pending entry by
// its collection and id.
func (s *Service) loadText(ctx context.Context, collection, id string) (string, map[string]string, error) {
	switch collection {
	case "memories":
		var m domain.Memory
		if err := s.store.Get(ctx, "memory", id, &m); err != nil {
			return "", nil, err
		}
		return m.Content, map[string]string{"kind": m.Kind}, nil
	case "observations":
		var o domain.Observation
		if err := s.store.Get(ctx, "observation", id, &o); err != nil {
			return "", nil, err
		}
		return o.Title + "\n" + o.Narrative, map[string]string{"kind": o.Kind}, nil
	default:
		return "", nil, nil
	}
}
