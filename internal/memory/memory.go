// Package memory implements the memory/observation lifecycle: confidence
// that decays multiplicatively, compaction that physically deletes
// low-confidence entries from every store that knows about them, two-tier
// progressive disclosure (cheap timeline rows vs. full detail records), and
// keyword/semantic/hybrid search across both memories and observations.
package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/cwaproj/cwa/internal/cwaerr"
	"github.com/cwaproj/cwa/internal/domain"
	"github.com/cwaproj/cwa/internal/graph"
	"github.com/cwaproj/cwa/internal/idgen"
	"github.com/cwaproj/cwa/internal/store"
	"github.com/cwaproj/cwa/internal/vector"
)

// DefaultConfidence is the confidence fresh entries start at.
const DefaultConfidence = 0.8

// DefaultDecayFactor is the typical multiplicative decay applied by a
// scheduled decay pass.
const DefaultDecayFactor = 0.98

// DefaultMinConfidence is the compaction threshold below which entries are
// physically deleted.
const DefaultMinConfidence = 0.3

// HybridAlpha is the default weight given to the vector score in hybrid
// search: blended = alpha*vector + (1-alpha)*keyword.
const HybridAlpha = 0.7

// Service owns the memory/observation lifecycle for one project.
type Service struct {
	store    *store.Store
	vectors  *vector.Store
	embedder vector.EmbeddingClient
}

// NewService wires a memory service. embedder may be nil, in which case
// writes fall back to keyword-only storage and are tracked for backfill.
func NewService(s *store.Store, v *vector.Store, embedder vector.EmbeddingClient) *Service {
	return &Service{store: s, vectors: v, embedder: embedder}
}

// Add stores a new unstructured memory nugget at DefaultConfidence and
// attempts to embed it for semantic search.
func (s *Service) Add(ctx context.Context, kind, content string) (*domain.Memory, error) {
	now := time.Now()
	m := &domain.Memory{
		ID:         idgen.New("mem"),
		Kind:       kind,
		Content:    content,
		Confidence: DefaultConfidence,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.Save(ctx, "memory", memoryEntity{m}, 0, domain.EventMemoryAdded); err != nil {
		return nil, err
	}
	if s.embedOrQueue(ctx, vector.CollectionMemories, m.ID, content, map[string]string{"kind": kind}) {
		m.EmbeddingID = m.ID
		_ = s.store.Save(ctx, "memory", memoryEntity{m}, m.Version, "memory_embedded")
	}
	return m, nil
}

// Observe records a structured development event.
func (s *Service) Observe(ctx context.Context, kind, title, narrative string, facts, filesModified, filesRead []string, relatedEntity string) (*domain.Observation, error) {
	now := time.Now()
	o := &domain.Observation{
		ID:            idgen.New("obs"),
		Kind:          kind,
		Title:         title,
		Narrative:     narrative,
		Facts:         facts,
		FilesModified: filesModified,
		FilesRead:     filesRead,
		Confidence:    DefaultConfidence,
		RelatedEntity: relatedEntity,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Save(ctx, "observation", observationEntity{o}, 0, "observation_added"); err != nil {
		return nil, err
	}
	if s.embedOrQueue(ctx, vector.CollectionObservations, o.ID, title+"\n"+narrative, map[string]string{"kind": kind}) {
		o.EmbeddingID = o.ID
		_ = s.store.Save(ctx, "observation", observationEntity{o}, o.Version, "observation_embedded")
	}
	return o, nil
}

// embedOrQueue attempts to embed text, reporting whether the vector was
// written. On failure (no embedder configured, or a transient embedding
// error) the entity is left without an embedding_id and enqueued for
// background backfill.
func (s *Service) embedOrQueue(ctx context.Context, collection, id, text string, payload map[string]string) bool {
	if s.embedder == nil || s.vectors == nil {
		s.enqueuePending(ctx, collection, id)
		return false
	}
	vecs, err := s.embedder.Embed(ctx, []string{text})
	if err != nil || len(vecs) != 1 {
		s.enqueuePending(ctx, collection, id)
		return false
	}
	if err := s.vectors.Upsert(ctx, collection, id, vecs[0], payload); err != nil {
		s.enqueuePending(ctx, collection, id)
		return false
	}
	return true
}

func (s *Service) enqueuePending(ctx context.Context, collection, id string) {
	_ = s.store.AddPendingEmbedding(ctx, collection, id)
}

// Decay multiplies every observation's confidence by factor, typically
// called periodically from the scheduler.
func (s *Service) Decay(ctx context.Context, factor float64) (int, error) {
	if factor <= 0 || factor > 1 {
		factor = DefaultDecayFactor
	}
	ids, err := s.store.ListIDs(ctx, "observation", 0, 1<<20)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, id := range ids {
		var o domain.Observation
		if err := s.store.Get(ctx, "observation", id, &o); err != nil {
			continue
		}
		prevVersion := o.Version
		o.Confidence *= factor
		o.UpdatedAt = time.Now()
		if err := s.store.Save(ctx, "observation", observationEntity{&o}, prevVersion, "observation_decayed"); err == nil {
			n++
		}
	}
	return n, nil
}

// Compact physically deletes every memory and observation whose confidence
// is strictly less than minConfidence, from the primary store, the vector
// store, and (via proj, when non-nil) the graph projection. Deletion is
// physical; entries do not move to a tombstone.
func (s *Service) Compact(ctx context.Context, minConfidence float64, proj *graph.Projector) (int, error) {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	n := 0

	memIDs, err := s.store.ListIDs(ctx, "memory", 0, 1<<20)
	if err != nil {
		return n, err
	}
	for _, id := range memIDs {
		var m domain.Memory
		if err := s.store.Get(ctx, "memory", id, &m); err != nil {
			continue
		}
		if m.Confidence < minConfidence {
			s.deleteEntry(ctx, "memory", id, vector.CollectionMemories, proj)
			n++
		}
	}

	obsIDs, err := s.store.ListIDs(ctx, "observation", 0, 1<<20)
	if err != nil {
		return n, err
	}
	for _, id := range obsIDs {
		var o domain.Observation
		if err := s.store.Get(ctx, "observation", id, &o); err != nil {
			continue
		}
		if o.Confidence < minConfidence {
			s.deleteEntry(ctx, "observation", id, vector.CollectionObservations, proj)
			n++
		}
	}
	return n, nil
}

func (s *Service) deleteEntry(ctx context.Context, kind, id, collection string, proj *graph.Projector) {
	_ = s.store.Delete(ctx, kind, id)
	if s.vectors != nil {
		_ = s.vectors.Delete(ctx, collection, id)
	}
	if proj != nil {
		_ = proj.OnEventDelete(ctx, kind, id)
	}
}

// TimelineRow is the compact, cheap-to-read projection used for browsing.
type TimelineRow struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Title      string    `json:"title"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// Timeline returns compact rows for observations within the last `days`
// (0 = no bound), most recent first, capped at limit (0 = default 50).
func (s *Service) Timeline(ctx context.Context, days, limit int) ([]TimelineRow, error) {
	if limit <= 0 {
		limit = 50
	}
	ids, err := s.store.ListIDs(ctx, "observation", 0, 1<<20)
	if err != nil {
		return nil, err
	}
	var rows []TimelineRow
	cutoff := time.Time{}
	if days > 0 {
		cutoff = time.Now().AddDate(0, 0, -days)
	}
	for _, id := range ids {
		var o domain.Observation
		if err := s.store.Get(ctx, "observation", id, &o); err != nil {
			continue
		}
		if !cutoff.IsZero() && o.CreatedAt.Before(cutoff) {
			continue
		}
		rows = append(rows, TimelineRow{ID: o.ID, Kind: o.Kind, Title: o.Title, Confidence: o.Confidence, CreatedAt: o.CreatedAt})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// Get returns full observation records for the given ids, skipping any that
// no longer exist.
func (s *Service) Get(ctx context.Context, ids []string) ([]domain.Observation, error) {
	out := make([]domain.Observation, 0, len(ids))
	for _, id := range ids {
		var o domain.Observation
		if err := s.store.Get(ctx, "observation", id, &o); err != nil {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// Summarize selects the most recent n observations, composes a single text
// body preserving key facts, writes a Summary entity, and embeds it.
func (s *Service) Summarize(ctx context.Context, n int) (*domain.Summary, error) {
	rows, err := s.Timeline(ctx, 0, n)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, cwaerr.New(cwaerr.NotFound, "no observations to summarize")
	}

	var b strings.Builder
	var facts []string
	for _, r := range rows {
		b.WriteString("- [")
		b.WriteString(r.Kind)
		b.WriteString("] ")
		b.WriteString(r.Title)
		b.WriteString("\n")
	}
	for _, o := range mustGetAll(ctx, s, rows) {
		facts = append(facts, o.Facts...)
	}
	if len(facts) > 0 {
		b.WriteString("facts:\n")
		for _, f := range facts {
			b.WriteString("- ")
			b.WriteString(f)
			b.WriteString("\n")
		}
	}

	rangeEnd := rows[0].CreatedAt
	rangeStart := rows[len(rows)-1].CreatedAt

	summary := &domain.Summary{
		ID:                idgen.New("sum"),
		Text:              b.String(),
		RangeStart:        rangeStart,
		RangeEnd:          rangeEnd,
		ObservationsCount: len(rows),
		CreatedAt:         time.Now(),
	}
	if err := s.store.Save(ctx, "summary", summaryEntity{summary}, 0, "summary_created"); err != nil {
		return nil, err
	}
	s.embedOrQueue(ctx, vector.CollectionObservations, summary.ID, summary.Text, map[string]string{"kind": "summary"})
	return summary, nil
}

func mustGetAll(ctx context.Context, s *Service, rows []TimelineRow) []domain.Observation {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	out, _ := s.Get(ctx, ids)
	return out
}

// --- store.Entity adapters ---

type memoryEntity struct{ *domain.Memory }

func (m memoryEntity) GetID() string { return m.ID }
func (m memoryEntity) GetVersion() int64 { return m.Version }
func (m memoryEntity) SetVersion(v int64) { m.Version = v }

type observationEntity struct{ *domain.Observation }

func (o observationEntity) GetID() string { return o.ID }
func (o observationEntity) GetVersion() int64 { return o.Version }
func (o observationEntity) SetVersion(v int64) { o.Version = v }

type summaryEntity struct{ *domain.Summary }

func (s summaryEntity) GetID() string { return s.ID }
func (s summaryEntity) GetVersion() int64 { return s.Version }
func (s summaryEntity) SetVersion(v int64) { s.Version = v }
