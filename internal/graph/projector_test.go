package graph

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/cwaproj/cwa/internal/domain"
	"github.com/cwaproj/cwa/internal/store"
)

func tempProjector(t *testing.T) (*Projector, *store.Store, *fakeStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	s := store.NewWithClient(client, "proj1")
	g := newFakeStore()
	return NewProjector(s, g, "proj1"), s, g
}

type specEntity struct{ *domain.Spec }

func (s specEntity) GetID() string { return s.ID }
func (s specEntity) GetVersion() int64 { return s.Version }
func (s specEntity) SetVersion(v int64)   { s.Version = v }

type taskEntity struct{ *domain.Task }

func (t taskEntity) GetID() string { return t.ID }
func (t taskEntity) GetVersion() int64 { return t.Version }
func (t taskEntity) SetVersion(v int64)   { t.Version = v }

type decisionEntity struct{ *domain.Decision }

func (d decisionEntity) GetID() string { return d.ID }
func (d decisionEntity) GetVersion() int64 { return d.Version }
func (d decisionEntity) SetVersion(v int64) { d.Version = v }

type glossaryEntity struct{ *domain.GlossaryTerm }

func (g glossaryEntity) GetID() string { return g.Term }
func (g glossaryEntity) GetVersion() int64 { return g.Version }
func (g glossaryEntity) SetVersion(v int64) { g.Version = v }

func TestSyncFullProjectsNodesAndEdges(t *testing.T) {
	p, s, g := tempProjector(t)
	ctx := context.Background()

	spec := &domain.Spec{ID: "spec_1", Title: "do the thing", Status: domain.SpecActive}
	if err := s.Save(ctx, "spec", specEntity{spec}, 0, domain.EventSpecUpdated); err != nil {
		t.Fatalf("saving spec: %v", err)
	}
	task := &domain.Task{ID: "task_1", Title: "card", Status: domain.ColumnTodo, SpecID: "spec_1"}
	if err := s.Save(ctx, "task", taskEntity{task}, 0, domain.EventTaskCreated); err != nil {
		t.Fatalf("saving task: %v", err)
	}

	if err := p.SyncFull(ctx); err != nil {
		t.Fatalf("SyncFull: %v", err)
	}

	if _, ok := g.nodes[nodeID("Spec", "spec_1")]; !ok {
		t.Fatal("expected spec node to be projected")
	}
	if _, ok := g.nodes[nodeID("Task", "task_1")]; !ok {
		t.Fatal("expected task node to be projected")
	}
	edges := g.edges["Task:task_1:"+EdgeImplements]
	if len(edges) != 1 || edges[0].ToID != "spec_1" {
		t.Fatalf("expected task to implement spec_1, got %+v", edges)
	}
}

func TestSyncFullIsIdempotent(t *testing.T) {
	p, s, g := tempProjector(t)
	ctx := context.Background()

	spec := &domain.Spec{ID: "spec_1", Title: "x", Status: domain.SpecDraft}
	if err := s.Save(ctx, "spec", specEntity{spec}, 0, domain.EventSpecUpdated); err != nil {
		t.Fatalf("saving spec: %v", err)
	}
	task := &domain.Task{ID: "task_1", Title: "card", Status: domain.ColumnTodo, SpecID: "spec_1"}
	if err := s.Save(ctx, "task", taskEntity{task}, 0, domain.EventTaskCreated); err != nil {
		t.Fatalf("saving task: %v", err)
	}
	if err := p.SyncFull(ctx); err != nil {
		t.Fatalf("first SyncFull: %v", err)
	}
	if err := p.SyncFull(ctx); err != nil {
		t.Fatalf("second SyncFull: %v", err)
	}
	if p.DirtyCount() != 0 {
		t.Fatalf("expected no dirty entries, got %d", p.DirtyCount())
	}

	// A rebuild clears the subgraph first, so unchanged entities must be
	// rewritten on every walk — the content-hash gate must not suppress
	// them or the second rebuild leaves the graph empty.
	if _, ok := g.nodes[nodeID("Spec", "spec_1")]; !ok {
		t.Fatal("expected spec node to survive a second full rebuild")
	}
	if _, ok := g.nodes[nodeID("Task", "task_1")]; !ok {
		t.Fatal("expected task node to survive a second full rebuild")
	}
	edges := g.edges["Task:task_1:"+EdgeImplements]
	if len(edges) != 1 || edges[0].ToID != "spec_1" {
		t.Fatalf("expected IMPLEMENTS edge to survive a second full rebuild, got %+v", edges)
	}
}

func TestImpactAnalysis(t *testing.T) {
	p, s, _ := tempProjector(t)
	ctx := context.Background()

	spec := &domain.Spec{ID: "spec_1", Title: "x", Status: domain.SpecActive}
	if err := s.Save(ctx, "spec", specEntity{spec}, 0, domain.EventSpecUpdated); err != nil {
		t.Fatalf("saving spec: %v", err)
	}
	task := &domain.Task{ID: "task_1", Title: "card", Status: domain.ColumnTodo, SpecID: "spec_1"}
	if err := s.Save(ctx, "task", taskEntity{task}, 0, domain.EventTaskCreated); err != nil {
		t.Fatalf("saving task: %v", err)
	}
	if err := p.SyncFull(ctx); err != nil {
		t.Fatalf("SyncFull: %v", err)
	}

	hops, err := p.ImpactAnalysis(ctx, "task", "task_1", 2)
	if err != nil {
		t.Fatalf("ImpactAnalysis: %v", err)
	}
	if len(hops) != 1 || hops[0].ID != "spec_1" {
		t.Fatalf("expected one hop to spec_1, got %+v", hops)
	}
}

func TestSyncFullProjectsGlossaryTermAndDecisionRelatesTo(t *testing.T) {
	p, s, g := tempProjector(t)
	ctx := context.Background()

	term := &domain.GlossaryTerm{Term: "aggregate", Definition: "a consistency boundary"}
	if err := s.Save(ctx, "glossary", glossaryEntity{term}, 0, "glossary_updated"); err != nil {
		t.Fatalf("saving glossary term: %v", err)
	}

	first := &domain.Decision{ID: "dec_1", Title: "use postgres", Status: domain.DecisionAccepted}
	if err := s.Save(ctx, "decision", decisionEntity{first}, 0, domain.EventDecisionAdded); err != nil {
		t.Fatalf("saving decision: %v", err)
	}
	second := &domain.Decision{ID: "dec_2", Title: "use redis", Status: domain.DecisionAccepted, Supersedes: "dec_1", RelatedEntity: "glossary:aggregate"}
	if err := s.Save(ctx, "decision", decisionEntity{second}, 0, domain.EventDecisionAdded); err != nil {
		t.Fatalf("saving decision: %v", err)
	}

	if err := p.SyncFull(ctx); err != nil {
		t.Fatalf("SyncFull: %v", err)
	}

	if _, ok := g.nodes[nodeID("Term", "aggregate")]; !ok {
		t.Fatal("expected glossary term to be projected as a Term node")
	}

	edges := g.edges["Decision:dec_2:"+EdgeRelatesTo]
	if len(edges) != 2 {
		t.Fatalf("expected 2 RELATES_TO edges from dec_2, got %+v", edges)
	}
	var sawSupersedes, sawRelated bool
	for _, e := range edges {
		switch {
		case e.ToKind == "Decision" && e.ToID == "dec_1":
			sawSupersedes = true
		case e.ToKind == "Term" && e.ToID == "aggregate":
			sawRelated = true
		}
	}
	if !sawSupersedes {
		t.Fatalf("expected a RELATES_TO edge to the superseded decision, got %+v", edges)
	}
	if !sawRelated {
		t.Fatalf("expected a RELATES_TO edge to the related glossary term, got %+v", edges)
	}
}

func TestOnEventReprojectsChangedEntity(t *testing.T) {
	p, s, g := tempProjector(t)
	ctx := context.Background()

	spec := &domain.Spec{ID: "spec_1", Title: "v1", Status: domain.SpecDraft}
	if err := s.Save(ctx, "spec", specEntity{spec}, 0, domain.EventSpecUpdated); err != nil {
		t.Fatalf("saving spec: %v", err)
	}
	p.OnEvent(ctx, domain.Event{Type: domain.EventSpecUpdated, Payload: map[string]any{"kind": "spec", "id": "spec_1"}})

	node := g.nodes[nodeID("Spec", "spec_1")]
	if node.Properties["title"] != "v1" {
		t.Fatalf("expected title v1, got %+v", node)
	}

	spec.Status = domain.SpecActive
	spec.Title = "v2"
	if err := s.Save(ctx, "spec", specEntity{spec}, spec.Version, domain.EventSpecUpdated); err != nil {
		t.Fatalf("updating spec: %v", err)
	}
	p.OnEvent(ctx, domain.Event{Type: domain.EventSpecUpdated, Payload: map[string]any{"kind": "spec", "id": "spec_1"}})

	node = g.nodes[nodeID("Spec", "spec_1")]
	if node.Properties["title"] != "v2" {
		t.Fatalf("expected title v2 after update, got %+v", node)
	}
}
