package graph

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/cwaproj/cwa/internal/cwaerr"
	"github.com/cwaproj/cwa/internal/domain"
	"github.com/cwaproj/cwa/internal/store"
)

// entity kinds walked in dependency order during a full rebuild: projects
// first, then contexts and the entities and glossary terms they contain,
// then specs, tasks, decisions, and memories.
var walkOrder = []string{"project", "context", "domainobject", "glossary", "spec", "task", "decision", "memory"}

var projectedKinds = func() map[string]bool {
	m := make(map[string]bool, len(walkOrder))
	for _, k := range walkOrder {
		m[k] = true
	}
	return m
}()

// Projector keeps a graph.Store synchronized with the primary store, either
// by a full rebuild or incrementally off the primary store's event stream.
type Projector struct {
	primary *store.Store
	graph   Store
	project string
	dirty   *dirtySet
}

// NewProjector builds a projector scoped to one project namespace.
func NewProjector(primary *store.Store, g Store, project string) *Projector {
	return &Projector{primary: primary, graph: g, project: project, dirty: newDirtySet()}
}

// DirtyCount reports how many entities are awaiting retry.
func (p *Projector) DirtyCount() int { return p.dirty.len() }

// SyncFull erases the project's subgraph and re-walks the primary store in
// dependency order, recording a content hash per entity so a subsequent
// incremental pass can detect drift.
func (p *Projector) SyncFull(ctx context.Context) error {
	if err := p.graph.EnsureConstraints(ctx); err != nil {
		return cwaerr.Wrap(cwaerr.Degraded, "ensuring graph constraints", err)
	}
	if err := p.graph.ClearProject(ctx, p.project); err != nil {
		return cwaerr.Wrap(cwaerr.Degraded, "clearing project subgraph", err)
	}

	for _, kind := range walkOrder {
		ids, err := p.primary.ListIDs(ctx, kind, 0, 100000)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := p.projectWithRetry(ctx, kind, id, true); err != nil {
				p.dirty.mark(kind, id)
			}
		}
	}
	return nil
}

// SyncIncremental drains the dirty set and retries each entry; callers
// typically invoke this periodically from the scheduler alongside event-
// driven OnEvent calls.
func (p *Projector) SyncIncremental(ctx context.Context) error {
	for _, k := range p.dirty.drain() {
		if err := p.projectWithRetry(ctx, k.Kind, k.ID, false); err != nil {
			p.dirty.mark(k.Kind, k.ID)
		}
	}
	return nil
}

// OnEvent reacts to a primary-store change event by recomputing and, if
// changed, re-upserting the affected entity's node and edges.
func (p *Projector) OnEvent(ctx context.Context, evt domain.Event) {
	kind, _ := evt.Payload["kind"].(string)
	id, _ := evt.Payload["id"].(string)
	// Sync-state saves publish events of their own; reacting to those (or to
	// any kind the projection doesn't model) would churn the graph forever.
	if id == "" || !projectedKinds[kind] {
		return
	}
	if err := p.projectWithRetry(ctx, kind, id, false); err != nil {
		p.dirty.mark(kind, id)
	}
}

// OnEventDelete removes a deleted entity's node from the graph projection,
// for callers (such as memory compaction) that delete entities outside the
// normal save path and so never raise a change event for OnEvent to pick up.
func (p *Projector) OnEventDelete(ctx context.Context, kind, id string) error {
	return p.graph.DeleteNode(ctx, nodeKind(kind), id)
}

// projectWithRetry attempts a project call up to 3 times with jittered
// backoff, matching the projector's failure semantics: transient store
// errors retry before the entity is parked in the dirty set.
func (p *Projector) projectWithRetry(ctx context.Context, kind, id string, force bool) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		if err = p.projectEntity(ctx, kind, id, force); err == nil {
			p.dirty.clear(kind, id)
			return nil
		}
		backoff := time.Duration(50*(1<<attempt)) * time.Millisecond
		backoff += time.Duration(rand.Intn(50)) * time.Millisecond
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (p *Projector) projectEntity(ctx context.Context, kind, id string, force bool) error {
	props, edges, err := p.loadEntity(ctx, kind, id)
	if err != nil {
		return err
	}
	if props == nil {
		return p.graph.DeleteNode(ctx, nodeKind(kind), id)
	}

	hash := ContentHash(props)
	var state domain.SyncState
	stateKey := fmt.Sprintf("%s:%s", kind, id)
	if err := p.primary.Get(ctx, "syncstate", stateKey, &state); err == nil {
		// The hash gate only applies to incremental syncs: a full-rebuild
		// walk starts from a cleared graph, so every entity must be
		// rewritten regardless of what the last sync recorded.
		if !force && state.ContentHash == hash {
			return nil
		}
	}

	if err := p.graph.UpsertNode(ctx, Node{Kind: nodeKind(kind), ID: id, Properties: props}); err != nil {
		return err
	}
	for label, es := range edges {
		if err := p.graph.ReplaceEdges(ctx, nodeKind(kind), id, label, es); err != nil {
			return err
		}
	}

	newState := syncStateEntity{&domain.SyncState{
		EntityKind:   kind,
		EntityID:     id,
		LastSyncedAt: time.Now(),
		SyncVersion:  state.SyncVersion + 1,
		ContentHash:  hash,
		Version:      state.Version,
	}}
	return p.primary.Save(ctx, "syncstate", newState, state.Version, "sync_state_updated")
}

// loadEntity reads an entity by kind/id from the primary store and returns
// its flattened string properties plus its outgoing edges grouped by label.
// A nil props map means the entity no longer exists (it should be removed
// from the graph).
func (p *Projector) loadEntity(ctx context.Context, kind, id string) (map[string]string, map[string][]Edge, error) {
	switch kind {
	case "project":
		var e domain.Project
		if err := p.primary.Get(ctx, kind, id, &e); err != nil {
			return nil, nil, nilIfNotFound(err)
		}
		return map[string]string{"name": e.Name, "description": e.Description}, nil, nil

	case "spec":
		var e domain.Spec
		if err := p.primary.Get(ctx, kind, id, &e); err != nil {
			return nil, nil, nilIfNotFound(err)
		}
		edges := map[string][]Edge{}
		if e.ContextID != "" {
			edges[EdgeBelongsTo] = []Edge{{FromKind: nodeKind(kind), FromID: id, ToKind: "BoundedContext", ToID: e.ContextID}}
		}
		for _, dep := range e.Dependencies {
			edges[EdgeDependsOn] = append(edges[EdgeDependsOn], Edge{FromKind: nodeKind(kind), FromID: id, ToKind: "Spec", ToID: dep})
		}
		return map[string]string{"title": e.Title, "status": e.Status, "priority": e.Priority}, edges, nil

	case "task":
		var e domain.Task
		if err := p.primary.Get(ctx, kind, id, &e); err != nil {
			return nil, nil, nilIfNotFound(err)
		}
		edges := map[string][]Edge{}
		if e.SpecID != "" {
			edges[EdgeImplements] = []Edge{{FromKind: nodeKind(kind), FromID: id, ToKind: "Spec", ToID: e.SpecID}}
		}
		return map[string]string{"title": e.Title, "status": e.Status, "priority": e.Priority}, edges, nil

	case "context":
		var e domain.BoundedContext
		if err := p.primary.Get(ctx, kind, id, &e); err != nil {
			return nil, nil, nilIfNotFound(err)
		}
		return map[string]string{"name": e.Name, "description": e.Description}, nil, nil

	case "domainobject":
		var e domain.DomainObject
		if err := p.primary.Get(ctx, kind, id, &e); err != nil {
			return nil, nil, nilIfNotFound(err)
		}
		edges := map[string][]Edge{}
		if e.ContextID != "" {
			edges[EdgeContains] = []Edge{{FromKind: "BoundedContext", FromID: e.ContextID, ToKind: nodeKind(kind), ToID: id}}
		}
		return map[string]string{"name": e.Name, "kind": e.Kind}, edges, nil

	case "glossary":
		var e domain.GlossaryTerm
		if err := p.primary.Get(ctx, kind, id, &e); err != nil {
			return nil, nil, nilIfNotFound(err)
		}
		edges := map[string][]Edge{}
		if e.ContextID != "" {
			edges[EdgeBelongsTo] = []Edge{{FromKind: nodeKind(kind), FromID: id, ToKind: "BoundedContext", ToID: e.ContextID}}
		}
		return map[string]string{"term": e.Term, "definition": e.Definition}, edges, nil

	case "decision":
		var e domain.Decision
		if err := p.primary.Get(ctx, kind, id, &e); err != nil {
			return nil, nil, nilIfNotFound(err)
		}
		edges := map[string][]Edge{}
		if e.Supersedes != "" {
			edges[EdgeRelatesTo] = append(edges[EdgeRelatesTo], Edge{FromKind: nodeKind(kind), FromID: id, ToKind: "Decision", ToID: e.Supersedes})
		}
		if relKind, relID, ok := splitRelatedEntity(e.RelatedEntity); ok {
			edges[EdgeRelatesTo] = append(edges[EdgeRelatesTo], Edge{FromKind: nodeKind(kind), FromID: id, ToKind: nodeKind(relKind), ToID: relID})
		}
		return map[string]string{"title": e.Title, "status": e.Status}, edges, nil

	case "memory":
		var e domain.Memory
		if err := p.primary.Get(ctx, kind, id, &e); err != nil {
			return nil, nil, nilIfNotFound(err)
		}
		return map[string]string{"kind": e.Kind, "content": e.Content}, nil, nil

	default:
		return nil, nil, nil
	}
}

func nilIfNotFound(err error) error {
	if e, ok := cwaerr.As(err); ok && e.Code == cwaerr.NotFound {
		return nil
	}
	return err
}

func nodeKind(kind string) string {
	switch kind {
	case "project":
		return "Project"
	case "spec":
		return "Spec"
	case "task":
		return "Task"
	case "context":
		return "BoundedContext"
	case "domainobject":
		return "DomainEntity"
	case "decision":
		return "Decision"
	case "memory":
		return "Memory"
	case "glossary":
		return "Term"
	default:
		return kind
	}
}

// splitRelatedEntity parses a Decision.RelatedEntity "kind:id" pair.
func splitRelatedEntity(s string) (kind, id string, ok bool) {
	i := strings.IndexByte(s, ':')
	if i <= 0 || i == len(s)-1 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}

// ImpactAnalysis traverses all outgoing and incoming edges from (kind, id)
// up to depth, returning the distinct reachable set ordered by hop then id.
func (p *Projector) ImpactAnalysis(ctx context.Context, kind, id string, depth int) ([]Hop, error) {
	return p.graph.Traverse(ctx, nodeKind(kind), id, depth)
}

// Neighborhood extracts a visualizable subgraph from (kind, id).
func (p *Projector) Neighborhood(ctx context.Context, kind, id string, depth int) (Subgraph, error) {
	return p.graph.Neighborhood(ctx, nodeKind(kind), id, depth)
}

// RawQuery passes a native query straight through to the underlying store.
func (p *Projector) RawQuery(ctx context.Context, query string, params map[string]any, timeout time.Duration, rowCap int) ([]map[string]any, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if rowCap <= 0 {
		rowCap = 10000
	}
	qctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.graph.RawQuery(qctx, query, params, rowCap)
}

// syncStateEntity adapts *domain.SyncState to store.Entity, keyed by
// "kind:id" rather than an id field of its own.
type syncStateEntity struct{ *domain.SyncState }

func (s syncStateEntity) GetID() string { return s.EntityKind + ":" + s.EntityID }
func (s syncStateEntity) GetVersion() int64 { return s.Version }
func (s syncStateEntity) SetVersion(v int64) { s.Version = v }
