package services

import (
	"context"
	"time"

	"github.com/cwaproj/cwa/internal/domain"
	"github.com/cwaproj/cwa/internal/idgen"
)

type contextEntity struct{ *domain.BoundedContext }

func (c contextEntity) GetID() string { return c.ID }
func (c contextEntity) GetVersion() int64 { return c.Version }
func (c contextEntity) SetVersion(v int64) { c.Version = v }

type domainObjectEntity struct{ *domain.DomainObject }

func (d domainObjectEntity) GetID() string { return d.ID }
func (d domainObjectEntity) GetVersion() int64 { return d.Version }
func (d domainObjectEntity) SetVersion(v int64) { d.Version = v }

type glossaryEntity struct{ *domain.GlossaryTerm }

func (g glossaryEntity) GetID() string { return g.Term }
func (g glossaryEntity) GetVersion() int64 { return g.Version }
func (g glossaryEntity) SetVersion(v int64) { g.Version = v }

// CreateContext creates a new bounded context.
func (s *Services) CreateContext(ctx context.Context, name, description string) (*domain.BoundedContext, error) {
	now := time.Now()
	c := &domain.BoundedContext{ID: idgen.New("ctx"), Name: name, Description: description, CreatedAt: now, UpdatedAt: now}
	if err := s.Store.Save(ctx, "context", contextEntity{c}, 0, "context_created"); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateDomainObject adds an entity/value-object/aggregate/service/event to
// a bounded context.
func (s *Services) CreateDomainObject(ctx context.Context, contextID, kind, name string, invariants []string, properties map[string]string) (*domain.DomainObject, error) {
	now := time.Now()
	o := &domain.DomainObject{
		ID: idgen.New("dobj"), ContextID: contextID, Kind: kind, Name: name,
		Invariants: invariants, Properties: properties, CreatedAt: now, UpdatedAt: now,
	}
	if err := s.Store.Save(ctx, "domainobject", domainObjectEntity{o}, 0, "domain_object_created"); err != nil {
		return nil, err
	}
	return o, nil
}

// GetDomainModel returns every bounded context with its member domain
// objects attached.
type ContextWithObjects struct {
	Context *domain.BoundedContext `json:"context"`
	Objects []*domain.DomainObject `json:"objects"`
}

func (s *Services) GetDomainModel(ctx context.Context) ([]ContextWithObjects, error) {
	ctxIDs, err := s.Store.ListIDs(ctx, "context", 0, 10000)
	if err != nil {
		return nil, err
	}
	objIDs, err := s.Store.ListIDs(ctx, "domainobject", 0, 10000)
	if err != nil {
		return nil, err
	}
	objects := make([]*domain.DomainObject, 0, len(objIDs))
	for _, id := range objIDs {
		var o domain.DomainObject
		if err := s.Store.Get(ctx, "domainobject", id, &o); err == nil {
			objects = append(objects, &o)
		}
	}

	out := make([]ContextWithObjects, 0, len(ctxIDs))
	for _, id := range ctxIDs {
		var c domain.BoundedContext
		if err := s.Store.Get(ctx, "context", id, &c); err != nil {
			continue
		}
		var members []*domain.DomainObject
		for _, o := range objects {
			if o.ContextID == c.ID {
				members = append(members, o)
			}
		}
		out = append(out, ContextWithObjects{Context: &c, Objects: members})
	}
	return out, nil
}

// GetContextMap returns the upstream/downstream relationships between
// bounded contexts.
func (s *Services) GetContextMap(ctx context.Context) ([]*domain.BoundedContext, error) {
	ids, err := s.Store.ListIDs(ctx, "context", 0, 10000)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.BoundedContext, 0, len(ids))
	for _, id := range ids {
		var c domain.BoundedContext
		if err := s.Store.Get(ctx, "context", id, &c); err == nil {
			out = append(out, &c)
		}
	}
	return out, nil
}

// GetGlossary returns every glossary term.
func (s *Services) GetGlossary(ctx context.Context) ([]*domain.GlossaryTerm, error) {
	ids, err := s.Store.ListIDs(ctx, "glossary", 0, 10000)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.GlossaryTerm, 0, len(ids))
	for _, id := range ids {
		var g domain.GlossaryTerm
		if err := s.Store.Get(ctx, "glossary", id, &g); err == nil {
			out = append(out, &g)
		}
	}
	return out, nil
}

// AddGlossaryTerm defines (or redefines) a ubiquitous-language term.
func (s *Services) AddGlossaryTerm(ctx context.Context, term, definition string, aliases []string, contextID string) (*domain.GlossaryTerm, error) {
	now := time.Now()
	var existing domain.GlossaryTerm
	expectedVersion := int64(0)
	if err := s.Store.Get(ctx, "glossary", term, &existing); err == nil {
		expectedVersion = existing.Version
		now = existing.CreatedAt
	}
	g := &domain.GlossaryTerm{
		Term: term, Definition: definition, Aliases: aliases, ContextID: contextID,
		CreatedAt: now, UpdatedAt: time.Now(),
	}
	if err := s.Store.Save(ctx, "glossary", glossaryEntity{g}, expectedVersion, "glossary_updated"); err != nil {
		return nil, err
	}
	return g, nil
}

// --- Decisions ---

type decisionEntity struct{ *domain.Decision }

func (d decisionEntity) GetID() string { return d.ID }
func (d decisionEntity) GetVersion() int64 { return d.Version }
func (d decisionEntity) SetVersion(v int64) { d.Version = v }

// AddDecision records a new architectural decision. relatedEntity, if
// non-empty, is a "kind:id" pair the graph projector links to the decision
// with a RELATES_TO edge (e.g. "spec:S1").
func (s *Services) AddDecision(ctx context.Context, title, rationale string, alternatives []string, supersedes, relatedEntity string) (*domain.Decision, error) {
	now := time.Now()
	status := domain.DecisionAccepted
	d := &domain.Decision{
		ID: idgen.New("dec"), Title: title, Rationale: rationale, Alternatives: alternatives,
		Status: status, Supersedes: supersedes, RelatedEntity: relatedEntity, CreatedAt: now, UpdatedAt: now,
	}
	if err := s.Store.Save(ctx, "decision", decisionEntity{d}, 0, domain.EventDecisionAdded); err != nil {
		return nil, err
	}
	if supersedes != "" {
		var prev domain.Decision
		if err := s.Store.Get(ctx, "decision", supersedes, &prev); err == nil {
			prevVersion := prev.Version
			prev.Status = domain.DecisionSuperseded
			prev.UpdatedAt = time.Now()
			_ = s.Store.Save(ctx, "decision", decisionEntity{&prev}, prevVersion, domain.EventDecisionAdded)
		}
	}
	return d, nil
}

// ListDecisions returns every decision in creation order.
func (s *Services) ListDecisions(ctx context.Context) ([]*domain.Decision, error) {
	ids, err := s.Store.ListIDs(ctx, "decision", 0, 10000)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Decision, 0, len(ids))
	for _, id := range ids {
		var d domain.Decision
		if err := s.Store.Get(ctx, "decision", id, &d); err == nil {
			out = append(out, &d)
		}
	}
	return out, nil
}
