// Package services is the service layer shared by the MCP tool dispatcher
// and the HTTP dashboard facade: it owns every domain operation, backed by
// the primary store, the kanban board, the memory lifecycle, and the graph
// projector, so both surfaces present identical behavior.
package services

import (
	"context"
	"strconv"
	"time"

	"github.com/cwaproj/cwa/internal/cwaerr"
	"github.com/cwaproj/cwa/internal/domain"
	"github.com/cwaproj/cwa/internal/graph"
	"github.com/cwaproj/cwa/internal/guards"
	"github.com/cwaproj/cwa/internal/idgen"
	"github.com/cwaproj/cwa/internal/kanban"
	"github.com/cwaproj/cwa/internal/memory"
	"github.com/cwaproj/cwa/internal/store"
	"github.com/cwaproj/cwa/internal/validation"
)

// Services bundles every backing component the tool and HTTP surfaces call
// into. All fields are constructed once in cmd/cwa and passed in explicitly;
// there are no ambient singletons.
type Services struct {
	Store     *store.Store
	Board     *kanban.Board
	Memory    *memory.Service
	Projector *graph.Projector // nil when no graph store is configured
	transit   *validation.Registry
	guards    *guards.Runner
}

// New wires a Services bundle from already-constructed components.
func New(s *store.Store, board *kanban.Board, mem *memory.Service, proj *graph.Projector) *Services {
	return &Services{Store: s, Board: board, Memory: mem, Projector: proj,
		transit: validation.NewRegistry(), guards: guards.NewRunner()}
}

// --- Project ---

type projectEntity struct{ *domain.Project }

func (p projectEntity) GetID() string { return p.ID }
func (p projectEntity) GetVersion() int64 { return p.Version }
func (p projectEntity) SetVersion(v int64) { p.Version = v }

// GetProjectInfo returns the singleton project record for this namespace,
// creating a default one on first access.
func (s *Services) GetProjectInfo(ctx context.Context, id string) (*domain.Project, error) {
	var p domain.Project
	err := s.Store.Get(ctx, "project", id, &p)
	if e, ok := cwaerr.As(err); ok && e.Code == cwaerr.NotFound {
		now := time.Now()
		p = domain.Project{ID: id, Name: id, CreatedAt: now, UpdatedAt: now}
		if err := s.Store.Save(ctx, "project", projectEntity{&p}, 0, "project_created"); err != nil {
			return nil, err
		}
		return &p, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetTechStack returns the project's declared tech-stack tags.
func (s *Services) GetTechStack(ctx context.Context, id string) ([]string, error) {
	p, err := s.GetProjectInfo(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.TechStack, nil
}

// SetTechStack updates the project's declared tech-stack tags.
func (s *Services) SetTechStack(ctx context.Context, id string, tags []string) (*domain.Project, error) {
	p, err := s.GetProjectInfo(ctx, id)
	if err != nil {
		return nil, err
	}
	prevVersion := p.Version
	p.TechStack = tags
	p.UpdatedAt = time.Now()
	if err := s.Store.Save(ctx, "project", projectEntity{p}, prevVersion, "project_updated"); err != nil {
		return nil, err
	}
	return p, nil
}

// --- Spec ---

type specEntity struct{ *domain.Spec }

func (e specEntity) GetID() string { return e.ID }
func (e specEntity) GetVersion() int64 { return e.Version }
func (e specEntity) SetVersion(v int64) { e.Version = v }

// CreateSpec inserts a new spec in draft status.
func (s *Services) CreateSpec(ctx context.Context, title, description, priority string, acceptanceCriteria, dependencies []string) (*domain.Spec, error) {
	now := time.Now()
	spec := &domain.Spec{
		ID:                 idgen.New("spec"),
		Title:              title,
		Description:        description,
		Status:             domain.SpecDraft,
		Priority:           priority,
		AcceptanceCriteria: acceptanceCriteria,
		Dependencies:       dependencies,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.Store.Save(ctx, "spec", specEntity{spec}, 0, domain.EventSpecUpdated); err != nil {
		return nil, err
	}
	return spec, nil
}

// GetSpec loads a spec by id.
func (s *Services) GetSpec(ctx context.Context, id string) (*domain.Spec, error) {
	var sp domain.Spec
	if err := s.Store.Get(ctx, "spec", id, &sp); err != nil {
		return nil, err
	}
	return &sp, nil
}

// ListSpecs returns every spec in creation order.
func (s *Services) ListSpecs(ctx context.Context) ([]*domain.Spec, error) {
	ids, err := s.Store.ListIDs(ctx, "spec", 0, 10000)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Spec, 0, len(ids))
	for _, id := range ids {
		sp, err := s.GetSpec(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, sp)
	}
	return out, nil
}

// UpdateSpecStatus validates and applies a status transition.
func (s *Services) UpdateSpecStatus(ctx context.Context, id, status string) (*domain.Spec, error) {
	sp, err := s.GetSpec(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.transit.Validate("spec", sp.Status, status); err != nil {
		return nil, cwaerr.Wrap(cwaerr.InvalidTransition, err.Error(), err)
	}
	outcome := s.guards.Run(ctx, &guards.GuardContext{
		FromColumn:              sp.Status,
		ToColumn:                status,
		AcceptanceCriteriaCount: len(sp.AcceptanceCriteria),
	}, guards.SpecGuards())
	if outcome.Blocked {
		return nil, cwaerr.Newf(cwaerr.InvalidArguments, "%s", outcome.FormatBlockMessage())
	}
	prevVersion := sp.Version
	sp.Status = status
	sp.UpdatedAt = time.Now()
	if err := s.Store.Save(ctx, "spec", specEntity{sp}, prevVersion, domain.EventSpecUpdated); err != nil {
		return nil, err
	}
	return sp, nil
}

// AddAcceptanceCriteria appends a criterion to a spec.
func (s *Services) AddAcceptanceCriteria(ctx context.Context, id, criterion string) (*domain.Spec, error) {
	sp, err := s.GetSpec(ctx, id)
	if err != nil {
		return nil, err
	}
	prevVersion := sp.Version
	sp.AcceptanceCriteria = append(sp.AcceptanceCriteria, criterion)
	sp.UpdatedAt = time.Now()
	if err := s.Store.Save(ctx, "spec", specEntity{sp}, prevVersion, domain.EventSpecUpdated); err != nil {
		return nil, err
	}
	return sp, nil
}

// ArchiveSpec transitions a spec to archived. Archiving never cascades: if
// dependent tasks are not done, the call is rejected with Conflict citing
// the blocking task IDs, and the caller must complete or reassign them
// first.
func (s *Services) ArchiveSpec(ctx context.Context, id string) (*domain.Spec, error) {
	tasks, err := s.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	var blocking []string
	for _, t := range tasks {
		if t.SpecID == id && t.Status != domain.ColumnDone {
			blocking = append(blocking, t.ID)
		}
	}
	if len(blocking) > 0 {
		return nil, cwaerr.Newf(cwaerr.Conflict, "spec %q has %d dependent task(s) that are not done", id, len(blocking)).
			WithData(map[string]any{"task_ids": blocking})
	}
	return s.UpdateSpecStatus(ctx, id, domain.SpecArchived)
}

// ValidateSpec reports whether a spec is well-formed enough to move to
// in_review: it must have at least one acceptance criterion.
func (s *Services) ValidateSpec(ctx context.Context, id string) (bool, []string, error) {
	sp, err := s.GetSpec(ctx, id)
	if err != nil {
		return false, nil, err
	}
	var problems []string
	if len(sp.AcceptanceCriteria) == 0 {
		problems = append(problems, "spec has no acceptance criteria")
	}
	if sp.Title == "" {
		problems = append(problems, "spec has no title")
	}
	return len(problems) == 0, problems, nil
}

// GenerateTasks creates one task per acceptance criterion that doesn't
// already have one, identified by (spec_id, criterion_index). Re-running is
// idempotent: existing criteria are skipped. Partial failures are reported
// via the returned error slice rather than aborting the whole operation.
func (s *Services) GenerateTasks(ctx context.Context, specID string) ([]*domain.Task, []error) {
	sp, err := s.GetSpec(ctx, specID)
	if err != nil {
		return nil, []error{err}
	}

	existing, err := s.Store.ListIDs(ctx, "task", 0, 100000)
	if err != nil {
		return nil, []error{err}
	}
	seen := map[string]bool{}
	for _, id := range existing {
		var t domain.Task
		if err := s.Store.Get(ctx, "task", id, &t); err != nil {
			continue
		}
		if t.SpecID == specID {
			seen[t.Description] = true
		}
	}

	var tasks []*domain.Task
	var errs []error
	for i, criterion := range sp.AcceptanceCriteria {
		marker := criterionMarker(specID, i)
		if seen[marker] {
			continue
		}
		task, err := s.Board.CreateTask(ctx, criterion, marker, domain.PriorityMedium, specID, "")
		if err != nil {
			errs = append(errs, err)
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, errs
}

func criterionMarker(specID string, index int) string {
	return specID + "#criterion:" + strconv.Itoa(index)
}
