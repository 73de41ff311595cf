package services

import (
	"context"

	"github.com/cwaproj/cwa/internal/domain"
	"github.com/cwaproj/cwa/internal/memory"
)

// ContextSummary is the root context digest: domain summary, active specs,
// recent decisions, current work, and recent high-confidence observations.
type ContextSummary struct {
	Project              *domain.Project      `json:"project"`
	ActiveSpecs          []*domain.Spec       `json:"active_specs"`
	RecentDecisions      []*domain.Decision   `json:"recent_decisions"`
	CurrentTask          *domain.Task         `json:"current_task,omitempty"`
	RecentHighConfidence []memory.TimelineRow `json:"recent_observations"`
}

// GetContextSummary assembles the root context digest used by the
// get_context_summary tool, the /api/context/summary route, and the codegen
// pipeline's root context file.
func (s *Services) GetContextSummary(ctx context.Context, projectID string) (*ContextSummary, error) {
	project, err := s.GetProjectInfo(ctx, projectID)
	if err != nil {
		return nil, err
	}
	specs, err := s.ListSpecs(ctx)
	if err != nil {
		return nil, err
	}
	var active []*domain.Spec
	for _, sp := range specs {
		if sp.Status == domain.SpecActive || sp.Status == domain.SpecInReview {
			active = append(active, sp)
		}
	}
	decisions, err := s.ListDecisions(ctx)
	if err != nil {
		return nil, err
	}
	if len(decisions) > 5 {
		decisions = decisions[len(decisions)-5:]
	}
	current, _ := s.GetCurrentTask(ctx)

	var highConfidence []memory.TimelineRow
	if s.Memory != nil {
		rows, err := s.Memory.Timeline(ctx, 7, 10)
		if err == nil {
			for _, r := range rows {
				if r.Confidence >= 0.7 {
					highConfidence = append(highConfidence, r)
				}
			}
		}
	}

	return &ContextSummary{
		Project:              project,
		ActiveSpecs:          active,
		RecentDecisions:      decisions,
		CurrentTask:          current,
		RecentHighConfidence: highConfidence,
	}, nil
}

// GetNextSteps suggests the task(s) an agent should pick up next: whatever
// sits at the front of in_progress, falling back to todo.
func (s *Services) GetNextSteps(ctx context.Context) ([]*domain.Task, error) {
	inProgress, err := s.Board.ListColumn(ctx, domain.ColumnInProgress)
	if err != nil {
		return nil, err
	}
	if len(inProgress) > 0 {
		return inProgress, nil
	}
	todo, err := s.Board.ListColumn(ctx, domain.ColumnTodo)
	if err != nil {
		return nil, err
	}
	limit := 3
	if len(todo) < limit {
		limit = len(todo)
	}
	return todo[:limit], nil
}

// CacheStatus reports rough freshness signals for the dashboard: pending
// embedding backlog size and graph dirty-entity count.
type CacheStatus struct {
	PendingEmbeddings int `json:"pending_embeddings"`
	GraphDirtyEntries int `json:"graph_dirty_entries"`
}

func (s *Services) GetCacheStatus(ctx context.Context) (*CacheStatus, error) {
	pending, err := s.Store.PendingEmbeddings(ctx)
	if err != nil {
		return nil, err
	}
	dirty := 0
	if s.Projector != nil {
		dirty = s.Projector.DirtyCount()
	}
	return &CacheStatus{PendingEmbeddings: len(pending), GraphDirtyEntries: dirty}, nil
}

// RenderLines formats the summary as plain prose lines for the codegen
// pipeline's root context file.
func (c *ContextSummary) RenderLines() []string {
	var lines []string
	if c.Project != nil {
		lines = append(lines, "Project: "+c.Project.Name)
	}
	for _, sp := range c.ActiveSpecs {
		lines = append(lines, "Active spec: "+sp.Title+" ("+sp.Status+")")
	}
	for _, d := range c.RecentDecisions {
		lines = append(lines, "Decision: "+d.Title)
	}
	if c.CurrentTask != nil {
		lines = append(lines, "Current task: "+c.CurrentTask.Title)
	}
	for _, o := range c.RecentHighConfidence {
		lines = append(lines, "Observation: "+o.Title)
	}
	return lines
}
