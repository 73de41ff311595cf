package services

import (
	"context"

	"github.com/cwaproj/cwa/internal/cwaerr"
	"github.com/cwaproj/cwa/internal/domain"
	"github.com/cwaproj/cwa/internal/kanban"
)

// CreateTask delegates to the kanban board, first enforcing that a declared
// spec_id refers to an existing, non-archived spec.
func (s *Services) CreateTask(ctx context.Context, title, description, priority, specID, status string) (*domain.Task, error) {
	if specID != "" {
		sp, err := s.GetSpec(ctx, specID)
		if err != nil {
			return nil, err
		}
		if sp.Status == domain.SpecArchived {
			return nil, cwaerr.Newf(cwaerr.InvalidArguments, "spec %q is archived", specID)
		}
	}
	return s.Board.CreateTask(ctx, title, description, priority, specID, status)
}

// GetTask delegates to the kanban board.
func (s *Services) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	return s.Board.GetTask(ctx, id)
}

// ListTasks returns every task across every column, ordered column by
// column in pipeline order.
func (s *Services) ListTasks(ctx context.Context) ([]*domain.Task, error) {
	var out []*domain.Task
	for _, col := range []string{domain.ColumnBacklog, domain.ColumnTodo, domain.ColumnInProgress, domain.ColumnReview, domain.ColumnDone} {
		tasks, err := s.Board.ListColumn(ctx, col)
		if err != nil {
			return nil, err
		}
		out = append(out, tasks...)
	}
	return out, nil
}

// GetCurrentTask returns the front (lowest-position) task in in_progress, or
// the front of todo if nothing is in progress.
func (s *Services) GetCurrentTask(ctx context.Context) (*domain.Task, error) {
	inProgress, err := s.Board.ListColumn(ctx, domain.ColumnInProgress)
	if err != nil {
		return nil, err
	}
	if len(inProgress) > 0 {
		return inProgress[0], nil
	}
	todo, err := s.Board.ListColumn(ctx, domain.ColumnTodo)
	if err != nil {
		return nil, err
	}
	if len(todo) > 0 {
		return todo[0], nil
	}
	return nil, nil
}

// UpdateTaskStatus moves a task across the board.
func (s *Services) UpdateTaskStatus(ctx context.Context, id, status string, force bool) (*domain.Task, error) {
	return s.Board.MoveTask(ctx, id, status, force)
}

// UpdateTaskFields applies a partial update to a task's title, description,
// and priority. Status changes go through UpdateTaskStatus so they pass the
// state machine and WIP guards.
func (s *Services) UpdateTaskFields(ctx context.Context, id, title, description, priority string) (*domain.Task, error) {
	return s.Board.UpdateFields(ctx, id, title, description, priority)
}

// ReorderTask repositions a task between two siblings in its current
// column, for drag-and-drop from the dashboard.
func (s *Services) ReorderTask(ctx context.Context, id, beforeID, afterID string) error {
	return s.Board.Reorder(ctx, id, beforeID, afterID)
}

// WipStatus reports occupancy against configured WIP limits per column.
func (s *Services) WipStatus(ctx context.Context) (map[string]kanban.ColumnStatus, error) {
	return s.Board.WipStatus(ctx)
}

// SetWipLimit persists a column's WIP limit.
func (s *Services) SetWipLimit(ctx context.Context, column string, limit int) error {
	return s.Board.SetWipLimit(ctx, column, limit)
}
