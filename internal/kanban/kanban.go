// Package kanban implements the task board state machine: column
// transitions, per-column WIP enforcement, and sparse position management
// so that reordering a card rarely requires renumbering its neighbors.
package kanban

import (
	"context"
	"time"

	"github.com/cwaproj/cwa/internal/cwaerr"
	"github.com/cwaproj/cwa/internal/domain"
	"github.com/cwaproj/cwa/internal/guards"
	"github.com/cwaproj/cwa/internal/idgen"
	"github.com/cwaproj/cwa/internal/store"
	"github.com/cwaproj/cwa/internal/validation"
)

// positionGap is the spacing left between sibling positions so most inserts
// and reorders never need to touch another card.
const positionGap = 1000

// Board manages tasks for one project.
type Board struct {
	store    *store.Store
	defaults domain.KanbanConfig
	guards   *guards.Runner
	transit  *validation.Registry
}

// NewBoard builds a board over store. defaults supplies per-column WIP
// limits for columns never configured; limits set through SetWipLimit live
// in the store's kanban:wip hash and win over defaults, so they survive
// restarts.
func NewBoard(s *store.Store, defaults domain.KanbanConfig) *Board {
	return &Board{
		store:    s,
		defaults: defaults,
		guards:   guards.NewRunner(),
		transit:  validation.NewRegistry(),
	}
}

// limits merges stored kanban:wip entries over the default config: a stored
// value (including 0 = unlimited) always wins for its column.
func (b *Board) limits(ctx context.Context) (map[string]int, error) {
	stored, err := b.store.WipLimits(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(b.defaults.Limits)+len(stored))
	for column, limit := range b.defaults.Limits {
		out[column] = limit
	}
	for column, limit := range stored {
		out[column] = limit
	}
	return out, nil
}

// CreateTask inserts a new task at the end of its starting column (backlog
// unless status is given).
func (b *Board) CreateTask(ctx context.Context, title, description, priority, specID, status string) (*domain.Task, error) {
	if status == "" {
		status = domain.ColumnBacklog
	}
	pos, err := b.nextPosition(ctx, status)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	task := &domain.Task{
		ID:          idgen.New("task"),
		Title:       title,
		Description: description,
		Status:      status,
		Priority:    priority,
		SpecID:      specID,
		Position:    pos,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := b.store.Save(ctx, "task", taskEntity{task}, 0, domain.EventTaskCreated); err != nil {
		return nil, err
	}
	if err := b.store.SetTaskPosition(ctx, status, task.ID, pos); err != nil {
		return nil, err
	}
	return task, nil
}

// GetTask loads a task by id.
func (b *Board) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	var t domain.Task
	if err := b.store.Get(ctx, "task", id, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// MoveTask transitions a task to a new column, enforcing both the column
// transition table (forward skips allowed, restricted backward moves) and the
// column's WIP limit.
func (b *Board) MoveTask(ctx context.Context, id, toStatus string, force bool) (*domain.Task, error) {
	task, err := b.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	fromStatus := task.Status

	if err := b.transit.Validate("task", fromStatus, toStatus); err != nil {
		return nil, cwaerr.Wrap(cwaerr.InvalidTransition, err.Error(), err)
	}

	limits, err := b.limits(ctx)
	if err != nil {
		return nil, err
	}
	limit := limits[toStatus]
	count, err := b.store.ColumnCount(ctx, toStatus)
	if err != nil {
		return nil, err
	}
	outcome := b.guards.Run(ctx, &guards.GuardContext{
		TaskID:      id,
		FromColumn:  fromStatus,
		ToColumn:    toStatus,
		Force:       force,
		ColumnCount: int(count),
		WipLimit:    limit,
	}, guards.KanbanGuards())
	if outcome.Blocked {
		return nil, cwaerr.Newf(cwaerr.WipExceeded, "%s", outcome.FormatBlockMessage()).WithData(map[string]any{
			"column": toStatus,
			"limit":  limit,
		})
	}

	pos, err := b.nextPosition(ctx, toStatus)
	if err != nil {
		return nil, err
	}

	prevVersion := task.Version
	task.Status = toStatus
	task.Position = pos
	task.UpdatedAt = time.Now()

	if err := b.store.Save(ctx, "task", taskEntity{task}, prevVersion, domain.EventTaskMoved); err != nil {
		return nil, err
	}
	if err := b.store.RemoveTaskPosition(ctx, fromStatus, id); err != nil {
		return nil, err
	}
	if err := b.store.SetTaskPosition(ctx, toStatus, id, pos); err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateFields applies a partial update to a task's title, description, and
// priority, leaving status/position untouched (use MoveTask for status).
// Empty strings leave the corresponding field unchanged.
func (b *Board) UpdateFields(ctx context.Context, id, title, description, priority string) (*domain.Task, error) {
	task, err := b.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if title != "" {
		task.Title = title
	}
	if description != "" {
		task.Description = description
	}
	if priority != "" {
		task.Priority = priority
	}
	prevVersion := task.Version
	task.UpdatedAt = time.Now()
	if err := b.store.Save(ctx, "task", taskEntity{task}, prevVersion, domain.EventTaskUpdated); err != nil {
		return nil, err
	}
	return task, nil
}

// ListColumn returns the tasks in a column, ordered by position.
func (b *Board) ListColumn(ctx context.Context, status string) ([]*domain.Task, error) {
	ids, err := b.store.TaskIDsByStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	tasks := make([]*domain.Task, 0, len(ids))
	for _, id := range ids {
		t, err := b.GetTask(ctx, id)
		if err != nil {
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// WipStatus reports current card counts against configured limits for every
// column, including those with no limit (reported as Limit 0).
func (b *Board) WipStatus(ctx context.Context) (map[string]ColumnStatus, error) {
	limits, err := b.limits(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]ColumnStatus)
	for _, col := range []string{domain.ColumnBacklog, domain.ColumnTodo, domain.ColumnInProgress, domain.ColumnReview, domain.ColumnDone} {
		count, err := b.store.ColumnCount(ctx, col)
		if err != nil {
			return nil, err
		}
		out[col] = ColumnStatus{Count: int(count), Limit: limits[col]}
	}
	return out, nil
}

// SetWipLimit persists a column's WIP limit (0 = unlimited) in the primary
// store, where it overrides the board's default for that column.
func (b *Board) SetWipLimit(ctx context.Context, column string, limit int) error {
	return b.store.SetWipLimit(ctx, column, limit)
}

// ColumnStatus is a column's current occupancy against its configured limit.
type ColumnStatus struct {
	Count int `json:"count"`
	Limit int `json:"limit"`
}

// nextPosition allocates the next sparse position at the end of a column.
func (b *Board) nextPosition(ctx context.Context, status string) (int64, error) {
	max, err := b.store.MaxTaskPosition(ctx, status)
	if err != nil {
		return 0, err
	}
	return max + positionGap, nil
}

// Reorder moves a task to sit between beforeID and afterID within its
// current column (either may be empty to mean start/end of column). If the
// gap between neighbors has been exhausted by repeated reordering, the
// column is compacted to evenly spaced positions first.
func (b *Board) Reorder(ctx context.Context, id, beforeID, afterID string) error {
	task, err := b.GetTask(ctx, id)
	if err != nil {
		return err
	}

	ids, err := b.store.TaskIDsByStatus(ctx, task.Status)
	if err != nil {
		return err
	}
	positions := make(map[string]int64, len(ids))
	for _, tid := range ids {
		if tid == id {
			continue
		}
		t, err := b.GetTask(ctx, tid)
		if err != nil {
			continue
		}
		positions[tid] = t.Position
	}

	var lo, hi int64
	if beforeID != "" {
		lo = positions[beforeID]
	}
	if afterID != "" {
		hi = positions[afterID]
	} else {
		hi = lo + 2*positionGap
	}

	pos := lo + (hi-lo)/2
	if hi-lo < 2 {
		if err := b.compact(ctx, task.Status); err != nil {
			return err
		}
		return b.Reorder(ctx, id, beforeID, afterID)
	}

	prevVersion := task.Version
	task.Position = pos
	task.UpdatedAt = time.Now()
	if err := b.store.Save(ctx, "task", taskEntity{task}, prevVersion, domain.EventTaskMoved); err != nil {
		return err
	}
	return b.store.SetTaskPosition(ctx, task.Status, id, pos)
}

// compact renumbers every card in a column to evenly spaced positions,
// restoring room for inserts once repeated reordering has exhausted the gap
// between two neighbors.
func (b *Board) compact(ctx context.Context, status string) error {
	ids, err := b.store.TaskIDsByStatus(ctx, status)
	if err != nil {
		return err
	}
	for i, id := range ids {
		pos := int64(i+1) * positionGap
		t, err := b.GetTask(ctx, id)
		if err != nil {
			continue
		}
		prevVersion := t.Version
		t.Position = pos
		t.UpdatedAt = time.Now()
		if err := b.store.Save(ctx, "task", taskEntity{t}, prevVersion, domain.EventTaskMoved); err != nil {
			return err
		}
		if err := b.store.SetTaskPosition(ctx, status, id, pos); err != nil {
			return err
		}
	}
	return nil
}

// taskEntity adapts *domain.Task to store.Entity.
type taskEntity struct{ *domain.Task }

func (t taskEntity) GetID() string { return t.ID }
func (t taskEntity) GetVersion() int64 { return t.Version }
func (t taskEntity) SetVersion(v int64) { t.Version = v }
