package kanban

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/cwaproj/cwa/internal/domain"
	"github.com/cwaproj/cwa/internal/store"
)

func tempBoard(t *testing.T) *Board {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	s := store.NewWithClient(client, "proj1")
	return NewBoard(s, domain.DefaultKanbanConfig())
}

func TestCreateAndMoveTask(t *testing.T) {
	b := tempBoard(t)
	ctx := context.Background()

	task, err := b.CreateTask(ctx, "write docs", "", domain.PriorityMedium, "", "")
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.Status != domain.ColumnBacklog {
		t.Fatalf("expected backlog, got %s", task.Status)
	}

	moved, err := b.MoveTask(ctx, task.ID, domain.ColumnTodo, false)
	if err != nil {
		t.Fatalf("MoveTask: %v", err)
	}
	if moved.Status != domain.ColumnTodo {
		t.Fatalf("expected todo, got %s", moved.Status)
	}
}

func TestMoveTaskAllowsForwardSkip(t *testing.T) {
	b := tempBoard(t)
	ctx := context.Background()

	task, err := b.CreateTask(ctx, "skip test", "", domain.PriorityLow, "", "")
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	// The pipeline is linear but transitions may skip forward; a
	// backlog→in_progress jump is legal so long as in_progress has room.
	moved, err := b.MoveTask(ctx, task.ID, domain.ColumnInProgress, false)
	if err != nil {
		t.Fatalf("expected backlog to skip forward to in_progress, got: %v", err)
	}
	if moved.Status != domain.ColumnInProgress {
		t.Fatalf("expected in_progress, got %s", moved.Status)
	}
}

func TestMoveTaskForwardSkipStillEnforcesWip(t *testing.T) {
	b := tempBoard(t)
	ctx := context.Background()
	if err := b.SetWipLimit(ctx, domain.ColumnInProgress, 1); err != nil {
		t.Fatalf("SetWipLimit: %v", err)
	}

	if _, err := b.CreateTask(ctx, "first", "", domain.PriorityLow, "", domain.ColumnInProgress); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	second, err := b.CreateTask(ctx, "second", "", domain.PriorityLow, "", domain.ColumnBacklog)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if _, err := b.MoveTask(ctx, second.ID, domain.ColumnInProgress, false); err == nil {
		t.Fatal("expected a forward skip into a full column to fail with WipExceeded")
	}
}

func TestMoveTaskRejectsBackwardToBacklog(t *testing.T) {
	b := tempBoard(t)
	ctx := context.Background()

	task, err := b.CreateTask(ctx, "backward test", "", domain.PriorityLow, "", domain.ColumnTodo)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	// Backward moves land only on todo or in_progress (or, from done, on
	// review); backlog is never a legal backward target.
	if _, err := b.MoveTask(ctx, task.ID, domain.ColumnBacklog, false); err == nil {
		t.Fatal("expected error moving todo backward to backlog")
	}
}

func TestMoveTaskReopensFromDone(t *testing.T) {
	b := tempBoard(t)
	ctx := context.Background()

	task, err := b.CreateTask(ctx, "reopen test", "", domain.PriorityLow, "", domain.ColumnDone)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	reopened, err := b.MoveTask(ctx, task.ID, domain.ColumnReview, false)
	if err != nil {
		t.Fatalf("expected done to re-open backward to review, got: %v", err)
	}
	if reopened.Status != domain.ColumnReview {
		t.Fatalf("expected review, got %s", reopened.Status)
	}

	// Having left done, the general backward rule applies: review may move
	// back to todo directly.
	backToTodo, err := b.MoveTask(ctx, task.ID, domain.ColumnTodo, false)
	if err != nil {
		t.Fatalf("expected review to move backward to todo, got: %v", err)
	}
	if backToTodo.Status != domain.ColumnTodo {
		t.Fatalf("expected todo, got %s", backToTodo.Status)
	}

	done2, err := b.CreateTask(ctx, "reopen test 2", "", domain.PriorityLow, "", domain.ColumnDone)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	// done's re-opening targets are review and in_progress only; a direct
	// done→todo move is not a legal re-open.
	if _, err := b.MoveTask(ctx, done2.ID, domain.ColumnTodo, false); err == nil {
		t.Fatal("expected done to reject a direct backward move to todo")
	}
}

func TestMoveTaskEnforcesWipLimit(t *testing.T) {
	b := tempBoard(t)
	ctx := context.Background()
	if err := b.SetWipLimit(ctx, domain.ColumnInProgress, 1); err != nil {
		t.Fatalf("SetWipLimit: %v", err)
	}

	first, err := b.CreateTask(ctx, "first", "", domain.PriorityLow, "", domain.ColumnTodo)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if _, err := b.MoveTask(ctx, first.ID, domain.ColumnInProgress, false); err != nil {
		t.Fatalf("MoveTask first: %v", err)
	}

	second, err := b.CreateTask(ctx, "second", "", domain.PriorityLow, "", domain.ColumnTodo)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if _, err := b.MoveTask(ctx, second.ID, domain.ColumnInProgress, false); err == nil {
		t.Fatal("expected WIP limit to block the second move")
	}
}

func TestWipLimitSurvivesBoardRebuild(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	s := store.NewWithClient(client, "proj1")
	ctx := context.Background()

	first := NewBoard(s, domain.DefaultKanbanConfig())
	if err := first.SetWipLimit(ctx, domain.ColumnTodo, 1); err != nil {
		t.Fatalf("SetWipLimit: %v", err)
	}

	// A fresh Board over the same store simulates a process restart: the
	// stored limit, not the default of 5, must govern the todo column.
	second := NewBoard(s, domain.DefaultKanbanConfig())
	if _, err := second.CreateTask(ctx, "first", "", domain.PriorityLow, "", domain.ColumnTodo); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	blocked, err := second.CreateTask(ctx, "second", "", domain.PriorityLow, "", domain.ColumnBacklog)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if _, err := second.MoveTask(ctx, blocked.ID, domain.ColumnTodo, false); err == nil {
		t.Fatal("expected the persisted todo limit of 1 to block the move")
	}

	status, err := second.WipStatus(ctx)
	if err != nil {
		t.Fatalf("WipStatus: %v", err)
	}
	if status[domain.ColumnTodo].Limit != 1 {
		t.Fatalf("expected todo limit 1 after rebuild, got %d", status[domain.ColumnTodo].Limit)
	}
}

func TestListColumnOrdering(t *testing.T) {
	b := tempBoard(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		task, err := b.CreateTask(ctx, "task", "", domain.PriorityLow, "", domain.ColumnBacklog)
		if err != nil {
			t.Fatalf("CreateTask: %v", err)
		}
		ids = append(ids, task.ID)
	}

	tasks, err := b.ListColumn(ctx, domain.ColumnBacklog)
	if err != nil {
		t.Fatalf("ListColumn: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
	for i, task := range tasks {
		if task.ID != ids[i] {
			t.Fatalf("expected order %v, got task %s at position %d", ids, task.ID, i)
		}
	}
}
