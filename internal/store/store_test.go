package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type testTask struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Version int64  `json:"version"`
}

func (t *testTask) GetID() string { return t.ID }
func (t *testTask) GetVersion() int64 { return t.Version }
func (t *testTask) SetVersion(v int64)   { t.Version = v }

func tempStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewWithClient(client, "proj1")
}

func TestSaveAndGet(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	task := &testTask{ID: "task_abc", Title: "write docs"}
	if err := s.Save(ctx, "task", task, 0, "task_created"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if task.Version != 1 {
		t.Fatalf("expected version 1, got %d", task.Version)
	}

	var got testTask
	if err := s.Get(ctx, "task", "task_abc", &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "write docs" || got.Version != 1 {
		t.Fatalf("unexpected entity: %+v", got)
	}
}

func TestSaveConflict(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	task := &testTask{ID: "task_abc", Title: "v1"}
	if err := s.Save(ctx, "task", task, 0, "task_created"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	stale := &testTask{ID: "task_abc", Title: "stale edit"}
	err := s.Save(ctx, "task", stale, 0, "task_updated")
	if err == nil {
		t.Fatal("expected conflict error, got nil")
	}
}

func TestGetNotFound(t *testing.T) {
	s := tempStore(t)
	var got testTask
	err := s.Get(context.Background(), "task", "nope", &got)
	if err == nil {
		t.Fatal("expected not-found error, got nil")
	}
}

func TestListIDsOrdering(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	for _, id := range []string{"task_a", "task_b", "task_c"} {
		task := &testTask{ID: id, Title: id}
		if err := s.Save(ctx, "task", task, 0, "task_created"); err != nil {
			t.Fatalf("Save %s: %v", id, err)
		}
	}

	ids, err := s.ListIDs(ctx, "task", 0, 10)
	if err != nil {
		t.Fatalf("ListIDs: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 ids, got %d", len(ids))
	}
	for i, want := range []string{"task_a", "task_b", "task_c"} {
		if ids[i] != want {
			t.Fatalf("expected creation order [task_a task_b task_c], got %v", ids)
		}
	}
}

func TestTaskPositionIndex(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	if err := s.SetTaskPosition(ctx, "todo", "task_a", 1000); err != nil {
		t.Fatalf("SetTaskPosition: %v", err)
	}
	if err := s.SetTaskPosition(ctx, "todo", "task_b", 2000); err != nil {
		t.Fatalf("SetTaskPosition: %v", err)
	}

	ids, err := s.TaskIDsByStatus(ctx, "todo")
	if err != nil {
		t.Fatalf("TaskIDsByStatus: %v", err)
	}
	if len(ids) != 2 || ids[0] != "task_a" || ids[1] != "task_b" {
		t.Fatalf("unexpected order: %v", ids)
	}

	count, err := s.ColumnCount(ctx, "todo")
	if err != nil {
		t.Fatalf("ColumnCount: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}

	max, err := s.MaxTaskPosition(ctx, "todo")
	if err != nil {
		t.Fatalf("MaxTaskPosition: %v", err)
	}
	if max != 2000 {
		t.Fatalf("expected max 2000, got %d", max)
	}
}

func TestPublishSubscribe(t *testing.T) {
	s := tempStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := s.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := s.Publish(ctx, "task_created", map[string]any{"id": "task_a"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case evt := <-events:
		if evt.Type != "task_created" {
			t.Fatalf("unexpected event type: %s", evt.Type)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
}
