package services

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwaproj/cwa/internal/cwaerr"
	"github.com/cwaproj/cwa/internal/domain"
	"github.com/cwaproj/cwa/internal/kanban"
	"github.com/cwaproj/cwa/internal/memory"
	"github.com/cwaproj/cwa/internal/store"
	"github.com/cwaproj/cwa/internal/vector"
)

func tempServices(t *testing.T) *Services {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	s := store.NewWithClient(client, "proj1")
	board := kanban.NewBoard(s, domain.DefaultKanbanConfig())

	vs, err := vector.Open(":memory:", 4)
	require.NoError(t, err)
	t.Cleanup(func() { vs.Close() })
	mem := memory.NewService(s, vs, nil)

	return New(s, board, mem, nil)
}

func TestCreateSpecAndUpdateStatus(t *testing.T) {
	svc := tempServices(t)
	ctx := context.Background()

	spec, err := svc.CreateSpec(ctx, "new feature", "desc", domain.PriorityHigh, []string{"works"}, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.SpecDraft, spec.Status)

	updated, err := svc.UpdateSpecStatus(ctx, spec.ID, domain.SpecActive)
	require.NoError(t, err)
	assert.Equal(t, domain.SpecActive, updated.Status)
}

func TestUpdateSpecStatusBlocksReviewWithoutCriteria(t *testing.T) {
	svc := tempServices(t)
	ctx := context.Background()

	spec, err := svc.CreateSpec(ctx, "bare spec", "", domain.PriorityLow, nil, nil)
	require.NoError(t, err)
	_, err = svc.UpdateSpecStatus(ctx, spec.ID, domain.SpecActive)
	require.NoError(t, err)

	_, err = svc.UpdateSpecStatus(ctx, spec.ID, domain.SpecInReview)
	require.Error(t, err, "a spec with no acceptance criteria must not enter review")

	_, err = svc.AddAcceptanceCriteria(ctx, spec.ID, "does the thing")
	require.NoError(t, err)
	reviewed, err := svc.UpdateSpecStatus(ctx, spec.ID, domain.SpecInReview)
	require.NoError(t, err)
	assert.Equal(t, domain.SpecInReview, reviewed.Status)
}

func TestGenerateTasksIsIdempotent(t *testing.T) {
	svc := tempServices(t)
	ctx := context.Background()

	spec, err := svc.CreateSpec(ctx, "big feature", "desc", domain.PriorityHigh,
		[]string{"criterion one", "criterion two"}, nil)
	require.NoError(t, err)

	tasks, errs := svc.GenerateTasks(ctx, spec.ID)
	require.Empty(t, errs)
	require.Len(t, tasks, 2)

	// Re-running should skip criteria that already have a task.
	tasks2, errs := svc.GenerateTasks(ctx, spec.ID)
	require.Empty(t, errs)
	assert.Empty(t, tasks2)

	all, err := svc.ListTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestArchiveSpecRejectsWhileTasksPending(t *testing.T) {
	svc := tempServices(t)
	ctx := context.Background()

	spec, err := svc.CreateSpec(ctx, "feature", "", domain.PriorityMedium, []string{"works"}, nil)
	require.NoError(t, err)
	tasks, errs := svc.GenerateTasks(ctx, spec.ID)
	require.Empty(t, errs)
	require.Len(t, tasks, 1)

	_, err = svc.ArchiveSpec(ctx, spec.ID)
	require.Error(t, err)
	e, ok := cwaerr.As(err)
	require.True(t, ok)
	assert.Equal(t, cwaerr.Conflict, e.Code)
	assert.Contains(t, e.Data, "task_ids")

	_, err = svc.UpdateTaskStatus(ctx, tasks[0].ID, domain.ColumnDone, false)
	require.NoError(t, err)
	archived, err := svc.ArchiveSpec(ctx, spec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SpecArchived, archived.Status)
}

func TestAddDecisionSupersedesPrior(t *testing.T) {
	svc := tempServices(t)
	ctx := context.Background()

	first, err := svc.AddDecision(ctx, "use postgres", "simplicity", nil, "", "")
	require.NoError(t, err)

	second, err := svc.AddDecision(ctx, "use redis", "latency", nil, first.ID, "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.Supersedes)

	decisions, err := svc.ListDecisions(ctx)
	require.NoError(t, err)
	var firstAfter *domain.Decision
	for _, d := range decisions {
		if d.ID == first.ID {
			firstAfter = d
		}
	}
	require.NotNil(t, firstAfter)
	assert.Equal(t, domain.DecisionSuperseded, firstAfter.Status)
}
