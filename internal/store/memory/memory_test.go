package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tempohq/tempo/internal/domain"
	"github.com/tempohq/tempo/internal/store/memory"
)

func newTask(title string, createdAt time.Time) *domain.Task {
	return &domain.Task{
		ID:        uuid.New(),
		Title:     title,
		Status:    domain.TaskStatusPending,
		Priority:  domain.TaskPriorityMedium,
		Context:   domain.TaskContextPersonal,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// ---------------------------------------------------------------------------
// TaskRepo
// ---------------------------------------------------------------------------

func TestTaskRepo_CRUD(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewTaskRepo()
	task := newTask("buy milk", time.Now())

	require.NoError(t, repo.Create(ctx, task))

	t.Run("duplicate id rejected", func(t *testing.T) {
		err := repo.Create(ctx, task)
		assert.ErrorIs(t, err, domain.ErrDuplicateTask)
	})

	t.Run("get returns a copy", func(t *testing.T) {
		got, err := repo.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "buy milk", got.Title)

		got.Title = "mutated"
		again, err := repo.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "buy milk", again.Title)
	})

	t.Run("update", func(t *testing.T) {
		task.Title = "buy oat milk"
		require.NoError(t, repo.Update(ctx, task))

		got, err := repo.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "buy oat milk", got.Title)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, task.ID))

		_, err := repo.GetByID(ctx, task.ID)
		assert.ErrorIs(t, err, domain.ErrTaskNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, task.ID), domain.ErrTaskNotFound)
		assert.ErrorIs(t, repo.Update(ctx, task), domain.ErrTaskNotFound)
	})
}

func TestTaskRepo_ListFilters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewTaskRepo()
	base := time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC)

	work := newTask("write report", base)
	work.Context = domain.TaskContextWork
	work.Priority = domain.TaskPriorityHigh

	overdue := newTask("pay rent", base.Add(time.Minute))
	past := time.Now().Add(-48 * time.Hour)
	overdue.DueDate = &past

	future := newTask("plan trip", base.Add(2*time.Minute))
	later := time.Now().Add(30 * 24 * time.Hour)
	future.DueDate = &later

	deleted := newTask("old chore", base.Add(3*time.Minute))
	deletedAt := time.Now()
	deleted.DeletedAt = &deletedAt

	for _, task := range []*domain.Task{work, overdue, future, deleted} {
		require.NoError(t, repo.Create(ctx, task))
	}

	t.Run("default excludes deleted, sorted by creation", func(t *testing.T) {
		out, err := repo.List(ctx, domain.TaskFilter{})
		require.NoError(t, err)
		require.Len(t, out, 3)
		assert.Equal(t, work.ID, out[0].ID)
		assert.Equal(t, overdue.ID, out[1].ID)
		assert.Equal(t, future.ID, out[2].ID)
	})

	t.Run("include deleted", func(t *testing.T) {
		out, err := repo.List(ctx, domain.TaskFilter{IncludeDeleted: true})
		require.NoError(t, err)
		assert.Len(t, out, 4)
	})

	t.Run("by context and priority", func(t *testing.T) {
		out, err := repo.List(ctx, domain.TaskFilter{
			Context:  domain.TaskContextWork,
			Priority: domain.TaskPriorityHigh,
		})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, work.ID, out[0].ID)
	})

	t.Run("due or overdue skips undated and future tasks", func(t *testing.T) {
		out, err := repo.List(ctx, domain.TaskFilter{DueOrOverdue: true})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, overdue.ID, out[0].ID)
	})

	t.Run("due window", func(t *testing.T) {
		from := time.Now().Add(-72 * time.Hour)
		to := time.Now()
		out, err := repo.List(ctx, domain.TaskFilter{DueAfter: &from, DueBefore: &to})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, overdue.ID, out[0].ID)
	})

	t.Run("by parent", func(t *testing.T) {
		parent := newTask("parent", base)
		child := newTask("child", base.Add(time.Hour))
		child.ParentID = &parent.ID
		require.NoError(t, repo.Create(ctx, parent))
		require.NoError(t, repo.Create(ctx, child))

		out, err := repo.List(ctx, domain.TaskFilter{ParentID: &parent.ID})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, child.ID, out[0].ID)
	})
}

// ---------------------------------------------------------------------------
// RuleRepo
// ---------------------------------------------------------------------------

func newRule(name string, enabled bool, priority int, createdAt time.Time) *domain.AutomationRule {
	return &domain.AutomationRule{
		ID:      uuid.New(),
		Name:    name,
		Enabled: enabled,
		Trigger: domain.Trigger{Type: domain.TriggerTaskCreated},
		Actions: []domain.Action{
			{Type: domain.ActionAddTag, Params: map[string]any{"tag": "auto"}},
		},
		Priority:  priority,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestRuleRepo_CRUD(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewRuleRepo()
	rule := newRule("tag new tasks", true, 0, time.Now())

	require.NoError(t, repo.Create(ctx, rule))

	got, err := repo.GetByID(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "tag new tasks", got.Name)

	rule.Name = "tag everything"
	require.NoError(t, repo.Update(ctx, rule))
	got, err = repo.GetByID(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "tag everything", got.Name)

	require.NoError(t, repo.Delete(ctx, rule.ID))
	_, err = repo.GetByID(ctx, rule.ID)
	assert.ErrorIs(t, err, domain.ErrRuleNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, rule.ID), domain.ErrRuleNotFound)
}

func TestRuleRepo_ListOrdering(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewRuleRepo()
	base := time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC)

	low := newRule("low", true, 1, base)
	high := newRule("high", true, 10, base.Add(time.Minute))
	disabled := newRule("disabled", false, 100, base.Add(2*time.Minute))

	for _, r := range []*domain.AutomationRule{low, high, disabled} {
		require.NoError(t, repo.Create(ctx, r))
	}

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Priority descending.
	assert.Equal(t, disabled.ID, all[0].ID)
	assert.Equal(t, high.ID, all[1].ID)
	assert.Equal(t, low.ID, all[2].ID)

	enabled, err := repo.ListEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, enabled, 2)
	assert.Equal(t, high.ID, enabled[0].ID)
	assert.Equal(t, low.ID, enabled[1].ID)
}
