package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tempohq/tempo/internal/domain"
)

type TaskRepo struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*domain.Task
}

func NewTaskRepo() *TaskRepo {
	return &TaskRepo{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (r *TaskRepo) Create(_ context.Context, t *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[t.ID]; ok {
		return fmt.Errorf("memory.TaskRepo.Create: %w", domain.ErrDuplicateTask)
	}
	r.tasks[t.ID] = cloneTask(t)

	return nil
}

func (r *TaskRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("memory.TaskRepo.GetByID: %w", domain.ErrTaskNotFound)
	}

	return cloneTask(t), nil
}

func (r *TaskRepo) List(_ context.Context, filter domain.TaskFilter) ([]*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Task
	for _, t := range r.tasks {
		if matches(t, filter) {
			out = append(out, cloneTask(t))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

func (r *TaskRepo) Update(_ context.Context, t *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[t.ID]; !ok {
		return fmt.Errorf("memory.TaskRepo.Update: %w", domain.ErrTaskNotFound)
	}
	r.tasks[t.ID] = cloneTask(t)

	return nil
}

func (r *TaskRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return fmt.Errorf("memory.TaskRepo.Delete: %w", domain.ErrTaskNotFound)
	}
	delete(r.tasks, id)

	return nil
}

func matches(t *domain.Task, f domain.TaskFilter) bool {
	if t.Deleted() && !f.IncludeDeleted {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.Context != "" && t.Context != f.Context {
		return false
	}
	if f.ParentID != nil && (t.ParentID == nil || *t.ParentID != *f.ParentID) {
		return false
	}
	if f.DueAfter != nil && (t.DueDate == nil || t.DueDate.Before(*f.DueAfter)) {
		return false
	}
	if f.DueBefore != nil && (t.DueDate == nil || t.DueDate.After(*f.DueBefore)) {
		return false
	}
	if f.DueOrOverdue {
		if t.DueDate == nil {
			return false
		}
		if t.DueDate.After(endOfDay(time.Now())) {
			return false
		}
	}

	return true
}

func endOfDay(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), now.Location())
}

func cloneTask(t *domain.Task) *domain.Task {
	c := *t
	c.Tags = append([]string(nil), t.Tags...)
	c.Dependencies = append([]uuid.UUID(nil), t.Dependencies...)
	if t.Description != nil {
		desc := *t.Description
		c.Description = &desc
	}
	if t.DueDate != nil {
		due := *t.DueDate
		c.DueDate = &due
	}
	if t.Recurrence != nil {
		rec := *t.Recurrence
		c.Recurrence = &rec
	}
	if t.ParentID != nil {
		pid := *t.ParentID
		c.ParentID = &pid
	}
	if t.CompletedAt != nil {
		ts := *t.CompletedAt
		c.CompletedAt = &ts
	}
	if t.DeletedAt != nil {
		ts := *t.DeletedAt
		c.DeletedAt = &ts
	}

	return &c
}
