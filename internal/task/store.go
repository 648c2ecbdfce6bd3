// Package task implements the task store: CRUD over task records,
// soft-delete lifecycle, and dependency/subtask relationship mutation
// under a combined-graph acyclicity invariant.
package task

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tempohq/tempo/internal/domain"
)

// Events receives task lifecycle notifications. Emission is
// fire-and-forget: a failing or panicking listener never fails the
// mutation that triggered it. *trigger.Manager satisfies this.
type Events interface {
	EmitTaskEvent(ctx context.Context, event string, t *domain.Task)
}

// Store owns task records and enforces the task-graph invariants.
type Store struct {
	repo   domain.TaskRepository
	events Events // may be nil
	now    func() time.Time
}

func NewStore(repo domain.TaskRepository, events Events) *Store {
	return &Store{
		repo:   repo,
		events: events,
		now:    time.Now,
	}
}

// SetClock overrides the store's time source. Intended for tests.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// CreateInput carries the caller-controlled fields of a new task.
// Zero-valued enums default to pending/medium/personal.
type CreateInput struct {
	ID           *uuid.UUID // caller-supplied id; normally nil
	Title        string
	Description  *string
	Status       domain.TaskStatus
	Priority     domain.TaskPriority
	Context      domain.TaskContext
	Tags         []string
	DueDate      *time.Time
	TimeEstimate int
	Recurrence   *domain.Recurrence
}

// Create validates and writes a new task record.
func (s *Store) Create(ctx context.Context, in CreateInput) (*domain.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("task.Store.Create: empty title: %w", domain.ErrValidation)
	}

	if in.Status == "" {
		in.Status = domain.TaskStatusPending
	}
	if in.Priority == "" {
		in.Priority = domain.TaskPriorityMedium
	}
	if in.Context == "" {
		in.Context = domain.TaskContextPersonal
	}
	if !in.Status.Valid() {
		return nil, fmt.Errorf("task.Store.Create: status %q: %w", in.Status, domain.ErrValidation)
	}
	if !in.Priority.Valid() {
		return nil, fmt.Errorf("task.Store.Create: priority %q: %w", in.Priority, domain.ErrValidation)
	}
	if !in.Context.Valid() {
		return nil, fmt.Errorf("task.Store.Create: context %q: %w", in.Context, domain.ErrValidation)
	}
	if in.TimeEstimate < 0 {
		return nil, fmt.Errorf("task.Store.Create: negative time estimate: %w", domain.ErrValidation)
	}

	id := uuid.New()
	if in.ID != nil {
		if *in.ID == uuid.Nil {
			return nil, fmt.Errorf("task.Store.Create: %w", domain.ErrInvalidID)
		}
		id = *in.ID
	}

	now := s.now()
	t := &domain.Task{
		ID:           id,
		Title:        title,
		Description:  in.Description,
		Status:       in.Status,
		Priority:     in.Priority,
		Context:      in.Context,
		Tags:         dedupeTags(in.Tags),
		DueDate:      in.DueDate,
		TimeEstimate: in.TimeEstimate,
		Recurrence:   in.Recurrence,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if t.Status == domain.TaskStatusCompleted {
		t.CompletedAt = &now
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("task.Store.Create: %w", err)
	}

	s.emit(ctx, domain.EventTaskCreated, t)

	return t, nil
}

// Get returns a task by id. Soft-deleted tasks are reported as not
// found unless includeDeleted is set.
func (s *Store) Get(ctx context.Context, id uuid.UUID, includeDeleted bool) (*domain.Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("task.Store.Get: %w", err)
	}
	if t.Deleted() && !includeDeleted {
		return nil, fmt.Errorf("task.Store.Get: %w", domain.ErrTaskNotFound)
	}

	return t, nil
}

// List returns tasks matching the filter, excluding soft-deleted tasks
// unless the filter opts in.
func (s *Store) List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error) {
	tasks, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("task.Store.List: %w", err)
	}

	return tasks, nil
}

// UpdateInput is a partial patch; nil fields are left unchanged.
// The task id itself is never patchable.
type UpdateInput struct {
	Title        *string
	Description  *string
	Status       *domain.TaskStatus
	Priority     *domain.TaskPriority
	Context      *domain.TaskContext
	Tags         *[]string
	DueDate      *time.Time
	ClearDueDate bool
	TimeEstimate *int
	TimeSpent    *int
	Recurrence   *domain.Recurrence
}

// Update applies a patch to a live (non-deleted) task. A status
// transition into completed stamps CompletedAt; transitioning away
// clears it.
func (s *Store) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*domain.Task, error) {
	t, err := s.getLive(ctx, "task.Store.Update", id)
	if err != nil {
		return nil, err
	}

	wasCompleted := t.Status == domain.TaskStatusCompleted

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, fmt.Errorf("task.Store.Update: empty title: %w", domain.ErrValidation)
		}
		t.Title = title
	}
	if in.Description != nil {
		t.Description = in.Description
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, fmt.Errorf("task.Store.Update: status %q: %w", *in.Status, domain.ErrValidation)
		}
		t.Status = *in.Status
	}
	if in.Priority != nil {
		if !in.Priority.Valid() {
			return nil, fmt.Errorf("task.Store.Update: priority %q: %w", *in.Priority, domain.ErrValidation)
		}
		t.Priority = *in.Priority
	}
	if in.Context != nil {
		if !in.Context.Valid() {
			return nil, fmt.Errorf("task.Store.Update: context %q: %w", *in.Context, domain.ErrValidation)
		}
		t.Context = *in.Context
	}
	if in.Tags != nil {
		t.Tags = dedupeTags(*in.Tags)
	}
	if in.ClearDueDate {
		t.DueDate = nil
	} else if in.DueDate != nil {
		t.DueDate = in.DueDate
	}
	if in.TimeEstimate != nil {
		if *in.TimeEstimate < 0 {
			return nil, fmt.Errorf("task.Store.Update: negative time estimate: %w", domain.ErrValidation)
		}
		t.TimeEstimate = *in.TimeEstimate
	}
	if in.TimeSpent != nil {
		if *in.TimeSpent < 0 {
			return nil, fmt.Errorf("task.Store.Update: negative time spent: %w", domain.ErrValidation)
		}
		t.TimeSpent = *in.TimeSpent
	}
	if in.Recurrence != nil {
		t.Recurrence = in.Recurrence
	}

	now := s.now()
	completed := t.Status == domain.TaskStatusCompleted
	switch {
	case completed && !wasCompleted:
		t.CompletedAt = &now
	case !completed && wasCompleted:
		t.CompletedAt = nil
	}
	t.UpdatedAt = now

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("task.Store.Update: %w", err)
	}

	s.emit(ctx, domain.EventTaskUpdated, t)
	if completed && !wasCompleted {
		s.emit(ctx, domain.EventTaskCompleted, t)
		s.spawnRecurrence(ctx, t)
	}

	return t, nil
}

// SoftDelete tombstones a task. Idempotent: re-deleting returns the
// existing tombstone unchanged.
func (s *Store) SoftDelete(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("task.Store.SoftDelete: %w", err)
	}
	if t.Deleted() {
		return t, nil
	}

	now := s.now()
	t.DeletedAt = &now
	t.Status = domain.TaskStatusCancelled
	t.CompletedAt = nil
	t.UpdatedAt = now

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("task.Store.SoftDelete: %w", err)
	}

	s.emit(ctx, domain.EventTaskDeleted, t)

	return t, nil
}

// Restore brings a tombstoned task back as pending. No-op for tasks
// that are not deleted.
func (s *Store) Restore(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("task.Store.Restore: %w", err)
	}
	if !t.Deleted() {
		return t, nil
	}

	t.DeletedAt = nil
	t.Status = domain.TaskStatusPending
	t.CompletedAt = nil
	t.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("task.Store.Restore: %w", err)
	}

	s.emit(ctx, domain.EventTaskRestored, t)

	return t, nil
}

// HardDelete irreversibly removes a task record. Dependents keep a
// dangling reference; the graph traversal tolerates those.
func (s *Store) HardDelete(ctx context.Context, id uuid.UUID) error {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("task.Store.HardDelete: %w", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("task.Store.HardDelete: %w", err)
	}

	s.emit(ctx, domain.EventTaskDeleted, t)

	return nil
}

func (s *Store) getLive(ctx context.Context, caller string, id uuid.UUID) (*domain.Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", caller, err)
	}
	if t.Deleted() {
		return nil, fmt.Errorf("%s: %w", caller, domain.ErrTaskNotFound)
	}

	return t, nil
}

func (s *Store) emit(ctx context.Context, event string, t *domain.Task) {
	if s.events == nil {
		return
	}
	s.events.EmitTaskEvent(ctx, event, t)
}

// spawnRecurrence creates the next occurrence of a recurring task.
// Best effort: a failed spawn is logged and never fails the completion.
func (s *Store) spawnRecurrence(ctx context.Context, t *domain.Task) {
	if t.Recurrence == nil {
		return
	}

	base := s.now()
	if t.DueDate != nil {
		base = *t.DueDate
	}
	due := t.Recurrence.NextDue(base)

	_, err := s.Create(ctx, CreateInput{
		Title:        t.Title,
		Description:  t.Description,
		Priority:     t.Priority,
		Context:      t.Context,
		Tags:         t.Tags,
		DueDate:      &due,
		TimeEstimate: t.TimeEstimate,
		Recurrence:   t.Recurrence,
	})
	if err != nil {
		log.Warn().Err(err).Stringer("task_id", t.ID).Msg("recurrence spawn failed")
	}
}

func dedupeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}

	return out
}
