package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// Valid reports whether s is a recognized task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// Valid reports whether p is a recognized task priority.
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	default:
		return false
	}
}

type TaskContext string

const (
	TaskContextWork     TaskContext = "work"
	TaskContextPersonal TaskContext = "personal"
)

// Valid reports whether c is a recognized task context.
func (c TaskContext) Valid() bool {
	return c == TaskContextWork || c == TaskContextPersonal
}

type RecurrenceFreq string

const (
	RecurrenceDaily   RecurrenceFreq = "daily"
	RecurrenceWeekly  RecurrenceFreq = "weekly"
	RecurrenceMonthly RecurrenceFreq = "monthly"
)

// Recurrence describes how a completed task spawns its next occurrence.
// Interval is the number of Freq units between occurrences (min 1).
type Recurrence struct {
	Freq     RecurrenceFreq `json:"freq"`
	Interval int            `json:"interval"`
}

// NextDue advances a due date by one recurrence step.
func (r Recurrence) NextDue(from time.Time) time.Time {
	n := r.Interval
	if n < 1 {
		n = 1
	}
	switch r.Freq {
	case RecurrenceWeekly:
		return from.AddDate(0, 0, 7*n)
	case RecurrenceMonthly:
		return from.AddDate(0, n, 0)
	default:
		return from.AddDate(0, 0, n)
	}
}

// Task is the central record of the task graph. Dependencies and ParentID
// form two directed relations whose union is kept acyclic at all times.
type Task struct {
	ID           uuid.UUID
	Title        string
	Description  *string
	Status       TaskStatus
	Priority     TaskPriority
	Context      TaskContext
	Tags         []string
	DueDate      *time.Time
	TimeEstimate int // minutes
	TimeSpent    int // minutes
	Recurrence   *Recurrence
	ParentID     *uuid.UUID
	Dependencies []uuid.UUID
	CompletedAt  *time.Time
	DeletedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Deleted reports whether the task is soft-deleted (tombstoned).
func (t *Task) Deleted() bool { return t.DeletedAt != nil }

// HasDependency reports whether id is in the task's dependency set.
func (t *Task) HasDependency(id uuid.UUID) bool {
	for _, d := range t.Dependencies {
		if d == id {
			return true
		}
	}
	return false
}

// HasTag reports whether the task carries the given tag.
func (t *Task) HasTag(tag string) bool {
	for _, existing := range t.Tags {
		if existing == tag {
			return true
		}
	}
	return false
}

// TaskFilter narrows List results. Zero-valued fields do not filter.
// Soft-deleted tasks are excluded unless IncludeDeleted is set.
type TaskFilter struct {
	Status         TaskStatus
	Priority       TaskPriority
	Context        TaskContext
	ParentID       *uuid.UUID
	DueAfter       *time.Time
	DueBefore      *time.Time
	DueOrOverdue   bool // due date <= end of current day
	IncludeDeleted bool
}

type TaskRepository interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	List(ctx context.Context, filter TaskFilter) ([]*Task, error)
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id uuid.UUID) error
}
