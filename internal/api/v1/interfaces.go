package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/tempohq/tempo/internal/domain"
	"github.com/tempohq/tempo/internal/rules"
	"github.com/tempohq/tempo/internal/task"
)

// TaskService abstracts the task store for handler testing.
// *task.Store satisfies this interface.
type TaskService interface {
	Create(ctx context.Context, in task.CreateInput) (*domain.Task, error)
	Get(ctx context.Context, id uuid.UUID, includeDeleted bool) (*domain.Task, error)
	List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error)
	Update(ctx context.Context, id uuid.UUID, in task.UpdateInput) (*domain.Task, error)
	SoftDelete(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	Restore(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	HardDelete(ctx context.Context, id uuid.UUID) error
	AddDependency(ctx context.Context, taskID, dependsOnID uuid.UUID) (*domain.Task, error)
	RemoveDependency(ctx context.Context, taskID, dependsOnID uuid.UUID) (*domain.Task, error)
	AddSubtask(ctx context.Context, childID, parentID uuid.UUID) (*domain.Task, error)
	RemoveSubtask(ctx context.Context, childID uuid.UUID) (*domain.Task, error)
	MoveSubtask(ctx context.Context, childID uuid.UUID, newParentID *uuid.UUID) (*domain.Task, error)
}

// TimeService abstracts the timer for handler testing.
// *timing.Tracker satisfies this interface.
type TimeService interface {
	Start(ctx context.Context, taskID uuid.UUID) (*domain.Task, error)
	Stop(ctx context.Context, taskID uuid.UUID) (*domain.Task, error)
	AddManualEntry(ctx context.Context, taskID uuid.UUID, minutes float64) (*domain.Task, error)
	Active() (uuid.UUID, bool)
}

// RuleService abstracts the automation rule store for handler testing.
// *rules.Store satisfies this interface.
type RuleService interface {
	Create(ctx context.Context, draft *domain.AutomationRule) (*domain.AutomationRule, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.AutomationRule, error)
	List(ctx context.Context) ([]*domain.AutomationRule, error)
	Update(ctx context.Context, id uuid.UUID, in rules.UpdateInput) (*domain.AutomationRule, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// AuthService abstracts authentication for handler testing.
// *auth.Service satisfies this interface.
type AuthService interface {
	Login(password string) (string, error)
}
