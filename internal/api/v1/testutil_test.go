package v1_test

import (
	"context"

	"github.com/google/uuid"

	"github.com/tempohq/tempo/internal/domain"
	"github.com/tempohq/tempo/internal/rules"
	"github.com/tempohq/tempo/internal/task"
)

// Function-field mocks for the handler service interfaces. Unset fields
// fail loudly if a handler unexpectedly reaches them.

type mockTaskService struct {
	createFunc           func(ctx context.Context, in task.CreateInput) (*domain.Task, error)
	getFunc              func(ctx context.Context, id uuid.UUID, includeDeleted bool) (*domain.Task, error)
	listFunc             func(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error)
	updateFunc           func(ctx context.Context, id uuid.UUID, in task.UpdateInput) (*domain.Task, error)
	softDeleteFunc       func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	restoreFunc          func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	hardDeleteFunc       func(ctx context.Context, id uuid.UUID) error
	addDependencyFunc    func(ctx context.Context, taskID, dependsOnID uuid.UUID) (*domain.Task, error)
	removeDependencyFunc func(ctx context.Context, taskID, dependsOnID uuid.UUID) (*domain.Task, error)
	addSubtaskFunc       func(ctx context.Context, childID, parentID uuid.UUID) (*domain.Task, error)
	removeSubtaskFunc    func(ctx context.Context, childID uuid.UUID) (*domain.Task, error)
	moveSubtaskFunc      func(ctx context.Context, childID uuid.UUID, newParentID *uuid.UUID) (*domain.Task, error)
}

func (m *mockTaskService) Create(ctx context.Context, in task.CreateInput) (*domain.Task, error) {
	return m.createFunc(ctx, in)
}

func (m *mockTaskService) Get(ctx context.Context, id uuid.UUID, includeDeleted bool) (*domain.Task, error) {
	return m.getFunc(ctx, id, includeDeleted)
}

func (m *mockTaskService) List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error) {
	return m.listFunc(ctx, filter)
}

func (m *mockTaskService) Update(ctx context.Context, id uuid.UUID, in task.UpdateInput) (*domain.Task, error) {
	return m.updateFunc(ctx, id, in)
}

func (m *mockTaskService) SoftDelete(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return m.softDeleteFunc(ctx, id)
}

func (m *mockTaskService) Restore(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return m.restoreFunc(ctx, id)
}

func (m *mockTaskService) HardDelete(ctx context.Context, id uuid.UUID) error {
	return m.hardDeleteFunc(ctx, id)
}

func (m *mockTaskService) AddDependency(ctx context.Context, taskID, dependsOnID uuid.UUID) (*domain.Task, error) {
	return m.addDependencyFunc(ctx, taskID, dependsOnID)
}

func (m *mockTaskService) RemoveDependency(ctx context.Context, taskID, dependsOnID uuid.UUID) (*domain.Task, error) {
	return m.removeDependencyFunc(ctx, taskID, dependsOnID)
}

func (m *mockTaskService) AddSubtask(ctx context.Context, childID, parentID uuid.UUID) (*domain.Task, error) {
	return m.addSubtaskFunc(ctx, childID, parentID)
}

func (m *mockTaskService) RemoveSubtask(ctx context.Context, childID uuid.UUID) (*domain.Task, error) {
	return m.removeSubtaskFunc(ctx, childID)
}

func (m *mockTaskService) MoveSubtask(ctx context.Context, childID uuid.UUID, newParentID *uuid.UUID) (*domain.Task, error) {
	return m.moveSubtaskFunc(ctx, childID, newParentID)
}

type mockTimeService struct {
	startFunc          func(ctx context.Context, taskID uuid.UUID) (*domain.Task, error)
	stopFunc           func(ctx context.Context, taskID uuid.UUID) (*domain.Task, error)
	addManualEntryFunc func(ctx context.Context, taskID uuid.UUID, minutes float64) (*domain.Task, error)
	activeFunc         func() (uuid.UUID, bool)
}

func (m *mockTimeService) Start(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	return m.startFunc(ctx, taskID)
}

func (m *mockTimeService) Stop(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	return m.stopFunc(ctx, taskID)
}

func (m *mockTimeService) AddManualEntry(ctx context.Context, taskID uuid.UUID, minutes float64) (*domain.Task, error) {
	return m.addManualEntryFunc(ctx, taskID, minutes)
}

func (m *mockTimeService) Active() (uuid.UUID, bool) {
	return m.activeFunc()
}

type mockRuleService struct {
	createFunc func(ctx context.Context, draft *domain.AutomationRule) (*domain.AutomationRule, error)
	getFunc    func(ctx context.Context, id uuid.UUID) (*domain.AutomationRule, error)
	listFunc   func(ctx context.Context) ([]*domain.AutomationRule, error)
	updateFunc func(ctx context.Context, id uuid.UUID, in rules.UpdateInput) (*domain.AutomationRule, error)
	deleteFunc func(ctx context.Context, id uuid.UUID) error
}

func (m *mockRuleService) Create(ctx context.Context, draft *domain.AutomationRule) (*domain.AutomationRule, error) {
	return m.createFunc(ctx, draft)
}

func (m *mockRuleService) Get(ctx context.Context, id uuid.UUID) (*domain.AutomationRule, error) {
	return m.getFunc(ctx, id)
}

func (m *mockRuleService) List(ctx context.Context) ([]*domain.AutomationRule, error) {
	return m.listFunc(ctx)
}

func (m *mockRuleService) Update(ctx context.Context, id uuid.UUID, in rules.UpdateInput) (*domain.AutomationRule, error) {
	return m.updateFunc(ctx, id, in)
}

func (m *mockRuleService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFunc(ctx, id)
}

type mockAuthService struct {
	loginFunc func(password string) (string, error)
}

func (m *mockAuthService) Login(password string) (string, error) {
	return m.loginFunc(password)
}
