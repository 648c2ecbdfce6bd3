// Package rules owns automation rule records: normalization,
// validation, sanitization, and the projection consumed by the
// condition evaluator.
package rules

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"

	"github.com/tempohq/tempo/internal/domain"
)

// Scheduler arms and disarms wall-clock scheduling for rules.
// *trigger.Manager satisfies this.
type Scheduler interface {
	RegisterRule(rule *domain.AutomationRule) error
	UnregisterRule(id uuid.UUID)
}

// Store owns AutomationRule records.
type Store struct {
	repo      domain.RuleRepository
	scheduler Scheduler // may be nil
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

func NewStore(repo domain.RuleRepository, scheduler Scheduler) *Store {
	return &Store{
		repo:      repo,
		scheduler: scheduler,
		sanitizer: bluemonday.StrictPolicy(),
		now:       time.Now,
	}
}

// SetClock overrides the store's time source. Intended for tests.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// Create normalizes, sanitizes, and validates a rule draft, then
// persists it. Enabled rules with a scheduled trigger are registered
// with the trigger manager's scheduler.
func (s *Store) Create(ctx context.Context, draft *domain.AutomationRule) (*domain.AutomationRule, error) {
	rule := Normalize(draft)
	result := s.ValidateAndSanitize(rule)
	if !result.IsValid {
		return nil, fmt.Errorf("rules.Store.Create: %s: %w", strings.Join(result.Errors, "; "), domain.ErrValidation)
	}

	now := s.now()
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	rule.ExecutionCount = 0
	rule.LastExecutedAt = nil
	rule.CreatedAt = now
	rule.UpdatedAt = now

	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, fmt.Errorf("rules.Store.Create: %w", err)
	}

	s.syncSchedule(rule)

	return rule, nil
}

// Get returns a rule by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*domain.AutomationRule, error) {
	rule, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("rules.Store.Get: %w", err)
	}

	return rule, nil
}

// List returns all rules ordered by priority (high first).
func (s *Store) List(ctx context.Context) ([]*domain.AutomationRule, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("rules.Store.List: %w", err)
	}

	return out, nil
}

// UpdateInput replaces the definition fields of a rule. Execution
// bookkeeping (ExecutionCount, LastExecutedAt) is not caller-writable.
type UpdateInput struct {
	Name        *string
	Description *string
	Enabled     *bool
	Trigger     *domain.Trigger
	Conditions  *domain.ConditionSet
	Actions     *[]domain.Action
	Priority    *int
}

// Update patches a rule, revalidates it, and re-syncs its scheduling
// registration (disable unregisters, trigger changes re-arm).
func (s *Store) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*domain.AutomationRule, error) {
	rule, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("rules.Store.Update: %w", err)
	}

	if in.Name != nil {
		rule.Name = *in.Name
	}
	if in.Description != nil {
		rule.Description = in.Description
	}
	if in.Enabled != nil {
		rule.Enabled = *in.Enabled
	}
	if in.Trigger != nil {
		rule.Trigger = *in.Trigger
	}
	if in.Conditions != nil {
		rule.Conditions = *in.Conditions
	}
	if in.Actions != nil {
		rule.Actions = *in.Actions
	}
	if in.Priority != nil {
		rule.Priority = *in.Priority
	}

	rule = Normalize(rule)
	result := s.ValidateAndSanitize(rule)
	if !result.IsValid {
		return nil, fmt.Errorf("rules.Store.Update: %s: %w", strings.Join(result.Errors, "; "), domain.ErrValidation)
	}

	rule.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, rule); err != nil {
		return nil, fmt.Errorf("rules.Store.Update: %w", err)
	}

	s.syncSchedule(rule)

	return rule, nil
}

// Delete removes a rule and cancels its scheduling handle.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("rules.Store.Delete: %w", err)
	}

	if s.scheduler != nil {
		s.scheduler.UnregisterRule(id)
	}

	return nil
}

// syncSchedule keeps the trigger manager's handle set consistent with
// the rule's current state. RegisterRule itself ignores disabled and
// non-scheduled rules, so unregister first.
func (s *Store) syncSchedule(rule *domain.AutomationRule) {
	if s.scheduler == nil {
		return
	}
	s.scheduler.UnregisterRule(rule.ID)
	if rule.Enabled && rule.Trigger.Type.Scheduled() {
		if err := s.scheduler.RegisterRule(rule); err != nil {
			log.Warn().Err(err).Stringer("rule_id", rule.ID).Msg("rule schedule registration failed")
		}
	}
}
