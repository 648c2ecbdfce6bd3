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

type RuleRepo struct {
	mu    sync.RWMutex
	rules map[uuid.UUID]*domain.AutomationRule
}

func NewRuleRepo() *RuleRepo {
	return &RuleRepo{rules: make(map[uuid.UUID]*domain.AutomationRule)}
}

func (r *RuleRepo) Create(_ context.Context, rule *domain.AutomationRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rules[rule.ID]; ok {
		return fmt.Errorf("memory.RuleRepo.Create: %w", domain.ErrValidation)
	}
	r.rules[rule.ID] = cloneRule(rule)

	return nil
}

func (r *RuleRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.AutomationRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.rules[id]
	if !ok {
		return nil, fmt.Errorf("memory.RuleRepo.GetByID: %w", domain.ErrRuleNotFound)
	}

	return cloneRule(rule), nil
}

func (r *RuleRepo) List(_ context.Context) ([]*domain.AutomationRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(func(*domain.AutomationRule) bool { return true }), nil
}

func (r *RuleRepo) ListEnabled(_ context.Context) ([]*domain.AutomationRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(func(rule *domain.AutomationRule) bool { return rule.Enabled }), nil
}

func (r *RuleRepo) Update(_ context.Context, rule *domain.AutomationRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rules[rule.ID]; !ok {
		return fmt.Errorf("memory.RuleRepo.Update: %w", domain.ErrRuleNotFound)
	}
	r.rules[rule.ID] = cloneRule(rule)

	return nil
}

func (r *RuleRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rules[id]; !ok {
		return fmt.Errorf("memory.RuleRepo.Delete: %w", domain.ErrRuleNotFound)
	}
	delete(r.rules, id)

	return nil
}

// collect returns matching rules sorted by priority (high first), then
// creation time. Callers must hold at least a read lock.
func (r *RuleRepo) collect(keep func(*domain.AutomationRule) bool) []*domain.AutomationRule {
	var out []*domain.AutomationRule
	for _, rule := range r.rules {
		if keep(rule) {
			out = append(out, cloneRule(rule))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out
}

func cloneRule(r *domain.AutomationRule) *domain.AutomationRule {
	c := *r
	if r.Description != nil {
		desc := *r.Description
		c.Description = &desc
	}
	if r.Trigger.Config.Schedule != nil {
		sched := *r.Trigger.Config.Schedule
		sched.Weekdays = append([]time.Weekday(nil), r.Trigger.Config.Schedule.Weekdays...)
		c.Trigger.Config.Schedule = &sched
	}
	c.Conditions.All = append([]domain.Condition(nil), r.Conditions.All...)
	c.Actions = make([]domain.Action, len(r.Actions))
	for i, a := range r.Actions {
		params := make(map[string]any, len(a.Params))
		for k, v := range a.Params {
			params[k] = v
		}
		c.Actions[i] = domain.Action{Type: a.Type, Params: params}
	}
	if r.LastExecutedAt != nil {
		ts := *r.LastExecutedAt
		c.LastExecutedAt = &ts
	}

	return &c
}
