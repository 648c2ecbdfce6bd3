// Package trigger is the automation engine's hub: it fans task and
// domain events out to listeners, arms wall-clock schedules for
// time-based rules, and delegates rule evaluation to an injected
// evaluator.
package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tempohq/tempo/internal/domain"
)

// TaskEvent is the payload emitted for task lifecycle events.
type TaskEvent struct {
	Task        *domain.Task
	TriggerType domain.TriggerType
}

// EventContext carries the facts source for rule evaluation. Unknown
// or absent fields simply produce no facts.
type EventContext struct {
	Task         *domain.Task
	Exercise     any
	JournalEntry any
}

// Result reports the outcome of a rule evaluation.
type Result struct {
	Triggered bool
}

// Evaluator decides whether a rule's conditions hold against a fact
// mapping, and on a match runs the rule's actions. The manager never
// depends on a concrete evaluation library.
type Evaluator func(ctx context.Context, rule *domain.AutomationRule, facts map[string]any) (Result, error)

// Listener receives event payloads from the hub.
type Listener func(ctx context.Context, payload any)

// RuleSource provides the rules the manager evaluates and persists
// execution bookkeeping on. domain.RuleRepository satisfies this.
type RuleSource interface {
	ListEnabled(ctx context.Context) ([]*domain.AutomationRule, error)
	Update(ctx context.Context, r *domain.AutomationRule) error
}

// listener wraps a callback so unsubscribe can remove by handle
// identity, allowing the same function to be registered twice.
type listener struct {
	fn Listener
}

// scheduleHandle is an armed wall-clock firing for one rule. Presence
// in the handle map is the liveness check: a fired timer that finds its
// handle gone does nothing.
type scheduleHandle struct {
	rule  *domain.AutomationRule
	timer *time.Timer
}

// Manager is the process-wide trigger hub. Lifecycle:
// Initialize -> active -> Cleanup (idempotent).
type Manager struct {
	mu        sync.Mutex
	listeners map[string][]*listener
	handles   map[uuid.UUID]*scheduleHandle
	evaluator Evaluator
	rules     RuleSource // may be nil
	now       func() time.Time
}

func NewManager(rules RuleSource) *Manager {
	return &Manager{
		listeners: make(map[string][]*listener),
		handles:   make(map[uuid.UUID]*scheduleHandle),
		evaluator: func(context.Context, *domain.AutomationRule, map[string]any) (Result, error) {
			return Result{}, nil
		},
		rules: rules,
		now:   time.Now,
	}
}

// SetClock overrides the manager's time source. Intended for tests.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// SetRuleEvaluator installs the evaluation strategy.
func (m *Manager) SetRuleEvaluator(fn Evaluator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if fn != nil {
		m.evaluator = fn
	}
}

// Initialize binds the manager to task lifecycle events and arms
// schedules for every enabled time-based rule.
func (m *Manager) Initialize(ctx context.Context) error {
	for _, tt := range domain.EventTriggerTypes() {
		m.On(tt.EventName(), m.handleTaskEvent)
	}

	if m.rules == nil {
		return nil
	}

	enabled, err := m.rules.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("trigger.Manager.Initialize: %w", err)
	}
	for _, rule := range enabled {
		if rule.Trigger.Type.Scheduled() {
			if err := m.RegisterRule(rule); err != nil {
				log.Warn().Err(err).Stringer("rule_id", rule.ID).Msg("rule schedule registration failed")
			}
		}
	}

	return nil
}

// On registers a listener for an event name. The returned function
// removes exactly that registration.
func (m *Manager) On(event string, fn Listener) func() {
	l := &listener{fn: fn}

	m.mu.Lock()
	m.listeners[event] = append(m.listeners[event], l)
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		current := m.listeners[event]
		for i, candidate := range current {
			if candidate == l {
				m.listeners[event] = append(current[:i:i], current[i+1:]...)
				return
			}
		}
	}
}

// Emit invokes every listener registered for the event, in
// registration order. Each listener is independently guarded: one
// panicking listener neither stops the rest nor reaches the caller.
func (m *Manager) Emit(ctx context.Context, event string, payload any) {
	m.mu.Lock()
	snapshot := append([]*listener(nil), m.listeners[event]...)
	m.mu.Unlock()

	for _, l := range snapshot {
		m.invoke(ctx, event, l.fn, payload)
	}
}

func (m *Manager) invoke(ctx context.Context, event string, fn Listener, payload any) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Str("event", event).Any("panic", r).Msg("event listener panicked")
		}
	}()
	fn(ctx, payload)
}

// EmitTaskEvent emits a TaskEvent payload on the given lifecycle event
// name. Satisfies the task store's Events collaborator.
func (m *Manager) EmitTaskEvent(ctx context.Context, event string, t *domain.Task) {
	payload := TaskEvent{Task: t}
	if tt, ok := domain.TriggerTypeForEvent(event); ok {
		payload.TriggerType = tt
	}
	m.Emit(ctx, event, payload)
}

// automationCtxKey marks contexts whose task mutations originate from
// a rule's own actions.
type automationCtxKey struct{}

func fromAutomation(ctx context.Context) bool {
	on, _ := ctx.Value(automationCtxKey{}).(bool)
	return on
}

// handleTaskEvent evaluates every enabled rule bound to the event's
// trigger type, in priority order. Events produced by a rule's own
// actions are not dispatched again: a rule whose action mutates its
// trigger task would otherwise recurse without bound.
func (m *Manager) handleTaskEvent(ctx context.Context, payload any) {
	if fromAutomation(ctx) {
		return
	}

	te, ok := payload.(TaskEvent)
	if !ok || m.rules == nil {
		return
	}

	enabled, err := m.rules.ListEnabled(ctx)
	if err != nil {
		log.Error().Err(err).Msg("listing rules for event dispatch")
		return
	}

	for _, rule := range enabled {
		if rule.Trigger.Type != te.TriggerType {
			continue
		}
		m.ExecuteRule(ctx, rule, EventContext{Task: te.Task})
	}
}

// RegisterRule arms a wall-clock schedule for an enabled time-based or
// schedule-based rule. Disabled rules and event-driven rules are
// ignored. Re-registering a rule id replaces the prior handle.
func (m *Manager) RegisterRule(rule *domain.AutomationRule) error {
	if !rule.Enabled || !rule.Trigger.Type.Scheduled() {
		return nil
	}

	next, err := NextFire(rule.Trigger.Config.Schedule, m.now())
	if err != nil {
		return fmt.Errorf("trigger.Manager.RegisterRule: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if prior, ok := m.handles[rule.ID]; ok {
		prior.timer.Stop()
	}

	id := rule.ID
	h := &scheduleHandle{rule: rule}
	h.timer = time.AfterFunc(time.Until(next), func() { m.fire(id) })
	m.handles[id] = h

	return nil
}

// UnregisterRule cancels and removes a rule's scheduling handle. It
// synchronously prevents an already-armed firing from invoking the
// evaluator; no-op when no handle exists.
func (m *Manager) UnregisterRule(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.handles[id]; ok {
		h.timer.Stop()
		delete(m.handles, id)
	}
}

// Registered reports whether a scheduling handle is armed for the rule.
func (m *Manager) Registered(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.handles[id]
	return ok
}

// fire runs a scheduled rule and re-arms its next occurrence. The
// handle map is re-checked under the lock so an unregister that raced
// the timer wins.
func (m *Manager) fire(id uuid.UUID) {
	m.mu.Lock()
	h, ok := m.handles[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	rule := h.rule

	if next, err := NextFire(rule.Trigger.Config.Schedule, m.now()); err == nil {
		h.timer = time.AfterFunc(time.Until(next), func() { m.fire(id) })
	} else {
		delete(m.handles, id)
		log.Warn().Err(err).Stringer("rule_id", id).Msg("rescheduling rule failed")
	}
	m.mu.Unlock()

	m.ExecuteRule(context.Background(), rule, EventContext{})
}

// BuildFacts projects an event context into the fact mapping handed to
// the evaluator. Always includes a "timestamp" fact.
func (m *Manager) BuildFacts(c EventContext) map[string]any {
	facts := map[string]any{
		"timestamp": m.now(),
	}
	if c.Task != nil {
		facts["task"] = c.Task
		facts["taskId"] = c.Task.ID
		facts["taskStatus"] = string(c.Task.Status)
		facts["taskPriority"] = string(c.Task.Priority)
	}
	if c.Exercise != nil {
		facts["exercise"] = c.Exercise
	}
	if c.JournalEntry != nil {
		facts["journalEntry"] = c.JournalEntry
	}

	return facts
}

// ExecuteRule evaluates a rule against the context's facts. Evaluator
// errors and panics are logged and swallowed: a misbehaving rule must
// not halt the hub or the scheduler. A triggering match bumps the
// rule's execution bookkeeping.
func (m *Manager) ExecuteRule(ctx context.Context, rule *domain.AutomationRule, c EventContext) {
	if !rule.Enabled {
		return
	}

	m.mu.Lock()
	evaluator := m.evaluator
	m.mu.Unlock()

	facts := m.BuildFacts(c)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Stringer("rule_id", rule.ID).Any("panic", r).Msg("rule evaluation panicked")
		}
	}()

	// Task mutations the evaluator's actions perform emit events of
	// their own; the marker keeps those out of rule dispatch.
	res, err := evaluator(context.WithValue(ctx, automationCtxKey{}, true), rule, facts)
	if err != nil {
		log.Warn().Err(err).Stringer("rule_id", rule.ID).Msg("rule evaluation failed")
		return
	}
	if !res.Triggered {
		return
	}

	now := m.now()
	rule.ExecutionCount++
	rule.LastExecutedAt = &now
	if m.rules != nil {
		if err := m.rules.Update(ctx, rule); err != nil {
			log.Warn().Err(err).Stringer("rule_id", rule.ID).Msg("persisting rule execution state failed")
		}
	}
}

// Cleanup cancels every scheduling handle and removes all listeners.
// Idempotent.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, h := range m.handles {
		h.timer.Stop()
		delete(m.handles, id)
	}
	m.listeners = make(map[string][]*listener)
}
