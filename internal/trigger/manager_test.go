package trigger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tempohq/tempo/internal/domain"
	"github.com/tempohq/tempo/internal/trigger"
)

// ---------------------------------------------------------------------------
// fixtures
// ---------------------------------------------------------------------------

type mockRuleSource struct {
	mu      sync.Mutex
	rules   []*domain.AutomationRule
	updated []*domain.AutomationRule

	listErr error
}

func (m *mockRuleSource) ListEnabled(ctx context.Context) ([]*domain.AutomationRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]*domain.AutomationRule(nil), m.rules...), nil
}

func (m *mockRuleSource) Update(ctx context.Context, r *domain.AutomationRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updated = append(m.updated, r)
	return nil
}

func (m *mockRuleSource) updates() []*domain.AutomationRule {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.AutomationRule(nil), m.updated...)
}

func eventRule(tt domain.TriggerType) *domain.AutomationRule {
	return &domain.AutomationRule{
		ID:      uuid.New(),
		Name:    "rule " + string(tt),
		Enabled: true,
		Trigger: domain.Trigger{Type: tt},
		Actions: []domain.Action{{Type: domain.ActionAddTag, Params: map[string]any{"tag": "auto"}}},
	}
}

func cronRule(expr string) *domain.AutomationRule {
	r := eventRule(domain.TriggerTimeBased)
	r.Trigger.Config.Schedule = &domain.Schedule{Type: domain.ScheduleCustom, Expression: expr}
	return r
}

// recordingEvaluator counts evaluations and returns a fixed result.
type recordingEvaluator struct {
	mu    sync.Mutex
	seen  []uuid.UUID
	facts []map[string]any

	res trigger.Result
	err error
}

func (e *recordingEvaluator) fn(ctx context.Context, rule *domain.AutomationRule, facts map[string]any) (trigger.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seen = append(e.seen, rule.ID)
	e.facts = append(e.facts, facts)
	return e.res, e.err
}

func (e *recordingEvaluator) ids() []uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]uuid.UUID(nil), e.seen...)
}

// ---------------------------------------------------------------------------
// listener hub
// ---------------------------------------------------------------------------

func TestOn(t *testing.T) {
	t.Parallel()

	t.Run("unsubscribe removes one registration", func(t *testing.T) {
		t.Parallel()

		mgr := trigger.NewManager(nil)
		defer mgr.Cleanup()

		var calls int
		fn := func(ctx context.Context, payload any) { calls++ }

		// The same function registered twice counts as two listeners.
		off1 := mgr.On("ping", fn)
		mgr.On("ping", fn)

		mgr.Emit(context.Background(), "ping", nil)
		assert.Equal(t, 2, calls)

		off1()
		mgr.Emit(context.Background(), "ping", nil)
		assert.Equal(t, 3, calls)

		// Unsubscribing twice is harmless.
		off1()
		mgr.Emit(context.Background(), "ping", nil)
		assert.Equal(t, 4, calls)
	})

	t.Run("events are isolated by name", func(t *testing.T) {
		t.Parallel()

		mgr := trigger.NewManager(nil)
		defer mgr.Cleanup()

		var got []string
		mgr.On("a", func(ctx context.Context, payload any) { got = append(got, "a") })
		mgr.On("b", func(ctx context.Context, payload any) { got = append(got, "b") })

		mgr.Emit(context.Background(), "a", nil)
		assert.Equal(t, []string{"a"}, got)
	})
}

func TestEmit(t *testing.T) {
	t.Parallel()

	t.Run("panicking listener does not stop the rest", func(t *testing.T) {
		t.Parallel()

		mgr := trigger.NewManager(nil)
		defer mgr.Cleanup()

		var reached bool
		mgr.On("boom", func(ctx context.Context, payload any) { panic("listener bug") })
		mgr.On("boom", func(ctx context.Context, payload any) { reached = true })

		require.NotPanics(t, func() {
			mgr.Emit(context.Background(), "boom", nil)
		})
		assert.True(t, reached)
	})

	t.Run("no listeners is a no-op", func(t *testing.T) {
		t.Parallel()

		mgr := trigger.NewManager(nil)
		defer mgr.Cleanup()
		mgr.Emit(context.Background(), "nobody-home", struct{}{})
	})
}

func TestEmitTaskEvent(t *testing.T) {
	t.Parallel()

	mgr := trigger.NewManager(nil)
	defer mgr.Cleanup()

	var got trigger.TaskEvent
	mgr.On(domain.EventTaskCompleted, func(ctx context.Context, payload any) {
		te, ok := payload.(trigger.TaskEvent)
		require.True(t, ok)
		got = te
	})

	task := &domain.Task{ID: uuid.New(), Title: "ship it", Status: domain.TaskStatusCompleted}
	mgr.EmitTaskEvent(context.Background(), domain.EventTaskCompleted, task)

	assert.Equal(t, task, got.Task)
	assert.Equal(t, domain.TriggerTaskCompleted, got.TriggerType)
}

func TestEmitTaskEvent_UnmappedEvent(t *testing.T) {
	t.Parallel()

	mgr := trigger.NewManager(nil)
	defer mgr.Cleanup()

	var got trigger.TaskEvent
	mgr.On(domain.EventTaskRestored, func(ctx context.Context, payload any) {
		got = payload.(trigger.TaskEvent)
	})

	// Restore has no trigger type bound, so the payload carries none.
	mgr.EmitTaskEvent(context.Background(), domain.EventTaskRestored, &domain.Task{ID: uuid.New()})
	assert.Empty(t, got.TriggerType)
}

// ---------------------------------------------------------------------------
// event dispatch
// ---------------------------------------------------------------------------

func TestInitializeDispatch(t *testing.T) {
	t.Parallel()

	created := eventRule(domain.TriggerTaskCreated)
	completed := eventRule(domain.TriggerTaskCompleted)
	rules := &mockRuleSource{rules: []*domain.AutomationRule{created, completed}}

	mgr := trigger.NewManager(rules)
	defer mgr.Cleanup()
	eval := &recordingEvaluator{}
	mgr.SetRuleEvaluator(eval.fn)

	require.NoError(t, mgr.Initialize(context.Background()))

	// Only rules bound to the emitted event's trigger type run.
	task := &domain.Task{ID: uuid.New(), Status: domain.TaskStatusCompleted, Priority: domain.TaskPriorityHigh}
	mgr.EmitTaskEvent(context.Background(), domain.EventTaskCompleted, task)

	require.Equal(t, []uuid.UUID{completed.ID}, eval.ids())

	// A restored task fires no rules at all.
	mgr.EmitTaskEvent(context.Background(), domain.EventTaskRestored, task)
	assert.Len(t, eval.ids(), 1)
}

func TestActionEventsDoNotRedispatch(t *testing.T) {
	t.Parallel()

	rule := eventRule(domain.TriggerTaskUpdated)
	rules := &mockRuleSource{rules: []*domain.AutomationRule{rule}}

	mgr := trigger.NewManager(rules)
	defer mgr.Cleanup()

	task := &domain.Task{ID: uuid.New(), Status: domain.TaskStatusInProgress}

	// An evaluator whose action mutates the task re-emits the lifecycle
	// event under the evaluation context, like the task store does.
	// Without dispatch suppression this would recurse until the stack
	// overflows.
	var evaluations int
	mgr.SetRuleEvaluator(func(ctx context.Context, r *domain.AutomationRule, facts map[string]any) (trigger.Result, error) {
		evaluations++
		mgr.EmitTaskEvent(ctx, domain.EventTaskUpdated, task)
		return trigger.Result{Triggered: true}, nil
	})

	require.NoError(t, mgr.Initialize(context.Background()))

	mgr.EmitTaskEvent(context.Background(), domain.EventTaskUpdated, task)
	assert.Equal(t, 1, evaluations)

	// A fresh caller-originated event dispatches again as normal.
	mgr.EmitTaskEvent(context.Background(), domain.EventTaskUpdated, task)
	assert.Equal(t, 2, evaluations)
}

func TestInitialize_ListError(t *testing.T) {
	t.Parallel()

	rules := &mockRuleSource{listErr: errors.New("db down")}
	mgr := trigger.NewManager(rules)
	defer mgr.Cleanup()

	assert.Error(t, mgr.Initialize(context.Background()))
}

// ---------------------------------------------------------------------------
// rule execution
// ---------------------------------------------------------------------------

func TestExecuteRule(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.April, 10, 12, 0, 0, 0, time.UTC)

	t.Run("triggered match bumps bookkeeping and persists", func(t *testing.T) {
		t.Parallel()

		rules := &mockRuleSource{}
		mgr := trigger.NewManager(rules)
		defer mgr.Cleanup()
		mgr.SetClock(func() time.Time { return now })

		eval := &recordingEvaluator{res: trigger.Result{Triggered: true}}
		mgr.SetRuleEvaluator(eval.fn)

		rule := eventRule(domain.TriggerTaskCreated)
		mgr.ExecuteRule(context.Background(), rule, trigger.EventContext{})

		assert.Equal(t, 1, rule.ExecutionCount)
		require.NotNil(t, rule.LastExecutedAt)
		assert.Equal(t, now, *rule.LastExecutedAt)
		require.Len(t, rules.updates(), 1)
		assert.Equal(t, rule.ID, rules.updates()[0].ID)
	})

	t.Run("no match leaves bookkeeping alone", func(t *testing.T) {
		t.Parallel()

		rules := &mockRuleSource{}
		mgr := trigger.NewManager(rules)
		defer mgr.Cleanup()

		eval := &recordingEvaluator{}
		mgr.SetRuleEvaluator(eval.fn)

		rule := eventRule(domain.TriggerTaskCreated)
		mgr.ExecuteRule(context.Background(), rule, trigger.EventContext{})

		assert.Zero(t, rule.ExecutionCount)
		assert.Nil(t, rule.LastExecutedAt)
		assert.Empty(t, rules.updates())
	})

	t.Run("disabled rule is skipped", func(t *testing.T) {
		t.Parallel()

		mgr := trigger.NewManager(nil)
		defer mgr.Cleanup()

		eval := &recordingEvaluator{res: trigger.Result{Triggered: true}}
		mgr.SetRuleEvaluator(eval.fn)

		rule := eventRule(domain.TriggerTaskCreated)
		rule.Enabled = false
		mgr.ExecuteRule(context.Background(), rule, trigger.EventContext{})

		assert.Empty(t, eval.ids())
		assert.Zero(t, rule.ExecutionCount)
	})

	t.Run("evaluator error is swallowed", func(t *testing.T) {
		t.Parallel()

		rules := &mockRuleSource{}
		mgr := trigger.NewManager(rules)
		defer mgr.Cleanup()

		eval := &recordingEvaluator{err: errors.New("bad operator")}
		mgr.SetRuleEvaluator(eval.fn)

		rule := eventRule(domain.TriggerTaskCreated)
		mgr.ExecuteRule(context.Background(), rule, trigger.EventContext{})

		assert.Zero(t, rule.ExecutionCount)
		assert.Empty(t, rules.updates())
	})

	t.Run("evaluator panic does not escape", func(t *testing.T) {
		t.Parallel()

		mgr := trigger.NewManager(nil)
		defer mgr.Cleanup()
		mgr.SetRuleEvaluator(func(ctx context.Context, rule *domain.AutomationRule, facts map[string]any) (trigger.Result, error) {
			panic("evaluator bug")
		})

		rule := eventRule(domain.TriggerTaskCreated)
		require.NotPanics(t, func() {
			mgr.ExecuteRule(context.Background(), rule, trigger.EventContext{})
		})
	})
}

func TestBuildFacts(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.April, 10, 12, 0, 0, 0, time.UTC)
	mgr := trigger.NewManager(nil)
	defer mgr.Cleanup()
	mgr.SetClock(func() time.Time { return now })

	t.Run("empty context still carries a timestamp", func(t *testing.T) {
		t.Parallel()

		facts := mgr.BuildFacts(trigger.EventContext{})
		assert.Equal(t, map[string]any{"timestamp": now}, facts)
	})

	t.Run("task facts", func(t *testing.T) {
		t.Parallel()

		task := &domain.Task{
			ID:       uuid.New(),
			Title:    "water plants",
			Status:   domain.TaskStatusPending,
			Priority: domain.TaskPriorityLow,
		}
		facts := mgr.BuildFacts(trigger.EventContext{Task: task})

		assert.Equal(t, task, facts["task"])
		assert.Equal(t, task.ID, facts["taskId"])
		assert.Equal(t, "pending", facts["taskStatus"])
		assert.Equal(t, "low", facts["taskPriority"])
	})

	t.Run("auxiliary contexts", func(t *testing.T) {
		t.Parallel()

		facts := mgr.BuildFacts(trigger.EventContext{
			Exercise:     map[string]any{"kind": "run"},
			JournalEntry: map[string]any{"mood": "good"},
		})
		assert.Contains(t, facts, "exercise")
		assert.Contains(t, facts, "journalEntry")
		assert.NotContains(t, facts, "task")
	})
}

// ---------------------------------------------------------------------------
// scheduling
// ---------------------------------------------------------------------------

func TestRegisterRule(t *testing.T) {
	t.Parallel()

	t.Run("event-driven rules are ignored", func(t *testing.T) {
		t.Parallel()

		mgr := trigger.NewManager(nil)
		defer mgr.Cleanup()

		rule := eventRule(domain.TriggerTaskCreated)
		require.NoError(t, mgr.RegisterRule(rule))
		assert.False(t, mgr.Registered(rule.ID))
	})

	t.Run("disabled rules are ignored", func(t *testing.T) {
		t.Parallel()

		mgr := trigger.NewManager(nil)
		defer mgr.Cleanup()

		rule := cronRule("0 9 * * 1")
		rule.Enabled = false
		require.NoError(t, mgr.RegisterRule(rule))
		assert.False(t, mgr.Registered(rule.ID))
	})

	t.Run("scheduled rule arms a handle", func(t *testing.T) {
		t.Parallel()

		mgr := trigger.NewManager(nil)
		defer mgr.Cleanup()

		rule := cronRule("0 9 * * 1")
		require.NoError(t, mgr.RegisterRule(rule))
		assert.True(t, mgr.Registered(rule.ID))

		// Re-registering the same id keeps exactly one handle armed.
		require.NoError(t, mgr.RegisterRule(rule))
		assert.True(t, mgr.Registered(rule.ID))

		mgr.UnregisterRule(rule.ID)
		assert.False(t, mgr.Registered(rule.ID))

		// Unregistering again is a no-op.
		mgr.UnregisterRule(rule.ID)
	})

	t.Run("broken schedule is rejected", func(t *testing.T) {
		t.Parallel()

		mgr := trigger.NewManager(nil)
		defer mgr.Cleanup()

		rule := cronRule("not a cron line")
		err := mgr.RegisterRule(rule)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.False(t, mgr.Registered(rule.ID))
	})
}

func TestScheduledFiring(t *testing.T) {
	t.Parallel()

	rules := &mockRuleSource{}
	mgr := trigger.NewManager(rules)
	defer mgr.Cleanup()

	eval := &recordingEvaluator{res: trigger.Result{Triggered: true}}
	mgr.SetRuleEvaluator(eval.fn)

	rule := cronRule("@every 50ms")
	require.NoError(t, mgr.RegisterRule(rule))

	// The timer fires, evaluates, persists bookkeeping, and re-arms.
	require.Eventually(t, func() bool {
		return len(eval.ids()) >= 2
	}, 2*time.Second, 10*time.Millisecond)

	assert.True(t, mgr.Registered(rule.ID))
	updated := rules.updates()
	require.NotEmpty(t, updated)
	assert.Equal(t, rule.ID, updated[0].ID)
}

func TestUnregisterStopsFiring(t *testing.T) {
	t.Parallel()

	mgr := trigger.NewManager(nil)
	defer mgr.Cleanup()

	eval := &recordingEvaluator{res: trigger.Result{Triggered: true}}
	mgr.SetRuleEvaluator(eval.fn)

	rule := cronRule("@every 100ms")
	require.NoError(t, mgr.RegisterRule(rule))
	mgr.UnregisterRule(rule.ID)

	time.Sleep(300 * time.Millisecond)
	assert.Empty(t, eval.ids())
}

func TestCleanup(t *testing.T) {
	t.Parallel()

	mgr := trigger.NewManager(nil)

	var calls int
	mgr.On("ping", func(ctx context.Context, payload any) { calls++ })
	rule := cronRule("0 9 * * 1")
	require.NoError(t, mgr.RegisterRule(rule))

	mgr.Cleanup()

	assert.False(t, mgr.Registered(rule.ID))
	mgr.Emit(context.Background(), "ping", nil)
	assert.Zero(t, calls)

	// Idempotent.
	mgr.Cleanup()
}
