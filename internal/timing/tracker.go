// Package timing converts wall-clock time and manual entries into
// accumulated minutes on a task.
package timing

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tempohq/tempo/internal/domain"
	"github.com/tempohq/tempo/internal/task"
)

// MaxManualEntryMinutes caps a single manual entry at one day, inclusive.
const MaxManualEntryMinutes = 1440

// activeTimer is the single outstanding timer slot.
type activeTimer struct {
	taskID    uuid.UUID
	startedAt time.Time
}

// Tracker accounts work time against tasks. At most one timer is active
// per Tracker; Start enforces the stop-before-start protocol, so a
// stale timer is committed before a new one is armed.
type Tracker struct {
	tasks *task.Store
	now   func() time.Time

	mu     sync.Mutex
	active *activeTimer
}

func NewTracker(tasks *task.Store) *Tracker {
	return &Tracker{
		tasks: tasks,
		now:   time.Now,
	}
}

// SetClock overrides the tracker's time source. Intended for tests.
func (tr *Tracker) SetClock(now func() time.Time) { tr.now = now }

// Active returns the task id of the running timer, or false when idle.
func (tr *Tracker) Active() (uuid.UUID, bool) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if tr.active == nil {
		return uuid.Nil, false
	}
	return tr.active.taskID, true
}

// Start arms the timer for a task. A previously running timer is
// stopped first and its elapsed time committed; a failed commit (the
// old task may have been deleted meanwhile) is logged and does not
// block the new timer. A pending task is promoted to in_progress;
// other statuses are left unchanged.
func (tr *Tracker) Start(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	t, err := tr.tasks.Get(ctx, taskID, false)
	if err != nil {
		return nil, fmt.Errorf("timing.Tracker.Start: %w", err)
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()

	if tr.active != nil {
		staleID := tr.active.taskID
		if _, err := tr.commitLocked(ctx); err != nil {
			log.Warn().Err(err).Stringer("task_id", staleID).Msg("committing previous timer failed, elapsed time dropped")
		}
	}

	if t.Status == domain.TaskStatusPending {
		status := domain.TaskStatusInProgress
		t, err = tr.tasks.Update(ctx, taskID, task.UpdateInput{Status: &status})
		if err != nil {
			return nil, fmt.Errorf("timing.Tracker.Start: %w", err)
		}
	}

	tr.active = &activeTimer{taskID: taskID, startedAt: tr.now()}

	return t, nil
}

// Stop commits the running timer for taskID, adding the elapsed time
// (ceiling to whole minutes) to the task's timeSpent.
func (tr *Tracker) Stop(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if tr.active == nil {
		return nil, fmt.Errorf("timing.Tracker.Stop: %w", domain.ErrNoActiveTimer)
	}
	if tr.active.taskID != taskID {
		return nil, fmt.Errorf("timing.Tracker.Stop: %w", domain.ErrTimerMismatch)
	}

	t, err := tr.commitLocked(ctx)
	if err != nil {
		return nil, fmt.Errorf("timing.Tracker.Stop: %w", err)
	}

	return t, nil
}

// commitLocked stops the active timer and persists its elapsed minutes.
// Callers must hold tr.mu.
func (tr *Tracker) commitLocked(ctx context.Context) (*domain.Task, error) {
	a := tr.active
	tr.active = nil

	elapsed := tr.now().Sub(a.startedAt)
	minutes := int(math.Ceil(elapsed.Minutes()))
	if minutes < 0 {
		minutes = 0
	}

	t, err := tr.tasks.Get(ctx, a.taskID, false)
	if err != nil {
		return nil, err
	}

	spent := t.TimeSpent + minutes
	return tr.tasks.Update(ctx, a.taskID, task.UpdateInput{TimeSpent: &spent})
}

// AddManualEntry adds a manual time entry, rounded to the nearest
// minute. Entries must be positive, finite, and at most one day.
func (tr *Tracker) AddManualEntry(ctx context.Context, taskID uuid.UUID, minutes float64) (*domain.Task, error) {
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) || minutes <= 0 {
		return nil, fmt.Errorf("timing.Tracker.AddManualEntry: %w", domain.ErrInvalidTimeEntry)
	}
	if minutes > MaxManualEntryMinutes {
		return nil, fmt.Errorf("timing.Tracker.AddManualEntry: exceeds one day: %w", domain.ErrInvalidTimeEntry)
	}

	t, err := tr.tasks.Get(ctx, taskID, false)
	if err != nil {
		return nil, fmt.Errorf("timing.Tracker.AddManualEntry: %w", err)
	}

	rounded := int(math.Floor(minutes + 0.5))
	spent := t.TimeSpent + rounded

	t, err = tr.tasks.Update(ctx, taskID, task.UpdateInput{TimeSpent: &spent})
	if err != nil {
		return nil, fmt.Errorf("timing.Tracker.AddManualEntry: %w", err)
	}

	return t, nil
}
