package task_test

import (
	"context"
	"time"

	"github.com/tempohq/tempo/internal/domain"
	"github.com/tempohq/tempo/internal/store/memory"
	"github.com/tempohq/tempo/internal/task"
)

// eventRecorder captures emitted lifecycle events in order.
type eventRecorder struct {
	events []recordedEvent
}

type recordedEvent struct {
	name string
	task *domain.Task
}

func (r *eventRecorder) EmitTaskEvent(_ context.Context, event string, t *domain.Task) {
	r.events = append(r.events, recordedEvent{name: event, task: t})
}

func (r *eventRecorder) names() []string {
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.name)
	}
	return out
}

// newStore wires a task store over the in-memory repo with a fixed
// clock and an event recorder.
func newStore() (*task.Store, *eventRecorder) {
	rec := &eventRecorder{}
	s := task.NewStore(memory.NewTaskRepo(), rec)
	s.SetClock(func() time.Time {
		return time.Date(2026, time.April, 10, 12, 0, 0, 0, time.UTC)
	})
	return s, rec
}

func mustCreate(s *task.Store, title string) *domain.Task {
	t, err := s.Create(context.Background(), task.CreateInput{Title: title})
	if err != nil {
		panic(err)
	}
	return t
}
