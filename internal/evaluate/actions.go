package evaluate

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tempohq/tempo/internal/domain"
	"github.com/tempohq/tempo/internal/notify"
	"github.com/tempohq/tempo/internal/task"
)

// ActionRunner dispatches a matched rule's actions against the task
// store. Each action is independently guarded: one failing action is
// logged and the rest still run.
type ActionRunner struct {
	tasks    *task.Store
	notifier *notify.Notifier // may be nil
}

func NewActionRunner(tasks *task.Store, notifier *notify.Notifier) *ActionRunner {
	return &ActionRunner{tasks: tasks, notifier: notifier}
}

// Run executes the rule's actions in order.
func (r *ActionRunner) Run(ctx context.Context, rule *domain.AutomationRule, facts map[string]any) {
	for i, action := range rule.Actions {
		if err := r.runOne(ctx, action, facts); err != nil {
			log.Warn().Err(err).
				Stringer("rule_id", rule.ID).
				Int("action", i).
				Str("type", string(action.Type)).
				Msg("automation action failed")
		}
	}
}

func (r *ActionRunner) runOne(ctx context.Context, action domain.Action, facts map[string]any) error {
	switch action.Type {
	case domain.ActionCategorizeTask:
		taskID, err := taskIDFromFacts(facts)
		if err != nil {
			return err
		}
		taskCtx := domain.TaskContext(stringParam(action.Params, "context"))
		_, err = r.tasks.Update(ctx, taskID, task.UpdateInput{Context: &taskCtx})
		return err

	case domain.ActionSetPriority:
		taskID, err := taskIDFromFacts(facts)
		if err != nil {
			return err
		}
		priority := domain.TaskPriority(stringParam(action.Params, "priority"))
		_, err = r.tasks.Update(ctx, taskID, task.UpdateInput{Priority: &priority})
		return err

	case domain.ActionAddTag:
		taskID, err := taskIDFromFacts(facts)
		if err != nil {
			return err
		}
		tag := stringParam(action.Params, "tag")
		t, err := r.tasks.Get(ctx, taskID, false)
		if err != nil {
			return err
		}
		if t.HasTag(tag) {
			return nil
		}
		tags := append(append([]string(nil), t.Tags...), tag)
		_, err = r.tasks.Update(ctx, taskID, task.UpdateInput{Tags: &tags})
		return err

	case domain.ActionUpdateTask:
		taskID, err := taskIDFromFacts(facts)
		if err != nil {
			return err
		}
		status := domain.TaskStatus(stringParam(action.Params, "status"))
		_, err = r.tasks.Update(ctx, taskID, task.UpdateInput{Status: &status})
		return err

	case domain.ActionCreateTask:
		in := task.CreateInput{Title: stringParam(action.Params, "title")}
		if v := stringParam(action.Params, "priority"); v != "" {
			in.Priority = domain.TaskPriority(v)
		}
		if v := stringParam(action.Params, "context"); v != "" {
			in.Context = domain.TaskContext(v)
		}
		_, err := r.tasks.Create(ctx, in)
		return err

	case domain.ActionNotify:
		if r.notifier == nil {
			return nil
		}
		return r.notifier.Notify(ctx, stringParam(action.Params, "message"))

	default:
		return fmt.Errorf("unrecognized action type %q: %w", action.Type, domain.ErrValidation)
	}
}

func taskIDFromFacts(facts map[string]any) (uuid.UUID, error) {
	switch id := facts["taskId"].(type) {
	case uuid.UUID:
		return id, nil
	case string:
		parsed, err := uuid.Parse(id)
		if err != nil {
			return uuid.Nil, fmt.Errorf("taskId fact: %w", domain.ErrInvalidID)
		}
		return parsed, nil
	default:
		return uuid.Nil, fmt.Errorf("missing taskId fact: %w", domain.ErrInvalidID)
	}
}

func stringParam(params map[string]any, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}
