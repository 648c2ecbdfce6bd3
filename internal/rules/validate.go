package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/tempohq/tempo/internal/domain"
)

// ValidationResult reports rule-shape validation. Errors holds one
// human-readable message per violation.
type ValidationResult struct {
	IsValid bool
	Errors  []string
}

// timeOfDayRe matches the "HH:MM" 24-hour form used by daily and
// weekly schedules.
var timeOfDayRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Normalize fills rule defaults on a copy of the draft: trigger type
// task-created, empty conjunction, priority and counters zeroed where
// unset. It never mutates its argument: the conditions slice is copied
// so later sanitization cannot write through to the draft.
func Normalize(draft *domain.AutomationRule) *domain.AutomationRule {
	rule := *draft

	if rule.Trigger.Type == "" {
		rule.Trigger.Type = domain.TriggerTaskCreated
	}
	rule.Conditions.All = append([]domain.Condition{}, draft.Conditions.All...)
	if rule.Actions == nil {
		rule.Actions = []domain.Action{}
	}

	return &rule
}

// Validate checks a rule's shape: non-empty name, recognized trigger
// type with its required config, non-empty recognized actions, and
// well-formed conditions.
func Validate(rule *domain.AutomationRule) ValidationResult {
	var errs []string

	if strings.TrimSpace(rule.Name) == "" {
		errs = append(errs, "name must not be empty")
	}

	if !rule.Trigger.Type.Valid() {
		errs = append(errs, fmt.Sprintf("unrecognized trigger type %q", rule.Trigger.Type))
	} else if rule.Trigger.Type.Scheduled() {
		errs = append(errs, validateSchedule(rule.Trigger.Config.Schedule)...)
	}

	if len(rule.Actions) == 0 {
		errs = append(errs, "at least one action is required")
	}
	for i, action := range rule.Actions {
		if !action.Type.Valid() {
			errs = append(errs, fmt.Sprintf("action %d: unrecognized type %q", i, action.Type))
			continue
		}
		for _, param := range action.Type.RequiredParams() {
			if _, ok := action.Params[param]; !ok {
				errs = append(errs, fmt.Sprintf("action %d: missing param %q", i, param))
			}
		}
	}

	for i, cond := range rule.Conditions.All {
		if strings.TrimSpace(cond.Fact) == "" {
			errs = append(errs, fmt.Sprintf("condition %d: fact must not be empty", i))
		}
		if strings.TrimSpace(cond.Operator) == "" {
			errs = append(errs, fmt.Sprintf("condition %d: operator must not be empty", i))
		}
	}

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

func validateSchedule(sched *domain.Schedule) []string {
	if sched == nil {
		return []string{"scheduled trigger requires a schedule config"}
	}

	var errs []string
	switch sched.Type {
	case domain.ScheduleDaily:
		if !timeOfDayRe.MatchString(sched.Time) {
			errs = append(errs, fmt.Sprintf("daily schedule time %q must be HH:MM", sched.Time))
		}
	case domain.ScheduleWeekly:
		if !timeOfDayRe.MatchString(sched.Time) {
			errs = append(errs, fmt.Sprintf("weekly schedule time %q must be HH:MM", sched.Time))
		}
		if len(sched.Weekdays) == 0 {
			errs = append(errs, "weekly schedule requires at least one weekday")
		}
	case domain.ScheduleCustom:
		if strings.TrimSpace(sched.Expression) == "" {
			errs = append(errs, "custom schedule requires a cron expression")
		}
	default:
		errs = append(errs, fmt.Sprintf("unrecognized schedule type %q", sched.Type))
	}

	return errs
}

// ValidateAndSanitize trims string fields and strips markup in place,
// then validates.
func (s *Store) ValidateAndSanitize(rule *domain.AutomationRule) ValidationResult {
	rule.Name = strings.TrimSpace(s.sanitizer.Sanitize(rule.Name))
	if rule.Description != nil {
		desc := strings.TrimSpace(s.sanitizer.Sanitize(*rule.Description))
		rule.Description = &desc
	}
	for i, cond := range rule.Conditions.All {
		rule.Conditions.All[i].Fact = strings.TrimSpace(cond.Fact)
		rule.Conditions.All[i].Operator = strings.TrimSpace(cond.Operator)
		if v, ok := cond.Value.(string); ok {
			rule.Conditions.All[i].Value = strings.TrimSpace(s.sanitizer.Sanitize(v))
		}
	}

	return Validate(rule)
}

// EvaluatorRule is the projection the condition-evaluation collaborator
// consumes: the rule's conjunction tree plus the event descriptor that
// identifies which actions fire on a match.
type EvaluatorRule struct {
	Conditions domain.ConditionSet
	Priority   int
	Event      EvaluatorEvent
}

type EvaluatorEvent struct {
	Type   string
	Params EvaluatorEventParams
}

type EvaluatorEventParams struct {
	RuleID   uuid.UUID
	Actions  []domain.Action
	Priority int
}

// ToEvaluatorFormat projects a rule into the evaluator's shape.
func ToEvaluatorFormat(rule *domain.AutomationRule) EvaluatorRule {
	return EvaluatorRule{
		Conditions: rule.Conditions,
		Priority:   rule.Priority,
		Event: EvaluatorEvent{
			Type: "automation-action",
			Params: EvaluatorEventParams{
				RuleID:   rule.ID,
				Actions:  rule.Actions,
				Priority: rule.Priority,
			},
		},
	}
}
