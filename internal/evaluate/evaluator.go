// Package evaluate is the default condition-evaluation collaborator:
// it matches a rule's conjunction tree against a fact mapping and, on a
// match, dispatches the rule's actions. The trigger manager only sees
// the Evaluate function signature, so alternative engines can be
// swapped in.
package evaluate

import (
	"context"
	"fmt"
	"strings"

	"github.com/tempohq/tempo/internal/domain"
	"github.com/tempohq/tempo/internal/trigger"
)

// Evaluator matches rule conditions and runs actions through an
// ActionRunner.
type Evaluator struct {
	actions *ActionRunner // may be nil: evaluation only, no dispatch
}

func New(actions *ActionRunner) *Evaluator {
	return &Evaluator{actions: actions}
}

// Evaluate reports whether the rule's conjunction holds against facts.
// On a match the rule's actions are run in order. Satisfies
// trigger.Evaluator.
func (e *Evaluator) Evaluate(ctx context.Context, rule *domain.AutomationRule, facts map[string]any) (trigger.Result, error) {
	for _, cond := range rule.Conditions.All {
		ok, err := matchCondition(cond, facts)
		if err != nil {
			return trigger.Result{}, fmt.Errorf("evaluate.Evaluator.Evaluate: %w", err)
		}
		if !ok {
			return trigger.Result{}, nil
		}
	}

	if e.actions != nil {
		e.actions.Run(ctx, rule, facts)
	}

	return trigger.Result{Triggered: true}, nil
}

// matchCondition compares one fact against the condition's value. A
// missing fact fails the condition without erroring.
func matchCondition(cond domain.Condition, facts map[string]any) (bool, error) {
	actual, ok := facts[cond.Fact]
	if !ok {
		return false, nil
	}

	switch cond.Operator {
	case "equal":
		return looseEqual(actual, cond.Value), nil
	case "notEqual":
		return !looseEqual(actual, cond.Value), nil
	case "greaterThan", "greaterThanInclusive", "lessThan", "lessThanInclusive":
		a, aok := toFloat(actual)
		b, bok := toFloat(cond.Value)
		if !aok || !bok {
			return false, nil
		}
		switch cond.Operator {
		case "greaterThan":
			return a > b, nil
		case "greaterThanInclusive":
			return a >= b, nil
		case "lessThan":
			return a < b, nil
		default:
			return a <= b, nil
		}
	case "in":
		return inList(actual, cond.Value), nil
	case "notIn":
		return !inList(actual, cond.Value), nil
	case "contains":
		return containsValue(actual, cond.Value), nil
	default:
		return false, fmt.Errorf("unrecognized operator %q: %w", cond.Operator, domain.ErrValidation)
	}
}

// looseEqual compares numerically when both sides are numbers, by
// string form otherwise. Rule values arrive via JSON, so numeric facts
// routinely meet float64 condition values.
func looseEqual(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}

	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func inList(actual, expected any) bool {
	switch list := expected.(type) {
	case []any:
		for _, item := range list {
			if looseEqual(actual, item) {
				return true
			}
		}
	case []string:
		for _, item := range list {
			if looseEqual(actual, item) {
				return true
			}
		}
	}

	return false
}

// containsValue handles string containment and slice membership.
func containsValue(actual, expected any) bool {
	switch a := actual.(type) {
	case string:
		if s, ok := expected.(string); ok {
			return strings.Contains(a, s)
		}
	case []string:
		for _, item := range a {
			if looseEqual(item, expected) {
				return true
			}
		}
	case []any:
		for _, item := range a {
			if looseEqual(item, expected) {
				return true
			}
		}
	}

	return false
}
