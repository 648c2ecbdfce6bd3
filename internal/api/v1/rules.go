package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/tempohq/tempo/internal/domain"
	"github.com/tempohq/tempo/internal/rules"
)

type CreateRuleInput struct {
	Body struct {
		Name        string               `json:"name" minLength:"1" maxLength:"255" doc:"Rule name"`
		Description *string              `json:"description,omitempty" doc:"Rule description"`
		Enabled     *bool                `json:"enabled,omitempty" doc:"Whether the rule is active (default true)"`
		Trigger     domain.Trigger       `json:"trigger" doc:"Event or schedule that fires the rule"`
		Conditions  *domain.ConditionSet `json:"conditions,omitempty" doc:"Conditions that must all hold"`
		Actions     []domain.Action      `json:"actions" minItems:"1" doc:"Actions run when the rule fires"`
		Priority    int                  `json:"priority,omitempty" doc:"Higher priority rules run first"`
	}
}

type RuleOutput struct {
	Body *domain.AutomationRule
}

type ListRulesOutput struct {
	Body []*domain.AutomationRule
}

type GetRuleInput struct {
	ID uuid.UUID `path:"id" doc:"Rule ID"`
}

type UpdateRuleInput struct {
	ID   uuid.UUID `path:"id" doc:"Rule ID"`
	Body struct {
		Name        *string              `json:"name,omitempty" maxLength:"255" doc:"Rule name"`
		Description *string              `json:"description,omitempty" doc:"Rule description"`
		Enabled     *bool                `json:"enabled,omitempty" doc:"Whether the rule is active"`
		Trigger     *domain.Trigger      `json:"trigger,omitempty" doc:"Event or schedule that fires the rule"`
		Conditions  *domain.ConditionSet `json:"conditions,omitempty" doc:"Conditions that must all hold"`
		Actions     *[]domain.Action     `json:"actions,omitempty" doc:"Actions run when the rule fires"`
		Priority    *int                 `json:"priority,omitempty" doc:"Higher priority rules run first"`
	}
}

func RegisterRuleRoutes(api huma.API, ruleSvc RuleService) {
	huma.Register(api, huma.Operation{
		OperationID: "create-rule",
		Method:      http.MethodPost,
		Path:        "/rules",
		Summary:     "Create an automation rule",
		Tags:        []string{"Rules"},
	}, func(ctx context.Context, input *CreateRuleInput) (*RuleOutput, error) {
		draft := &domain.AutomationRule{
			Name:        input.Body.Name,
			Description: input.Body.Description,
			Enabled:     true,
			Trigger:     input.Body.Trigger,
			Actions:     input.Body.Actions,
			Priority:    input.Body.Priority,
		}
		if input.Body.Enabled != nil {
			draft.Enabled = *input.Body.Enabled
		}
		if input.Body.Conditions != nil {
			draft.Conditions = *input.Body.Conditions
		}

		r, err := ruleSvc.Create(ctx, draft)
		if err != nil {
			return nil, mapError(err, "failed to create rule")
		}
		return &RuleOutput{Body: r}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-rules",
		Method:      http.MethodGet,
		Path:        "/rules",
		Summary:     "List automation rules",
		Tags:        []string{"Rules"},
	}, func(ctx context.Context, _ *struct{}) (*ListRulesOutput, error) {
		out, err := ruleSvc.List(ctx)
		if err != nil {
			return nil, mapError(err, "failed to list rules")
		}
		return &ListRulesOutput{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-rule",
		Method:      http.MethodGet,
		Path:        "/rules/{id}",
		Summary:     "Get a rule by ID",
		Tags:        []string{"Rules"},
	}, func(ctx context.Context, input *GetRuleInput) (*RuleOutput, error) {
		r, err := ruleSvc.Get(ctx, input.ID)
		if err != nil {
			return nil, mapError(err, "failed to get rule")
		}
		return &RuleOutput{Body: r}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-rule",
		Method:      http.MethodPatch,
		Path:        "/rules/{id}",
		Summary:     "Update a rule",
		Tags:        []string{"Rules"},
	}, func(ctx context.Context, input *UpdateRuleInput) (*RuleOutput, error) {
		r, err := ruleSvc.Update(ctx, input.ID, rules.UpdateInput{
			Name:        input.Body.Name,
			Description: input.Body.Description,
			Enabled:     input.Body.Enabled,
			Trigger:     input.Body.Trigger,
			Conditions:  input.Body.Conditions,
			Actions:     input.Body.Actions,
			Priority:    input.Body.Priority,
		})
		if err != nil {
			return nil, mapError(err, "failed to update rule")
		}
		return &RuleOutput{Body: r}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-rule",
		Method:      http.MethodDelete,
		Path:        "/rules/{id}",
		Summary:     "Delete a rule",
		Tags:        []string{"Rules"},
	}, func(ctx context.Context, input *GetRuleInput) (*struct{}, error) {
		if err := ruleSvc.Delete(ctx, input.ID); err != nil {
			return nil, mapError(err, "failed to delete rule")
		}
		return nil, nil
	})
}
