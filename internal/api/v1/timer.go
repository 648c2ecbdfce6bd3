package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
)

type TimerInput struct {
	Body struct {
		TaskID uuid.UUID `json:"task_id" doc:"Task the timer belongs to"`
	}
}

type ActiveTimerOutput struct {
	Body struct {
		Active bool       `json:"active"`
		TaskID *uuid.UUID `json:"task_id,omitempty"`
	}
}

type ManualEntryInput struct {
	ID   uuid.UUID `path:"id" doc:"Task ID"`
	Body struct {
		Minutes float64 `json:"minutes" doc:"Minutes worked, rounded to the nearest whole minute"`
	}
}

func RegisterTimerRoutes(api huma.API, timer TimeService) {
	huma.Register(api, huma.Operation{
		OperationID: "start-timer",
		Method:      http.MethodPost,
		Path:        "/timer/start",
		Summary:     "Start the timer on a task",
		Description: "A running timer on another task is stopped and committed first.",
		Tags:        []string{"Timer"},
	}, func(ctx context.Context, input *TimerInput) (*TaskOutput, error) {
		t, err := timer.Start(ctx, input.Body.TaskID)
		if err != nil {
			return nil, mapError(err, "failed to start timer")
		}
		return &TaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "stop-timer",
		Method:      http.MethodPost,
		Path:        "/timer/stop",
		Summary:     "Stop the timer and commit elapsed time",
		Tags:        []string{"Timer"},
	}, func(ctx context.Context, input *TimerInput) (*TaskOutput, error) {
		t, err := timer.Stop(ctx, input.Body.TaskID)
		if err != nil {
			return nil, mapError(err, "failed to stop timer")
		}
		return &TaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-active-timer",
		Method:      http.MethodGet,
		Path:        "/timer",
		Summary:     "Report the currently running timer",
		Tags:        []string{"Timer"},
	}, func(_ context.Context, _ *struct{}) (*ActiveTimerOutput, error) {
		out := &ActiveTimerOutput{}
		if id, ok := timer.Active(); ok {
			out.Body.Active = true
			out.Body.TaskID = &id
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "add-time-entry",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/time-entries",
		Summary:     "Record a manual time entry",
		Tags:        []string{"Timer"},
	}, func(ctx context.Context, input *ManualEntryInput) (*TaskOutput, error) {
		t, err := timer.AddManualEntry(ctx, input.ID, input.Body.Minutes)
		if err != nil {
			return nil, mapError(err, "failed to add time entry")
		}
		return &TaskOutput{Body: t}, nil
	})
}
