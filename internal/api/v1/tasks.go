package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/tempohq/tempo/internal/domain"
	"github.com/tempohq/tempo/internal/task"
)

type CreateTaskInput struct {
	Body struct {
		Title        string               `json:"title" minLength:"1" maxLength:"500" doc:"Task title"`
		Description  *string              `json:"description,omitempty" doc:"Task description"`
		Status       domain.TaskStatus    `json:"status,omitempty" enum:"pending,in_progress,completed,cancelled" doc:"Initial status (default pending)"`
		Priority     domain.TaskPriority  `json:"priority,omitempty" enum:"low,medium,high" doc:"Priority (default medium)"`
		Context      domain.TaskContext   `json:"context,omitempty" enum:"work,personal" doc:"Life context (default personal)"`
		Tags         []string             `json:"tags,omitempty" doc:"Free-form tags"`
		DueDate      *time.Time           `json:"due_date,omitempty" doc:"Due date"`
		TimeEstimate int                  `json:"time_estimate,omitempty" minimum:"0" doc:"Estimated minutes"`
		Recurrence   *domain.Recurrence   `json:"recurrence,omitempty" doc:"Recurrence schedule"`
	}
}

type TaskOutput struct {
	Body *domain.Task
}

type ListTasksInput struct {
	Status         string `query:"status" enum:",pending,in_progress,completed,cancelled" doc:"Filter by status"`
	Priority       string `query:"priority" enum:",low,medium,high" doc:"Filter by priority"`
	Context        string `query:"context" enum:",work,personal" doc:"Filter by context"`
	ParentID       string `query:"parent_id" doc:"Filter by parent task ID"`
	DueAfter       time.Time `query:"due_after" doc:"Due date lower bound"`
	DueBefore      time.Time `query:"due_before" doc:"Due date upper bound"`
	DueOrOverdue   bool   `query:"due_or_overdue" doc:"Only tasks due today or overdue"`
	IncludeDeleted bool   `query:"include_deleted" doc:"Include soft-deleted tasks"`
}

type ListTasksOutput struct {
	Body []*domain.Task
}

type GetTaskInput struct {
	ID             uuid.UUID `path:"id" doc:"Task ID"`
	IncludeDeleted bool      `query:"include_deleted" doc:"Allow fetching a soft-deleted task"`
}

type UpdateTaskInput struct {
	ID   uuid.UUID `path:"id" doc:"Task ID"`
	Body struct {
		Title        *string              `json:"title,omitempty" maxLength:"500" doc:"Task title"`
		Description  *string              `json:"description,omitempty" doc:"Task description"`
		Status       *domain.TaskStatus   `json:"status,omitempty" enum:"pending,in_progress,completed,cancelled" doc:"Status"`
		Priority     *domain.TaskPriority `json:"priority,omitempty" enum:"low,medium,high" doc:"Priority"`
		Context      *domain.TaskContext  `json:"context,omitempty" enum:"work,personal" doc:"Life context"`
		Tags         *[]string            `json:"tags,omitempty" doc:"Replacement tag set"`
		DueDate      *time.Time           `json:"due_date,omitempty" doc:"Due date"`
		ClearDueDate bool                 `json:"clear_due_date,omitempty" doc:"Remove the due date"`
		TimeEstimate *int                 `json:"time_estimate,omitempty" minimum:"0" doc:"Estimated minutes"`
		Recurrence   *domain.Recurrence   `json:"recurrence,omitempty" doc:"Recurrence schedule"`
	}
}

type DeleteTaskInput struct {
	ID uuid.UUID `path:"id" doc:"Task ID"`
}

type DependencyInput struct {
	ID   uuid.UUID `path:"id" doc:"Task ID"`
	Body struct {
		DependsOn uuid.UUID `json:"depends_on" doc:"Task this one depends on"`
	}
}

type RemoveDependencyInput struct {
	ID        uuid.UUID `path:"id" doc:"Task ID"`
	DependsOn uuid.UUID `path:"depID" doc:"Dependency task ID"`
}

type SetParentInput struct {
	ID   uuid.UUID `path:"id" doc:"Child task ID"`
	Body struct {
		ParentID uuid.UUID `json:"parent_id" doc:"New parent task ID"`
	}
}

func RegisterTaskRoutes(api huma.API, tasks TaskService) {
	huma.Register(api, huma.Operation{
		OperationID: "create-task",
		Method:      http.MethodPost,
		Path:        "/tasks",
		Summary:     "Create a new task",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *CreateTaskInput) (*TaskOutput, error) {
		t, err := tasks.Create(ctx, task.CreateInput{
			Title:        input.Body.Title,
			Description:  input.Body.Description,
			Status:       input.Body.Status,
			Priority:     input.Body.Priority,
			Context:      input.Body.Context,
			Tags:         input.Body.Tags,
			DueDate:      input.Body.DueDate,
			TimeEstimate: input.Body.TimeEstimate,
			Recurrence:   input.Body.Recurrence,
		})
		if err != nil {
			return nil, mapError(err, "failed to create task")
		}
		return &TaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *ListTasksInput) (*ListTasksOutput, error) {
		filter := domain.TaskFilter{
			Status:         domain.TaskStatus(input.Status),
			Priority:       domain.TaskPriority(input.Priority),
			Context:        domain.TaskContext(input.Context),
			DueOrOverdue:   input.DueOrOverdue,
			IncludeDeleted: input.IncludeDeleted,
		}
		if !input.DueAfter.IsZero() {
			filter.DueAfter = &input.DueAfter
		}
		if !input.DueBefore.IsZero() {
			filter.DueBefore = &input.DueBefore
		}
		if input.ParentID != "" {
			pid, err := uuid.Parse(input.ParentID)
			if err != nil {
				return nil, huma.Error422UnprocessableEntity("invalid parent_id")
			}
			filter.ParentID = &pid
		}

		out, err := tasks.List(ctx, filter)
		if err != nil {
			return nil, mapError(err, "failed to list tasks")
		}
		return &ListTasksOutput{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get a task by ID",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *GetTaskInput) (*TaskOutput, error) {
		t, err := tasks.Get(ctx, input.ID, input.IncludeDeleted)
		if err != nil {
			return nil, mapError(err, "failed to get task")
		}
		return &TaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}",
		Summary:     "Update a task",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *UpdateTaskInput) (*TaskOutput, error) {
		t, err := tasks.Update(ctx, input.ID, task.UpdateInput{
			Title:        input.Body.Title,
			Description:  input.Body.Description,
			Status:       input.Body.Status,
			Priority:     input.Body.Priority,
			Context:      input.Body.Context,
			Tags:         input.Body.Tags,
			DueDate:      input.Body.DueDate,
			ClearDueDate: input.Body.ClearDueDate,
			TimeEstimate: input.Body.TimeEstimate,
			Recurrence:   input.Body.Recurrence,
		})
		if err != nil {
			return nil, mapError(err, "failed to update task")
		}
		return &TaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/tasks/{id}",
		Summary:     "Soft-delete a task",
		Description: "Tombstones the task. Deleting an already-deleted task is a no-op.",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *DeleteTaskInput) (*TaskOutput, error) {
		t, err := tasks.SoftDelete(ctx, input.ID)
		if err != nil {
			return nil, mapError(err, "failed to delete task")
		}
		return &TaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "restore-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/restore",
		Summary:     "Restore a soft-deleted task",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *DeleteTaskInput) (*TaskOutput, error) {
		t, err := tasks.Restore(ctx, input.ID)
		if err != nil {
			return nil, mapError(err, "failed to restore task")
		}
		return &TaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "purge-task",
		Method:      http.MethodDelete,
		Path:        "/tasks/{id}/purge",
		Summary:     "Permanently delete a task",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *DeleteTaskInput) (*struct{}, error) {
		if err := tasks.HardDelete(ctx, input.ID); err != nil {
			return nil, mapError(err, "failed to purge task")
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "add-dependency",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/dependencies",
		Summary:     "Add a dependency edge",
		Description: "Makes the task depend on another. Rejected when the edge would close a cycle.",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *DependencyInput) (*TaskOutput, error) {
		t, err := tasks.AddDependency(ctx, input.ID, input.Body.DependsOn)
		if err != nil {
			return nil, mapError(err, "failed to add dependency")
		}
		return &TaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-dependency",
		Method:      http.MethodDelete,
		Path:        "/tasks/{id}/dependencies/{depID}",
		Summary:     "Remove a dependency edge",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *RemoveDependencyInput) (*TaskOutput, error) {
		t, err := tasks.RemoveDependency(ctx, input.ID, input.DependsOn)
		if err != nil {
			return nil, mapError(err, "failed to remove dependency")
		}
		return &TaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-task-parent",
		Method:      http.MethodPut,
		Path:        "/tasks/{id}/parent",
		Summary:     "Attach or move a task under a parent",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *SetParentInput) (*TaskOutput, error) {
		pid := input.Body.ParentID
		t, err := tasks.MoveSubtask(ctx, input.ID, &pid)
		if err != nil {
			return nil, mapError(err, "failed to set parent")
		}
		return &TaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "clear-task-parent",
		Method:      http.MethodDelete,
		Path:        "/tasks/{id}/parent",
		Summary:     "Detach a task from its parent",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *DeleteTaskInput) (*TaskOutput, error) {
		t, err := tasks.RemoveSubtask(ctx, input.ID)
		if err != nil {
			return nil, mapError(err, "failed to clear parent")
		}
		return &TaskOutput{Body: t}, nil
	})
}
