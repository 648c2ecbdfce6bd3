package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TriggerType string

const (
	TriggerTaskCreated   TriggerType = "task-created"
	TriggerTaskUpdated   TriggerType = "task-updated"
	TriggerTaskCompleted TriggerType = "task-completed"
	TriggerTaskDeleted   TriggerType = "task-deleted"
	TriggerTimeBased     TriggerType = "time-based"
	TriggerScheduleBased TriggerType = "schedule-based"
)

// Valid reports whether t is a recognized trigger type.
func (t TriggerType) Valid() bool {
	_, ok := triggerConfigSpec[t]
	return ok
}

// Scheduled reports whether the trigger type fires from wall-clock
// schedules rather than domain events.
func (t TriggerType) Scheduled() bool {
	return triggerConfigSpec[t].requiresSchedule
}

// EventName returns the event-hub name an event-driven trigger listens
// on ("" for scheduled triggers).
func (t TriggerType) EventName() string {
	return triggerConfigSpec[t].eventName
}

// Event-hub names for task lifecycle events.
const (
	EventTaskCreated   = "task.created"
	EventTaskUpdated   = "task.updated"
	EventTaskCompleted = "task.completed"
	EventTaskDeleted   = "task.deleted"
	EventTaskRestored  = "task.restored"
)

// triggerConfigSpec maps each trigger kind to its config requirements.
// This is the single registry of recognized trigger types.
var triggerConfigSpec = map[TriggerType]struct {
	requiresSchedule bool
	eventName        string
}{
	TriggerTaskCreated:   {eventName: EventTaskCreated},
	TriggerTaskUpdated:   {eventName: EventTaskUpdated},
	TriggerTaskCompleted: {eventName: EventTaskCompleted},
	TriggerTaskDeleted:   {eventName: EventTaskDeleted},
	TriggerTimeBased:     {requiresSchedule: true},
	TriggerScheduleBased: {requiresSchedule: true},
}

// TriggerTypeForEvent returns the trigger type listening on a given
// event-hub name.
func TriggerTypeForEvent(event string) (TriggerType, bool) {
	for t, spec := range triggerConfigSpec {
		if spec.eventName == event {
			return t, true
		}
	}
	return "", false
}

// EventTriggerTypes returns every trigger type bound to a domain event,
// in stable order.
func EventTriggerTypes() []TriggerType {
	return []TriggerType{TriggerTaskCreated, TriggerTaskUpdated, TriggerTaskCompleted, TriggerTaskDeleted}
}

type ScheduleType string

const (
	ScheduleDaily  ScheduleType = "daily"
	ScheduleWeekly ScheduleType = "weekly"
	ScheduleCustom ScheduleType = "custom"
)

// Schedule configures a time-based or schedule-based trigger.
// Time is "HH:MM" local time for daily and weekly schedules; Weekdays
// selects the firing days for weekly schedules; Expression is a
// standard cron expression for custom schedules.
type Schedule struct {
	Type       ScheduleType   `json:"type"`
	Time       string         `json:"time,omitempty"`
	Weekdays   []time.Weekday `json:"weekdays,omitempty"`
	Expression string         `json:"expression,omitempty"`
}

type TriggerConfig struct {
	Schedule *Schedule `json:"schedule,omitempty"`
}

type Trigger struct {
	Type   TriggerType   `json:"type"`
	Config TriggerConfig `json:"config"`
}

// Condition compares a named fact against a value.
type Condition struct {
	Fact     string `json:"fact"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// ConditionSet is a conjunction: every condition in All must hold.
type ConditionSet struct {
	All []Condition `json:"all"`
}

type ActionType string

const (
	ActionCreateTask     ActionType = "create-task"
	ActionUpdateTask     ActionType = "update-task"
	ActionCategorizeTask ActionType = "categorize-task"
	ActionSetPriority    ActionType = "set-priority"
	ActionAddTag         ActionType = "add-tag"
	ActionNotify         ActionType = "notify"
)

// Valid reports whether a is a recognized action type.
func (a ActionType) Valid() bool {
	_, ok := actionParamSpec[a]
	return ok
}

// RequiredParams lists the params an action of this type must carry.
func (a ActionType) RequiredParams() []string {
	return actionParamSpec[a]
}

// actionParamSpec maps each action kind to its required params.
// This is the single registry of recognized action types.
var actionParamSpec = map[ActionType][]string{
	ActionCreateTask:     {"title"},
	ActionUpdateTask:     {"status"},
	ActionCategorizeTask: {"context"},
	ActionSetPriority:    {"priority"},
	ActionAddTag:         {"tag"},
	ActionNotify:         {"message"},
}

type Action struct {
	Type   ActionType     `json:"type"`
	Params map[string]any `json:"params,omitempty"`
}

// AutomationRule reacts to task lifecycle events or wall-clock schedules.
// ExecutionCount and LastExecutedAt are mutated only by the trigger
// manager upon successful execution.
type AutomationRule struct {
	ID             uuid.UUID
	Name           string
	Description    *string
	Enabled        bool
	Trigger        Trigger
	Conditions     ConditionSet
	Actions        []Action
	Priority       int // higher runs first
	ExecutionCount int
	LastExecutedAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type RuleRepository interface {
	Create(ctx context.Context, r *AutomationRule) error
	GetByID(ctx context.Context, id uuid.UUID) (*AutomationRule, error)
	List(ctx context.Context) ([]*AutomationRule, error)
	ListEnabled(ctx context.Context) ([]*AutomationRule, error)
	Update(ctx context.Context, r *AutomationRule) error
	Delete(ctx context.Context, id uuid.UUID) error
}
