package domain

// Code is a stable machine-readable failure code. Codes are part of the
// public API surface and must not change between releases.
type Code string

const (
	CodeTaskNotFound       Code = "task_not_found"
	CodeDuplicateTask      Code = "duplicate_task"
	CodeInvalidID          Code = "invalid_id"
	CodeCircularDependency Code = "circular_dependency"
	CodeNoActiveTimer      Code = "no_active_timer"
	CodeTimerMismatch      Code = "timer_mismatch"
	CodeInvalidTimeEntry   Code = "invalid_time_entry"
	CodeValidationError    Code = "validation_error"
	CodeRuleNotFound       Code = "rule_not_found"
)

// Error is a typed domain failure. Sentinel instances below are matched
// with errors.Is through the usual %w wrapping chain.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return e.Message }

// Sentinel errors for the domain layer.
var (
	ErrTaskNotFound       = &Error{Code: CodeTaskNotFound, Message: "task not found"}
	ErrDuplicateTask      = &Error{Code: CodeDuplicateTask, Message: "task already exists"}
	ErrInvalidID          = &Error{Code: CodeInvalidID, Message: "invalid id"}
	ErrCircularDependency = &Error{Code: CodeCircularDependency, Message: "circular dependency"}
	ErrNoActiveTimer      = &Error{Code: CodeNoActiveTimer, Message: "no active timer"}
	ErrTimerMismatch      = &Error{Code: CodeTimerMismatch, Message: "timer belongs to another task"}
	ErrInvalidTimeEntry   = &Error{Code: CodeInvalidTimeEntry, Message: "invalid time entry"}
	ErrValidation         = &Error{Code: CodeValidationError, Message: "validation failed"}
	ErrRuleNotFound       = &Error{Code: CodeRuleNotFound, Message: "rule not found"}
)
