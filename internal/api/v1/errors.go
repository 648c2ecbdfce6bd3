package v1

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tempohq/tempo/internal/domain"
)

// mapError converts a service error to the matching HTTP status error.
// msg is the operation-specific prefix shown on 500s.
func mapError(err error, msg string) error {
	var derr *domain.Error
	detail := msg
	if errors.As(err, &derr) {
		detail = derr.Message
	}

	switch {
	case errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrRuleNotFound):
		return huma.Error404NotFound(detail)
	case errors.Is(err, domain.ErrDuplicateTask),
		errors.Is(err, domain.ErrCircularDependency),
		errors.Is(err, domain.ErrNoActiveTimer),
		errors.Is(err, domain.ErrTimerMismatch):
		return huma.Error409Conflict(detail)
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidTimeEntry),
		errors.Is(err, domain.ErrInvalidID):
		return huma.Error422UnprocessableEntity(detail)
	default:
		return huma.Error500InternalServerError(msg, err)
	}
}
