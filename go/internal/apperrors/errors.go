// Package apperrors defines the sentinel error kinds shared by the auction
// engine. Callers classify failures with errors.Is and surface only the kind
// to participants; the wrapped detail is for admins and logs.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input, rejected before any state change.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidState marks an operation that is illegal for the current
	// round or league status.
	ErrInvalidState = errors.New("invalid state")

	// ErrConflict marks a duplicate selection or a concurrent write that
	// lost the race.
	ErrConflict = errors.New("conflict")

	// ErrInsufficientCredit marks a commit that would drive a team's
	// balance negative.
	ErrInsufficientCredit = errors.New("insufficient credit")

	// ErrNotFound marks a missing league, round, team or player.
	ErrNotFound = errors.New("not found")

	// ErrForbidden marks a non-admin attempting a privileged operation.
	ErrForbidden = errors.New("forbidden")
)

// Validationf wraps ErrValidation with a formatted reason.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, prepend(ErrValidation, args)...)
}

// InvalidStatef wraps ErrInvalidState with a formatted reason.
func InvalidStatef(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, prepend(ErrInvalidState, args)...)
}

// Conflictf wraps ErrConflict with a formatted reason.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, prepend(ErrConflict, args)...)
}

// NotFoundf wraps ErrNotFound with a formatted reason.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, prepend(ErrNotFound, args)...)
}

// Forbiddenf wraps ErrForbidden with a formatted reason.
func Forbiddenf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, prepend(ErrForbidden, args)...)
}

// Kind returns the participant-facing name for err, or "internal" when err
// does not match any sentinel.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInsufficientCredit):
		return "insufficient_credit"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	default:
		return "internal"
	}
}

func prepend(err error, args []any) []any {
	return append([]any{err}, args...)
}
