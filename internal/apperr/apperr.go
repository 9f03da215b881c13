// Package apperr holds the error kinds shared across domain packages that are
// not owned by any single one of them.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized means the caller has no valid session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the caller is signed in but may not perform the action.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError reports malformed or missing input. No mutation is attempted
// when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError for field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
