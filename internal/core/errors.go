package core

import (
	"errors"
	"fmt"
)

var (
	ErrItemNotFound       = errors.New("item not found")
	ErrMaterialNotFound   = errors.New("material not found")
	ErrDepartmentNotFound = errors.New("department not found")
	ErrJobNotFound        = errors.New("print job not found")
	ErrPrinterNotFound    = errors.New("printer not found")

	// ErrNoActiveWindow rejects registrations outside any intake window.
	ErrNoActiveWindow = errors.New("no active intake window")

	// ErrNoPrinterAvailable is a best-effort dispatch failure; callers log it
	// instead of failing the triggering operation.
	ErrNoPrinterAvailable = errors.New("no printer available")

	// ErrCodeSpaceExhausted means tracking-code generation hit its retry cap.
	ErrCodeSpaceExhausted = errors.New("tracking code space exhausted")

	// ErrStatusNotConfigured signals a seeded lifecycle status is missing from
	// the database, which is a deployment fault rather than a user error.
	ErrStatusNotConfigured = errors.New("lifecycle status not configured")
)

// ValidationError reports missing or malformed caller input.
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

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// PreconditionError reports a domain-state precondition violation, e.g.
// delivering an item that is not Ready.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return e.Reason
}
