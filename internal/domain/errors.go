package domain

import "fmt"

// ValidationError is user input that cannot be accepted. Nothing was mutated.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// FetchFailure collapses every way the weather provider can fail:
// transport errors, non-success status, unknown location, malformed payload.
type FetchFailure struct {
	Location string
	Err      error
}

func (e *FetchFailure) Error() string {
	return fmt.Sprintf("fetch weather for %q: %v", e.Location, e.Err)
}

func (e *FetchFailure) Unwrap() error { return e.Err }

// StartupFailure is fatal: the process logs it and exits.
type StartupFailure struct {
	Stage string
	Err   error
}

func (e *StartupFailure) Error() string {
	return fmt.Sprintf("startup: %s: %v", e.Stage, e.Err)
}

func (e *StartupFailure) Unwrap() error { return e.Err }
