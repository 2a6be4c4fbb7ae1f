package domain

import (
	"errors"
	"fmt"
)

// ErrRunNotFound is returned when a run ID cannot be found in the store.
var ErrRunNotFound = errors.New("run not found")

// ErrEmptyConcept is returned when a request carries no usable concept text.
var ErrEmptyConcept = errors.New("concept must not be empty")

// ErrInvalidGraph is returned when a graph definition fails structural validation.
var ErrInvalidGraph = errors.New("invalid graph")

// ErrFatal marks a collaborator failure as a permanent rejection that must not be retried.
var ErrFatal = errors.New("permanent rejection")

// ErrorCategory classifies the terminal cause of a failed run.
type ErrorCategory string

const (
	CategoryNone               ErrorCategory = ""
	CategoryRecoverable        ErrorCategory = "recoverable_error"
	CategoryFatal              ErrorCategory = "fatal_error"
	CategoryBudgetExhausted    ErrorCategory = "budget_exhausted"
	CategoryInvariantViolation ErrorCategory = "internal_invariant_violation"
	CategoryCanceled           ErrorCategory = "canceled"
)

// RunError describes why a run ended in failure.
type RunError struct {
	Category ErrorCategory
	Step     string
	Budget   BudgetKind
	Message  string
	Cause    error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *RunError) Unwrap() error {
	return e.Cause
}

// NewBudgetExhausted reports that the loop of the given kind ran out of revisions.
func NewBudgetExhausted(kind BudgetKind, spent int) *RunError {
	return &RunError{
		Category: CategoryBudgetExhausted,
		Budget:   kind,
		Message:  fmt.Sprintf("%s budget exhausted after %d revisions", kind.Label(), spent),
	}
}

// NewStepFailure reports a step failure that no route chose to retry.
func NewStepFailure(category ErrorCategory, step, detail string, cause error) *RunError {
	return &RunError{
		Category: category,
		Step:     step,
		Message:  fmt.Sprintf("step %q failed: %s", step, detail),
		Cause:    cause,
	}
}

// NewInvariantViolation reports an engine defect.
func NewInvariantViolation(step, detail string) *RunError {
	return &RunError{
		Category: CategoryInvariantViolation,
		Step:     step,
		Message:  detail,
	}
}

type fatalError struct {
	err error
}

func (e *fatalError) Error() string   { return e.err.Error() }
func (e *fatalError) Unwrap() []error { return []error{ErrFatal, e.err} }

// Fatal marks err as non-retryable.
func Fatal(err error) error {
	if err == nil || IsFatal(err) {
		return err
	}
	return &fatalError{err: err}
}

// Fatalf formats a non-retryable error.
func Fatalf(format string, args ...any) error {
	return Fatal(fmt.Errorf(format, args...))
}

// IsFatal reports whether err carries the permanent rejection marker.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}
