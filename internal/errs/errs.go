// Package errs defines the typed error taxonomy shared by the core
// services. Handlers translate these into HTTP error codes; everything
// else wraps them with fmt.Errorf("%w").
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError carries every violated constraint found during
// aggregate or input validation. Validation never fails fast: callers
// get the complete list in one error.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Violations, "; "))
}

// NewValidation builds a ValidationError from the collected violations.
// Returns nil when the slice is empty so callers can return it directly.
func NewValidation(violations []string) error {
	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}

// NotFoundError reports an unknown session, question, or scheduled-item id.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// NotFound builds a NotFoundError for the given resource and id.
func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// InvalidStateError reports an operation that is illegal in the current
// state-machine state. It is fatal for the operation and never retried.
type InvalidStateError struct {
	Op    string
	State string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s a %s session", e.Op, strings.ToLower(e.State))
}

// InvalidState builds an InvalidStateError for op attempted in state.
func InvalidState(op, state string) error {
	return &InvalidStateError{Op: op, State: state}
}

// QuestionMismatchError reports a submitted response whose question id
// does not match the session's current expected question.
type QuestionMismatchError struct {
	Expected string
	Got      string
}

func (e *QuestionMismatchError) Error() string {
	return fmt.Sprintf("response targets question %s but the current question is %s", e.Got, e.Expected)
}

// DependencyError wraps a failure from an external collaborator
// (question supply, storage, notification).
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// Dependency wraps err as a DependencyError for the named operation.
func Dependency(op string, err error) error {
	return &DependencyError{Op: op, Err: err}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsInvalidState reports whether err is (or wraps) an InvalidStateError.
func IsInvalidState(err error) bool {
	var is *InvalidStateError
	return errors.As(err, &is)
}

// IsQuestionMismatch reports whether err is (or wraps) a QuestionMismatchError.
func IsQuestionMismatch(err error) bool {
	var qm *QuestionMismatchError
	return errors.As(err, &qm)
}

// IsDependency reports whether err is (or wraps) a DependencyError.
func IsDependency(err error) bool {
	var de *DependencyError
	return errors.As(err, &de)
}
