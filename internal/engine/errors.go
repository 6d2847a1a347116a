package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error that aborts a whole request.
//
// Runtime errors include:
//   - Nil action: a parent appended a nil child
//   - Nil result: an action returned neither a result nor an error
//   - Missing fields: an action was constructed without a required field
//   - Collaborator failure: a repository or service call failed
//   - Invalid request: arguments such as an unknown queue provider
//
// Business-rule failures are never RuntimeErrors; they are result statuses.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Action is the name of the failing action, when known.
	Action string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying error, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeNilAction indicates a nil action was submitted or appended.
	ErrCodeNilAction RuntimeErrorCode = "NIL_ACTION"

	// ErrCodeNilResult indicates an action returned no result and no error.
	ErrCodeNilResult RuntimeErrorCode = "NIL_RESULT"

	// ErrCodeMissingFields indicates an action lacks required fields.
	ErrCodeMissingFields RuntimeErrorCode = "MISSING_FIELDS"

	// ErrCodeCollaborator indicates a collaborator call failed.
	ErrCodeCollaborator RuntimeErrorCode = "COLLABORATOR_FAILURE"

	// ErrCodeInvalidRequest indicates request arguments no action can
	// report as a business failure, such as an unknown queue provider.
	ErrCodeInvalidRequest RuntimeErrorCode = "INVALID_REQUEST"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Action != "" {
		msg = fmt.Sprintf("%s (action=%s)", msg, e.Action)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// MissingFieldsReporter is implemented by errors that list missing required
// fields of an action.
type MissingFieldsReporter interface {
	error
	MissingFields() []string
}

// IsNilActionError returns true if the error is a nil action error.
// Uses errors.As to handle wrapped errors.
func IsNilActionError(err error) bool {
	return hasCode(err, ErrCodeNilAction)
}

// IsMissingFieldsError returns true if the error reports missing required
// fields.
func IsMissingFieldsError(err error) bool {
	return hasCode(err, ErrCodeMissingFields)
}

// IsCollaboratorError returns true if a collaborator call failed.
func IsCollaboratorError(err error) bool {
	return hasCode(err, ErrCodeCollaborator)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsInvalidRequestError returns true if the request arguments were
// rejected.
func IsInvalidRequestError(err error) bool {
	return hasCode(err, ErrCodeInvalidRequest)
}

// NewInvalidRequestError creates a RuntimeError for rejected request
// arguments.
func NewInvalidRequestError(message string, details map[string]string) *RuntimeError {
	return &RuntimeError{Code: ErrCodeInvalidRequest, Message: message, Details: details}
}

// NewNilActionError creates a RuntimeError for a nil action.
func NewNilActionError(parent string) *RuntimeError {
	e := &RuntimeError{
		Code:    ErrCodeNilAction,
		Message: "cannot execute a nil action",
	}
	if parent != "" {
		e.Details = map[string]string{"parent": parent}
	}
	return e
}

// NewNilResultError creates a RuntimeError for an action without a result.
func NewNilResultError(action string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeNilResult,
		Message: "action returned neither result nor error",
		Action:  action,
	}
}

// wrapActionError converts an error returned from Perform into a
// RuntimeError. RuntimeErrors pass through unchanged.
func wrapActionError(action string, err error) *RuntimeError {
	var re *RuntimeError
	if errors.As(err, &re) {
		if re.Action == "" {
			re.Action = action
		}
		return re
	}
	var mf MissingFieldsReporter
	if errors.As(err, &mf) {
		return &RuntimeError{
			Code:    ErrCodeMissingFields,
			Message: "required fields are missing",
			Action:  action,
			Details: map[string]string{"fields": fmt.Sprint(mf.MissingFields())},
			Err:     err,
		}
	}
	return &RuntimeError{
		Code:    ErrCodeCollaborator,
		Message: "action failed",
		Action:  action,
		Err:     err,
	}
}
