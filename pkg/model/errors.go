package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies failures reported to the operator.
type ErrorCode string

const (
	ErrValidation     ErrorCode = "VALIDATION_ERROR"
	ErrDependency     ErrorCode = "DEPENDENCY_ERROR"
	ErrExecution      ErrorCode = "EXECUTION_ERROR"
	ErrLock           ErrorCode = "LOCK_ERROR"
	ErrNotImplemented ErrorCode = "NOT_IMPLEMENTED"
)

// Error is a categorised, operator-facing error.
type Error struct {
	Code    ErrorCode
	Message string
	Details []FieldError
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	for _, d := range e.Details {
		b.WriteString("\n  └── ")
		b.WriteString(d.String())
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FieldError describes a problem with a specific path, field or line.
type FieldError struct {
	Field   string
	Path    string
	Line    int
	Message string
}

func (f FieldError) String() string {
	var parts []string
	if f.Path != "" {
		parts = append(parts, fmt.Sprintf("'%s'", f.Path))
	}
	if f.Line > 0 {
		parts = append(parts, fmt.Sprintf("line %d", f.Line))
	}
	if f.Field != "" {
		parts = append(parts, fmt.Sprintf("field '%s'", f.Field))
	}
	if len(parts) == 0 {
		return f.Message
	}
	return strings.Join(parts, ", ") + ": " + f.Message
}

// NewValidationError creates an Error with validation details.
func NewValidationError(msg string, details ...FieldError) *Error {
	return &Error{Code: ErrValidation, Message: msg, Details: details}
}

// NewDependencyError reports a required external tool that cannot be found.
func NewDependencyError(tool string, err error) *Error {
	return &Error{
		Code:    ErrDependency,
		Message: fmt.Sprintf("required tool '%s' is not on $PATH", tool),
		Err:     err,
	}
}

// NewLockError wraps the engine's own unlock/lock output verbatim.
func NewLockError(dir, output string, err error) *Error {
	return &Error{
		Code:    ErrLock,
		Message: fmt.Sprintf("failed to unlock '%s':\n%s", dir, output),
		Err:     err,
	}
}

// NewNotImplementedError reports a command that exists but does nothing yet.
func NewNotImplementedError(what string) *Error {
	return &Error{Code: ErrNotImplemented, Message: what + " is not implemented yet"}
}

// IsCode reports whether err wraps an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// InvalidTransitionError is returned when a state transition is invalid.
type InvalidTransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s state transition: %s → %s (entity %s)", e.Entity, e.From, e.To, e.ID)
}
