package errors

import (
	"fmt"
)

// ParseError represents a YAML parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures declaration validation issues detected before any
// remote call is made.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PreconditionError reports a remote prerequisite that the declaration
// references but that does not exist (cluster node, template volume).
type PreconditionError struct {
	Message string
}

// NewPreconditionError constructs a PreconditionError.
func NewPreconditionError(format string, args ...any) error {
	return &PreconditionError{Message: fmt.Sprintf(format, args...)}
}

func (e *PreconditionError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// RemoteError represents a transport, authentication, or API-level failure
// while talking to the remote system.
type RemoteError struct {
	Op  string
	Err error
}

// NewRemoteError constructs a RemoteError for the named remote operation.
func NewRemoteError(op string, err error) error {
	return &RemoteError{Op: op, Err: err}
}

func (e *RemoteError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("remote error during %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("remote error: %v", e.Err)
}

// Unwrap exposes the root error.
func (e *RemoteError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// TimeoutError indicates the completion poller exhausted its budget before
// the task reached a terminal status. LastLog carries the most recent task
// log line for diagnosis.
type TimeoutError struct {
	Op      string
	LastLog string
}

// NewTimeoutError constructs a TimeoutError.
func NewTimeoutError(op, lastLog string) error {
	return &TimeoutError{Op: op, LastLog: lastLog}
}

func (e *TimeoutError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("Reached timeout while waiting for %s. Last line in task before timeout: %s", e.Op, e.LastLog)
}

// UnexpectedResponseError indicates a synchronous mutating call returned a
// success status but a malformed or incomplete body. Body holds the raw
// response for diagnosis.
type UnexpectedResponseError struct {
	Message string
	Body    string
}

// NewUnexpectedResponseError constructs an UnexpectedResponseError.
func NewUnexpectedResponseError(message, body string) error {
	return &UnexpectedResponseError{Message: message, Body: body}
}

func (e *UnexpectedResponseError) Error() string {
	if e == nil {
		return ""
	}
	if e.Body != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Body)
	}
	return e.Message
}
