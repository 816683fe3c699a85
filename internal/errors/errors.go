package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
)

// ErrorCode represents a diarydigest error code.
type ErrorCode string

const (
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"        // 400
	ErrConfig          ErrorCode = "CONFIG_ERROR"           // 400
	ErrNotFound        ErrorCode = "NOT_FOUND"              // 404
	ErrConflict        ErrorCode = "CONFLICT"               // 409
	ErrCancelled       ErrorCode = "CANCELLED"              // 499
	ErrInternal        ErrorCode = "INTERNAL"               // 500
	ErrRepository      ErrorCode = "REPOSITORY_ERROR"       // 500
	ErrRemoteCreation  ErrorCode = "REMOTE_CREATION_ERROR"  // 502
	ErrRemoteExecution ErrorCode = "REMOTE_EXECUTION_ERROR" // 502
	ErrTimeout         ErrorCode = "TIMEOUT"                // 504
)

// DiaryError represents a structured error with code, status, and details.
type DiaryError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *DiaryError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *DiaryError) Unwrap() error {
	return e.Cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *DiaryError {
	return &DiaryError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewConfig creates an error for invalid or missing durable configuration.
func NewConfig(msg string) *DiaryError {
	return &DiaryError{
		Code:    ErrConfig,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing transcription.
func NewNotFound(id string) *DiaryError {
	return &DiaryError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("transcription not found: %s", id),
		Details: map[string]any{"id": id},
	}
}

// NewFileNotFound creates a 404 error for a missing file (summary artifact, import file).
func NewFileNotFound(path string) *DiaryError {
	return &DiaryError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewConflict creates a 409 error, used when another job holds the summarize lock.
func NewConflict(msg string) *DiaryError {
	return &DiaryError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewCancelled creates an error for an operation aborted by its caller.
func NewCancelled(operation string) *DiaryError {
	return &DiaryError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
		Details: map[string]any{"operation": operation},
	}
}

// NewRepository wraps a transcription store failure.
func NewRepository(err error) *DiaryError {
	return &DiaryError{
		Code:    ErrRepository,
		Status:  500,
		Message: fmt.Sprintf("transcription repository: %v", err),
		Cause:   err,
	}
}

// NewRemoteCreation wraps a failed assistant or thread creation.
// resource is "assistant" or "thread".
func NewRemoteCreation(resource string, err error) *DiaryError {
	return &DiaryError{
		Code:    ErrRemoteCreation,
		Status:  502,
		Message: fmt.Sprintf("failed to create %s: %v", resource, err),
		Details: map[string]any{"resource": resource},
		Cause:   err,
	}
}

// NewRemoteExecution creates an error for a run that reached a non-successful
// terminal state. reason is the remote-provided explanation.
func NewRemoteExecution(runID, status, reason string) *DiaryError {
	msg := fmt.Sprintf("run %s ended with status %s", runID, status)
	if reason != "" {
		msg += ": " + reason
	}
	return &DiaryError{
		Code:    ErrRemoteExecution,
		Status:  502,
		Message: msg,
		Details: map[string]any{"run_id": runID, "run_status": status, "reason": reason},
	}
}

// NewRemoteCall wraps a transport or API failure while talking to the remote agent
// outside of creation (posting messages, starting or polling runs).
func NewRemoteCall(operation string, err error) *DiaryError {
	return &DiaryError{
		Code:    ErrRemoteExecution,
		Status:  502,
		Message: fmt.Sprintf("%s: %v", operation, err),
		Details: map[string]any{"operation": operation},
		Cause:   err,
	}
}

// NewTimeout creates an error for a poll loop that exceeded its deadline.
func NewTimeout(operation string, after any) *DiaryError {
	return &DiaryError{
		Code:    ErrTimeout,
		Status:  504,
		Message: fmt.Sprintf("%s timed out after %v", operation, after),
		Details: map[string]any{"operation": operation},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *DiaryError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &DiaryError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Cause:   err,
	}
}

// Annotate returns a copy of err with extra details merged in and the message
// prefixed with prefix. Non-DiaryError values are wrapped as INTERNAL first.
func Annotate(err error, prefix string, details map[string]any) *DiaryError {
	if err == nil {
		return nil
	}
	var dErr *DiaryError
	if !stderrors.As(err, &dErr) {
		dErr = NewInternal(err)
	}
	merged := make(map[string]any, len(dErr.Details)+len(details))
	maps.Copy(merged, dErr.Details)
	maps.Copy(merged, details)

	msg := dErr.Message
	if prefix != "" {
		msg = prefix + ": " + msg
	}
	return &DiaryError{
		Code:    dErr.Code,
		Status:  dErr.Status,
		Message: msg,
		Details: merged,
		Cause:   dErr.Cause,
	}
}

// Is checks if err is, or wraps, a DiaryError with the given code.
func Is(err error, code ErrorCode) bool {
	var dErr *DiaryError
	if stderrors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// As returns the DiaryError in err's chain, if any.
func As(err error) (*DiaryError, bool) {
	var dErr *DiaryError
	ok := stderrors.As(err, &dErr)
	return dErr, ok
}
