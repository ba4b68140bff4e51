package retouch

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a failure so the batch runner can log it usefully
// without inspecting provider-specific error types.
type ErrorCode string

const (
	InvalidArgument ErrorCode = "invalid_argument"
	Unauthorized    ErrorCode = "unauthorized"
	RateLimited     ErrorCode = "rate_limited"
	Timeout         ErrorCode = "timeout"
	Unavailable     ErrorCode = "unavailable"
	Refused         ErrorCode = "refused"
	Internal        ErrorCode = "internal"
)

// RetouchError is the error contract shared by the pipeline and backends.
type RetouchError interface {
	error
	Code() ErrorCode
	BackendName() string
}

type retouchError struct {
	code    ErrorCode
	message string
	cause   error
	backend string
}

func (e *retouchError) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *retouchError) Unwrap() error {
	return e.cause
}

func (e *retouchError) Code() ErrorCode {
	return e.code
}

func (e *retouchError) BackendName() string {
	return e.backend
}

func NewError(code ErrorCode, message string) *retouchError {
	return &retouchError{
		code:    code,
		message: message,
	}
}

func (e *retouchError) WithCause(cause error) *retouchError {
	e.cause = cause
	return e
}

func (e *retouchError) WithBackend(name string) *retouchError {
	e.backend = name
	return e
}

// IsRefused reports whether the backend answered with text instead of an
// image (typically a content policy response).
func IsRefused(err error) bool {
	return GetErrorCode(err) == Refused
}

// GetErrorCode extracts the ErrorCode from err, unwrapping as needed.
// Unclassified errors map to Internal.
func GetErrorCode(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var re RetouchError
	if errors.As(err, &re) {
		return re.Code()
	}
	return Internal
}
