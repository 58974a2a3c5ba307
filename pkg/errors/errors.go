package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrNotFound     ErrorCode = "NOT_FOUND"
	ErrPermission   ErrorCode = "PERMISSION"

	// Configuration errors
	ErrConfigParse   ErrorCode = "CONFIG_PARSE"
	ErrConfigInvalid ErrorCode = "CONFIG_INVALID"
	ErrConfigFormat  ErrorCode = "CONFIG_FORMAT"

	// Registry errors
	ErrRegistryDuplicate   ErrorCode = "REGISTRY_DUPLICATE"
	ErrRegistryInvalid     ErrorCode = "REGISTRY_INVALID"
	ErrRegistryUnknown     ErrorCode = "REGISTRY_UNKNOWN"
	ErrRegistryUnavailable ErrorCode = "REGISTRY_UNAVAILABLE"

	// Execution errors
	ErrCommandFailed ErrorCode = "COMMAND_FAILED"
	ErrAborted       ErrorCode = "ABORTED"

	// FileSystem errors
	ErrFileNotFound  ErrorCode = "FILE_NOT_FOUND"
	ErrFileAccess    ErrorCode = "FILE_ACCESS"
	ErrFileWrite     ErrorCode = "FILE_WRITE"
	ErrSymlinkSource ErrorCode = "SYMLINK_SOURCE"
	ErrSymlinkCreate ErrorCode = "SYMLINK_CREATE"
)

// HostupError represents a structured error with code and details
type HostupError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *HostupError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *HostupError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *HostupError) Is(target error) bool {
	var targetErr *HostupError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new HostupError with the given code and message
func New(code ErrorCode, message string) *HostupError {
	return &HostupError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new HostupError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *HostupError {
	return &HostupError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a HostupError
func Wrap(err error, code ErrorCode, message string) *HostupError {
	if err == nil {
		return nil
	}
	return &HostupError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *HostupError {
	if err == nil {
		return nil
	}
	return &HostupError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *HostupError) WithDetail(key string, value interface{}) *HostupError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var hostupErr *HostupError
	if errors.As(err, &hostupErr) {
		return hostupErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a HostupError
func GetErrorCode(err error) ErrorCode {
	var hostupErr *HostupError
	if errors.As(err, &hostupErr) {
		return hostupErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a HostupError
func GetErrorDetails(err error) map[string]interface{} {
	var hostupErr *HostupError
	if errors.As(err, &hostupErr) {
		return hostupErr.Details
	}
	return nil
}
