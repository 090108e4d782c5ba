package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Configuration errors
	ErrCodeConfigInvalid    ErrorCode = "CONFIG_INVALID"
	ErrCodeConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// Hook input errors
	ErrCodeInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrCodeTranscriptInvalid ErrorCode = "TRANSCRIPT_INVALID"
	ErrCodeSessionIDMissing  ErrorCode = "SESSION_ID_MISSING"

	// Command execution errors
	ErrCodeCommandTimeout  ErrorCode = "COMMAND_TIMEOUT"
	ErrCodeCommandNotFound ErrorCode = "COMMAND_NOT_FOUND"
	ErrCodeCommandFailed   ErrorCode = "COMMAND_FAILED"

	// Git errors
	ErrCodeGitNotRepo      ErrorCode = "GIT_NOT_REPO"
	ErrCodeNothingToCommit ErrorCode = "NOTHING_TO_COMMIT"

	// State errors
	ErrCodeStateInvalid ErrorCode = "STATE_INVALID"

	// General errors
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"
)

// GroveError represents a structured error with context
type GroveError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *GroveError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *GroveError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *GroveError) WithDetail(key string, value interface{}) *GroveError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Fields returns the code and details as a flat map, suitable for
// structured loggers.
func (e *GroveError) Fields() map[string]interface{} {
	fields := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		fields[k] = v
	}
	fields["code"] = string(e.Code)
	return fields
}

// ToJSON converts the error to JSON
func (e *GroveError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new GroveError
func New(code ErrorCode, message string) *GroveError {
	return &GroveError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a GroveError
func Wrap(err error, code ErrorCode, message string) *GroveError {
	return &GroveError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is reports whether any GroveError in err's chain carries code.
func Is(err error, code ErrorCode) bool {
	for err != nil {
		var groveErr *GroveError
		if !stderrors.As(err, &groveErr) {
			return false
		}
		if groveErr.Code == code {
			return true
		}
		err = groveErr.Cause
	}
	return false
}

// GetCode returns the code of the outermost GroveError in err's chain, or
// "" when there is none.
func GetCode(err error) ErrorCode {
	var groveErr *GroveError
	if stderrors.As(err, &groveErr) {
		return groveErr.Code
	}
	return ""
}
