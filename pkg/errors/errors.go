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

	// App configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"

	// Template manifest errors
	ErrManifestParse        ErrorCode = "MANIFEST_PARSE"
	ErrManifestMissingField ErrorCode = "MANIFEST_MISSING_FIELD"
	ErrUnknownIntegration   ErrorCode = "MANIFEST_UNKNOWN_INTEGRATION"
	ErrTemplateNotFound     ErrorCode = "TEMPLATE_NOT_FOUND"

	// Condition errors
	ErrConditionSyntax ErrorCode = "CONDITION_SYNTAX"
	ErrUnknownVariable ErrorCode = "CONDITION_UNKNOWN_VARIABLE"

	// Render errors
	ErrUnboundVariable ErrorCode = "RENDER_UNBOUND_VARIABLE"
	ErrUnclosedBlock   ErrorCode = "RENDER_UNCLOSED_BLOCK"

	// Resolve errors
	ErrResolveRule ErrorCode = "RESOLVE_RULE"

	// Generation errors
	ErrGenerateIo ErrorCode = "GENERATE_IO"

	// Validation errors
	ErrToolMissing  ErrorCode = "TOOL_MISSING"
	ErrBuildFailed  ErrorCode = "BUILD_FAILED"
	ErrVerifyFailed ErrorCode = "VERIFY_FAILED"
	ErrStepTimeout  ErrorCode = "STEP_TIMEOUT"
)

// FuzzgenError represents a structured error with code and details
type FuzzgenError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *FuzzgenError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *FuzzgenError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *FuzzgenError) Is(target error) bool {
	var targetErr *FuzzgenError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new FuzzgenError with the given code and message
func New(code ErrorCode, message string) *FuzzgenError {
	return &FuzzgenError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new FuzzgenError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *FuzzgenError {
	return &FuzzgenError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a FuzzgenError
func Wrap(err error, code ErrorCode, message string) *FuzzgenError {
	if err == nil {
		return nil
	}
	return &FuzzgenError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *FuzzgenError {
	if err == nil {
		return nil
	}
	return &FuzzgenError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *FuzzgenError) WithDetail(key string, value interface{}) *FuzzgenError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var ferr *FuzzgenError
	if errors.As(err, &ferr) {
		return ferr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a FuzzgenError
func GetErrorCode(err error) ErrorCode {
	var ferr *FuzzgenError
	if errors.As(err, &ferr) {
		return ferr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a FuzzgenError
func GetErrorDetails(err error) map[string]interface{} {
	var ferr *FuzzgenError
	if errors.As(err, &ferr) {
		return ferr.Details
	}
	return nil
}
