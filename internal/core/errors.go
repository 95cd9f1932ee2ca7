package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation ErrorCategory = "validation" // Malformed/disallowed input
	ErrCatSafety     ErrorCategory = "safety"     // SQL failed read-only/allowlist checks
	ErrCatExecution  ErrorCategory = "execution"  // Backend/driver failure
	ErrCatCapability ErrorCategory = "capability" // Generation capability failure or timeout
	ErrCatArtifact   ErrorCategory = "artifact"   // Required upstream data missing
	ErrCatConfig     ErrorCategory = "config"     // Invalid configuration
	ErrCatInternal   ErrorCategory = "internal"   // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// ErrValidation creates a validation error. Its message is safe to
// surface verbatim to the caller.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrSafety creates a safety violation. Terminal for the offending
// statement; never retried with the same text.
func ErrSafety(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatSafety,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrExecution creates an execution error. Retryable with freshly
// generated SQL, subject to the attempt ceiling.
func ErrExecution(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatExecution,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrCapability creates a generation capability error. Timeouts map
// here too; they are handled identically.
func ErrCapability(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatCapability,
		Code:      CodeCapabilityFailed,
		Message:   message,
		Retryable: false,
	}
}

// ErrMissingArtifact creates an error for a stage that needed data a
// prior stage did not produce. Recoverable via NeedsRetry while the
// attempt ceiling allows.
func ErrMissingArtifact(artifact string) *DomainError {
	return &DomainError{
		Category:  ErrCatArtifact,
		Code:      CodeMissingArtifact,
		Message:   fmt.Sprintf("required artifact missing: %s", artifact),
		Retryable: true,
	}
}

// ErrConfig creates a configuration error.
func ErrConfig(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatConfig,
		Code:      CodeInvalidConfig,
		Message:   message,
		Retryable: false,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// UserMessage returns the caller-safe message for an error. Validation
// and safety messages pass through; everything else collapses to a
// generic message so driver internals never leak.
func UserMessage(err error) string {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		switch domErr.Category {
		case ErrCatValidation, ErrCatSafety, ErrCatArtifact, ErrCatConfig:
			return domErr.Message
		case ErrCatExecution:
			return "query failed"
		case ErrCatCapability:
			return "generation failed"
		}
	}
	return "internal error"
}

// Predefined error codes
const (
	CodeEmptySQL         = "EMPTY_SQL"
	CodeBlockedKeyword   = "BLOCKED_KEYWORD"
	CodeIllegalStatement = "ILLEGAL_STATEMENT"
	CodeMultiStatement   = "MULTI_STATEMENT"
	CodeUnsupportedSQL   = "UNSUPPORTED_SQL"
	CodeTableNotAllowed  = "TABLE_NOT_ALLOWED"
	CodeQueryFailed      = "QUERY_FAILED"
	CodeConnectFailed    = "CONNECT_FAILED"
	CodeSchemaFailed     = "SCHEMA_FAILED"
	CodeCapabilityFailed = "CAPABILITY_FAILED"
	CodeMissingArtifact  = "MISSING_ARTIFACT"
	CodeInvalidConfig    = "INVALID_CONFIG"
	CodeEmptyQuestion    = "EMPTY_QUESTION"
)
