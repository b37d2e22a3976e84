// Package core provides the shared types, errors, and configuration for the
// Recollect memory pipeline.
package core

import (
	"errors"
	"fmt"
)

// Predefined errors forming the pipeline error taxonomy.
var (
	// ErrValidation indicates malformed input to a step. Validation errors
	// are never retried and are surfaced to the caller directly.
	ErrValidation = errors.New("invalid input")

	// ErrExternalService indicates a failure in an external collaborator
	// (LLM, vector index, or database). Retryable with backoff.
	ErrExternalService = errors.New("external service failure")

	// ErrBudgetExceeded indicates a token or size limit was exceeded.
	// Not fatal; overruns surface as warnings on the turn result.
	ErrBudgetExceeded = errors.New("budget exceeded")

	// ErrPrivacyViolation indicates blocking sensitive content was detected
	// in incognito mode. Terminal for the turn, never retried.
	ErrPrivacyViolation = errors.New("privacy violation")

	// ErrNotFound indicates a requested memory or message was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Error codes carried on the step envelope so the API layer can map failures
// without parsing error strings.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeExternalService  = "EXTERNAL_SERVICE_ERROR"
	CodeBudgetExceeded   = "BUDGET_EXCEEDED"
	CodePrivacyViolation = "PRIVACY_VIOLATION"
	CodeInternal         = "INTERNAL_ERROR"
)

// PipelineError wraps errors with operation context.
//
// The format is: "recollect: <Op>: <Err>"
//
// Example:
//
//	err := &PipelineError{Op: "RunTurn", Err: ErrValidation}
//	// Error() returns: "recollect: RunTurn: invalid input"
type PipelineError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
func (e *PipelineError) Error() string {
	return fmt.Sprintf("recollect: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is / errors.As.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError creates a new PipelineError wrapping the given error.
//
// If err is nil, returns nil. This allows safe error wrapping:
//
//	if err != nil {
//	    return NewPipelineError("Retrieve", err)
//	}
func NewPipelineError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PipelineError{Op: op, Err: err}
}

// IsRetryable reports whether an error may be retried with backoff.
// Only external-service failures qualify; validation, budget, and privacy
// errors are not retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrExternalService)
}

// ErrorCode maps an error to its envelope error code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidConfig):
		return CodeValidation
	case errors.Is(err, ErrExternalService):
		return CodeExternalService
	case errors.Is(err, ErrBudgetExceeded):
		return CodeBudgetExceeded
	case errors.Is(err, ErrPrivacyViolation):
		return CodePrivacyViolation
	default:
		return CodeInternal
	}
}
