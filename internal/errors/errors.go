package errors

import "fmt"

// ErrorCode represents a Strand error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"    // 400
	ErrNotFound         ErrorCode = "NOT_FOUND"          // 404
	ErrSequenceNotFound ErrorCode = "SEQUENCE_NOT_FOUND" // 404
	ErrSequenceComplete ErrorCode = "SEQUENCE_COMPLETE"  // 409
	ErrInternal         ErrorCode = "INTERNAL"           // 500
)

// StrandError represents a structured error with code, status, and details.
type StrandError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *StrandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *StrandError {
	return &StrandError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing record.
func NewNotFound(identifier string) *StrandError {
	return &StrandError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewSequenceNotFound creates a 404 error for a missing thinking sequence.
func NewSequenceNotFound(id int64) *StrandError {
	return &StrandError{
		Code:    ErrSequenceNotFound,
		Status:  404,
		Message: fmt.Sprintf("thinking sequence not found: %d", id),
		Details: map[string]any{"sequence_id": id},
	}
}

// NewSequenceComplete creates a 409 error for appends against a finished
// sequence. Completion is terminal; callers must start a new sequence.
func NewSequenceComplete(id int64) *StrandError {
	return &StrandError{
		Code:    ErrSequenceComplete,
		Status:  409,
		Message: fmt.Sprintf("sequence %d is already complete; start a new sequence to continue reasoning", id),
		Details: map[string]any{"sequence_id": id},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *StrandError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &StrandError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a StrandError with the given code.
func Is(err error, code ErrorCode) bool {
	if sErr, ok := err.(*StrandError); ok {
		return sErr.Code == code
	}
	return false
}
