// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Validation errors (100-199): Invalid parameters, configs, stop distances
//   - Market data errors (200-299): Warm-up, gaps, fetch and parse failures
//   - Indicator errors (300-399): Technical indicator calculation errors
//   - Strategy errors (400-499): Box tracker and signal generation errors
//   - Execution errors (500-599): Order submission, timeout, reconciliation
//   - State store errors (600-699): Persistence failures
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeInvalidParameter, "invalid parameter value")
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeExecutionRejected, "order refused", originalErr)
//
//	// Check error code
//	if errors.HasCode(err, errors.ErrCodeExecutionTimeout) { ... }
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard errors.Is function.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard errors.As function.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// IsFatal reports whether an error should halt the whole run rather than a
// single instrument's cycle. Only authentication failures from the execution
// collaborator qualify.
func IsFatal(err error) bool {
	return HasCode(err, ErrCodeExecutionAuthFailed)
}

// InsufficientHistoryError represents an error when warm-up is not complete
// and there are not enough bars for a calculation. Callers skip the cycle;
// it is never fatal.
type InsufficientHistoryError struct {
	Required int    // Minimum bars required
	Actual   int    // Actual bars available
	Symbol   string // Optional: symbol context
	Message  string // Human-readable message
}

// NewInsufficientHistoryError creates a new InsufficientHistoryError.
func NewInsufficientHistoryError(required, actual int, symbol, message string) *InsufficientHistoryError {
	return &InsufficientHistoryError{
		Required: required,
		Actual:   actual,
		Symbol:   symbol,
		Message:  message,
	}
}

// Error implements the error interface.
func (e *InsufficientHistoryError) Error() string {
	return e.Message
}

// IsInsufficientHistory checks if an error is an InsufficientHistoryError.
// It uses errors.As to check the error chain.
func IsInsufficientHistory(err error) bool {
	var insufficientErr *InsufficientHistoryError

	return errors.As(err, &insufficientErr)
}

// DataGapError represents a missing or out-of-order bar in a sequence that is
// assumed continuous. Callers skip the cycle until continuity is restored.
type DataGapError struct {
	Symbol   string
	Expected time.Time // Open time the next bar should have had
	Actual   time.Time // Open time actually observed
}

// Error implements the error interface.
func (e *DataGapError) Error() string {
	return fmt.Sprintf("data gap for %s: expected bar at %s, got %s",
		e.Symbol, e.Expected.Format(time.RFC3339), e.Actual.Format(time.RFC3339))
}

// IsDataGap checks if an error is a DataGapError.
func IsDataGap(err error) bool {
	var gapErr *DataGapError

	return errors.As(err, &gapErr)
}
