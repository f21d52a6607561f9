package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidState    = errors.New("invalid loan state")
	ErrNothingToUndo   = errors.New("nothing to undo")
	ErrLoanNotFound    = errors.New("loan not found")
	ErrLoanExists      = errors.New("loan already exists")
	ErrVersionConflict = errors.New("loan was modified concurrently")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeInvalidState    = "INVALID_STATE"
	ErrCodeNothingToUndo   = "NOTHING_TO_UNDO"
	ErrCodeLoanNotFound    = "LOAN_NOT_FOUND"
	ErrCodeLoanExists      = "LOAN_ALREADY_EXISTS"
	ErrCodeVersionConflict = "VERSION_CONFLICT"
	ErrCodeDatabaseError   = "DATABASE_ERROR"
	ErrCodeCacheError      = "CACHE_ERROR"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

func InvalidInput(format string, args ...interface{}) *BusinessError {
	return NewBusinessError(ErrCodeInvalidInput, fmt.Sprintf(format, args...), ErrInvalidInput)
}

func InvalidState(format string, args ...interface{}) *BusinessError {
	return NewBusinessError(ErrCodeInvalidState, fmt.Sprintf(format, args...), ErrInvalidState)
}

func NothingToUndo(format string, args ...interface{}) *BusinessError {
	return NewBusinessError(ErrCodeNothingToUndo, fmt.Sprintf(format, args...), ErrNothingToUndo)
}

// Wrap common errors with business context
func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapLoanAlreadyExists(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanExists,
		fmt.Sprintf("Loan with ID %s already exists", loanID),
		ErrLoanExists,
	)
}

func WrapVersionConflict(loanID string, version int64) *BusinessError {
	return NewBusinessError(
		ErrCodeVersionConflict,
		fmt.Sprintf("Loan with ID %s changed since version %d", loanID, version),
		ErrVersionConflict,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}

// CodeOf returns the business code carried by err, or ErrCodeInternal.
func CodeOf(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ErrCodeInternal
}
