package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Every domain error wraps exactly one of these.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrNotAvailable = errors.New("not available")
	ErrInvalidState = errors.New("invalid state")
	ErrConflict     = errors.New("conflict")
)

var (
	// ErrBookNotFound is returned when a book does not exist.
	ErrBookNotFound = newKindError(ErrNotFound, "book not found")
	// ErrCopyNotFound is returned when a book copy does not exist.
	ErrCopyNotFound = newKindError(ErrNotFound, "book copy not found")
	// ErrBorrowNotFound is returned when a borrow record does not exist.
	ErrBorrowNotFound = newKindError(ErrNotFound, "borrow record not found")
	// ErrUserNotFound is returned when a user does not exist.
	ErrUserNotFound = newKindError(ErrNotFound, "user not found")
	// ErrCopyNotAvailable is returned when a copy is already on loan.
	ErrCopyNotAvailable = newKindError(ErrNotAvailable, "book copy is already issued")
	// ErrAlreadyReturned is returned when returning or extending a closed borrow record.
	ErrAlreadyReturned = newKindError(ErrInvalidState, "borrow record is already returned")
	// ErrBookOnLoan is returned when deleting a book with copies still on loan.
	ErrBookOnLoan = newKindError(ErrInvalidState, "book has copies on loan")
	// ErrUserHasLoans is returned when deleting a user with open borrow records.
	ErrUserHasLoans = newKindError(ErrInvalidState, "user has books on loan")
	// ErrUserInactive is returned when an inactive user tries to borrow.
	ErrUserInactive = newKindError(ErrInvalidState, "user account is inactive")
	// ErrEmailTaken is returned when another user already owns the email.
	ErrEmailTaken = newKindError(ErrConflict, "user with this email already exists")
)

type kindError struct {
	kind error
	msg  string
}

func newKindError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (e *kindError) Error() string {
	return e.msg
}

func (e *kindError) Unwrap() error {
	return e.kind
}

// Validationf builds a validation error with a caller-facing message.
func Validationf(format string, args ...interface{}) error {
	return newKindError(ErrValidation, fmt.Sprintf(format, args...))
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Message: e.Message,
		Error:   e.Message,
		Code:    e.Code,
	}
}

// IsInternal reports whether err falls outside every known kind.
func IsInternal(err error) bool {
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrNotAvailable, ErrInvalidState, ErrConflict} {
		if errors.Is(err, kind) {
			return false
		}
	}
	return true
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrValidation):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
	case errors.Is(err, ErrNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, ErrNotAvailable):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "NOT_AVAILABLE")
	case errors.Is(err, ErrInvalidState):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_STATE")
	case errors.Is(err, ErrConflict):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "CONFLICT")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
