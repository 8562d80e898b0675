package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so the sentinels below
// work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// StatusCode maps the error code to an HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrBadRequest:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrSlotUnavailable, ErrAlreadyCanceled, ErrNotEligible:
		return http.StatusConflict
	case ErrPersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrSlotUnavailable
	ErrAlreadyCanceled
	ErrNotEligible
	ErrPersistence
)

// Sentinels for errors.Is checks.
var (
	NotFoundError        = &AppError{Code: ErrNotFound}
	ValidationError      = &AppError{Code: ErrBadRequest}
	SlotUnavailableError = &AppError{Code: ErrSlotUnavailable}
	AlreadyCanceledError = &AppError{Code: ErrAlreadyCanceled}
	NotEligibleError     = &AppError{Code: ErrNotEligible}
	PersistenceError     = &AppError{Code: ErrPersistence}
	InternalError        = &AppError{Code: ErrInternal}
)

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// Common errors
func NotFound(resource string, err error) *AppError {
	return NewNotFound(resource, err)
}

func BadRequest(message string, err error) *AppError {
	return NewBadRequest(message, err)
}

func Internal(err error) *AppError {
	return NewInternal(err)
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

func SlotUnavailable(message string, err error) *AppError {
	if message == "" {
		message = "the selected slot is no longer available"
	}
	return &AppError{
		Code:    ErrSlotUnavailable,
		Message: message,
		Err:     err,
	}
}

func AlreadyCanceled(err error) *AppError {
	return &AppError{
		Code:    ErrAlreadyCanceled,
		Message: "appointment is already canceled",
		Err:     err,
	}
}

func NotEligible(message string, err error) *AppError {
	return &AppError{
		Code:    ErrNotEligible,
		Message: message,
		Err:     err,
	}
}

// Persistence reports a retryable storage failure. The message stays generic.
func Persistence(err error) *AppError {
	return &AppError{
		Code:    ErrPersistence,
		Message: "service temporarily unavailable, please retry",
		Err:     err,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or ErrInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// IsApp reports whether err already carries an AppError.
func IsApp(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// Is and As forward to the standard library so callers need one import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target interface{}) bool { return stderrors.As(err, target) }
