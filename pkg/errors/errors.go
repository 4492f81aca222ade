package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive or pending approval")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	// Asset lifecycle taxonomy. Store failures raised through these are
	// surfaced to the caller as-is; the services never retry them.
	ErrPersistence      = New("PERSISTENCE_ERROR", http.StatusBadGateway, "store operation failed")
	ErrQRSizeExceeded   = New("QR_SIZE_EXCEEDED", http.StatusRequestEntityTooLarge, "generated QR image exceeds the size ceiling")
	ErrQRSizeConfirm    = New("QR_SIZE_CONFIRMATION_REQUIRED", http.StatusConflict, "generated QR image exceeds the warning threshold; retry with acceptOversize")
	ErrArchivalFailed   = New("ARCHIVAL_FAILED", http.StatusBadGateway, "archive snapshot could not be written; live record untouched")
	ErrPartialDeletion  = New("PARTIAL_DELETION", http.StatusInternalServerError, "archive written but live record removal failed; manual reconciliation required")
	ErrVersionMismatch  = New("VERSION_CONFLICT", http.StatusConflict, "record was modified by another session")
	ErrAlreadyProcessed = New("ALREADY_PROCESSED", http.StatusConflict, "registration request already processed")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// HasCode reports whether err carries the same taxonomy code as target.
func HasCode(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code == target.Code
	}
	return false
}
