// Package errors defines the application error type shared by the service,
// repository and HTTP layers.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels classify failures. AppErrors wrap one of them so callers can
// branch with errors.Is without knowing the HTTP mapping.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("conflict")
	ErrGone          = errors.New("gone")
	ErrPaymentFailed = errors.New("payment failed")
	ErrUnavailable   = errors.New("service unavailable")
)

// sentinelStatus is consulted in order by HTTPStatus.
var sentinelStatus = []struct {
	err    error
	status int
}{
	{ErrNotFound, http.StatusNotFound},
	{ErrAlreadyExists, http.StatusConflict},
	{ErrConflict, http.StatusConflict},
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrUnauthorized, http.StatusUnauthorized},
	{ErrForbidden, http.StatusForbidden},
	{ErrGone, http.StatusGone},
	{ErrPaymentFailed, http.StatusUnprocessableEntity},
	{ErrUnavailable, http.StatusServiceUnavailable},
}

// AppError is an error with a stable machine-readable code and the HTTP
// status it maps to.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

// New creates an AppError wrapping cause.
func New(code string, status int, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Status: status, Err: cause}
}

// Wrap creates an AppError whose message is the text of cause.
func Wrap(code string, status int, cause error) *AppError {
	return New(code, status, cause.Error(), cause)
}

func (e *AppError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// NotFound reports a missing resource.
func NotFound(resource, id string) *AppError {
	return New("NOT_FOUND", http.StatusNotFound, fmt.Sprintf("%s %s not found", resource, id), ErrNotFound)
}

// AlreadyExists reports a unique key clash.
func AlreadyExists(resource, field, value string) *AppError {
	return New("ALREADY_EXISTS", http.StatusConflict,
		fmt.Sprintf("%s with %s %q already exists", resource, field, value), ErrAlreadyExists)
}

// InvalidInput reports a malformed request.
func InvalidInput(message string) *AppError {
	return New("INVALID_INPUT", http.StatusBadRequest, message, ErrInvalidInput)
}

func Unauthorized(message string) *AppError {
	return New("UNAUTHORIZED", http.StatusUnauthorized, message, ErrUnauthorized)
}

func Forbidden(message string) *AppError {
	return New("FORBIDDEN", http.StatusForbidden, message, ErrForbidden)
}

// Conflict reports a request that clashes with the current resource state.
func Conflict(message string) *AppError {
	return New("CONFLICT", http.StatusConflict, message, ErrConflict)
}

func Gone(message string) *AppError {
	return New("GONE", http.StatusGone, message, ErrGone)
}

// PaymentFailed reports a charge or refund rejected by the payment provider.
func PaymentFailed(message string) *AppError {
	return New("PAYMENT_FAILED", http.StatusUnprocessableEntity, message, ErrPaymentFailed)
}

// Unavailable reports a dependency that cannot serve requests right now.
func Unavailable(message string) *AppError {
	return New("SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, message, ErrUnavailable)
}

// HTTPStatus returns the status for err: the AppError status when there is
// one, otherwise the status of the first matching sentinel, otherwise 500.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	for _, s := range sentinelStatus {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}
