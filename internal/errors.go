package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeUnavailable  ErrorType = "UNAVAILABLE"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal     ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeAccountBlocked     ErrorCode = "ACCOUNT_BLOCKED"
	ErrCodeEmailUnconfirmed   ErrorCode = "EMAIL_UNCONFIRMED"
	ErrCodeLoginFailed        ErrorCode = "LOGIN_FAILED"

	ErrCodeNoValidToken   ErrorCode = "NO_VALID_TOKEN"
	ErrCodeSessionExpired ErrorCode = "SESSION_EXPIRED"
	ErrCodeUnauthorized   ErrorCode = "UNAUTHORIZED_ACCESS"
	ErrCodeForbidden      ErrorCode = "INSUFFICIENT_PERMISSIONS"

	ErrCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	ErrCodeUpstreamError       ErrorCode = "UPSTREAM_ERROR"
)

type AppError struct {
	Type       ErrorType `json:"type"`
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches AppErrors by code, so copies produced by WithCause and
// WithMessage still compare equal to their sentinel under errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy carrying the underlying error, so the shared
// sentinel values below are never mutated.
func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

// WithMessage returns a copy with a more specific user-facing message.
func (e *AppError) WithMessage(message string) *AppError {
	clone := *e
	clone.Message = message
	return &clone
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewUnavailableError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnavailable,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrInvalidCredentials = NewUnauthorizedError("Invalid identifier or password", ErrCodeInvalidCredentials)
	ErrAccountBlocked     = NewForbiddenError("Your account has been blocked by an administrator", ErrCodeAccountBlocked)
	ErrEmailUnconfirmed   = NewUnauthorizedError("Your account email is not confirmed", ErrCodeEmailUnconfirmed)
	ErrLoginFailed        = NewUnauthorizedError("Login failed", ErrCodeLoginFailed)

	ErrNoValidToken        = NewUnauthorizedError("No valid authentication token", ErrCodeNoValidToken)
	ErrSessionExpired      = NewUnauthorizedError("Session has expired", ErrCodeSessionExpired)
	ErrUnauthorized        = NewUnauthorizedError("Unauthorized", ErrCodeUnauthorized)
	ErrForbidden           = NewForbiddenError("Insufficient permissions", ErrCodeForbidden)
	ErrUpstreamUnavailable = NewUnavailableError("CRM backend is unreachable", ErrCodeUpstreamUnavailable)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType `json:"type"`
		Code    ErrorCode `json:"code"`
		Message string    `json:"message"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
	})
}
