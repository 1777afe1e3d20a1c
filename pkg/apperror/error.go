package apperror

import (
	"errors"
	"net/http"
)

// Kind classifies a failure independently of the transport.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindUnauthorized Kind = "unauthorized"
	KindInvalidState Kind = "invalid_state"
	KindValidation   Kind = "validation"
	KindForbidden    Kind = "forbidden"
	KindInternal     Kind = "internal"
)

type AppError struct {
	Code    int                    `json:"code"`
	Kind    Kind                   `json:"kind"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail attaches a key/value the caller can use to render a precise message.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func New(code int, kind Kind, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

func BadRequest(message string) *AppError {
	return New(http.StatusBadRequest, KindValidation, message, nil)
}

// Validation reports an invalid field.
func Validation(field, message string) *AppError {
	return BadRequest(message).WithDetail("field", field)
}

// Unauthorized is an actor mismatch: the caller is known but may not act here.
func Unauthorized(message string) *AppError {
	return New(http.StatusForbidden, KindUnauthorized, message, nil)
}

// Unauthenticated means no valid identity came with the request.
func Unauthenticated(message string) *AppError {
	return New(http.StatusUnauthorized, KindUnauthorized, message, nil)
}

func Forbidden(message string) *AppError {
	return New(http.StatusForbidden, KindForbidden, message, nil)
}

func NotFound(message string) *AppError {
	return New(http.StatusNotFound, KindNotFound, message, nil)
}

func Conflict(message string) *AppError {
	return New(http.StatusConflict, KindConflict, message, nil)
}

func InvalidState(message string) *AppError {
	return New(http.StatusConflict, KindInvalidState, message, nil)
}

func Internal(err error) *AppError {
	return New(http.StatusInternalServerError, KindInternal, "Internal Server Error", err)
}

// IsKind reports whether err is, or wraps, an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}
