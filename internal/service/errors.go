package service

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a domain failure carrying the HTTP status the boundary should
// answer with. Constructed at the point of detection and propagated
// unchanged; anything else surfacing at the handler becomes a generic 500.
type Error struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

const (
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeUnauthenticated = "UNAUTHENTICATED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeInvalidState    = "INVALID_STATE"
	ErrCodeExternalService = "EXTERNAL_SERVICE"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

func NewInvalidInputError(message string) *Error {
	return &Error{Code: ErrCodeInvalidInput, Message: message, HTTPStatus: http.StatusBadRequest}
}

func NewUnauthenticatedError(message string) *Error {
	return &Error{Code: ErrCodeUnauthenticated, Message: message, HTTPStatus: http.StatusUnauthorized}
}

func NewForbiddenError(message string) *Error {
	return &Error{Code: ErrCodeForbidden, Message: message, HTTPStatus: http.StatusForbidden}
}

func NewNotFoundError(message string) *Error {
	return &Error{Code: ErrCodeNotFound, Message: message, HTTPStatus: http.StatusNotFound}
}

func NewConflictError(message string) *Error {
	return &Error{Code: ErrCodeConflict, Message: message, HTTPStatus: http.StatusConflict}
}

// InvalidState maps to 400: the action is well-formed but disallowed by the
// resource's current lifecycle state (unpaid refund, expired refresh token).
func NewInvalidStateError(message string) *Error {
	return &Error{Code: ErrCodeInvalidState, Message: message, HTTPStatus: http.StatusBadRequest}
}

func NewExternalServiceError(message string, err error) *Error {
	return &Error{Code: ErrCodeExternalService, Message: message, HTTPStatus: http.StatusInternalServerError, Err: err}
}

func NewInternalError(err error) *Error {
	return &Error{Code: ErrCodeInternal, Message: "internal server error", HTTPStatus: http.StatusInternalServerError, Err: err}
}

// AsError unwraps a domain error from an error chain.
func AsError(err error) (*Error, bool) {
	var svcErr *Error
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}
