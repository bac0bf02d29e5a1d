// Package apperr defines the error taxonomy shared by services and HTTP handlers.
//
// A service decides both the Kind and the HTTP status of a failure, because the
// same kind maps to different codes depending on the operation (an unknown
// voucher is 401 while an unknown navbar link is 404).
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindConnectivity Kind = "connectivity"
	KindConflict     Kind = "conflict"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindInternal     Kind = "internal"
)

// Error is a classified failure carrying a user-visible message.
type Error struct {
	Kind    Kind
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap returns a copy of e with cause attached.
func (e *Error) Wrap(cause error) *Error {
	c := *e
	c.Err = cause
	return &c
}

func newError(kind Kind, code int, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Validation reports malformed or missing input.
func Validation(code int, message string) *Error {
	return newError(KindValidation, code, message)
}

// NotFound reports a missing voucher, product, server or other row.
func NotFound(code int, message string) *Error {
	return newError(KindNotFound, code, message)
}

// Connectivity reports an RCON transport or authentication failure.
func Connectivity(code int, message string, cause error) *Error {
	return newError(KindConnectivity, code, message).Wrap(cause)
}

// Conflict reports a duplicate or a lost race.
func Conflict(message string) *Error {
	return newError(KindConflict, http.StatusConflict, message)
}

func Unauthorized(message string) *Error {
	return newError(KindUnauthorized, http.StatusUnauthorized, message)
}

func Forbidden(message string) *Error {
	return newError(KindForbidden, http.StatusForbidden, message)
}

// Internal hides cause behind a generic message.
func Internal(cause error) *Error {
	return newError(KindInternal, http.StatusInternalServerError, "Wystąpił niespodziewany błąd.").Wrap(cause)
}

// As extracts the *Error from err. Unclassified errors become Internal.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
