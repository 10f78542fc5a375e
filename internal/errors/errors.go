// Package errors defines the coded errors the catalog returns to its
// callers. A Code names the failure class; the API layer turns it into an
// HTTP status and a machine-readable body.
//
//	book, err := svc.GetBook(ctx, userID, id)
//	if errors.Is(err, errors.ErrNotFound) {
//	    // another owner's book looks exactly like a missing one
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard library helpers, so callers need only this package.
var (
	Is  = errors.Is
	As  = errors.As
	New = errors.New
)

// Code is a machine-readable failure class.
type Code string

// Error codes.
const (
	CodeValidation         Code = "VALIDATION"
	CodeNotFound           Code = "NOT_FOUND"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeInternal           Code = "INTERNAL"
)

var statusByCode = map[Code]int{
	CodeValidation:         http.StatusBadRequest,
	CodeNotFound:           http.StatusNotFound,
	CodeUnauthorized:       http.StatusUnauthorized,
	CodeInvalidCredentials: http.StatusUnauthorized,
	CodeAlreadyExists:      http.StatusConflict,
	CodeRateLimited:        http.StatusTooManyRequests,
}

// HTTPStatus maps c to a response status; unknown codes are 500.
func (c Code) HTTPStatus() int {
	if status, ok := statusByCode[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Error carries a code, a client-safe message and optional details such as
// per-field validation messages. The cause is logged, never serialized.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.cause.Error()
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// HTTPStatus returns the status for e's code.
func (e *Error) HTTPStatus() int { return e.Code.HTTPStatus() }

// GetStatus lets huma render e with its own status.
func (e *Error) GetStatus() int { return e.Code.HTTPStatus() }

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details any) *Error {
	c := *e
	c.Details = details
	return &c
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	c := *e
	c.cause = err
	return &c
}

// Sentinels for errors.Is; only the code is compared.
var (
	ErrValidation         = &Error{Code: CodeValidation, Message: "validation error"}
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrUnauthorized       = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Message: "invalid credentials"}
	ErrAlreadyExists      = &Error{Code: CodeAlreadyExists, Message: "already exists"}
)

func newError(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Validation reports bad input.
func Validation(msg string) *Error { return newError(CodeValidation, msg) }

// ValidationWithDetails reports bad input with per-field messages.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// NotFound reports a missing or foreign resource.
func NotFound(msg string) *Error { return newError(CodeNotFound, msg) }

// NotFoundf is NotFound with a formatted message.
func NotFoundf(format string, args ...any) *Error {
	return newError(CodeNotFound, fmt.Sprintf(format, args...))
}

// Unauthorized reports a missing or invalid identity.
func Unauthorized(msg string) *Error { return newError(CodeUnauthorized, msg) }

// InvalidCredentials reports a failed login.
func InvalidCredentials(msg string) *Error { return newError(CodeInvalidCredentials, msg) }

// AlreadyExists reports a uniqueness conflict.
func AlreadyExists(msg string) *Error { return newError(CodeAlreadyExists, msg) }

// Wrap attaches code and msg to err.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}
