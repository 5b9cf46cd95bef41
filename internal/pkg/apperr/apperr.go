// Package apperr is the error taxonomy shared by services and the HTTP layer.
// Services return *AppError values (usually package-level sentinels); the
// transport maps Code to a status without inspecting messages.
package apperr

import (
	"errors"
	"fmt"
)

type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is matches on code and message so that a wrapped copy of a sentinel still
// satisfies errors.Is against the sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func Validation(msg string) error      { return New(CodeValidation, msg) }
func NotFound(msg string) error        { return New(CodeNotFound, msg) }
func Conflict(msg string) error        { return New(CodeConflict, msg) }
func Unauthorized(msg string) error    { return New(CodeUnauthorized, msg) }
func Forbidden(msg string) error       { return New(CodeForbidden, msg) }
func TooManyRequests(msg string) error { return New(CodeTooManyRequests, msg) }

func BadUpstream(msg string, cause error) error {
	return Wrap(CodeBadUpstream, msg, cause)
}

// CodeOf returns the code of the outermost AppError in err's chain, or
// CodeInternal for anything else.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// MessageOf returns the client-safe message of an AppError.
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}
