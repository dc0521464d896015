// Package apperr holds the error taxonomy shared by the comment services and
// the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation       Kind = "VALIDATION_ERROR"
	KindNotAuthenticated Kind = "NOT_AUTHENTICATED"
	KindForbidden        Kind = "FORBIDDEN"
	KindNotFound         Kind = "NOT_FOUND"
	KindInvalidParent    Kind = "INVALID_PARENT"
	KindUpstreamWrite    Kind = "UPSTREAM_WRITE_FAILURE"
	KindInternal         Kind = "INTERNAL"
)

// Error is a request-level failure. Two errors match under errors.Is when
// their kinds are equal, so callers can compare against the sentinels below.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrValidation       = &Error{Kind: KindValidation, Message: "Invalid request"}
	ErrNotAuthenticated = &Error{Kind: KindNotAuthenticated, Message: "Authentication required"}
	ErrForbidden        = &Error{Kind: KindForbidden, Message: "You are not permitted to perform this action"}
	ErrNotFound         = &Error{Kind: KindNotFound, Message: "Resource not found"}
	ErrInvalidParent    = &Error{Kind: KindInvalidParent, Message: "Replies must target a top-level comment on the same post"}
	ErrUpstreamWrite    = &Error{Kind: KindUpstreamWrite, Message: "Secondary write failed"}
	ErrInternal         = &Error{Kind: KindInternal, Message: "Internal server error"}
)

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error { return New(KindValidation, message) }

func NotFound(message string) *Error { return New(KindNotFound, message) }

func Forbidden(message string) *Error { return New(KindForbidden, message) }

// KindOf reports the kind of err, or KindInternal for anything outside the
// taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Status maps an error onto the HTTP status code returned to clients.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotAuthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidParent:
		return http.StatusUnprocessableEntity
	case KindUpstreamWrite:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text safe to show a client. Internal failures
// never leak their cause.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return ErrInternal.Message
}
