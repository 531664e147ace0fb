// Package apperr holds the error kinds every ParcelBox operation reports and
// their mapping onto HTTP status codes.
package apperr

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindInvalidInput
	KindInvalidTransition
	KindNoContent
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindNoContent:
		return "no_content"
	case KindUpstream:
		return "upstream_failure"
	default:
		return "unknown"
	}
}

// Error carries a Kind and a message safe to show to the caller.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind, so callers can compare against the
// Err* sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrUnauthenticated   = &Error{Kind: KindUnauthenticated}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrNoContent         = &Error{Kind: KindNoContent}
	ErrUpstream          = &Error{Kind: KindUpstream}
)

func Unauthenticated(msg string) error { return &Error{Kind: KindUnauthenticated, Message: msg} }

func Forbidden(msg string) error { return &Error{Kind: KindForbidden, Message: msg} }

func NotFound(msg string) error { return &Error{Kind: KindNotFound, Message: msg} }

func NoContent(msg string) error { return &Error{Kind: KindNoContent, Message: msg} }

func InvalidInput(format string, args ...any) error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func InvalidTransition(format string, args ...any) error {
	return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

// Upstream wraps a store or gateway failure. Errors that already carry a kind
// pass through untouched, nil stays nil.
func Upstream(err error, msg string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindUpstream, Message: msg, Cause: err}
}

// KindOf reports the kind of err; errors without one are upstream failures.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}

// Message returns the caller-facing message of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "internal error"
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound, KindNoContent:
		return http.StatusNotFound
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindInvalidTransition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
