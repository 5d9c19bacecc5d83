// Package apperr carries client-facing failures from services to the HTTP error
// normalizer. An Error pairs a domain sentinel (its Kind) with the message the
// client sees, and records the call stack where it was created.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"

	"github.com/go-bff-auth/internal/domain"
)

type Error struct {
	Kind    error
	Message string
	Err     error
	stack   []uintptr
}

// New returns an Error of the given kind with a client-facing message.
func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message, stack: callers()}
}

// Wrap is New with an underlying cause kept for logs and errors.Is.
func Wrap(kind error, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err, stack: callers()}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// Stack formats the frames captured at construction, one per line.
func (e *Error) Stack() string {
	return formatStack(e.stack)
}

// StatusCode maps the error kind to an HTTP status.
func (e *Error) StatusCode() int {
	return Status(e.Kind)
}

// Status maps a domain sentinel to an HTTP status. Unknown kinds are 500.
func Status(kind error) int {
	switch {
	case errors.Is(kind, domain.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(kind, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(kind, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(kind, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(kind, domain.ErrGone):
		return http.StatusGone
	case errors.Is(kind, domain.ErrTooMany):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	ok := errors.As(err, &ae)
	return ae, ok
}

// StackOf returns the recorded stack for app errors or the current stack otherwise.
func StackOf(err error) string {
	if ae, ok := As(err); ok {
		return ae.Stack()
	}
	return formatStack(callers())
}

func BadRequest(msg string) *Error   { return New(domain.ErrBadRequest, msg) }
func Unauthorized(msg string) *Error { return New(domain.ErrUnauthorized, msg) }
func Forbidden(msg string) *Error    { return New(domain.ErrForbidden, msg) }
func NotFound(msg string) *Error     { return New(domain.ErrNotFound, msg) }
func Conflict(msg string) *Error     { return New(domain.ErrConflict, msg) }
func Gone(msg string) *Error         { return New(domain.ErrGone, msg) }

// Errorf builds a message with fmt semantics.
func Errorf(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), stack: callers()}
}

func callers() []uintptr {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	return pcs[:n]
}

func formatStack(pcs []uintptr) string {
	if len(pcs) == 0 {
		return ""
	}
	var b strings.Builder
	frames := runtime.CallersFrames(pcs)
	for {
		f, more := frames.Next()
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", f.Function, f.File, f.Line)
		if !more {
			break
		}
	}
	return b.String()
}

// CheckUserAccess rejects blocked and soft-deleted clients. Admins always pass.
func CheckUserAccess(u *domain.User) error {
	switch {
	case u.Blocked():
		return Forbidden("User is blocked")
	case u.Deleted():
		return Gone("User doesn't exist anymore")
	}
	return nil
}
