// Package roomerrors defines the categorized error taxonomy the core raises
// and the transport maps to a wire-level response.
package roomerrors

import "fmt"

type Kind string

const (
	NotFoundKind        Kind = "not_found"
	BadRequestKind      Kind = "bad_request"
	ForbiddenKind       Kind = "forbidden"
	ConflictKind        Kind = "conflict"
	TooManyRequestsKind Kind = "too_many_requests"
	UnauthorizedKind    Kind = "unauthorized"
	InternalKind        Kind = "internal"
)

// Error is a categorized failure. Code carries an optional machine-readable
// reason (e.g. "PRIVATE_ROOM") alongside the human-readable Message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newErr(kind Kind, code string, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return newErr(NotFoundKind, "", format, args...)
}

func BadRequest(format string, args ...any) *Error {
	return newErr(BadRequestKind, "", format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return newErr(ForbiddenKind, "", format, args...)
}

func ForbiddenCode(code string, format string, args ...any) *Error {
	return newErr(ForbiddenKind, code, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newErr(ConflictKind, "", format, args...)
}

func TooManyRequests(format string, args ...any) *Error {
	return newErr(TooManyRequestsKind, "", format, args...)
}

func Internal(format string, args ...any) *Error {
	return newErr(InternalKind, "", format, args...)
}

// As attempts to recover a *Error from a generic error, returning nil and
// ok=false for anything the core didn't categorize itself.
func As(err error) (*Error, bool) {
	if e, ok := err.(*Error); ok {
		return e, true
	}
	return nil, false
}

// HTTPStatus maps a Kind to the status code spec.md §7 requires.
func (k Kind) HTTPStatus() int {
	switch k {
	case NotFoundKind:
		return 404
	case BadRequestKind:
		return 400
	case ForbiddenKind:
		return 403
	case ConflictKind:
		return 409
	case TooManyRequestsKind:
		return 429
	case UnauthorizedKind:
		return 401
	default:
		return 500
	}
}
