// Package apierror defines the error Kinds the router maps to HTTP
// status codes, so handlers can return a plain error and let the
// middleware layer decide the response shape.
package apierror

import (
	"fmt"
	"net/http"

	"emperror.dev/errors"
)

// Kind is one of the six error categories from the error handling design.
type Kind int

const (
	KindValidation Kind = iota
	KindAuthz
	KindNotFound
	KindPathDenied
	KindTransient
	KindActionPolicy
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthz:
		return "authz"
	case KindNotFound:
		return "not_found"
	case KindPathDenied:
		return "path_denied"
	case KindTransient:
		return "transient"
	case KindActionPolicy:
		return "action_policy"
	default:
		return "unknown"
	}
}

// Error is a sentinel-wrapped API error carrying its own HTTP status.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	cause   error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.cause }

// As extracts an *Error from err, following wrapped causes.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func New(kind Kind, status int, message string) *Error {
	return &Error{Kind: kind, Status: status, Message: message}
}

func Wrap(kind Kind, status int, cause error, message string) *Error {
	return &Error{Kind: kind, Status: status, Message: message, cause: cause}
}

func Validation(msg string) *Error { return New(KindValidation, http.StatusBadRequest, msg) }
func Validationf(format string, a ...interface{}) *Error {
	return Validation(fmt.Sprintf(format, a...))
}

func Forbidden(msg string) *Error     { return New(KindAuthz, http.StatusForbidden, msg) }
func Unauthorized(msg string) *Error  { return New(KindAuthz, http.StatusUnauthorized, msg) }

func NotFound(msg string) *Error { return New(KindNotFound, http.StatusNotFound, msg) }
func NotFoundf(format string, a ...interface{}) *Error {
	return NotFound(fmt.Sprintf(format, a...))
}

func PathDenied(msg string) *Error { return New(KindPathDenied, http.StatusBadRequest, msg) }

func Transient(msg string) *Error { return New(KindTransient, http.StatusInternalServerError, msg) }
func Transientf(format string, a ...interface{}) *Error {
	return Transient(fmt.Sprintf(format, a...))
}
func TransientWrap(cause error, msg string) *Error {
	return Wrap(KindTransient, http.StatusInternalServerError, cause, msg)
}

func ActionPolicy(msg string) *Error { return New(KindActionPolicy, http.StatusBadRequest, msg) }
func ActionPolicyf(format string, a ...interface{}) *Error {
	return ActionPolicy(fmt.Sprintf(format, a...))
}
