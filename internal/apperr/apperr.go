// Package apperr defines the error kinds surfaced to API clients.
package apperr

import (
	"net/http"

	"github.com/pkg/errors"
)

// Sentinel kinds. Wrap them with New or errors.Wrap to attach a message.
var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation error")
	ErrRemoteService = errors.New("remote service error")
	ErrParse         = errors.New("parse error")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("conflict")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }
func (e *kindError) Cause() error  { return e.kind }

// New returns an error of the given kind whose message is msg.
func New(kind error, msg string) error {
	return errors.WithStack(&kindError{kind: kind, msg: msg})
}

// NotFound returns an ErrNotFound with a user-facing message.
func NotFound(msg string) error { return New(ErrNotFound, msg) }

// Validation returns an ErrValidation with a user-facing message.
func Validation(msg string) error { return New(ErrValidation, msg) }

// Remote wraps a failure of an external service.
func Remote(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&kindError{kind: ErrRemoteService, msg: msg + ": " + err.Error()})
}

// Conflict returns an ErrConflict for a write that collided with an
// existing unique value.
func Conflict(msg string) error { return New(ErrConflict, msg) }

// Parse returns an ErrParse with a message.
func Parse(msg string) error { return New(ErrParse, msg) }

// Kind returns the sentinel kind of err, or nil for unclassified errors.
func Kind(err error) error {
	for _, k := range []error{ErrNotFound, ErrValidation, ErrRemoteService, ErrParse, ErrUnauthorized, ErrForbidden, ErrConflict} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Is reports whether err is of the given kind.
func Is(err, kind error) bool {
	return errors.Is(err, kind)
}

// Status maps an error to an HTTP status code.
func Status(err error) int {
	switch Kind(err) {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrValidation:
		return http.StatusBadRequest
	case ErrParse:
		return http.StatusUnprocessableEntity
	case ErrRemoteService:
		return http.StatusBadGateway
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-facing message of err. Unclassified errors get a
// generic message so internals do not leak.
func Message(err error) string {
	if Kind(err) == nil {
		return "Internal server error"
	}
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.msg
	}
	return err.Error()
}
