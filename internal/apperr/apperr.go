// Package apperr is the error taxonomy shared by the scheduling core and the
// HTTP layer. Every error a service returns to its caller is an *Error with
// one of the closed set of kinds below; anything else is treated as Internal.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindSlotConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindSlotConflict:
		return "slot_conflict"
	default:
		return "internal"
	}
}

// Error carries a kind, a client-safe message, the offending field for
// validation failures, and the underlying cause (never shown to clients).
type Error struct {
	Kind     Kind
	Message  string
	Field    string
	Expected string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, apperr.ErrNotFound) match any NotFound error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Field == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrSlotConflict = &Error{Kind: KindSlotConflict}
	ErrInternal     = &Error{Kind: KindInternal}
)

func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// ValidationExpected is Validation with a description of the accepted form.
func ValidationExpected(field, message, expected string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message, Expected: expected}
}

// NotFound is used both for absent entities and for entities owned by
// another tenant, so the two cases are indistinguishable to the caller.
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found"}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func SlotConflict(message string) *Error {
	return &Error{Kind: KindSlotConflict, Message: message}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf reports the kind of err; non-taxonomy errors are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps err onto the response status used by the API.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindSlotConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
