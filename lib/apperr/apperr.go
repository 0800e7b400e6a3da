// Package apperr classifies application failures so the HTTP layer can map
// them to status codes.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// Field names the input an authentication failure relates to.
type Field string

const (
	FieldEmail    Field = "email"
	FieldPassword Field = "password"
	FieldGeneral  Field = "general"
)

// Error is a classified failure with a message safe to show to users.
type Error struct {
	Kind    Kind
	Field   Field
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

// Is matches another *Error with the same kind and field.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Field == "" || e.Field == t.Field)
}

// OnField returns a copy of e tagged with field.
func (e *Error) OnField(field Field) *Error {
	c := *e
	c.Field = field
	return &c
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(format string, args ...interface{}) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...interface{}) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

func Unauthorized(format string, args ...interface{}) *Error {
	return New(KindUnauthorized, fmt.Sprintf(format, args...))
}

func Conflict(format string, args ...interface{}) *Error {
	return New(KindConflict, fmt.Sprintf(format, args...))
}

// Internal hides err behind a generic message.
func Internal(err error) *Error {
	return Wrap(err, KindInternal, "internal error")
}

// As returns the *Error in err's chain, or an internal error wrapping err.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// KindOf returns the kind of err, KindInternal for unclassified errors.
func KindOf(err error) Kind {
	return As(err).Kind
}
