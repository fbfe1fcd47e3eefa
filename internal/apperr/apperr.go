// Package apperr holds the error kinds shared by the ledger, notes, session
// and transport layers.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindStorage    Kind = "storage"
	KindModel      Kind = "model"
	KindTransport  Kind = "transport"
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Op == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches another *Error by Kind so callers can write
// errors.Is(err, apperr.NotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Message == "" && t.Cause == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	Validation = &Error{Kind: KindValidation}
	NotFound   = &Error{Kind: KindNotFound}
	Storage    = &Error{Kind: KindStorage}
	Model      = &Error{Kind: KindModel}
	Transport  = &Error{Kind: KindTransport}
)

func New(kind Kind, op, message string) error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func Newf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to err. A nil err stays nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Message: err.Error(), Cause: err}
}

// KindOf reports the kind of the outermost *Error in the chain, or "" when
// err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Message returns the human-readable text of err without its operation
// prefix. It is what the model and chat users see.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
