package dataset

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure a request can end with.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindEmptyInput
	KindMalformedInput
	KindNotFitted
	KindInsufficientData
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindEmptyInput:
		return "EmptyInput"
	case KindMalformedInput:
		return "MalformedInput"
	case KindNotFitted:
		return "NotFitted"
	case KindInsufficientData:
		return "InsufficientData"
	}
	return "Internal"
}

var (
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrEmptyInput       = &Error{Kind: KindEmptyInput}
	ErrMalformedInput   = &Error{Kind: KindMalformedInput}
	ErrNotFitted        = &Error{Kind: KindNotFitted}
	ErrInsufficientData = &Error{Kind: KindInsufficientData}
)

type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
	// Location is the JSON pointer of the offending payload value, when known.
	Location string
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return e.Op + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return e.Op + ": " + e.Kind.String()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so callers can test errors.Is(err, dataset.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func Errorf(kind ErrorKind, op, format string, a ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, a...)}
}

// KindOf returns the kind carried by err, or KindInternal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// LocationOf returns the payload location carried by err, if any.
func LocationOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Location
	}
	return ""
}
