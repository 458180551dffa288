package model

import (
	"errors"
	"fmt"

	"github.com/ServiceWeaver/weaver"
)

type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindNotFound
	KindConflict
	KindStore
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindStore:
		return "store"
	}
	return "unknown"
}

// Error is returned by every store operation. It is serializable so the kind
// survives calls between components.
type Error struct {
	weaver.AutoMarshal
	Kind ErrorKind
	Msg  string
}

func (e Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Msg
}

// Is matches any Error of the same kind, so errors.Is(err, ErrNotFound) works
// regardless of the message.
func (e Error) Is(target error) bool {
	t, ok := target.(Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrValidation = Error{Kind: KindValidation}
	ErrNotFound   = Error{Kind: KindNotFound}
	ErrConflict   = Error{Kind: KindConflict}
	ErrStore      = Error{Kind: KindStore}
)

func Validation(format string, args ...any) error {
	return Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

// StoreFailure wraps an error coming from the underlying store.
func StoreFailure(op string, err error) error {
	return Error{Kind: KindStore, Msg: fmt.Sprintf("%s: %s", op, err.Error())}
}

// KindOf returns the kind carried by err, or zero if err is not an Error.
func KindOf(err error) ErrorKind {
	var e Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
