package api

import (
	"errors"
	"fmt"
)

// Kind classifies user-visible failures. Each kind maps to its own exit code.
type Kind int

const (
	KindInternal Kind = iota
	KindArgument
	KindEnvironment
	KindNoInput
	KindInvocation
	KindLaunch
)

// Error is a failure reported to the user with a short message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	if e.Msg == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an *Error of the given kind.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to err.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// ExitCode maps err to the process exit status. nil maps to 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e *Error
	if !errors.As(err, &e) {
		return 1
	}
	switch e.Kind {
	case KindArgument:
		return 2
	case KindEnvironment:
		return 3
	case KindNoInput:
		return 4
	case KindInvocation:
		return 5
	case KindLaunch:
		return 6
	default:
		return 1
	}
}
