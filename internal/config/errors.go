package config

import (
	"errors"
	"fmt"
)

// ErrRefNotFound is wrapped when a $ref path does not exist.
var ErrRefNotFound = errors.New("$ref path not found")

// Error is an invalid configuration, located by a dotted field path.
type Error struct {
	Path string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := "config"
	if e.Path != "" {
		msg += ": " + e.Path
	}

	msg += ": " + e.Msg

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func errorf(path, format string, args ...any) *Error {
	return &Error{Path: path, Msg: fmt.Sprintf(format, args...)}
}
