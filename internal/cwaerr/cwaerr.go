// Package cwaerr defines the stable error taxonomy shared by the protocol
// dispatcher and the HTTP facade.
package cwaerr

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure in the shared taxonomy.
type Code string

const (
	NotFound          Code = "NotFound"
	InvalidArguments  Code = "InvalidArguments"
	WipExceeded       Code = "WipExceeded"
	InvalidTransition Code = "InvalidTransition"
	Conflict          Code = "Conflict"
	Unavailable       Code = "Unavailable"
	Degraded          Code = "Degraded"
	Internal          Code = "Internal"
)

// Error is a typed, wrappable error carrying a taxonomy code and optional
// structured data for the caller.
type Error struct {
	Code    Code
	Message string
	Data    map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a taxonomy error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a taxonomy error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a taxonomy code to an underlying error.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// WithData attaches structured context data and returns the same error.
func (e *Error) WithData(data map[string]any) *Error {
	e.Data = data
	return e
}

// As extracts a *Error from err, if present in its chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the taxonomy code of err, defaulting to Internal when err
// does not carry one.
func CodeOf(err error) Code {
	if e, ok := As(err); ok {
		return e.Code
	}
	return Internal
}

// HTTPStatus maps a taxonomy code to the conventional HTTP status used by
// the dashboard facade.
func (c Code) HTTPStatus() int {
	switch c {
	case NotFound:
		return 404
	case InvalidArguments, InvalidTransition, WipExceeded:
		return 422
	case Conflict:
		return 409
	case Unavailable:
		return 503
	default:
		return 500
	}
}

// RPCCode maps a taxonomy code to a JSON-RPC-ish namespaced integer code,
// distinct from the standard -327xx range reserved for protocol-level errors.
func (c Code) RPCCode() int {
	switch c {
	case NotFound:
		return -32001
	case InvalidArguments:
		return -32002
	case WipExceeded:
		return -32003
	case InvalidTransition:
		return -32004
	case Conflict:
		return -32005
	case Unavailable:
		return -32006
	case Degraded:
		return -32007
	default:
		return -32000
	}
}
