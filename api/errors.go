// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-mq library.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	// ErrAgain reports backpressure or starvation: no pipe can accept or
	// deliver a message right now. Callers retry, poll or block.
	ErrAgain             = errors.New("resource temporarily unavailable")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNameTooLong       = errors.New("name too long")
	ErrNoDevice          = errors.New("no such device")
	ErrNotSupported      = errors.New("operation not supported")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrClosed            = errors.New("socket is closed")
	ErrConnRefused       = errors.New("connection refused")
	ErrAddrInUse         = errors.New("address already in use")
	ErrAlreadyExists     = errors.New("resource already exists")
	ErrNotFound          = errors.New("resource not found")
	ErrProtocol          = errors.New("protocol violation")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeAgain
	ErrCodeInvalidArgument
	ErrCodeNameTooLong
	ErrCodeNoDevice
	ErrCodeNotSupported
	ErrCodeResourceExhausted
	ErrCodeProtocol
	ErrCodeAlreadyExists
	ErrCodeNotFound
	ErrCodeClosed
	ErrCodeConnRefused
	ErrCodeAddrInUse
	ErrCodeInternal
)

var codeSentinels = map[ErrorCode]error{
	ErrCodeAgain:             ErrAgain,
	ErrCodeInvalidArgument:   ErrInvalidArgument,
	ErrCodeNameTooLong:       ErrNameTooLong,
	ErrCodeNoDevice:          ErrNoDevice,
	ErrCodeNotSupported:      ErrNotSupported,
	ErrCodeResourceExhausted: ErrResourceExhausted,
	ErrCodeProtocol:          ErrProtocol,
	ErrCodeAlreadyExists:     ErrAlreadyExists,
	ErrCodeNotFound:          ErrNotFound,
	ErrCodeClosed:            ErrClosed,
	ErrCodeConnRefused:       ErrConnRefused,
	ErrCodeAddrInUse:         ErrAddrInUse,
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Unwrap maps the code onto its sentinel so errors.Is(err, ErrInvalidArgument)
// holds for structured errors too.
func (e *Error) Unwrap() error {
	return codeSentinels[e.Code]
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// IsAgain reports whether err signals backpressure rather than failure.
func IsAgain(err error) bool {
	return errors.Is(err, ErrAgain)
}
