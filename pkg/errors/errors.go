// Copyright 2026 The Stackfile Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package errors

import "fmt"

// Error is a status code plus a human-readable message and an optional
// cause. The message is not stable and not suited for parsing; the code
// is the programmatic channel.
type Error struct {
	Code    Status
	Message string
	Cause   error
}

// With builds an Error from the status code and the arguments.
func (s Status) With(v ...interface{}) *Error {
	return &Error{Code: s, Message: fmt.Sprint(v...)}
}

// WithFormat builds an Error from the status code and the format string.
// A %w verb records the wrapped error as the cause.
func (s Status) WithFormat(format string, args ...interface{}) *Error {
	err := fmt.Errorf(format, args...)
	e := &Error{Code: s, Message: err.Error()}
	if u, ok := err.(interface{ Unwrap() error }); ok {
		e.Cause = u.Unwrap()
	}
	return e
}

// Wrap attaches the status code to err. Wrapping nil returns nil.
func (s Status) Wrap(err error) error {
	if err == nil {
		// The return type must be `error` - otherwise this return statement
		// can cause strange errors
		return nil
	}
	if e, ok := err.(*Error); ok && e.Code == s {
		return e
	}
	return &Error{Code: s, Cause: err}
}

// Error implements error.
func (e *Error) Error() string {
	if e.Message == "" && e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Message
}

// Unwrap yields the cause, or the status code when there is none, so that
// errors.Is(err, SomeStatus) matches either way.
func (e *Error) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	return e.Code
}

// Is matches another Error or a bare Status by code.
func (e *Error) Is(target error) bool {
	switch f := target.(type) {
	case *Error:
		return e.Code == f.Code
	case Status:
		return e.Code == f
	}
	return false
}

// Format implements fmt.Formatter. The + flag prefixes the status code.
func (e *Error) Format(f fmt.State, verb rune) {
	if f.Flag('+') {
		fmt.Fprintf(f, "%v: %s", e.Code, e.Error())
		return
	}
	f.Write([]byte(e.Error()))
}
