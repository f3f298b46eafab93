// Copyright 2026 The Stackfile Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package errors

import "errors"

// As calls stdlib errors.As.
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is calls stdlib errors.Is.
func Is(err, target error) bool { return errors.Is(err, target) }

// Unwrap calls stdlib errors.Unwrap.
func Unwrap(err error) error { return errors.Unwrap(err) }

// Code returns the status of err. A nil error is OK; an error that is
// neither an [Error] nor a bare [Status] is UnhandledException.
func Code(err error) Status {
	if err == nil {
		return OK
	}
	var e *Error
	if As(err, &e) {
		return e.Code
	}
	var s Status
	if As(err, &s) {
		return s
	}
	return UnhandledException
}
