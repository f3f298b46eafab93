// Copyright 2026 The Stackfile Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package errors

import "strconv"

// Status is a stackfile status code. Codes are grouped by tier:
// 2xx is success and informational, 4xx is a caller error, 5xx is a
// protocol or runtime failure. Numeric values are stable within a release.
type Status uint64

const (
	// OK means the operation completed fully.
	OK Status = 200

	// OKIncomplete means the operation succeeded but the underlying source
	// was temporarily unable to provide more bytes. Common when reading
	// from pipes; callers retry.
	OKIncomplete Status = 201

	// EOF means the end of the stream was reached during the operation.
	EOF Status = 202

	// TryRecovery means there was a protocol violation that was patched in
	// memory. The handle is tainted: every subsequent successful read
	// reports TryRecovery so the caller knows data came from a repaired
	// stream.
	TryRecovery Status = 203

	// InvalidArgs means an invalid argument was passed, such as a negative
	// seek offset.
	InvalidArgs Status = 400

	// LeafProtocol means the operation is supported in general, but not
	// for leaf protocols (peel and peek).
	LeafProtocol Status = 405

	// NotSupported means the operation is implemented, but not supported
	// for this handle's configuration. An example is seek or tell on an
	// unseekable stream (pipe).
	NotSupported Status = 406

	// UnhandledException means an internal failure did not map to any
	// other status. This is the fallback code for foreign errors.
	UnhandledException Status = 500

	// NotImplemented means the functionality is not implemented by this
	// handle.
	NotImplemented Status = 501

	// IOError means a problem with a physical device; a read or write
	// could not be performed correctly.
	IOError Status = 502

	// RuntimeError means a runtime failure, such as a record index lookup
	// of an offset the index does not hold, or a failure to close the
	// host file.
	RuntimeError Status = 503

	// UnexpectedEOF means the underlying handle reported end-of-file while
	// an outer protocol expected there to be more data.
	UnexpectedEOF Status = 510

	// ProtocolFatal means the bytes read are inconsistent with what the
	// protocol expects, with no reasonable recovery.
	ProtocolFatal Status = 520

	// FailedRecovery means protocol recovery was under way and another
	// violation occurred.
	FailedRecovery Status = 521
)

// Success returns true if the status represents success.
func (s Status) Success() bool { return s < 300 }

// IsKnownError returns true if the status is non-zero and not
// UnhandledException.
func (s Status) IsKnownError() bool { return s != 0 && s != UnhandledException }

// Error implements error.
func (s Status) Error() string { return s.String() }

func (s Status) String() string {
	switch s {
	case OK:
		return "ok"
	case OKIncomplete:
		return "ok (incomplete)"
	case EOF:
		return "end of file"
	case TryRecovery:
		return "protocol violation, recovered"
	case InvalidArgs:
		return "invalid argument"
	case LeafProtocol:
		return "not supported for leaf protocols"
	case NotSupported:
		return "not supported for this handle"
	case UnhandledException:
		return "unhandled error"
	case NotImplemented:
		return "not implemented"
	case IOError:
		return "I/O error"
	case RuntimeError:
		return "runtime error"
	case UnexpectedEOF:
		return "unexpected end of file"
	case ProtocolFatal:
		return "fatal protocol error"
	case FailedRecovery:
		return "protocol recovery failed"
	default:
		return "Status:" + strconv.FormatUint(uint64(s), 10)
	}
}
