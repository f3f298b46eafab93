// Copyright 2026 The Stackfile Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package stack implements stackable byte-stream protocols for reading
// well-log files wrapped in transparent record-framing formats.
//
// A caller opens a leaf - a physical file or an in-memory buffer - and
// wraps it in zero or more framing protocols. Each framing layer owns its
// inner layer and exposes a logical byte stream with the framing headers
// stripped, so consumers read, seek and tell on the outermost handle as
// if the framing were absent:
//
//	inner, err := stack.OpenFile(f)
//	...
//	outer, err := stack.OpenTapeImage(inner)
//	...
//	n, err := outer.ReadInto(buf)
//
// Operations return errors built by
// [gitlab.com/welldata/stackfile/pkg/errors]: the status code is
// recovered with errors.Code, the human-readable message with Error().
// The informational statuses - errors.EOF, errors.OKIncomplete,
// errors.TryRecovery - are returned as bare Status values alongside a
// valid byte count, the way io.Reader returns (n, io.EOF); nil means OK.
package stack

// Protocol is a byte stream: either a leaf at the bottom of a stack, or a
// framing layer that owns exactly one inner Protocol. A Protocol is not
// safe for concurrent use; callers that need concurrency construct
// independent stacks over independent leaves.
type Protocol interface {
	// ReadInto reads up to len(dst) bytes into dst. A full fill returns
	// (len(dst), nil). A short fill returns the bytes read plus
	// errors.EOF at a clean end-of-stream, or errors.OKIncomplete when
	// the underlying source is temporarily not producing more bytes.
	// Truncation inside a declared record returns errors.UnexpectedEOF.
	// ReadInto with an empty dst returns (0, nil) without touching the
	// inner layer.
	ReadInto(dst []byte) (int, error)

	// Seek sets the logical position to n, which must not be negative.
	// Seeking to or beyond the end of the stream is allowed; the
	// subsequent read reports EOF. The memory and mmap leaves accept
	// offsets up to their size and reject larger ones with
	// errors.InvalidArgs.
	Seek(n int64) error

	// Tell returns the current logical offset. Each layer of a stack has
	// its own logical view, so the values differ across layers.
	Tell() (int64, error)

	// Ptell returns the physical offset of the outermost leaf. Every
	// layer of a stack reports the same value.
	Ptell() (int64, error)

	// EOF reports whether the stream is at end-of-file.
	EOF() bool

	// Close releases this layer and, recursively, every layer below it.
	// Closing a handle twice is undefined.
	Close() error

	// Peel transfers ownership of the inner protocol to the caller. No
	// further operation on this handle is valid afterwards. Leaf
	// protocols fail with errors.LeafProtocol.
	Peel() (Protocol, error)

	// Peek borrows the inner protocol without transferring ownership.
	// Mutating the stream through the borrow - reading or seeking -
	// leaves this handle in an undefined state. Leaf protocols fail with
	// errors.LeafProtocol.
	Peek() (Protocol, error)
}

// Close closes p and every layer below it. Closing a nil protocol is a
// no-op.
func Close(p Protocol) error {
	if p == nil {
		return nil
	}
	return p.Close()
}
