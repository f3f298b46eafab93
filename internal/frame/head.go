// Copyright 2026 The Stackfile Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package frame

import "gitlab.com/welldata/stackfile/pkg/errors"

// Head is a read head: a record-index position plus the number of bytes
// left to consume in that record's payload. A head with remaining == 0 is
// exhausted; the protocol's read loop then either advances to the next
// indexed record or parses a new header from disk.
type Head struct {
	pos       int
	remaining int64
}

// Ghost returns an exhausted head positioned on pos. Used with a ghost
// position it is the initial state of a framing layer, so that the first
// read moves into the first real record through the same code path as any
// other record transition.
func Ghost(pos int) Head { return Head{pos: pos} }

// Pos returns the head's record-index position.
func (h Head) Pos() int { return h.pos }

// Exhausted returns true when the current record has no bytes left.
func (h Head) Exhausted() bool { return h.remaining == 0 }

// BytesLeft returns the number of unconsumed payload bytes in the current
// record.
func (h Head) BytesLeft() int64 { return h.remaining }

// Move advances the head n bytes within the current record.
func (h *Head) Move(n int64) error {
	if n < 0 || n > h.remaining {
		return errors.InvalidArgs.WithFormat(
			"read head: advancing %d bytes past end-of-record (%d left)", n, h.remaining)
	}
	h.remaining -= n
	return nil
}

// Skip exhausts the current record.
func (h *Head) Skip() { h.remaining = 0 }

// MoveTo repositions the head to the start of the record at pos. The new
// state is computed from the index alone, never from the head's current
// position, so a head whose position predates an append is safe to move.
func (x *Index[R]) MoveTo(h *Head, pos int) {
	*h = Head{pos: pos, remaining: x.PayloadSize(pos)}
}

// NextRecord returns a head at the start of the record after h. Undefined
// when h is on the last indexed record.
func (x *Index[R]) NextRecord(h Head) Head {
	var next Head
	x.MoveTo(&next, h.pos+1)
	return next
}

// Tell returns the physical offset of the head. At a quiescent moment
// this equals the offset reported by the inner layer.
func (x *Index[R]) Tell(h Head) int64 { return x.End(h.pos) - h.remaining }
