// Copyright 2026 The Stackfile Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package frame

import (
	"sort"

	"gitlab.com/welldata/stackfile/pkg/errors"
)

// Record is a framing header as stored in the record index. End is the
// physical offset one past the record's last payload byte.
type Record interface {
	End() int64
}

// Index is the append-only catalogue of the framing headers encountered
// so far, in strictly increasing physical-offset order. The index is
// never shrunk and never invalidated by seek.
//
// The index is prepended with one or more ghost records so that
// looking one back from the first real record is always well defined.
// Size excludes the ghosts. A position - a plain int - is the canonical
// handle to a record and stays valid across appends.
type Index[R Record] struct {
	addr    AddressMap
	records []R
	ghosts  int
}

// NewIndex returns an index seeded with the given ghost records. The last
// ghost's End must equal the address map's base offset, so that the first
// real record's payload start derives from it like any other.
func NewIndex[R Record](addr AddressMap, ghosts ...R) *Index[R] {
	return &Index[R]{addr: addr, records: ghosts, ghosts: len(ghosts)}
}

// Size returns the number of real (non-ghost) records.
func (x *Index[R]) Size() int { return len(x.records) - x.ghosts }

// Empty returns true when no real record has been indexed yet.
func (x *Index[R]) Empty() bool { return x.Size() == 0 }

// Begin returns the position of the first real record.
func (x *Index[R]) Begin() int { return x.ghosts }

// Last returns the position of the most recently indexed record. When the
// index is empty this is the last ghost.
func (x *Index[R]) Last() int { return len(x.records) - 1 }

// Get returns the record at pos.
func (x *Index[R]) Get(pos int) R { return x.records[pos] }

// RecordOf converts an index position to the zero-based record number the
// address map works with. Ghost positions map to negative numbers.
func (x *Index[R]) RecordOf(pos int) int { return pos - x.ghosts }

// Append adds a header at the end of the index.
func (x *Index[R]) Append(r R) { x.records = append(x.records, r) }

// End returns the physical offset one past the last payload byte of the
// record at pos.
func (x *Index[R]) End(pos int) int64 { return x.records[pos].End() }

// PayloadStart returns the physical offset of the first payload byte of
// the record at pos.
func (x *Index[R]) PayloadStart(pos int) int64 {
	return x.records[pos-1].End() + x.addr.HeaderSize()
}

// PayloadSize returns the payload byte count of the record at pos.
func (x *Index[R]) PayloadSize(pos int) int64 {
	return x.End(pos) - x.PayloadStart(pos)
}

// Contains reports whether the logical offset n falls within the already
// indexed part of the stream. When it does, Find is defined for n.
func (x *Index[R]) Contains(n int64) bool {
	if x.Empty() {
		return false
	}
	last := x.Last()
	return n < x.addr.Logical(x.End(last), x.RecordOf(last))
}

// Find locates the record containing the logical offset n. The hint is
// checked before searching the index; a real world usage pattern is many
// small forward seeks within the same record, and those should not pay
// for a full lookup.
//
// The search runs in two phases. Phase 1 is an approximating binary
// search that discounts a single header for every record; since that
// overestimates each record's logical end, its result is the correct
// record or an earlier one.
// Phase 2 walks forward from there, recomputing the true logical upper
// bound of each record - which needs the record's position, which the
// binary search cannot track. Find on an offset the index does not
// contain is a logic error; callers check Contains first.
func (x *Index[R]) Find(n int64, hint int) (int, error) {
	if x.inSpan(n, hint) {
		return hint, nil
	}

	// phase 1
	first := x.ghosts
	k := sort.Search(x.Size(), func(i int) bool {
		return n < x.addr.Logical(x.End(first+i), 0)
	})

	// phase 2
	for pos := first + k; pos < len(x.records); pos++ {
		if n < x.addr.Logical(x.End(pos), x.RecordOf(pos)) {
			return pos, nil
		}
	}

	return 0, errors.RuntimeError.WithFormat(
		"find: offset %d not in index, last indexed byte %d", n, x.End(x.Last()))
}

func (x *Index[R]) inSpan(n int64, pos int) bool {
	if pos < x.ghosts || pos > x.Last() {
		return false
	}
	end := x.addr.Logical(x.End(pos), x.RecordOf(pos))
	if pos == x.ghosts {
		return n < end
	}
	begin := x.addr.Logical(x.End(pos-1), x.RecordOf(pos-1))
	return n >= begin && n < end
}
