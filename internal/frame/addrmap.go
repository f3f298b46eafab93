// Copyright 2026 The Stackfile Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package frame holds the machinery shared by the framing protocols: the
// address map that translates between logical and physical offsets, the
// append-only record index of framing headers seen so far, and the read
// head that tracks the current record.
package frame

// AddressMap translates between physical offsets, as reported by the
// inner layer, and logical offsets, as exposed to the outer caller. It is
// a pure value: both translations are total functions of the base offset,
// the per-record header size, and the record number.
type AddressMap struct {
	header int64
	zero   int64
}

// NewAddressMap returns an address map for a protocol whose headers are
// headerSize bytes, over a stream whose logical offset 0 sits at physical
// offset zero.
func NewAddressMap(headerSize, zero int64) AddressMap {
	return AddressMap{header: headerSize, zero: zero}
}

// Logical translates the physical offset to a logical one, given that the
// offset falls within record (zero-based).
func (m AddressMap) Logical(physical int64, record int) int64 {
	return physical - m.header*int64(record+1) - m.zero
}

// Physical translates the logical offset to a physical one, given that
// the offset falls within record (zero-based).
func (m AddressMap) Physical(logical int64, record int) int64 {
	return logical + m.header*int64(record+1) + m.zero
}

// Base returns the base address of the map, i.e. the first possible
// physical address. This is usually, but not guaranteed to be, zero.
func (m AddressMap) Base() int64 { return m.zero }

// HeaderSize returns the per-record header size.
func (m AddressMap) HeaderSize() int64 { return m.header }
