// Copyright 2026 The Stackfile Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package stack

import (
	"encoding/binary"

	"gitlab.com/welldata/stackfile/internal/frame"
	"gitlab.com/welldata/stackfile/pkg/errors"
)

const veHeaderSize = 4

// veHeader is one visible-envelope header: the total record length,
// header included. Visible records do not encode their own offset, which
// makes the logical-to-physical mapping cumbersome - computing a record's
// offset is the sum of all previous record lengths. Headers are therefore
// augmented with the physical offset they were found at.
type veHeader struct {
	length uint16
	offset int64
}

func (h veHeader) End() int64 { return h.offset + int64(h.length) }

type visibleEnvelope struct {
	fp      Protocol
	addr    frame.AddressMap
	index   *frame.Index[veHeader]
	current frame.Head

	// recovery mirrors a sticky recovery status reported by the inner
	// layer, so that a repaired stream stays visible through the stack.
	recovery errors.Status
}

// OpenVisibleEnvelope wraps inner in the visible-envelope framing
// protocol: records prefixed by 4-byte headers carrying the record length
// and the format bytes 0xFF 0x01, with no terminator record. The
// protocol takes ownership of inner.
//
// The current offset of inner becomes the base of the stream, so the
// envelope can be opened mid-file after the caller has consumed an
// unrelated prelude such as a storage unit label. No header is read
// until the first read or seek. Headers chain by length rather than by
// absolute offset, so files larger than 4 GiB are fine.
func OpenVisibleEnvelope(inner Protocol) (Protocol, error) {
	if inner == nil {
		return nil, errors.InvalidArgs.With("envelope: no inner protocol")
	}
	zero, err := inner.Tell()
	if err != nil {
		zero = 0
	}
	addr := frame.NewAddressMap(veHeaderSize, zero)
	// For the ghost to be truly invisible, its end must equal the base:
	// the first real header derives its offset from it.
	ghost := veHeader{length: veHeaderSize, offset: zero - veHeaderSize}
	v := &visibleEnvelope{fp: inner, addr: addr, index: frame.NewIndex(addr, ghost)}
	v.current = frame.Ghost(v.index.Last())
	return v, nil
}

func (v *visibleEnvelope) ReadInto(dst []byte) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	total := 0
	for {
		n, err := v.read(dst[total:])
		total += n
		if err != nil {
			return total, err
		}
		if total == len(dst) {
			if v.recovery != 0 {
				return total, v.recovery
			}
			return total, nil
		}
		if v.EOF() {
			if !v.current.Exhausted() {
				return total, errors.UnexpectedEOF.WithFormat(
					"envelope: unexpected EOF when reading record - got %d bytes, expected there to be %d more",
					total, v.current.BytesLeft())
			}
			return total, errors.EOF
		}
		if n == 0 {
			return total, errors.OKIncomplete
		}
	}
}

// read reads at most one run of payload bytes, advancing across record
// boundaries and empty records first.
func (v *visibleEnvelope) read(dst []byte) (int, error) {
	for v.current.Exhausted() {
		if v.EOF() {
			return 0, nil
		}
		if v.current.Pos() == v.index.Last() {
			before := v.index.Size()
			if err := v.readHeader(); err != nil {
				return 0, err
			}
			if v.index.Size() != before {
				v.index.MoveTo(&v.current, v.index.Last())
			}
		} else {
			next := v.index.NextRecord(v.current)
			if err := v.fp.Seek(v.index.Tell(next)); err != nil {
				return 0, err
			}
			v.current = next
		}
		// might be EOF, or even empty records, so re-check
	}

	want := int64(len(dst))
	if left := v.current.BytesLeft(); left < want {
		want = left
	}
	n, err := v.fp.ReadInto(dst[:want])
	if moveErr := v.current.Move(int64(n)); moveErr != nil {
		return n, moveErr
	}

	switch code := errors.Code(err); code {
	case errors.OK, errors.OKIncomplete, errors.EOF:
		return n, nil
	case errors.TryRecovery:
		v.recovery = errors.TryRecovery
		return n, nil
	default:
		return n, err
	}
}

func (v *visibleEnvelope) readHeader() error {
	var b [veHeaderSize]byte
	n, err := v.fp.ReadInto(b[:])
	switch code := errors.Code(err); code {
	case errors.OK:
	case errors.TryRecovery:
		v.recovery = errors.TryRecovery
	case errors.OKIncomplete, errors.EOF:
		if v.fp.EOF() {
			if n == 0 {
				// The end of the last visible record aligns with EOF -
				// there are no trailing bytes, so this is a legitimate
				// end-of-stream.
				return nil
			}
			return errors.UnexpectedEOF.WithFormat(
				"envelope: unexpected EOF when reading header - got %d bytes", n)
		}
		return errors.IOError.With(
			"envelope: incomplete read of visible record header, recovery not implemented")
	default:
		return err
	}

	length := binary.LittleEndian.Uint16(b[0:2])

	// The format version is always [0xFF 0x01]. Making this a strict
	// requirement helps identify broken and non-envelope files.
	if b[2] != 0xFF || b[3] != 0x01 {
		return errors.ProtocolFatal.WithFormat(
			"envelope: incorrect format version in visible record %d", v.index.Size()+1)
	}
	if length < veHeaderSize {
		return errors.ProtocolFatal.WithFormat(
			"envelope: visible record %d length (= %d) < header size", v.index.Size()+1, length)
	}

	v.index.Append(veHeader{length: length, offset: v.index.End(v.index.Last())})
	return nil
}

func (v *visibleEnvelope) Seek(n int64) error {
	if n < 0 {
		return errors.InvalidArgs.WithFormat("seek: expected n (which is %d) >= 0", n)
	}

	if v.index.Contains(n) {
		pos, err := v.index.Find(n, v.current.Pos())
		if err != nil {
			return err
		}
		real := v.addr.Physical(n, v.index.RecordOf(pos))
		if err := v.fp.Seek(real); err != nil {
			return err
		}
		v.index.MoveTo(&v.current, pos)
		return v.current.Move(real - v.index.Tell(v.current))
	}

	// The target is past the already-indexed records - follow the headers
	// and index them as we go.
	for {
		last := v.index.Last()
		end := v.index.End(last)
		if !v.index.Empty() {
			real := v.addr.Physical(n, v.index.RecordOf(last))
			if real < end {
				if err := v.fp.Seek(real); err != nil {
					return err
				}
				v.index.MoveTo(&v.current, last)
				return v.current.Move(real - v.index.Tell(v.current))
			}
			if real == end {
				// The target is the first byte of the next record's
				// payload. Park at the end of this record and let the next
				// read move across.
				if err := v.fp.Seek(end); err != nil {
					return err
				}
				v.current = frame.Ghost(last)
				return nil
			}
		}
		if err := v.fp.Seek(end); err != nil {
			return err
		}
		v.current = frame.Ghost(last)
		before := v.index.Size()
		if err := v.readHeader(); err != nil {
			return err
		}
		grew := v.index.Size() != before
		if grew {
			v.index.MoveTo(&v.current, v.index.Last())
		}
		if v.EOF() {
			if !grew {
				// Data ended somewhere in the last record. Without an
				// explicit read there is no knowing whether the record was
				// complete.
				return nil
			}
			// A valid header, but the file ends right after it. Skip as
			// much of the record as the target asks for.
			pos := v.index.Last()
			real := v.addr.Physical(n, v.index.RecordOf(pos))
			skip := real - v.index.Tell(v.current)
			if left := v.current.BytesLeft(); left < skip {
				skip = left
			}
			return v.current.Move(skip)
		}
	}
}

func (v *visibleEnvelope) Tell() (int64, error) {
	return v.addr.Logical(v.index.Tell(v.current), v.index.RecordOf(v.current.Pos())), nil
}

func (v *visibleEnvelope) Ptell() (int64, error) { return v.fp.Ptell() }

// EOF is driven purely by the inner layer: there is no trailing header,
// so the end of the last visible record should align with the inner
// layer's end-of-file.
func (v *visibleEnvelope) EOF() bool { return v.fp.EOF() }

func (v *visibleEnvelope) Close() error {
	if v.fp == nil {
		return nil
	}
	err := v.fp.Close()
	v.fp = nil
	return err
}

func (v *visibleEnvelope) Peel() (Protocol, error) {
	if v.fp == nil {
		return nil, errors.IOError.With("peel: no underlying protocol")
	}
	inner := v.fp
	v.fp = nil
	return inner, nil
}

func (v *visibleEnvelope) Peek() (Protocol, error) {
	if v.fp == nil {
		return nil, errors.IOError.With("peek: no underlying protocol")
	}
	return v.fp, nil
}
