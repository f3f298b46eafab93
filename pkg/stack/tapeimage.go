// Copyright 2026 The Stackfile Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package stack

import (
	"encoding/binary"
	"math"

	"gitlab.com/welldata/stackfile/internal/frame"
	"gitlab.com/welldata/stackfile/pkg/errors"
)

const (
	tifRecord uint32 = 0
	tifFile   uint32 = 1

	tifHeaderSize = 12
)

// tifHeader is one tape mark: record type, the absolute physical offset
// of the previous header, and of the next. Offsets are absolute in the
// host file, which bounds the format at 4 GiB.
type tifHeader struct {
	typ  uint32
	prev uint32
	next uint32
}

func (h tifHeader) End() int64 { return int64(h.next) }

type tapeImage struct {
	fp      Protocol
	addr    frame.AddressMap
	index   *frame.Index[tifHeader]
	current frame.Head

	// recovery taints the handle once a header has been patched in
	// memory: reads that would report OK report this status instead.
	recovery errors.Status
}

// OpenTapeImage wraps inner in the tape-image framing protocol: records
// prefixed by 12-byte headers with previous/next pointers, terminated by
// one or two file-type tape marks. The protocol takes ownership of inner.
//
// The current offset of inner becomes the base of the stream, so a tape
// image can be opened at an arbitrary tape mark. No header is read until
// the first read or seek. If inner cannot tell, the base falls back to 0;
// forward-only reading works, but the recovery checks that compare back
// pointers against the base are unreliable on such streams.
func OpenTapeImage(inner Protocol) (Protocol, error) {
	if inner == nil {
		return nil, errors.InvalidArgs.With("tapeimage: no inner protocol")
	}
	zero, err := inner.Tell()
	if err != nil {
		zero = 0
	}
	addr := frame.NewAddressMap(tifHeaderSize, zero)
	// Two ghosts, so the first real header's previous-previous is a valid
	// index element. The last ghost's next is the base: the first record's
	// payload start derives from it.
	ghost := tifHeader{next: uint32(zero)}
	t := &tapeImage{
		fp:    inner,
		addr:  addr,
		index: frame.NewIndex(addr, ghost, ghost),
	}
	t.current = frame.Ghost(t.index.Last())
	return t, nil
}

func (t *tapeImage) ReadInto(dst []byte) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	n, err := t.read(dst)
	if err != nil {
		return n, err
	}
	if t.recovery != 0 {
		return n, t.recovery
	}
	if n == len(dst) {
		return n, nil
	}
	if t.EOF() {
		return n, errors.EOF
	}
	return n, errors.OKIncomplete
}

func (t *tapeImage) read(dst []byte) (int, error) {
	total := 0
	for {
		if t.EOF() {
			return total, nil
		}
		if t.current.Exhausted() {
			if err := t.next(); err != nil {
				return total, err
			}
			// might be EOF, or even empty records, so re-start
			continue
		}

		want := int64(len(dst) - total)
		if left := t.current.BytesLeft(); left < want {
			want = left
		}
		n, err := t.fp.ReadInto(dst[total : total+int(want)])
		total += n
		if err := t.current.Move(int64(n)); err != nil {
			return total, err
		}

		switch code := errors.Code(err); code {
		case errors.OK, errors.TryRecovery:
			if code == errors.TryRecovery {
				t.recovery = errors.TryRecovery
			}
			if total == len(dst) {
				return total, nil
			}
			// The chunk was fully read but more was requested - move on to
			// the next record. This differs from OKIncomplete, where the
			// underlying stream is temporarily exhausted or blocked.
		case errors.OKIncomplete, errors.EOF:
			if t.fp.EOF() && t.current.BytesLeft() > 0 {
				return total, errors.UnexpectedEOF.WithFormat(
					"tapeimage: unexpected EOF when reading record - got %d bytes", total)
			}
			return total, nil
		default:
			return total, err
		}
	}
}

// next advances an exhausted read head to the following record: by
// repositioning the inner layer when the record is already indexed, or by
// parsing a new header from disk.
func (t *tapeImage) next() error {
	if t.current.Pos() == t.index.Last() {
		return t.readHeader()
	}
	pos := t.current.Pos() + 1
	if err := t.fp.Seek(t.index.PayloadStart(pos)); err != nil {
		return err
	}
	t.index.MoveTo(&t.current, pos)
	return nil
}

func (t *tapeImage) readHeader() error {
	var b [tifHeaderSize]byte
	n, err := t.fp.ReadInto(b[:])
	switch code := errors.Code(err); code {
	case errors.OK:
	case errors.TryRecovery:
		t.recovery = errors.TryRecovery
	case errors.OKIncomplete, errors.EOF:
		if t.fp.EOF() {
			if n == 0 {
				// The end mark is optional in practice, so a clean EOF
				// where a header would start is a legitimate end-of-stream.
				return nil
			}
			return errors.UnexpectedEOF.WithFormat(
				"tapeimage: unexpected EOF when reading header - got %d bytes", n)
		}
		return errors.FailedRecovery.With(
			"tapeimage: incomplete read of tape mark, recovery not implemented")
	default:
		return err
	}

	head := tifHeader{
		typ:  binary.LittleEndian.Uint32(b[0:4]),
		prev: binary.LittleEndian.Uint32(b[4:8]),
		next: binary.LittleEndian.Uint32(b[8:12]),
	}

	typeConsistent := head.typ == tifRecord || head.typ == tifFile
	if !typeConsistent {
		// Maybe someone wrote the wrong record type by accident, or uses
		// an extension with more record types. If this is the only problem
		// with the header, recover by treating it as a regular record.
		if t.recovery != 0 {
			return errors.FailedRecovery.With(
				"tapeimage: unknown header type in recovery, file probably corrupt")
		}
		t.recovery = errors.TryRecovery
		head.typ = tifRecord
	}

	if head.next <= head.prev {
		// No reasonable recovery: it is likely either the previous pointer
		// or this entire header that is broken. Files over 4 GiB also end
		// up here, since their next pointers wrap.
		if !typeConsistent {
			return errors.ProtocolFatal.WithFormat(
				"file corrupt: header type is not 0 or 1, head.next (= %d) <= head.prev (= %d). File might be missing data",
				head.next, head.prev)
		}
		return errors.ProtocolFatal.WithFormat(
			"file corrupt: head.next (= %d) <= head.prev (= %d). File size might be > 4GB",
			head.next, head.prev)
	}

	if t.index.Size() >= 2 {
		// A back pointer that disagrees with the index is recoverable,
		// under the assumption that it is the back pointer that is wrong.
		// It is patched in memory only; to be sure, the file would have to
		// be walked back-to-front.
		prev2 := t.index.Get(t.index.Last() - 1)
		if head.prev != prev2.next {
			if t.recovery != 0 {
				return errors.FailedRecovery.WithFormat(
					"file corrupt: head.prev (= %d) != prev(prev(head)).next (= %d). Error happened in recovery mode. File might be missing data",
					head.prev, prev2.next)
			}
			t.recovery = errors.TryRecovery
			head.prev = prev2.next
		}
	} else if t.recovery != 0 && !t.index.Empty() {
		// Just two headers so far. The second header's prev must point at
		// the first header's position, which is the base of the stream.
		if int64(head.prev) != t.addr.Base() {
			return errors.FailedRecovery.WithFormat(
				"file corrupt: second header prev (= %d) must be pointing to zero (= %d). Error happened in recovery mode. File might be missing data",
				head.prev, t.addr.Base())
		}
	}

	t.index.Append(head)
	t.index.MoveTo(&t.current, t.index.Last())
	return nil
}

func (t *tapeImage) Seek(n int64) error {
	if n < 0 {
		return errors.InvalidArgs.WithFormat("seek: expected n (which is %d) >= 0", n)
	}
	if n > math.MaxUint32 {
		return errors.InvalidArgs.With(
			"seek: too big seek offset. Tape image protocol does not support files larger than 4GB")
	}

	if t.index.Contains(n) {
		pos, err := t.index.Find(n, t.current.Pos())
		if err != nil {
			return err
		}
		return t.seekTo(n, pos)
	}

	// The target is past the already-indexed records - follow the headers
	// and index them as we go.
	for {
		last := t.index.Last()
		end := t.index.End(last)
		if !t.index.Empty() {
			real := t.addr.Physical(n, t.index.RecordOf(last))
			if real < end {
				return t.seekTo(n, last)
			}
			if real == end {
				// The target is the first byte of the next record's
				// payload. Park at the end of this record and let the next
				// read move across, so that a cold seek and a read past
				// this offset consume the next header exactly once.
				if err := t.fp.Seek(end); err != nil {
					return err
				}
				t.current = frame.Ghost(last)
				return nil
			}
			if t.index.Get(last).typ == tifFile {
				// Seeking past eof is allowed (as in C FILE). The head is
				// parked on the terminator, so Tell reports the logical
				// end of data. Reading after a seek-past-eof reports EOF
				// immediately.
				t.current = frame.Ghost(last)
				return nil
			}
		}
		if err := t.fp.Seek(end); err != nil {
			return err
		}
		before := t.index.Size()
		if err := t.readHeader(); err != nil {
			return err
		}
		if t.index.Size() == before {
			// Clean EOF with no further tape marks - park at the end.
			t.current = frame.Ghost(last)
			return nil
		}
	}
}

func (t *tapeImage) seekTo(n int64, pos int) error {
	real := t.addr.Physical(n, t.index.RecordOf(pos))
	if err := t.fp.Seek(real); err != nil {
		return err
	}
	t.index.MoveTo(&t.current, pos)
	return t.current.Move(real - t.index.Tell(t.current))
}

func (t *tapeImage) Tell() (int64, error) {
	return t.addr.Logical(t.index.Tell(t.current), t.index.RecordOf(t.current.Pos())), nil
}

func (t *tapeImage) Ptell() (int64, error) { return t.fp.Ptell() }

func (t *tapeImage) EOF() bool {
	return t.fp.EOF() || t.index.Get(t.current.Pos()).typ == tifFile
}

func (t *tapeImage) Close() error {
	if t.fp == nil {
		return nil
	}
	err := t.fp.Close()
	t.fp = nil
	return err
}

func (t *tapeImage) Peel() (Protocol, error) {
	if t.fp == nil {
		return nil, errors.IOError.With("peel: no underlying protocol")
	}
	inner := t.fp
	t.fp = nil
	return inner, nil
}

func (t *tapeImage) Peek() (Protocol, error) {
	if t.fp == nil {
		return nil, errors.IOError.With("peek: no underlying protocol")
	}
	return t.fp, nil
}
