// Copyright 2026 The Stackfile Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package stack

import "gitlab.com/welldata/stackfile/pkg/errors"

// memory is a fixed-size file in memory: a borrowed byte slice and a
// cursor. It is largely intended for tests and caching, but it can
// surely be used for other things too.
type memory struct {
	mem []byte
	pos int64
}

// OpenMemory adapts a byte slice to a leaf protocol. The slice is
// borrowed, not copied; the caller must not mutate it while the leaf is
// in use.
//
// The memory leaf has no end-of-file distinction of its own: a short
// read returns errors.OKIncomplete and the framing layers above
// interpret exhaustion through EOF.
func OpenMemory(data []byte) Protocol {
	return &memory{mem: data}
}

func (m *memory) ReadInto(dst []byte) (int, error) {
	n := copy(dst, m.mem[m.pos:])
	m.pos += int64(n)
	if n < len(dst) {
		return n, errors.OKIncomplete
	}
	return n, nil
}

func (m *memory) Seek(n int64) error {
	if n < 0 {
		return errors.InvalidArgs.WithFormat("seek: expected n (which is %d) >= 0", n)
	}
	if n > int64(len(m.mem)) {
		return errors.InvalidArgs.WithFormat(
			"seek: offset (= %d) > file size (= %d)", n, len(m.mem))
	}
	m.pos = n
	return nil
}

func (m *memory) Tell() (int64, error) { return m.pos, nil }

func (m *memory) Ptell() (int64, error) { return m.pos, nil }

func (m *memory) EOF() bool { return m.pos == int64(len(m.mem)) }

func (m *memory) Close() error { return nil }

func (m *memory) Peel() (Protocol, error) {
	return nil, errors.LeafProtocol.With("peel: not supported for leaf protocol")
}

func (m *memory) Peek() (Protocol, error) {
	return nil, errors.LeafProtocol.With("peek: not supported for leaf protocol")
}
