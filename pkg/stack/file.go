// Copyright 2026 The Stackfile Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package stack

import (
	"io"
	"os"

	"gitlab.com/welldata/stackfile/pkg/errors"
)

// fileLeaf adapts a host file to the Protocol contract. The offset of the
// host file at open time becomes logical offset 0, which allows the
// caller to read past garbage, labels or other prelude before handing
// control over.
type fileLeaf struct {
	fp      *os.File
	zero    int64
	zeroErr error
	eof     bool
}

// OpenFile adapts an open file to a leaf protocol. The protocol takes
// ownership of the file: it is closed when Close is called on the leaf.
//
// The current offset of the file is captured as the start of the stream.
// If the offset cannot be determined - the file is a pipe or similar -
// the leaf degrades to forward-only reading: Seek and Tell fail with
// errors.NotSupported carrying the original failure.
func OpenFile(f *os.File) (Protocol, error) {
	if f == nil {
		return nil, errors.InvalidArgs.With("open: no file")
	}
	l := &fileLeaf{fp: f}
	zero, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		l.zero, l.zeroErr = -1, err
	} else {
		l.zero = zero
	}
	return l, nil
}

// OpenFileAt adapts an open file to a leaf protocol, seeking to zero
// first and treating that offset as the start of the stream. The
// protocol takes ownership of the file.
func OpenFileAt(f *os.File, zero int64) (Protocol, error) {
	if f == nil {
		return nil, errors.InvalidArgs.With("open: no file")
	}
	if zero < 0 {
		return nil, errors.InvalidArgs.WithFormat("open: expected zero (which is %d) >= 0", zero)
	}
	if _, err := f.Seek(zero, io.SeekStart); err != nil {
		return nil, errors.IOError.WithFormat("open: %s", err)
	}
	return &fileLeaf{fp: f, zero: zero}, nil
}

func (l *fileLeaf) ReadInto(dst []byte) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	total := 0
	for total < len(dst) {
		n, err := l.fp.Read(dst[total:])
		total += n
		switch {
		case err == io.EOF:
			l.eof = true
			if total < len(dst) {
				return total, errors.EOF
			}
			return total, nil
		case err != nil:
			return total, errors.IOError.WithFormat("read: %s", err)
		case n == 0:
			return total, errors.OKIncomplete
		}
	}
	return total, nil
}

func (l *fileLeaf) Seek(n int64) error {
	if n < 0 {
		return errors.InvalidArgs.WithFormat("seek: expected n (which is %d) >= 0", n)
	}
	if l.zeroErr != nil {
		return errors.NotSupported.WithFormat("seek: %s", l.zeroErr)
	}
	if _, err := l.fp.Seek(n+l.zero, io.SeekStart); err != nil {
		return errors.IOError.WithFormat("seek: %s", err)
	}
	l.eof = false
	return nil
}

func (l *fileLeaf) Tell() (int64, error) {
	if l.zeroErr != nil {
		return 0, errors.NotSupported.WithFormat("tell: %s", l.zeroErr)
	}
	off, err := l.fp.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, errors.IOError.WithFormat("tell: %s", err)
	}
	return off - l.zero, nil
}

func (l *fileLeaf) Ptell() (int64, error) {
	if l.zeroErr != nil {
		return 0, errors.NotSupported.WithFormat("ptell: %s", l.zeroErr)
	}
	off, err := l.fp.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, errors.IOError.WithFormat("ptell: %s", err)
	}
	return off, nil
}

func (l *fileLeaf) EOF() bool { return l.eof }

func (l *fileLeaf) Close() error {
	if l.fp == nil {
		return nil
	}
	err := l.fp.Close()
	l.fp = nil
	if err != nil {
		return errors.RuntimeError.WithFormat("close: %s", err)
	}
	return nil
}

func (l *fileLeaf) Peel() (Protocol, error) {
	return nil, errors.LeafProtocol.With("peel: not supported for leaf protocol")
}

func (l *fileLeaf) Peek() (Protocol, error) {
	return nil, errors.LeafProtocol.With("peek: not supported for leaf protocol")
}
