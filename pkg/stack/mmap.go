// Copyright 2026 The Stackfile Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package stack

import (
	"os"

	"github.com/edsrzf/mmap-go"

	"gitlab.com/welldata/stackfile/pkg/errors"
)

// mmapLeaf serves a read-only memory mapping of a host file through the
// memory-leaf semantics.
type mmapLeaf struct {
	memory
	fp   *os.File
	data mmap.MMap
}

// OpenMmap maps the file read-only and adapts the mapping to a leaf
// protocol. The protocol takes ownership of the file: Close unmaps and
// closes it. The whole file is the stream; there is no zero offset.
func OpenMmap(f *os.File) (Protocol, error) {
	if f == nil {
		return nil, errors.InvalidArgs.With("open: no file")
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, errors.IOError.WithFormat("mmap: %s", err)
	}
	return &mmapLeaf{memory: memory{mem: data}, fp: f, data: data}, nil
}

func (l *mmapLeaf) Close() error {
	if l.fp == nil {
		return nil
	}
	err := l.data.Unmap()
	if e := l.fp.Close(); err == nil {
		err = e
	}
	l.fp, l.data, l.mem = nil, nil, nil
	if err != nil {
		return errors.RuntimeError.WithFormat("close: %s", err)
	}
	return nil
}
