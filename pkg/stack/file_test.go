// Copyright 2026 The Stackfile Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package stack

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/welldata/stackfile/pkg/errors"
)

func tempFile(t *testing.T, data []byte) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stackfile-test")
	require.NoError(t, os.WriteFile(path, data, 0600))
	f, err := os.Open(path)
	require.NoError(t, err)
	return f
}

func TestFileRead(t *testing.T) {
	p, err := OpenFile(tempFile(t, seq(0x01, 0x08)))
	require.NoError(t, err)
	defer func() { require.NoError(t, Close(p)) }()

	out := make([]byte, 4)
	n, err := p.ReadInto(out)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	assert.Equal(t, seq(0x01, 0x04), out)

	// reading past the end is a short read plus EOF
	big := make([]byte, 6)
	n, err = p.ReadInto(big)
	require.Equal(t, errors.EOF, errors.Code(err))
	require.Equal(t, 4, n)
	assert.Equal(t, seq(0x05, 0x08), big[:n])
	assert.True(t, p.EOF())

	// seeking back clears EOF
	require.NoError(t, p.Seek(0))
	assert.False(t, p.EOF())
	n, err = p.ReadInto(out)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	assert.Equal(t, seq(0x01, 0x04), out)
}

func TestFileTell(t *testing.T) {
	p, err := OpenFile(tempFile(t, seq(0x01, 0x08)))
	require.NoError(t, err)
	defer func() { require.NoError(t, Close(p)) }()

	require.NoError(t, p.Seek(5))
	tell, err := p.Tell()
	require.NoError(t, err)
	assert.EqualValues(t, 5, tell)

	ptell, err := p.Ptell()
	require.NoError(t, err)
	assert.EqualValues(t, 5, ptell)
}

func TestFileOpenAtOffset(t *testing.T) {
	// the zero offset re-bases the logical stream
	f := tempFile(t, append([]byte{0xAA, 0xBB, 0xCC}, seq(0x01, 0x08)...))
	p, err := OpenFileAt(f, 3)
	require.NoError(t, err)
	defer func() { require.NoError(t, Close(p)) }()

	tell, err := p.Tell()
	require.NoError(t, err)
	assert.EqualValues(t, 0, tell)

	ptell, err := p.Ptell()
	require.NoError(t, err)
	assert.EqualValues(t, 3, ptell)

	out := make([]byte, 4)
	n, err := p.ReadInto(out)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	assert.Equal(t, seq(0x01, 0x04), out)

	require.NoError(t, p.Seek(0))
	n, err = p.ReadInto(out[:1])
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, []byte{0x01}, out[:1])
}

func TestFileOpenCapturesOffset(t *testing.T) {
	// OpenFile treats the file's current offset as the start, which
	// allows reading past garbage before handing control over
	f := tempFile(t, append([]byte{0xAA, 0xBB}, seq(0x01, 0x04)...))
	junk := make([]byte, 2)
	_, err := f.Read(junk)
	require.NoError(t, err)

	p, err := OpenFile(f)
	require.NoError(t, err)
	defer func() { require.NoError(t, Close(p)) }()

	tell, err := p.Tell()
	require.NoError(t, err)
	assert.EqualValues(t, 0, tell)

	out := make([]byte, 4)
	n, err := p.ReadInto(out)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	assert.Equal(t, seq(0x01, 0x04), out)
}

func TestFilePipeDegradesToForwardOnly(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)

	_, err = w.Write(seq(0x01, 0x04))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	p, err := OpenFile(r)
	require.NoError(t, err)
	defer func() { require.NoError(t, Close(p)) }()

	// seek and tell are unsupported on pipes, reading still works
	require.Equal(t, errors.NotSupported, errors.Code(p.Seek(0)))
	_, err = p.Tell()
	require.Equal(t, errors.NotSupported, errors.Code(err))

	out := make([]byte, 4)
	n, err := p.ReadInto(out)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	assert.Equal(t, seq(0x01, 0x04), out)
}

func TestFileLeafProtocol(t *testing.T) {
	p, err := OpenFile(tempFile(t, seq(0x01, 0x04)))
	require.NoError(t, err)
	defer func() { require.NoError(t, Close(p)) }()

	_, err = p.Peel()
	require.Equal(t, errors.LeafProtocol, errors.Code(err))
	_, err = p.Peek()
	require.Equal(t, errors.LeafProtocol, errors.Code(err))
}

func TestFileUnderTapeImage(t *testing.T) {
	f := tempFile(t, tif(0, seq(0x01, 0x08)))
	leaf, err := OpenFile(f)
	require.NoError(t, err)
	p, err := OpenTapeImage(leaf)
	require.NoError(t, err)
	defer func() { require.NoError(t, Close(p)) }()

	out := make([]byte, 10)
	n, err := p.ReadInto(out)
	require.Equal(t, errors.EOF, errors.Code(err))
	require.Equal(t, 8, n)
	assert.Equal(t, seq(0x01, 0x08), out[:n])
}

func TestOpenFileNoFile(t *testing.T) {
	_, err := OpenFile(nil)
	require.Equal(t, errors.InvalidArgs, errors.Code(err))
	_, err = OpenFileAt(nil, 0)
	require.Equal(t, errors.InvalidArgs, errors.Code(err))
}
