// Copyright 2026 The Stackfile Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package stack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/welldata/stackfile/pkg/errors"
)

func openVE(t *testing.T, file []byte) Protocol {
	t.Helper()
	p, err := OpenVisibleEnvelope(OpenMemory(file))
	require.NoError(t, err)
	return p
}

func TestEnvelopeEmptyRecordsOnly(t *testing.T) {
	// three back-to-back empty visible records: the stream is empty
	file := envelope(nil, nil, nil)
	p := openVE(t, file)

	out := make([]byte, 5)
	n, err := p.ReadInto(out)
	require.Equal(t, errors.EOF, errors.Code(err))
	assert.Equal(t, 0, n)
	assert.True(t, p.EOF())
}

func TestEnvelopeMultiRecord(t *testing.T) {
	file := []byte{
		0x0C, 0x00, 0xFF, 0x01,
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		0x06, 0x00, 0xFF, 0x01,
		0x09, 0x0A,
	}
	p := openVE(t, file)

	out := make([]byte, 12)
	n, err := p.ReadInto(out)
	require.Equal(t, errors.EOF, errors.Code(err))
	require.Equal(t, 10, n)
	assert.Equal(t, seq(0x01, 0x0A), out[:n])
}

func TestEnvelopeSplitRead(t *testing.T) {
	p := openVE(t, envelope(seq(0x01, 0x08), seq(0x09, 0x0A)))

	out := make([]byte, 4)
	n, err := p.ReadInto(out)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	assert.Equal(t, seq(0x01, 0x04), out)

	n, err = p.ReadInto(out)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	assert.Equal(t, seq(0x05, 0x08), out)

	n, err = p.ReadInto(out[:2])
	require.NoError(t, err)
	require.Equal(t, 2, n)
	assert.Equal(t, []byte{0x09, 0x0A}, out[:2])

	n, err = p.ReadInto(out[:1])
	require.Equal(t, errors.EOF, errors.Code(err))
	assert.Equal(t, 0, n)
}

func TestEnvelopeReadToRecordBoundary(t *testing.T) {
	prelude := []byte{0x10, 0x11, 0x12}
	file := append(append([]byte{}, prelude...), envelope(seq(0x01, 0x08), seq(0x09, 0x0A))...)

	leaf := OpenMemory(file)
	out := make([]byte, 3)
	_, err := leaf.ReadInto(out)
	require.NoError(t, err)

	p, err := OpenVisibleEnvelope(leaf)
	require.NoError(t, err)

	big := make([]byte, 10)
	n, err := p.ReadInto(big)
	require.NoError(t, err)
	require.Equal(t, 10, n)
	assert.Equal(t, seq(0x01, 0x0A), big)

	tell, err := p.Tell()
	require.NoError(t, err)
	assert.EqualValues(t, 10, tell)
}

func TestEnvelopeSeekToBrokenRecord(t *testing.T) {
	// a rubbish trailing header: seeking to the border succeeds, the read
	// that has to parse the header does not
	file := envelope(seq(0x01, 0x08), seq(0x09, 0x0A))
	file = append(file, 0x00, 0x00, 0x00, 0x00)

	t.Run("not indexed", func(t *testing.T) {
		p := openVE(t, file)
		require.NoError(t, p.Seek(10))

		out := make([]byte, 1)
		_, err := p.ReadInto(out)
		require.Equal(t, errors.ProtocolFatal, errors.Code(err))
		assert.Contains(t, err.Error(), "incorrect format version")
	})

	t.Run("indexed", func(t *testing.T) {
		p := openVE(t, file)
		out := make([]byte, 10)
		_, err := p.ReadInto(out)
		require.NoError(t, err)

		require.NoError(t, p.Seek(1))
		_, err = p.ReadInto(out[:1])
		require.NoError(t, err)

		require.NoError(t, p.Seek(10))
		_, err = p.ReadInto(out[:1])
		require.Equal(t, errors.ProtocolFatal, errors.Code(err))
	})
}

func TestEnvelopeSeekWithinAndAcross(t *testing.T) {
	p := openVE(t, envelope(seq(0x01, 0x08), seq(0x09, 0x10), seq(0x11, 0x18)))

	require.NoError(t, p.Seek(18))
	out := make([]byte, 2)
	n, err := p.ReadInto(out)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	assert.Equal(t, []byte{0x13, 0x14}, out)

	// back into an already-indexed record
	require.NoError(t, p.Seek(9))
	n, err = p.ReadInto(out)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	assert.Equal(t, []byte{0x0A, 0x0B}, out)

	tell, err := p.Tell()
	require.NoError(t, err)
	assert.EqualValues(t, 11, tell)
}

func TestEnvelopeSeekPastEnd(t *testing.T) {
	p := openVE(t, envelope(seq(0x01, 0x08)))

	require.NoError(t, p.Seek(1 << 33))
	out := make([]byte, 1)
	n, err := p.ReadInto(out)
	require.Equal(t, errors.EOF, errors.Code(err))
	assert.Equal(t, 0, n)

	require.NoError(t, p.Seek(0))
	n, err = p.ReadInto(out)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, []byte{0x01}, out)
}

func TestEnvelopeBadFormat(t *testing.T) {
	file := []byte{
		0x0C, 0x00, 0xFF, 0x02,
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
	}
	p := openVE(t, file)

	out := make([]byte, 4)
	_, err := p.ReadInto(out)
	require.Equal(t, errors.ProtocolFatal, errors.Code(err))
	assert.Contains(t, err.Error(), "visible record 1")
}

func TestEnvelopeShortLength(t *testing.T) {
	file := []byte{
		0x02, 0x00, 0xFF, 0x01,
		0x01, 0x02,
	}
	p := openVE(t, file)

	out := make([]byte, 4)
	_, err := p.ReadInto(out)
	require.Equal(t, errors.ProtocolFatal, errors.Code(err))
}

func TestEnvelopeTruncatedInData(t *testing.T) {
	file := envelope(seq(0x01, 0x08))[:9]
	p := openVE(t, file)

	out := make([]byte, 8)
	n, err := p.ReadInto(out)
	require.Equal(t, errors.UnexpectedEOF, errors.Code(err))
	assert.Equal(t, 5, n)
	assert.Equal(t, seq(0x01, 0x05), out[:n])
}

func TestEnvelopeTruncatedInHeader(t *testing.T) {
	file := envelope(seq(0x01, 0x08))
	file = append(file, 0x06, 0x00)
	p := openVE(t, file)

	out := make([]byte, 8)
	n, err := p.ReadInto(out)
	require.NoError(t, err)
	require.Equal(t, 8, n)

	_, err = p.ReadInto(out[:1])
	require.Equal(t, errors.UnexpectedEOF, errors.Code(err))
}

func TestEnvelopeSeekIntoTruncatedRecord(t *testing.T) {
	// the file ends right after a valid header that declares payload
	file := []byte{0x0C, 0x00, 0xFF, 0x01}
	p := openVE(t, file)

	require.NoError(t, p.Seek(4))

	out := make([]byte, 2)
	_, err := p.ReadInto(out)
	require.Equal(t, errors.UnexpectedEOF, errors.Code(err))
}

func TestOpenVisibleEnvelopeNoInner(t *testing.T) {
	_, err := OpenVisibleEnvelope(nil)
	require.Equal(t, errors.InvalidArgs, errors.Code(err))
}
