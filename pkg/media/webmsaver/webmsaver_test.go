package webmsaver

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bufCloser struct {
	bytes.Buffer
	closed bool
}

func (b *bufCloser) Close() error {
	b.closed = true
	return nil
}

// EBML container magic.
var ebmlMagic = []byte{0x1a, 0x45, 0xdf, 0xa3}

func TestWriteAndFinalize(t *testing.T) {
	var buf bufCloser
	s, err := NewWith(&buf, 640, 480)
	require.NoError(t, err)

	require.NoError(t, s.WriteVideo(true, 0, []byte{0x00, 0x01, 0x02}))
	require.NoError(t, s.WriteVideo(false, 33*time.Millisecond, []byte{0x03}))
	require.NoError(t, s.WriteAudio(20*time.Millisecond, []byte{0x04}))
	require.NoError(t, s.Close())

	assert.True(t, buf.closed, "closing the saver must finalize the file")
	out := buf.Bytes()
	require.True(t, len(out) > 4)
	assert.Equal(t, ebmlMagic, out[:4])
}

func TestWriteAfterClose(t *testing.T) {
	var buf bufCloser
	s, err := NewWith(&buf, 640, 480)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.WriteVideo(true, 0, []byte{0x00}), ErrClosed)
	assert.ErrorIs(t, s.WriteAudio(0, []byte{0x00}), ErrClosed)
	assert.NoError(t, s.Close(), "double close is a no-op")
}
