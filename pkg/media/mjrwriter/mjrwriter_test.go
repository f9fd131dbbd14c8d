package mjrwriter

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	json "github.com/openviz/renderboard/pkg/json"
)

func samplePacket() *rtp.Packet {
	return &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    96,
			SequenceNumber: 7,
			Timestamp:      90000,
			SSRC:           42,
		},
		Payload: []byte{0xde, 0xad, 0xbe, 0xef},
	}
}

func TestWriteRTPLayout(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWith(&buf, Video)
	require.NoError(t, err)

	packet := samplePacket()
	require.NoError(t, w.WriteRTP(packet))
	out := buf.Bytes()

	// File header: magic, meta length, JSON meta.
	require.True(t, len(out) > 10)
	assert.Equal(t, []byte("MJR00002"), out[:8])
	metaLen := int(binary.BigEndian.Uint16(out[8:10]))
	var meta fileHeader
	require.NoError(t, json.Unmarshal(out[10:10+metaLen], &meta))
	assert.Equal(t, "v", meta.TypeMedia)
	assert.Equal(t, "vp8", meta.Codec)

	// Frame header: magic, elapsed time, payload length.
	frame := out[10+metaLen:]
	require.True(t, len(frame) > 10)
	assert.Equal(t, []byte("MEET"), frame[:4])

	packetHeader, err := packet.Header.Marshal()
	require.NoError(t, err)
	frameLen := int(binary.BigEndian.Uint16(frame[8:10]))
	assert.Equal(t, len(packetHeader)+len(packet.Payload), frameLen)
	assert.Equal(t, frame[10:10+frameLen], append(packetHeader, packet.Payload...))
}

func TestHeaderWrittenOnce(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWith(&buf, Audio)
	require.NoError(t, err)

	require.NoError(t, w.WriteRTP(samplePacket()))
	require.NoError(t, w.WriteRTP(samplePacket()))
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("MJR00002")))
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("MEET")))
}

func TestWriteAfterClose(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWith(&buf, Data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.WriteRTP(samplePacket()), ErrNotOpen)
}

func TestNewWithNilOutput(t *testing.T) {
	_, err := NewWith(nil, Video)
	assert.ErrorIs(t, err, ErrNotOpen)
}
