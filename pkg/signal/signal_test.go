package signal

import (
	"testing"

	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	in := webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  "v=0\r\no=- 0 0 IN IP4 127.0.0.1\r\n",
	}
	encoded, err := Encode(in)
	require.NoError(t, err)

	var out webrtc.SessionDescription
	require.NoError(t, Decode(encoded, &out))
	assert.Equal(t, in, out)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	var out webrtc.SessionDescription
	assert.Error(t, Decode("not base64!!", &out))
}
