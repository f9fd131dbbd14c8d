package engine

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	json "github.com/openviz/renderboard/pkg/json"
	"github.com/openviz/renderboard/pkg/models"
	"github.com/openviz/renderboard/pkg/signal"
)

func dialHandshake(t *testing.T, e *Engine) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(e.HandshakeHandler())
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func TestHandshakeConnect(t *testing.T) {
	e := New(Options{})
	conn, cleanup := dialHandshake(t, e)
	defer cleanup()

	// A publisher offering one VP8 track, like the standalone client.
	publisher, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	require.NoError(t, err)
	defer publisher.Close()
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", "publisher")
	require.NoError(t, err)
	_, err = publisher.AddTrack(track)
	require.NoError(t, err)

	offer, err := publisher.CreateOffer(nil)
	require.NoError(t, err)
	gatherComplete := webrtc.GatheringCompletePromise(publisher)
	require.NoError(t, publisher.SetLocalDescription(offer))
	<-gatherComplete

	encoded, err := signal.Encode(*publisher.LocalDescription())
	require.NoError(t, err)
	payload, err := json.Marshal(models.SignalRequest{Command: "connect", SDP: encoded, Device: "cam0"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))

	_, answerPayload, err := conn.ReadMessage()
	require.NoError(t, err)
	var resp models.SignalResponse
	require.NoError(t, json.Unmarshal(answerPayload, &resp))
	assert.Equal(t, "connect", resp.Command)
	require.Equal(t, "ok", resp.Status, "connect failed: %s", resp.Error)
	assert.Equal(t, "cam0", resp.Device)
	assert.NotEmpty(t, resp.PeerID)

	var answer webrtc.SessionDescription
	require.NoError(t, signal.Decode(resp.SDP, &answer))
	assert.Equal(t, webrtc.SDPTypeAnswer, answer.Type)
	require.NoError(t, publisher.SetRemoteDescription(answer))
}

func TestHandshakeRejectsBadOffer(t *testing.T) {
	e := New(Options{})
	conn, cleanup := dialHandshake(t, e)
	defer cleanup()

	payload, err := json.Marshal(models.SignalRequest{Command: "connect", SDP: "garbage"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))

	_, answerPayload, err := conn.ReadMessage()
	require.NoError(t, err)
	var resp models.SignalResponse
	require.NoError(t, json.Unmarshal(answerPayload, &resp))
	assert.Equal(t, "error", resp.Status)
}

func TestHandshakeDisabled(t *testing.T) {
	e := New(Options{})
	e.DisableHTTPHandshake()
	srv := httptest.NewServer(e.HandshakeHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
