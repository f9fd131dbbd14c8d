package engine

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pion/rtcp"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v3"
	"github.com/pion/webrtc/v3/pkg/media/samplebuilder"

	json "github.com/openviz/renderboard/pkg/json"
	"github.com/openviz/renderboard/pkg/media/mjrwriter"
	"github.com/openviz/renderboard/pkg/media/webmsaver"
	"github.com/openviz/renderboard/pkg/models"
	"github.com/openviz/renderboard/pkg/signal"
)

const rtcpPLIInterval = 3 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// HandshakeHandler serves the engine's standalone websocket handshake
// mode: clients publish a stream with a single connect/answer exchange
// and the engine captures it to disk. The dashboard plugin disables
// this mode and signals through CallHTTPAPI instead.
func (e *Engine) HandshakeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e.mu.Lock()
		enabled := e.httpHandshake
		e.mu.Unlock()
		if !enabled {
			http.Error(w, ErrHandshakeDisabled.Error(), http.StatusForbidden)
			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			e.log.Warnf("handshake upgrade: %v", err)
			return
		}
		e.serveHandshake(ws)
	}
}

func (e *Engine) serveHandshake(ws *websocket.Conn) {
	done := make(chan struct{})
	var session *captureSession
	defer func() {
		close(done)
		if session != nil {
			session.close()
		}
		ws.Close()
		e.log.Infof("handshake client disconnected")
	}()

	for {
		messageType, payload, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var req models.SignalRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			e.log.Warnf("handshake: bad request: %v", err)
			return
		}

		switch req.Command {
		case "connect":
			if session != nil {
				continue
			}
			session, err = e.startCapture(req.SDP, done)
			resp := models.SignalResponse{Command: "connect", Device: req.Device}
			if err != nil {
				e.log.Warnf("handshake connect: %v", err)
				resp.Status = "error"
				resp.Error = err.Error()
			} else {
				resp.Status = "ok"
				resp.SDP = session.answer
				resp.PeerID = session.id
			}
			out, err := json.Marshal(resp)
			if err != nil {
				return
			}
			if err := ws.WriteMessage(messageType, out); err != nil {
				return
			}
		case "disconnect":
			return
		default:
			e.log.Debugf("handshake: ignoring command %q", req.Command)
		}
	}
}

// captureSession is one published stream being recorded.
type captureSession struct {
	id     string
	answer string
	pc     *webrtc.PeerConnection

	mu    sync.Mutex
	saver *webmsaver.Saver
}

func (s *captureSession) close() {
	s.pc.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saver != nil {
		s.saver.Close()
		s.saver = nil
	}
}

// startCapture answers the published offer and wires the inbound
// tracks to the capture writers. The answer is returned once ICE
// gathering completes, so a single signaling exchange suffices.
func (e *Engine) startCapture(encodedOffer string, done <-chan struct{}) (*captureSession, error) {
	var offer webrtc.SessionDescription
	if err := signal.Decode(encodedOffer, &offer); err != nil {
		return nil, err
	}

	pc, err := e.api.NewPeerConnection(e.iceConfiguration())
	if err != nil {
		return nil, err
	}

	if _, err = pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio); err != nil {
		pc.Close()
		return nil, err
	}
	if _, err = pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo); err != nil {
		pc.Close()
		return nil, err
	}

	session := &captureSession{id: uuid.NewString(), pc: pc}

	e.mu.Lock()
	captureDir := e.opts.CaptureDir
	e.mu.Unlock()

	if captureDir != "" {
		session.saver, err = webmsaver.New(
			filepath.Join(captureDir, session.id+".webm"), 1280, 720)
		if err != nil {
			pc.Close()
			return nil, err
		}
	}

	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		if strings.EqualFold(track.Codec().MimeType, webrtc.MimeTypeVP8) {
			// Keep the publisher sending keyframes while we record.
			go func() {
				ticker := time.NewTicker(rtcpPLIInterval)
				defer ticker.Stop()
				for {
					select {
					case <-done:
						return
					case <-ticker.C:
						if err := pc.WriteRTCP([]rtcp.Packet{
							&rtcp.PictureLossIndication{MediaSSRC: uint32(track.SSRC())},
						}); err != nil {
							return
						}
					}
				}
			}()
		}
		e.captureTrack(session, captureDir, track)
	})
	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		e.log.Infof("capture %s connection state: %s", session.id, state)
	})

	if err := pc.SetRemoteDescription(offer); err != nil {
		session.close()
		return nil, err
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		session.close()
		return nil, err
	}
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		session.close()
		return nil, err
	}
	// The handshake carries exactly one exchange, so trickle ICE is
	// not an option here.
	<-gatherComplete

	session.answer, err = signal.Encode(*pc.LocalDescription())
	if err != nil {
		session.close()
		return nil, err
	}
	return session, nil
}

// captureTrack drains one inbound track. With a capture directory
// configured the raw RTP goes to an MJR file and the depacketized
// samples into the session's WebM; without one the packets are
// discarded.
func (e *Engine) captureTrack(session *captureSession, captureDir string, track *webrtc.TrackRemote) {
	isVideo := strings.EqualFold(track.Codec().MimeType, webrtc.MimeTypeVP8)
	isAudio := strings.EqualFold(track.Codec().MimeType, webrtc.MimeTypeOpus)
	if !isVideo && !isAudio {
		e.log.Warnf("capture %s: unsupported codec %s", session.id, track.Codec().MimeType)
		return
	}

	var mjr *mjrwriter.Writer
	var builder *samplebuilder.SampleBuilder
	if captureDir != "" {
		var err error
		if isVideo {
			mjr, err = mjrwriter.New(filepath.Join(captureDir, session.id+"-video.mjr"), mjrwriter.Video)
			builder = samplebuilder.New(10, &codecs.VP8Packet{}, track.Codec().ClockRate)
		} else {
			mjr, err = mjrwriter.New(filepath.Join(captureDir, session.id+"-audio.mjr"), mjrwriter.Audio)
			builder = samplebuilder.New(10, &codecs.OpusPacket{}, track.Codec().ClockRate)
		}
		if err != nil {
			e.log.Warnf("capture %s: open mjr: %v", session.id, err)
			return
		}
		defer mjr.Close()
	}

	var streamTime time.Duration
	for {
		packet, _, err := track.ReadRTP()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				e.log.Debugf("capture %s read: %v", session.id, err)
			}
			return
		}
		if mjr == nil {
			continue
		}
		if err := mjr.WriteRTP(packet); err != nil {
			e.log.Warnf("capture %s mjr write: %v", session.id, err)
			return
		}

		builder.Push(packet)
		for sample := builder.Pop(); sample != nil; sample = builder.Pop() {
			streamTime += sample.Duration
			session.mu.Lock()
			saver := session.saver
			var werr error
			if saver != nil {
				if isVideo {
					keyframe := len(sample.Data) > 0 && sample.Data[0]&0x01 == 0
					werr = saver.WriteVideo(keyframe, streamTime, sample.Data)
				} else {
					werr = saver.WriteAudio(streamTime, sample.Data)
				}
			}
			session.mu.Unlock()
			if werr != nil {
				e.log.Warnf("capture %s webm write: %v", session.id, werr)
				return
			}
		}
	}
}
