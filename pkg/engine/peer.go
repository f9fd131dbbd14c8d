package engine

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v3"
	"github.com/pion/webrtc/v3/pkg/media"
)

// newWebRTCAPI builds the pion API with the codecs the engine streams.
// Only VP8 and Opus are registered, which keeps the capture muxers
// simple.
func newWebRTCAPI() *webrtc.API {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
		PayloadType:        96,
	}, webrtc.RTPCodecTypeVideo); err != nil {
		panic(err)
	}
	if err := m.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000},
		PayloadType:        111,
	}, webrtc.RTPCodecTypeAudio); err != nil {
		panic(err)
	}

	i := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, i); err != nil {
		panic(err)
	}

	return webrtc.NewAPI(webrtc.WithMediaEngine(m), webrtc.WithInterceptorRegistry(i))
}

// peer is one streaming viewer. It owns its peer connection, its frame
// source and the candidates gathered for trickle ICE.
type peer struct {
	id     string
	pc     *webrtc.PeerConnection
	source FrameSource

	mu         sync.Mutex
	candidates []webrtc.ICECandidateInit

	stop     chan struct{}
	stopOnce sync.Once
}

func (p *peer) addLocalCandidate(c webrtc.ICECandidateInit) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.candidates = append(p.candidates, c)
}

func (p *peer) localCandidates() []webrtc.ICECandidateInit {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]webrtc.ICECandidateInit, len(p.candidates))
	copy(out, p.candidates)
	return out
}

func (p *peer) close() {
	p.stopOnce.Do(func() { close(p.stop) })
	if p.source != nil {
		p.source.Close()
	}
	p.pc.Close()
}

// startCall answers an SDP offer with a new viewer peer carrying the
// engine's outbound video track. Candidates trickle through
// getIceCandidate.
func (e *Engine) startCall(peerID string, offer webrtc.SessionDescription) (*peer, error) {
	pc, err := e.api.NewPeerConnection(e.iceConfiguration())
	if err != nil {
		return nil, err
	}

	p := &peer{
		id:   peerID,
		pc:   pc,
		stop: make(chan struct{}),
	}
	if p.source, err = e.newFrameSource(); err != nil {
		pc.Close()
		return nil, err
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", "renderboard")
	if err != nil {
		pc.Close()
		return nil, err
	}
	sender, err := pc.AddTrack(track)
	if err != nil {
		pc.Close()
		return nil, err
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c != nil {
			p.addLocalCandidate(c.ToJSON())
		}
	})
	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		e.log.Infof("peer %s connection state: %s", p.id, state)
		switch state {
		case webrtc.ICEConnectionStateFailed, webrtc.ICEConnectionStateClosed:
			e.dropPeer(p.id)
		}
	})

	if err := pc.SetRemoteDescription(offer); err != nil {
		pc.Close()
		return nil, err
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		pc.Close()
		return nil, err
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		pc.Close()
		return nil, err
	}

	go p.readRTCP(sender, e)
	if p.source != nil {
		go p.pumpFrames(track, e)
	}

	e.mu.Lock()
	if old, ok := e.peers[peerID]; ok {
		// A repeated call for the same peer id replaces the session.
		go old.close()
	}
	e.peers[peerID] = p
	e.mu.Unlock()

	return p, nil
}

// readRTCP drains receiver reports from the outbound sender. A picture
// loss indication makes the frame source restart from a keyframe.
func (p *peer) readRTCP(sender *webrtc.RTPSender, e *Engine) {
	buf := make([]byte, 1500)
	for {
		select {
		case <-p.stop:
			return
		default:
		}
		n, _, err := sender.Read(buf)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				e.log.Debugf("peer %s rtcp read: %v", p.id, err)
			}
			return
		}
		packets, err := rtcp.Unmarshal(buf[:n])
		if err != nil {
			e.log.Debugf("peer %s rtcp unmarshal: %v", p.id, err)
			continue
		}
		for _, pkt := range packets {
			if _, ok := pkt.(*rtcp.PictureLossIndication); ok {
				if p.source != nil {
					p.source.ForceKeyframe()
				}
			}
		}
	}
}

// pumpFrames feeds the outbound track from the peer's frame source at
// the source's native frame rate until the peer is closed.
func (p *peer) pumpFrames(track *webrtc.TrackLocalStaticSample, e *Engine) {
	for {
		payload, duration, err := p.source.NextFrame()
		if err != nil {
			e.log.Warnf("peer %s frame source: %v", p.id, err)
			return
		}
		if err := track.WriteSample(media.Sample{Data: payload, Duration: duration}); err != nil {
			e.log.Debugf("peer %s write sample: %v", p.id, err)
			return
		}
		select {
		case <-p.stop:
			return
		case <-time.After(duration):
		}
	}
}
