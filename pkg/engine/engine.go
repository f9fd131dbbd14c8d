// Package engine is the embedded render/stream engine the dashboard
// plugin forwards signaling calls into. It owns the process-wide WebRTC
// transport state, the active 3D scene and the peer connections that
// stream it. Rendering itself is delegated to a pluggable frame source.
package engine

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/logging"
	"github.com/pion/webrtc/v3"

	"github.com/openviz/renderboard/pkg/geometry"
	json "github.com/openviz/renderboard/pkg/json"
	"github.com/openviz/renderboard/pkg/models"
)

var (
	// ErrNotReady is returned while WebRTC has not been enabled yet.
	ErrNotReady = errors.New("engine: webrtc transport not enabled")
	// ErrUnknownEntryPoint is returned for entry points outside the
	// signaling API surface.
	ErrUnknownEntryPoint = errors.New("engine: unknown entry point")
	// ErrNoSuchPeer is returned when a peer id is not connected.
	ErrNoSuchPeer = errors.New("engine: no such peer")
	// ErrHandshakeDisabled is returned by the websocket handshake
	// endpoint after DisableHTTPHandshake.
	ErrHandshakeDisabled = errors.New("engine: http handshake disabled")
)

// Options configures an Engine.
type Options struct {
	// ICEServers is handed to clients via getIceServers and used for
	// the engine's own peer connections.
	ICEServers []models.IceServer
	// VideoFile is a VP8 IVF file looped as the streamed render
	// output. Empty means peers negotiate but receive no frames.
	VideoFile string
	// CaptureDir enables recording of streams ingested through the
	// websocket handshake mode.
	CaptureDir string
}

// Engine holds the global WebRTC state. The original design mutated it
// from a detached bootstrap task with no synchronization; here every
// state flip goes through the mutex.
type Engine struct {
	mu            sync.Mutex
	opts          Options
	webrtcEnabled bool
	httpHandshake bool
	scene         *geometry.TriangleMesh
	peers         map[string]*peer

	api           *webrtc.API
	loggerFactory *logging.DefaultLoggerFactory
	log           logging.LeveledLogger
}

var defaultEngine = New(Options{})

// Default returns the process-wide engine instance.
func Default() *Engine {
	return defaultEngine
}

// New builds an engine with the websocket handshake mode initially
// enabled and the WebRTC transport initially disabled.
func New(opts Options) *Engine {
	factory := logging.NewDefaultLoggerFactory()
	factory.DefaultLogLevel = logging.LogLevelWarn
	e := &Engine{
		opts:          opts,
		httpHandshake: true,
		peers:         make(map[string]*peer),
		loggerFactory: factory,
		log:           factory.NewLogger("engine"),
	}
	e.api = newWebRTCAPI()
	return e
}

// Configure replaces the engine options. Peers already connected keep
// the options they were created with.
func (e *Engine) Configure(opts Options) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts = opts
}

// SetVerbosity adjusts the engine's diagnostic log level.
func (e *Engine) SetVerbosity(level logging.LogLevel) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loggerFactory.DefaultLogLevel = level
	e.log = e.loggerFactory.NewLogger("engine")
}

// DisableHTTPHandshake turns off the websocket handshake mode so that
// all signaling goes through CallHTTPAPI.
func (e *Engine) DisableHTTPHandshake() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.httpHandshake = false
}

// EnableWebRTC opens the signaling API for calls.
func (e *Engine) EnableWebRTC() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.webrtcEnabled = true
}

// Draw installs mesh as the active scene.
func (e *Engine) Draw(mesh *geometry.TriangleMesh) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scene = mesh
	e.log.Infof("scene installed: %d vertices, %d triangles",
		len(mesh.Vertices), len(mesh.Triangles))
}

// Ready reports whether the transport is enabled and a scene has been
// drawn.
func (e *Engine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.webrtcEnabled && e.scene != nil
}

// CallHTTPAPI dispatches one signaling call. query is either empty or
// a raw query string prefixed with '?'. The response payload is JSON.
func (e *Engine) CallHTTPAPI(entryPoint, query string, body []byte) ([]byte, error) {
	e.mu.Lock()
	enabled := e.webrtcEnabled
	e.mu.Unlock()
	if !enabled {
		return nil, ErrNotReady
	}

	q, err := url.ParseQuery(strings.TrimPrefix(query, "?"))
	if err != nil {
		return nil, fmt.Errorf("engine: malformed query %q: %w", query, err)
	}

	switch entryPoint {
	case "/api/getMediaList":
		return e.getMediaList()
	case "/api/getIceServers":
		return e.getIceServers()
	case "/api/call":
		return e.call(q.Get("peerid"), body)
	case "/api/getIceCandidate":
		return e.getIceCandidate(q.Get("peerid"))
	case "/api/addIceCandidate":
		return e.addIceCandidate(q.Get("peerid"), body)
	case "/api/hangup":
		return e.hangup(q.Get("peerid"))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntryPoint, entryPoint)
	}
}

func (e *Engine) getMediaList() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	media := []models.MediaInfo{}
	if e.scene != nil {
		media = append(media, models.MediaInfo{Video: "window_0"})
	}
	return json.Marshal(media)
}

func (e *Engine) getIceServers() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	servers := e.opts.ICEServers
	if servers == nil {
		servers = []models.IceServer{}
	}
	return json.Marshal(servers)
}

func (e *Engine) call(peerID string, body []byte) ([]byte, error) {
	if peerID == "" {
		peerID = uuid.NewString()
	}

	var offer webrtc.SessionDescription
	if err := json.Unmarshal(body, &offer); err != nil {
		return nil, fmt.Errorf("engine: bad offer for peer %s: %w", peerID, err)
	}

	p, err := e.startCall(peerID, offer)
	if err != nil {
		return nil, err
	}

	return json.Marshal(struct {
		webrtc.SessionDescription
		PeerID string `json:"peerid"`
	}{*p.pc.LocalDescription(), p.id})
}

func (e *Engine) getIceCandidate(peerID string) ([]byte, error) {
	e.mu.Lock()
	p, ok := e.peers[peerID]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSuchPeer, peerID)
	}
	return json.Marshal(p.localCandidates())
}

func (e *Engine) addIceCandidate(peerID string, body []byte) ([]byte, error) {
	e.mu.Lock()
	p, ok := e.peers[peerID]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSuchPeer, peerID)
	}

	var candidate webrtc.ICECandidateInit
	if err := json.Unmarshal(body, &candidate); err != nil {
		return nil, fmt.Errorf("engine: bad candidate for peer %s: %w", peerID, err)
	}
	if err := p.pc.AddICECandidate(candidate); err != nil {
		return nil, err
	}
	return json.Marshal(map[string]string{"status": "ok"})
}

func (e *Engine) hangup(peerID string) ([]byte, error) {
	e.mu.Lock()
	p, ok := e.peers[peerID]
	if ok {
		delete(e.peers, peerID)
	}
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSuchPeer, peerID)
	}
	p.close()
	return json.Marshal(map[string]string{"status": "ok"})
}

// dropPeer removes a peer that ended outside of hangup, e.g. on ICE
// failure.
func (e *Engine) dropPeer(peerID string) {
	e.mu.Lock()
	p, ok := e.peers[peerID]
	if ok {
		delete(e.peers, peerID)
	}
	e.mu.Unlock()
	if ok {
		p.close()
	}
}

func (e *Engine) iceConfiguration() webrtc.Configuration {
	e.mu.Lock()
	defer e.mu.Unlock()
	config := webrtc.Configuration{}
	for _, s := range e.opts.ICEServers {
		config.ICEServers = append(config.ICEServers, webrtc.ICEServer{
			URLs:       s.URLs,
			Username:   s.Username,
			Credential: s.Credential,
		})
	}
	return config
}
