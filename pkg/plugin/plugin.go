// Package plugin is the renderboard dashboard plugin: four HTTP routes
// backed by the embedded render/stream engine and the host's data
// provider.
package plugin

import (
	"net/http"

	"github.com/pion/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"

	"github.com/openviz/renderboard/pkg/engine"
	"github.com/openviz/renderboard/pkg/geometry"
	"github.com/openviz/renderboard/pkg/host"
	"github.com/openviz/renderboard/pkg/provider"
)

// Name is the plugin's registered name; it prefixes every route and
// scopes all provider reads.
const Name = "renderboard"

// Meshes kept per time series unless the host's sampling hints say
// otherwise.
const defaultDownsampling = 100

// RenderEngine is the slice of the embedded engine the plugin touches.
type RenderEngine interface {
	SetVerbosity(level logging.LogLevel)
	DisableHTTPHandshake()
	EnableWebRTC()
	Draw(mesh *geometry.TriangleMesh)
	CallHTTPAPI(entryPoint, query string, body []byte) ([]byte, error)
}

// Plugin implements host.Plugin.
type Plugin struct {
	provider     provider.DataProvider
	logdir       string
	downsampleTo int
	engine       RenderEngine
	resourceDir  string
	routes       map[string]http.HandlerFunc
	log          zerolog.Logger
}

// Option adjusts a Plugin at construction.
type Option func(*Plugin)

// WithEngine substitutes the engine, used by tests.
func WithEngine(e RenderEngine) Option {
	return func(p *Plugin) { p.engine = e }
}

// WithResourceDir points the script server at a different frontend
// resource tree.
func WithResourceDir(dir string) Option {
	return func(p *Plugin) { p.resourceDir = dir }
}

// New instantiates the plugin: it resolves the downsample cap from the
// host's sampling hints, raises the engine's verbosity and kicks off
// the render session in the background. The session bootstrap is
// fire-and-forget; it runs for the rest of the process.
func New(ctx host.Context, opts ...Option) *Plugin {
	p := &Plugin{
		provider:     ctx.DataProvider,
		logdir:       ctx.Logdir,
		downsampleTo: defaultDownsampling,
		engine:       engine.Default(),
		resourceDir:  "resources",
		log:          log.With().Str("plugin", Name).Logger(),
	}
	if hint, ok := ctx.SamplingHints[Name]; ok {
		if n := cast.ToInt(hint); n > 0 {
			p.downsampleTo = n
		}
	}
	for _, opt := range opts {
		opt(p)
	}

	p.routes = map[string]http.HandlerFunc{
		"/index.js":  p.serveJS,
		"/tags":      p.serveTags,
		"/api/*":     p.webrtcHTTPAPI,
		"/greetings": p.serveGreetings,
	}

	p.engine.SetVerbosity(logging.LogLevelDebug)
	go p.renderSession()
	return p
}

// renderSession boots the engine's streaming session and installs the
// demonstration scene.
func (p *Plugin) renderSession() {
	p.engine.DisableHTTPHandshake()
	p.engine.EnableWebRTC()

	box := geometry.CreateBox(1, 2, 4)
	box.ComputeVertexNormals()
	box.PaintUniformColor(1.0, 0.0, 0.0)
	p.engine.Draw(box)
}

// GetPluginApps returns the route table built at construction.
func (p *Plugin) GetPluginApps() map[string]http.HandlerFunc {
	return p.routes
}

// IsActive always reports true. Activity detection based on stored
// data was considered and rejected; the frontend probes the routes
// regardless.
func (p *Plugin) IsActive() bool {
	return true
}

// FrontendMetadata declares the browser entry module.
func (p *Plugin) FrontendMetadata() host.FrontendMetadata {
	return host.FrontendMetadata{ESModulePath: "/index.js"}
}
