package docs

import "github.com/openviz/renderboard/pkg/models"

// swagger:route GET /index.js frontend serveJS
// Returns the plugin's browser entry module: the WebRTC adapter shim,
// the stream client and the plugin frontend concatenated.
// responses:
// 200: body:string

// swagger:route GET /tags series serveTags
// Returns the run to tag mapping for the experiment.
// responses:
// 200: body:map[string][]string

// swagger:route GET /greetings series serveGreetings
// Returns (wall_time, step, value) triples for one run and tag.
// responses:
// 200: body:[][3]float64
// 404: errorResponse

// swagger:route POST /api/{entrypoint} signaling webrtcHTTPAPI
// Forwards a WebRTC signaling call to the embedded engine.
// responses:
// 200: signalingResponse

// swagger:response signalingResponse
type signalingResponseWrapper struct {
	// in:body
	Body interface{}
}

// swagger:response errorResponse
type errorResponseWrapper struct {
	// in:body
	Body struct {
		Error string `json:"error"`
	}
}

// swagger:parameters webrtcHTTPAPI
type iceServersWrapper struct {
	// in:body
	Body []models.IceServer
}
