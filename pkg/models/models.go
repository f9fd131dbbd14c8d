package models

// SignalRequest is a client message on the websocket handshake channel.
type SignalRequest struct {
	Command   string `json:"cmd"`
	PeerID    string `json:"peer_id,omitempty"`
	SDP       string `json:"sdp,omitempty"`
	Candidate string `json:"candidate,omitempty"`
	Device    string `json:"device,omitempty"`
}

// SignalResponse answers a SignalRequest.
type SignalResponse struct {
	Command string `json:"cmd"`
	Status  string `json:"status"`
	SDP     string `json:"sdp,omitempty"`
	PeerID  string `json:"peer_id,omitempty"`
	Device  string `json:"device,omitempty"`
	Error   string `json:"error,omitempty"`
}

// IceServer describes one entry of the engine's ICE server list as
// returned by the getIceServers entry point.
type IceServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

// MediaInfo describes one streamable source in the getMediaList answer.
type MediaInfo struct {
	Video string `json:"video"`
}
