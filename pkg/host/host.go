// Package host defines the contract between the dashboard application
// and its plugins: the context handed to a plugin at construction, the
// plugin interface, route mounting and the JSON response conventions.
package host

import (
	"errors"
	"net/http"
	"strings"

	"github.com/openviz/renderboard/pkg/provider"

	json "github.com/openviz/renderboard/pkg/json"
)

// Context carries everything the host supplies to a plugin when it is
// instantiated.
type Context struct {
	DataProvider  provider.DataProvider
	Logdir        string
	SamplingHints map[string]interface{}
}

// FrontendMetadata declares how a plugin appears in the dashboard UI.
type FrontendMetadata struct {
	// ESModulePath is the plugin route serving its browser entry
	// module.
	ESModulePath string `json:"es_module_path"`
}

// Plugin is implemented by every loadable dashboard plugin. The route
// table returned by GetPluginApps must be fully populated before the
// host starts dispatching and never change afterwards.
type Plugin interface {
	GetPluginApps() map[string]http.HandlerFunc
	IsActive() bool
	FrontendMetadata() FrontendMetadata
}

const pluginPathPrefix = "/data/plugin/"

// PluginPrefix returns the URL prefix all of a plugin's routes live
// under, without a trailing slash.
func PluginPrefix(name string) string {
	return pluginPathPrefix + name
}

// MountPlugin registers a plugin's routes on mux. A route ending in
// "/*" is mounted as a subtree so the handler sees every path below
// it. Handlers that write nothing produce an empty 200 response.
func MountPlugin(mux *http.ServeMux, name string, p Plugin) {
	prefix := PluginPrefix(name)
	for route, handler := range p.GetPluginApps() {
		if strings.HasSuffix(route, "/*") {
			mux.HandleFunc(prefix+strings.TrimSuffix(route, "*"), handler)
			continue
		}
		mux.HandleFunc(prefix+route, handler)
	}
}

// ExperimentID extracts the experiment scope of a request. Hosts that
// serve a single experiment leave it unset.
func ExperimentID(r *http.Request) string {
	if id := r.URL.Query().Get("experiment"); id != "" {
		return id
	}
	return "default"
}

// Respond writes body with the given content type. A []byte body is
// written raw; anything else is JSON encoded.
func Respond(w http.ResponseWriter, body interface{}, contentType string) {
	w.Header().Set("Content-Type", contentType)
	if raw, ok := body.([]byte); ok {
		w.Write(raw)
		return
	}
	payload, err := json.Marshal(body)
	if err != nil {
		RespondError(w, err)
		return
	}
	w.Write(payload)
}

// RespondError renders err using the host error convention: a typed
// not-found becomes a 404, anything else a 500, both as JSON.
func RespondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var notFound *provider.NotFoundError
	if errors.As(err, &notFound) {
		status = http.StatusNotFound
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	payload, _ := json.Marshal(map[string]string{"error": err.Error()})
	w.Write(payload)
}
