package plugin

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/openviz/renderboard/pkg/host"
	"github.com/openviz/renderboard/pkg/provider"
)

// serveJS concatenates the frontend scripts into one module: the WebRTC
// adapter shim, the stream-rendering client and the plugin entry
// module, in that order, separated by single newlines. Files are read
// on every request.
func (p *Plugin) serveJS(w http.ResponseWriter, r *http.Request) {
	parts := make([]string, 0, 3)
	for _, path := range []string{
		filepath.Join(p.resourceDir, "html", "libs", "adapter.min.js"),
		filepath.Join(p.resourceDir, "html", "webrtcstreamer.js"),
		filepath.Join(p.resourceDir, "frontend", "index.js"),
	} {
		contents, err := os.ReadFile(path)
		if err != nil {
			p.log.Error().Err(err).Str("path", path).Msg("frontend script missing")
			http.Error(w, "failed to read frontend scripts", http.StatusInternalServerError)
			return
		}
		parts = append(parts, string(contents))
	}
	host.Respond(w, []byte(strings.Join(parts, "\n")), "application/javascript")
}

// webrtcHTTPAPI proxies a signaling call into the engine. The entry
// point is the path after the plugin prefix; the query string is
// forwarded with its '?' only when non-empty and the body passes
// through untouched. Any proxy-side failure is swallowed and answered
// with an empty response: validation belongs to the engine.
func (p *Plugin) webrtcHTTPAPI(w http.ResponseWriter, r *http.Request) {
	prefix := host.PluginPrefix(Name)
	if !strings.HasPrefix(r.URL.Path, prefix+"/") {
		p.log.Debug().Str("path", r.URL.Path).Msg("request is not a signaling call, ignored")
		return
	}
	entryPoint := r.URL.Path[len(prefix):]

	query := ""
	if r.URL.RawQuery != "" {
		query = "?" + r.URL.RawQuery
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		p.log.Debug().Err(err).Msg("request is not a signaling call, ignored")
		return
	}

	payload, err := p.engine.CallHTTPAPI(entryPoint, query, body)
	if err != nil {
		p.log.Debug().Err(err).Str("entry_point", entryPoint).
			Msg("request is not a signaling call, ignored")
		return
	}
	host.Respond(w, payload, "application/json")
}

// serveTags responds with the run to tag mapping for the experiment:
// {runName: [tagName, ...]}. The frontend uses it to populate its
// selection menus.
func (p *Plugin) serveTags(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	experiment := host.ExperimentID(r)

	if plugins, err := p.provider.ListPlugins(ctx, experiment); err == nil {
		p.log.Debug().Strs("plugins", plugins).Msg("experiment plugins")
	}
	if meta, err := p.provider.ExperimentMetadata(ctx, experiment); err == nil {
		p.log.Debug().Str("name", meta.Name).Msg("experiment metadata")
	}

	mapping, err := p.provider.ListTensors(ctx, experiment, Name, nil)
	if err != nil {
		host.RespondError(w, err)
		return
	}
	host.Respond(w, mapping, "application/json")
}

// serveGreetings returns the series for a single run and tag as an
// array of (wall_time, step, value) triples.
func (p *Plugin) serveGreetings(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")
	run := r.URL.Query().Get("run")
	experiment := host.ExperimentID(r)

	body, err := p.tensorsImpl(r.Context(), experiment, run, tag)
	if err != nil {
		host.RespondError(w, err)
		return
	}
	host.Respond(w, body, "application/json")
}

// tensorsImpl reads the series for the given run and tag, downsampled
// to the configured cap. A run or tag with no stored data yields a
// typed NotFoundError carrying both identifiers.
func (p *Plugin) tensorsImpl(ctx context.Context, experiment, run, tag string) ([][3]float64, error) {
	all, err := p.provider.ReadTensors(ctx, experiment, Name, p.downsampleTo, &provider.RunTagFilter{
		Runs: []string{run},
		Tags: []string{tag},
	})
	if err != nil {
		return nil, err
	}
	series, ok := all[run][tag]
	if !ok {
		return nil, &provider.NotFoundError{Run: run, Tag: tag}
	}

	out := make([][3]float64, 0, len(series))
	for _, d := range series {
		out = append(out, [3]float64{d.WallTime, float64(d.Step), d.Value})
	}
	return out, nil
}
