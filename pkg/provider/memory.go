package provider

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryProvider is an in-memory DataProvider. It backs the demo host
// and the test suites; writes go through AddScalar.
type MemoryProvider struct {
	mu sync.RWMutex
	// experiment -> plugin -> run -> tag -> points
	data    map[string]map[string]map[string]map[string][]TensorDatum
	created map[string]int64
}

func NewMemory() *MemoryProvider {
	return &MemoryProvider{
		data:    make(map[string]map[string]map[string]map[string][]TensorDatum),
		created: make(map[string]int64),
	}
}

// AddScalar appends one point to the series for the given experiment,
// plugin, run and tag.
func (p *MemoryProvider) AddScalar(experimentID, pluginName, run, tag string, d TensorDatum) {
	p.mu.Lock()
	defer p.mu.Unlock()
	exp, ok := p.data[experimentID]
	if !ok {
		exp = make(map[string]map[string]map[string][]TensorDatum)
		p.data[experimentID] = exp
		p.created[experimentID] = time.Now().Unix()
	}
	plug, ok := exp[pluginName]
	if !ok {
		plug = make(map[string]map[string][]TensorDatum)
		exp[pluginName] = plug
	}
	runs, ok := plug[run]
	if !ok {
		runs = make(map[string][]TensorDatum)
		plug[run] = runs
	}
	runs[tag] = append(runs[tag], d)
}

func (p *MemoryProvider) ListPlugins(_ context.Context, experimentID string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	plugins := make([]string, 0, len(p.data[experimentID]))
	for name := range p.data[experimentID] {
		plugins = append(plugins, name)
	}
	sort.Strings(plugins)
	return plugins, nil
}

func (p *MemoryProvider) ExperimentMetadata(_ context.Context, experimentID string) (ExperimentMetadata, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return ExperimentMetadata{
		Name:    experimentID,
		Created: p.created[experimentID],
	}, nil
}

func (p *MemoryProvider) ListTensors(_ context.Context, experimentID, pluginName string, filter *RunTagFilter) (map[string][]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string][]string)
	for run, tags := range p.data[experimentID][pluginName] {
		if !filter.matchRun(run) {
			continue
		}
		for tag := range tags {
			if !filter.matchTag(tag) {
				continue
			}
			out[run] = append(out[run], tag)
		}
		sort.Strings(out[run])
	}
	return out, nil
}

func (p *MemoryProvider) ReadTensors(_ context.Context, experimentID, pluginName string, downsample int, filter *RunTagFilter) (map[string]map[string][]TensorDatum, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]map[string][]TensorDatum)
	for run, tags := range p.data[experimentID][pluginName] {
		if !filter.matchRun(run) {
			continue
		}
		for tag, points := range tags {
			if !filter.matchTag(tag) {
				continue
			}
			series := make([]TensorDatum, len(points))
			copy(series, points)
			sort.SliceStable(series, func(i, j int) bool { return series[i].Step < series[j].Step })
			if out[run] == nil {
				out[run] = make(map[string][]TensorDatum)
			}
			out[run][tag] = Downsample(series, downsample)
		}
	}
	return out, nil
}
