// Package provider defines the pluggable time-series data provider the
// dashboard hands to its plugins, plus reference backends.
package provider

import (
	"context"
	"fmt"
)

// TensorDatum is one recorded point of a scalar time series.
type TensorDatum struct {
	WallTime float64 `json:"wall_time"`
	Step     int64   `json:"step"`
	Value    float64 `json:"value"`
}

// RunTagFilter restricts a provider read to the given runs and tags.
// A nil filter, or a nil slice inside it, means no restriction.
type RunTagFilter struct {
	Runs []string
	Tags []string
}

func (f *RunTagFilter) matchRun(run string) bool {
	if f == nil || f.Runs == nil {
		return true
	}
	for _, r := range f.Runs {
		if r == run {
			return true
		}
	}
	return false
}

func (f *RunTagFilter) matchTag(tag string) bool {
	if f == nil || f.Tags == nil {
		return true
	}
	for _, t := range f.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ExperimentMetadata is the provider's description of an experiment.
type ExperimentMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Created     int64  `json:"created"`
}

// DataProvider is the host dashboard's read abstraction over stored
// experiment data. All reads are scoped by experiment id and by the
// name of the plugin that wrote the data.
type DataProvider interface {
	// ListPlugins returns the plugin names that have data for the
	// experiment.
	ListPlugins(ctx context.Context, experimentID string) ([]string, error)

	// ExperimentMetadata describes the experiment.
	ExperimentMetadata(ctx context.Context, experimentID string) (ExperimentMetadata, error)

	// ListTensors returns which runs and tags exist, optionally
	// filtered.
	ListTensors(ctx context.Context, experimentID, pluginName string, filter *RunTagFilter) (map[string][]string, error)

	// ReadTensors returns series data ordered by step ascending,
	// downsampled to at most downsample points per series.
	ReadTensors(ctx context.Context, experimentID, pluginName string, downsample int, filter *RunTagFilter) (map[string]map[string][]TensorDatum, error)
}

// NotFoundError reports that a requested run/tag pair holds no data.
type NotFoundError struct {
	Run string
	Tag string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no tensor data for run=%q, tag=%q", e.Run, e.Tag)
}
