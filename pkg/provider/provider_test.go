package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded() *MemoryProvider {
	p := NewMemory()
	// Inserted out of step order on purpose.
	p.AddScalar("e1", "renderboard", "train", "loss", TensorDatum{WallTime: 1, Step: 10, Value: 0.5})
	p.AddScalar("e1", "renderboard", "train", "loss", TensorDatum{WallTime: 0, Step: 0, Value: 1.0})
	p.AddScalar("e1", "renderboard", "train", "acc", TensorDatum{WallTime: 0, Step: 0, Value: 0.1})
	p.AddScalar("e1", "renderboard", "eval", "loss", TensorDatum{WallTime: 2, Step: 5, Value: 0.7})
	p.AddScalar("e1", "other", "train", "loss", TensorDatum{WallTime: 3, Step: 1, Value: 9.0})
	return p
}

func TestMemoryListPlugins(t *testing.T) {
	p := seeded()
	plugins, err := p.ListPlugins(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, []string{"other", "renderboard"}, plugins)
}

func TestMemoryListTensors(t *testing.T) {
	p := seeded()
	mapping, err := p.ListTensors(context.Background(), "e1", "renderboard", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"train": {"acc", "loss"},
		"eval":  {"loss"},
	}, mapping)
}

func TestMemoryListTensorsFiltered(t *testing.T) {
	p := seeded()
	mapping, err := p.ListTensors(context.Background(), "e1", "renderboard", &RunTagFilter{
		Runs: []string{"train"},
		Tags: []string{"loss"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"train": {"loss"}}, mapping)
}

func TestMemoryReadTensorsOrdersBySteps(t *testing.T) {
	p := seeded()
	all, err := p.ReadTensors(context.Background(), "e1", "renderboard", 100, &RunTagFilter{
		Runs: []string{"train"},
		Tags: []string{"loss"},
	})
	require.NoError(t, err)
	series := all["train"]["loss"]
	require.Len(t, series, 2)
	assert.Equal(t, TensorDatum{WallTime: 0, Step: 0, Value: 1.0}, series[0])
	assert.Equal(t, TensorDatum{WallTime: 1, Step: 10, Value: 0.5}, series[1])
}

func TestMemoryReadTensorsMissingRun(t *testing.T) {
	p := seeded()
	all, err := p.ReadTensors(context.Background(), "e1", "renderboard", 100, &RunTagFilter{
		Runs: []string{"nope"},
		Tags: []string{"loss"},
	})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMemoryReadTensorsAppliesDownsample(t *testing.T) {
	p := NewMemory()
	for i := 0; i < 500; i++ {
		p.AddScalar("e1", "renderboard", "train", "loss", TensorDatum{
			WallTime: float64(i), Step: int64(i), Value: float64(i),
		})
	}
	all, err := p.ReadTensors(context.Background(), "e1", "renderboard", 100, nil)
	require.NoError(t, err)
	series := all["train"]["loss"]
	assert.Len(t, series, 100)
	assert.Equal(t, int64(499), series[len(series)-1].Step)
}

func TestDownsample(t *testing.T) {
	data := make([]TensorDatum, 10)
	for i := range data {
		data[i] = TensorDatum{Step: int64(i)}
	}

	t.Run("under cap returns all", func(t *testing.T) {
		assert.Len(t, Downsample(data, 10), 10)
		assert.Len(t, Downsample(data, 100), 10)
	})

	t.Run("no cap", func(t *testing.T) {
		assert.Len(t, Downsample(data, 0), 10)
	})

	t.Run("cap of one keeps last", func(t *testing.T) {
		out := Downsample(data, 1)
		require.Len(t, out, 1)
		assert.Equal(t, int64(9), out[0].Step)
	})

	t.Run("keeps order and final point", func(t *testing.T) {
		out := Downsample(data, 4)
		require.Len(t, out, 4)
		for i := 1; i < len(out); i++ {
			assert.Less(t, out[i-1].Step, out[i].Step)
		}
		assert.Equal(t, int64(0), out[0].Step)
		assert.Equal(t, int64(9), out[len(out)-1].Step)
	})
}
