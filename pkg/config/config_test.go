package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":7007"
logdir: /tmp/runs
sampling_hints:
  renderboard: 42
log:
  level: debug
engine:
  video_file: /tmp/render.ivf
  ice_servers:
    - urls: ["stun:stun.example.org:3478"]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7007", cfg.Addr)
	assert.Equal(t, "/tmp/runs", cfg.Logdir)
	assert.Equal(t, 42, cfg.SamplingHints["renderboard"])
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/render.ivf", cfg.Engine.VideoFile)
	require.Len(t, cfg.Engine.ICEServers, 1)
	assert.Equal(t, []string{"stun:stun.example.org:3478"}, cfg.Engine.ICEServers[0].URLs)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":6006", cfg.Addr)
	assert.Equal(t, "resources", cfg.Resources)
	assert.NotEmpty(t, cfg.Engine.ICEServers)
}
