// Package config loads the demo host's YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/openviz/renderboard/pkg/models"
)

// Config is the demo host configuration file.
type Config struct {
	// Addr is the listen address, with preceding ':' character.
	Addr string `yaml:"addr"`
	// Logdir is the experiment log directory handed to plugins.
	Logdir string `yaml:"logdir"`
	// Resources is the frontend resource tree served by /index.js.
	Resources string `yaml:"resources"`
	// RedisURL selects the redis data provider when set; empty keeps
	// the in-memory provider.
	RedisURL string `yaml:"redis_url"`
	// SamplingHints caps the points returned per series, keyed by
	// plugin name.
	SamplingHints map[string]interface{} `yaml:"sampling_hints"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Engine struct {
		// VideoFile is the VP8 IVF clip looped as the render output.
		VideoFile string `yaml:"video_file"`
		// CaptureDir enables recording of streams published through
		// the engine's websocket handshake mode.
		CaptureDir string             `yaml:"capture_dir"`
		ICEServers []models.IceServer `yaml:"ice_servers"`
	} `yaml:"engine"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var cfg Config
	cfg.Addr = ":6006"
	cfg.Resources = "resources"
	cfg.Log.Level = "info"
	cfg.Engine.ICEServers = []models.IceServer{
		{URLs: []string{"stun:stun.l.google.com:19302"}},
	}
	return cfg
}

// Load reads and parses a config file on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("error parsing config file: %w", err)
	}
	return cfg, nil
}
