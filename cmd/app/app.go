package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/openviz/renderboard/pkg/config"
	"github.com/openviz/renderboard/pkg/engine"
	"github.com/openviz/renderboard/pkg/host"
	"github.com/openviz/renderboard/pkg/logger"
	"github.com/openviz/renderboard/pkg/plugin"
	"github.com/openviz/renderboard/pkg/provider"
)

var (
	configFile = flag.String("c", "", "path to yaml config file")
	addr       = flag.String("p", "", "port with preceding ':' character, overrides config")
	logdir     = flag.String("logdir", "", "experiment log directory, overrides config")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()

	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			logger.Init("info", os.Stderr)
			log.Fatal().Err(err).Msg("failed to load config")
		}
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *logdir != "" {
		cfg.Logdir = *logdir
	}
	logger.Init(cfg.Log.Level, os.Stderr)

	dataProvider, err := buildProvider(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build data provider")
	}

	eng := engine.Default()
	eng.Configure(engine.Options{
		ICEServers: cfg.Engine.ICEServers,
		VideoFile:  cfg.Engine.VideoFile,
		CaptureDir: cfg.Engine.CaptureDir,
	})

	p := plugin.New(host.Context{
		DataProvider:  dataProvider,
		Logdir:        cfg.Logdir,
		SamplingHints: cfg.SamplingHints,
	}, plugin.WithResourceDir(cfg.Resources))

	mux := http.NewServeMux()
	host.MountPlugin(mux, plugin.Name, p)
	// Standalone publish endpoint; the plugin bootstrap disables it
	// shortly after startup, this mostly serves manual engine testing.
	mux.HandleFunc("/ws", eng.HandshakeHandler())

	log.Info().Str("addr", cfg.Addr).Str("prefix", host.PluginPrefix(plugin.Name)).
		Msg("renderboard host started")
	log.Fatal().Err(http.ListenAndServe(cfg.Addr, mux)).Msg("server stopped")
}

// buildProvider picks the redis backend when configured, otherwise an
// in-memory provider seeded with a demo series.
func buildProvider(cfg config.Config) (provider.DataProvider, error) {
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return provider.NewRedisFromURL(ctx, cfg.RedisURL)
	}

	mem := provider.NewMemory()
	start := float64(time.Now().Unix())
	for i := 0; i < 20; i++ {
		mem.AddScalar("default", plugin.Name, "train", "loss", provider.TensorDatum{
			WallTime: start + float64(i),
			Step:     int64(i * 10),
			Value:    1.0 / float64(i+1),
		})
	}
	return mem, nil
}
