// ABOUTME: Entry point for the tactus streaming server
// ABOUTME: Loads configuration and serves paced audio to WebSocket subscribers
package main

import (
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/tactus-audio/tactus-go/internal/config"
	"github.com/tactus-audio/tactus-go/internal/dsp"
	"github.com/tactus-audio/tactus-go/internal/server"
	"github.com/tactus-audio/tactus-go/internal/source"
	"github.com/tactus-audio/tactus-go/pkg/ratesync"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := config.InitLog(cfg.Log); err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	src, err := openSource(cfg)
	if err != nil {
		log.Fatalf("Failed to open source: %v", err)
	}

	serverConfig := server.Config{
		Port:        cfg.Server.Port,
		Name:        cfg.Server.Name,
		Source:      src,
		Period:      cfg.Engine.Period,
		Buffer:      cfg.Engine.Buffer,
		BufferAhead: cfg.Server.BufferAhead,
		Sync: ratesync.Options{
			StartThreshold: cfg.Sync.StartThreshold,
			StartupDamping: cfg.Sync.StartupDamping,
		},
		EnableMDNS:    cfg.Server.MDNS,
		EnableMetrics: cfg.Server.Metrics,
	}

	if opts := cfg.DSPOptions(); opts != nil {
		proc, err := dsp.New(*opts)
		if err != nil {
			log.Fatalf("Failed to configure DSP monitor: %v", err)
		}
		serverConfig.Monitor = proc
		log.Infof("Feeding local DSP monitor: %s", opts.Path)
	}

	srv, err := server.New(serverConfig)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Infof("Received %v signal, shutting down", sig)
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Info("Server stopped")
}

// openSource resolves the configured stream source
func openSource(cfg *config.Config) (source.Source, error) {
	if cfg.Source.Path == "" {
		return source.NewToneFreq(cfg.Format(), cfg.Source.ToneFreq), nil
	}

	src, err := source.Open(cfg.Source.Path)
	if err != nil {
		return nil, err
	}

	if src.Format().SampleRate != cfg.Audio.SampleRate {
		src = source.NewResampled(src, cfg.Audio.SampleRate)
	}

	return src, nil
}
