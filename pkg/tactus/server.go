// ABOUTME: High-level Server API for paced WebSocket streaming
// ABOUTME: Thin wrapper over the internal streaming server
package tactus

import (
	"time"

	"github.com/tactus-audio/tactus-go/internal/server"
	"github.com/tactus-audio/tactus-go/pkg/ratesync"
)

// ServerConfig holds streaming server configuration.
type ServerConfig struct {
	// Port is the WebSocket listen port (default 9730).
	Port int

	// Name identifies the server in handshakes and mDNS.
	Name string

	// Source supplies the audio to stream (required).
	Source Source

	// Period is the duration of one paced broadcast batch.
	Period time.Duration

	// Sync tunes the rate synchronizer pacing the broadcast.
	Sync ratesync.Options

	// EnableMDNS announces the server on the local network.
	EnableMDNS bool

	// EnableMetrics serves Prometheus metrics on /metrics.
	EnableMetrics bool
}

// SubscriberInfo is a snapshot of a connected subscriber.
type SubscriberInfo = server.SubscriberInfo

// Server streams a paced audio source to WebSocket subscribers.
type Server struct {
	srv *server.Server
}

// NewServer creates a streaming server around the configured source.
func NewServer(config ServerConfig) (*Server, error) {
	srv, err := server.New(server.Config{
		Port:          config.Port,
		Name:          config.Name,
		Source:        config.Source,
		Period:        config.Period,
		Sync:          config.Sync,
		EnableMDNS:    config.EnableMDNS,
		EnableMetrics: config.EnableMetrics,
	})
	if err != nil {
		return nil, err
	}
	return &Server{srv: srv}, nil
}

// Start runs the server until Stop is called or the listener fails.
func (s *Server) Start() error {
	return s.srv.Start()
}

// Stop shuts the server down.
func (s *Server) Stop() {
	s.srv.Stop()
}

// Pause suspends the broadcast. Subscribers stay connected.
func (s *Server) Pause() {
	s.srv.Pause()
}

// Resume restarts the broadcast with a fresh pacing regime.
func (s *Server) Resume() {
	s.srv.Resume()
}

// Subscribers returns information about all connected subscribers.
func (s *Server) Subscribers() []SubscriberInfo {
	return s.srv.Subscribers()
}

// Stats returns the pacing engine's counters.
func (s *Server) Stats() Stats {
	return s.srv.Stats()
}
