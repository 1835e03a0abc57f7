// ABOUTME: WebSocket streaming server for tactus audio
// ABOUTME: Manages subscriber connections, time sync, and the paced broadcast
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/tactus-audio/tactus-go/internal/discovery"
	"github.com/tactus-audio/tactus-go/internal/engine"
	"github.com/tactus-audio/tactus-go/internal/metrics"
	"github.com/tactus-audio/tactus-go/internal/protocol"
	"github.com/tactus-audio/tactus-go/internal/sink"
	"github.com/tactus-audio/tactus-go/internal/source"
	"github.com/tactus-audio/tactus-go/pkg/audio/encode"
	"github.com/tactus-audio/tactus-go/pkg/ratesync"
)

const (
	// ProtocolVersion is the control protocol version we speak.
	ProtocolVersion = 1

	// DefaultPort is the WebSocket listen port.
	DefaultPort = 9730

	// DefaultName identifies the server in handshakes and mDNS.
	DefaultName = "Tactus Server"

	// WebSocketPath is the upgrade endpoint.
	WebSocketPath = "/tactus"

	// DefaultBufferAhead is how far ahead of the server clock chunk
	// timestamps point.
	DefaultBufferAhead = 500 * time.Millisecond

	// sendQueueSize is the per-subscriber outgoing message queue.
	sendQueueSize = 100
)

// Config holds server configuration.
type Config struct {
	Port int
	Name string

	// Source supplies the audio to stream (required).
	Source source.Source

	// Period and Buffer tune the pacing engine.
	Period time.Duration
	Buffer time.Duration

	// BufferAhead offsets chunk playback timestamps.
	BufferAhead time.Duration

	// Sync tunes the rate synchronizer pacing the broadcast.
	Sync ratesync.Options

	// Monitor, when set, receives the paced stream alongside the
	// subscribers. Used to feed a local DSP chain on the server host.
	Monitor engine.Sink

	EnableMDNS    bool
	EnableMetrics bool
}

// subscriber is a connected client receiving the stream.
type subscriber struct {
	ID      string
	Name    string
	Conn    *websocket.Conn
	Formats []protocol.AudioFormat

	// State reported via client/state
	State  string
	Volume int
	Muted  bool

	// Negotiated codec; Encoder is nil for PCM passthrough
	Codec   string
	Encoder encode.Encoder

	sendChan chan interface{}

	mu sync.RWMutex
}

// SubscriberInfo is a snapshot of a connected subscriber.
type SubscriberInfo struct {
	ID     string
	Name   string
	State  string
	Volume int
	Muted  bool
	Codec  string
}

// Server streams a paced audio source to WebSocket subscribers.
type Server struct {
	config   Config
	serverID string
	streamID string

	upgrader   websocket.Upgrader
	httpServer *http.Server
	mux        *http.ServeMux

	subscribers   map[string]*subscriber
	subscribersMu sync.RWMutex

	// Server clock (monotonic microseconds)
	clockStart time.Time

	engine    *engine.Engine
	broadcast *broadcaster

	metrics     *metrics.Metrics
	mdnsManager *discovery.Manager

	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// New creates a server around the configured source.
func New(config Config) (*Server, error) {
	if config.Port == 0 {
		config.Port = DefaultPort
	}
	if config.Name == "" {
		config.Name = DefaultName
	}
	if config.Source == nil {
		return nil, fmt.Errorf("audio source is required")
	}
	if config.BufferAhead <= 0 {
		config.BufferAhead = DefaultBufferAhead
	}

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		streamID: uuid.New().String(),
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Local network deployment; accept all origins.
				return true
			},
		},
		subscribers: make(map[string]*subscriber),
		clockStart:  time.Now(),
		stopChan:    make(chan struct{}),
	}
	s.broadcast = newBroadcaster(s)

	var out engine.Sink = s.broadcast
	if config.Monitor != nil {
		out = sink.NewTee(s.broadcast, config.Monitor)
	}

	eng, err := engine.New(config.Source, out, engine.Options{
		Period: config.Period,
		Buffer: config.Buffer,
		Sync:   config.Sync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	s.engine = eng

	if config.EnableMetrics {
		m, err := metrics.NewMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics: %w", err)
		}
		if err := m.ObserveEngine(s.engineSnapshot); err != nil {
			return nil, fmt.Errorf("failed to observe engine: %w", err)
		}
		s.metrics = m
	}

	return s, nil
}

// engineSnapshot maps engine stats onto the metrics snapshot.
func (s *Server) engineSnapshot() metrics.EngineSnapshot {
	st := s.engine.Stats()
	return metrics.EngineSnapshot{
		Frames:      st.Frames,
		Periods:     st.Periods,
		Underruns:   st.Underruns,
		Transitions: st.Transitions,
		Busy:        st.Busy,
		Idle:        st.Idle,
		Synced:      st.Mode == ratesync.ModeSynced,
	}
}

// Start runs the server until Stop is called or the listener fails.
func (s *Server) Start() error {
	log.Infof("Server starting: %s (ID: %s)", s.config.Name, s.serverID)
	log.Infof("Streaming %s", s.engine.Format())

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			log.Warnf("Failed to start mDNS advertisement: %v", err)
		}
	}

	s.mux.HandleFunc(WebSocketPath, s.handleWebSocket)
	if s.metrics != nil {
		s.metrics.RegisterHandlers(s.mux)
	}

	if err := s.engine.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}

	// Announce stream/end to subscribers once the source drains.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.engine.Drain(); err != nil {
			log.Errorf("Streaming engine failed: %v", err)
		}
		s.broadcast.endStream()
	}()

	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Infof("WebSocket server listening on %s%s", addr, WebSocketPath)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case <-s.stopChan:
		log.Info("Server shutting down")
	case err := <-errChan:
		log.Errorf("HTTP server error: %v", err)
		serverErr = err
	}

	// Reject new connections while tearing down.
	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	if err := s.engine.Stop(); err != nil {
		log.Errorf("Engine stop error: %v", err)
	}

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	// Upgraded connections are hijacked from the HTTP server; close
	// them directly so reader goroutines unblock.
	s.closeSubscriberConns()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Errorf("HTTP server shutdown error: %v", err)
	}

	s.wg.Wait()
	log.Info("Server stopped cleanly")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Stop stops the server.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// Pause suspends the broadcast. Subscribers stay connected.
func (s *Server) Pause() {
	s.engine.Pause()
	log.Info("Broadcast paused")
}

// Resume restarts the broadcast with a fresh pacing regime.
func (s *Server) Resume() {
	s.engine.Resume()
	log.Info("Broadcast resumed")
}

// Stats returns the pacing engine's counters.
func (s *Server) Stats() engine.Stats {
	return s.engine.Stats()
}

// Subscribers returns information about all connected subscribers.
func (s *Server) Subscribers() []SubscriberInfo {
	s.subscribersMu.RLock()
	defer s.subscribersMu.RUnlock()

	infos := make([]SubscriberInfo, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		sub.mu.RLock()
		infos = append(infos, SubscriberInfo{
			ID:     sub.ID,
			Name:   sub.Name,
			State:  sub.State,
			Volume: sub.Volume,
			Muted:  sub.Muted,
			Codec:  sub.Codec,
		})
		sub.mu.RUnlock()
	}
	return infos
}

// handleWebSocket upgrades and hands off the connection.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("WebSocket upgrade error: %v", err)
		return
	}

	log.Infof("New WebSocket connection from %s", r.RemoteAddr)
	s.handleConnection(conn)
}

// handleConnection manages one subscriber connection.
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	s.shutdownMu.RLock()
	if s.isShutdown {
		s.shutdownMu.RUnlock()
		log.Debug("Rejecting connection during shutdown")
		return
	}
	s.shutdownMu.RUnlock()

	// First message must be client/hello.
	_, data, err := conn.ReadMessage()
	if err != nil {
		log.Errorf("Error reading hello: %v", err)
		return
	}

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Errorf("Error unmarshaling message: %v", err)
		return
	}

	if msg.Type != "client/hello" {
		log.Errorf("Expected client/hello, got %s", msg.Type)
		return
	}

	helloData, err := json.Marshal(msg.Payload)
	if err != nil {
		log.Errorf("Error marshaling hello payload: %v", err)
		return
	}

	var hello protocol.ClientHello
	if err := json.Unmarshal(helloData, &hello); err != nil {
		log.Errorf("Error unmarshaling client hello: %v", err)
		return
	}

	if hello.ClientID == "" || hello.Name == "" {
		log.Error("Client hello missing required fields")
		return
	}

	log.Infof("Client hello: %s (ID: %s)", hello.Name, hello.ClientID)

	sub := &subscriber{
		ID:       hello.ClientID,
		Name:     hello.Name,
		Conn:     conn,
		Formats:  hello.SupportedFormats,
		State:    "idle",
		Volume:   100,
		sendChan: make(chan interface{}, sendQueueSize),
	}

	// Register atomically, rejecting duplicate IDs.
	s.subscribersMu.Lock()
	if existing, exists := s.subscribers[hello.ClientID]; exists {
		s.subscribersMu.Unlock()
		log.Warnf("Client ID %s already connected (name: %s), rejecting duplicate", hello.ClientID, existing.Name)

		errorMsg := protocol.Message{
			Type: "server/error",
			Payload: protocol.ServerError{
				Error:   "duplicate_client_id",
				Message: "Client ID already connected",
			},
		}
		if data, err := json.Marshal(errorMsg); err == nil {
			conn.WriteMessage(websocket.TextMessage, data)
		}
		return
	}
	s.subscribers[sub.ID] = sub
	if s.metrics != nil {
		s.metrics.Stream.SetSubscribers(len(s.subscribers))
	}
	s.subscribersMu.Unlock()

	defer s.removeSubscriber(sub)

	serverHello := protocol.ServerHello{
		ServerID: s.serverID,
		Name:     s.config.Name,
		Version:  ProtocolVersion,
	}

	if err := s.sendMessage(sub, "server/hello", serverHello); err != nil {
		log.Errorf("Error sending server hello: %v", err)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.subscriberWriter(sub)
	}()

	s.addSubscriberToStream(sub)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Errorf("WebSocket error: %v", err)
			}
			break
		}

		s.handleSubscriberMessage(sub, data)
	}
}

// addSubscriberToStream negotiates a codec and announces the stream.
// Control messages are queued before the codec flips so the subscriber
// always sees stream/start before its first chunk.
func (s *Server) addSubscriberToStream(sub *subscriber) {
	codec := s.negotiateCodec(sub)
	format := s.engine.Format()

	var enc encode.Encoder
	if codec == encode.CodecOpus {
		e, err := encode.New(encode.CodecOpus, format)
		if err != nil {
			log.Warnf("Failed to create Opus encoder for %s, falling back to PCM: %v", sub.Name, err)
			codec = encode.CodecPCM
		} else {
			enc = e
		}
	}

	streamStart := protocol.StreamStart{
		StreamID:   s.streamID,
		Codec:      codec,
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
		BitDepth:   format.BitDepth,
	}
	if err := s.sendMessage(sub, "stream/start", streamStart); err != nil {
		log.Errorf("Error sending stream/start to %s: %v", sub.Name, err)
	}

	meta := s.config.Source.Metadata()
	streamMeta := protocol.StreamMetadata{
		Title:  meta.Title,
		Artist: meta.Artist,
		Album:  meta.Album,
	}
	if err := s.sendMessage(sub, "stream/metadata", streamMeta); err != nil {
		log.Errorf("Error sending stream/metadata to %s: %v", sub.Name, err)
	}

	sub.mu.Lock()
	sub.Codec = codec
	sub.Encoder = enc
	sub.mu.Unlock()

	log.Infof("Subscriber %s joined with codec %s", sub.Name, codec)
}

// negotiateCodec selects a codec from the subscriber's advertised
// formats. PCM at the stream's native format wins; Opus is offered for
// 48 kHz streams; PCM is the fallback.
func (s *Server) negotiateCodec(sub *subscriber) string {
	if len(sub.Formats) == 0 {
		return encode.CodecPCM
	}

	format := s.engine.Format()

	for _, f := range sub.Formats {
		if f.Codec == encode.CodecPCM && f.SampleRate == format.SampleRate && f.BitDepth == format.BitDepth {
			return encode.CodecPCM
		}
	}

	for _, f := range sub.Formats {
		if f.Codec == encode.CodecOpus && format.SampleRate == 48000 {
			return encode.CodecOpus
		}
	}

	return encode.CodecPCM
}

// removeSubscriber unregisters and releases a subscriber.
func (s *Server) removeSubscriber(sub *subscriber) {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()

	sub.mu.Lock()
	if sub.Encoder != nil {
		sub.Encoder.Close()
		sub.Encoder = nil
	}
	sub.mu.Unlock()

	delete(s.subscribers, sub.ID)
	if s.metrics != nil {
		s.metrics.Stream.SetSubscribers(len(s.subscribers))
	}
	close(sub.sendChan)

	log.Infof("Subscriber disconnected: %s", sub.Name)
}

// subscriberWriter drains the send queue onto the wire and keeps the
// connection alive with pings.
func (s *Server) subscriberWriter(sub *subscriber) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	const writeDeadline = 10 * time.Second

	for {
		select {
		case msg, ok := <-sub.sendChan:
			if !ok {
				return
			}

			switch v := msg.(type) {
			case []byte:
				sub.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := sub.Conn.WriteMessage(websocket.BinaryMessage, v); err != nil {
					return
				}
			default:
				data, err := json.Marshal(v)
				if err != nil {
					log.Errorf("Error marshaling message: %v", err)
					continue
				}
				sub.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := sub.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
			}

		case <-ticker.C:
			if err := sub.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}
}

// handleSubscriberMessage processes control messages from subscribers.
func (s *Server) handleSubscriberMessage(sub *subscriber, data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Errorf("Error unmarshaling message: %v", err)
		return
	}

	switch msg.Type {
	case "client/time":
		s.handleTimeSync(sub, msg.Payload)
	case "client/state":
		s.handleSubscriberState(sub, msg.Payload)
	default:
		log.Debugf("Unknown message type: %s", msg.Type)
	}
}

// handleTimeSync responds to time synchronization requests.
func (s *Server) handleTimeSync(sub *subscriber, payload interface{}) {
	// Capture receive time as early as possible.
	serverRecv := s.getClockMicros()

	timeData, err := json.Marshal(payload)
	if err != nil {
		return
	}

	var clientTime protocol.ClientTime
	if err := json.Unmarshal(timeData, &clientTime); err != nil {
		return
	}

	serverSend := s.getClockMicros()

	response := protocol.ServerTime{
		ClientTransmitted: clientTime.ClientTransmitted,
		ServerReceived:    serverRecv,
		ServerTransmitted: serverSend,
	}

	if err := s.sendMessage(sub, "server/time", response); err != nil {
		log.Errorf("Error sending server time: %v", err)
	}
}

// handleSubscriberState records state updates from subscribers.
func (s *Server) handleSubscriberState(sub *subscriber, payload interface{}) {
	stateData, err := json.Marshal(payload)
	if err != nil {
		return
	}

	var state protocol.SubscriberState
	if err := json.Unmarshal(stateData, &state); err != nil {
		return
	}

	sub.mu.Lock()
	sub.State = state.State
	sub.Volume = state.Volume
	sub.Muted = state.Muted
	sub.mu.Unlock()

	log.Debugf("Subscriber %s state: %s (vol: %d, muted: %v)", sub.Name, state.State, state.Volume, state.Muted)
}

// sendMessage queues a JSON message without blocking.
func (s *Server) sendMessage(sub *subscriber, msgType string, payload interface{}) error {
	msg := protocol.Message{
		Type:    msgType,
		Payload: payload,
	}

	select {
	case sub.sendChan <- msg:
		return nil
	default:
		return fmt.Errorf("subscriber send buffer full")
	}
}

// sendBinary queues binary data without blocking.
func (s *Server) sendBinary(sub *subscriber, data []byte) error {
	select {
	case sub.sendChan <- data:
		return nil
	default:
		return fmt.Errorf("subscriber send buffer full")
	}
}

// closeSubscriberConns force-closes connections during shutdown.
func (s *Server) closeSubscriberConns() {
	s.subscribersMu.RLock()
	defer s.subscribersMu.RUnlock()

	for _, sub := range s.subscribers {
		sub.Conn.Close()
	}
}

// getClockMicros returns the server clock in microseconds.
func (s *Server) getClockMicros() int64 {
	return time.Since(s.clockStart).Microseconds()
}
