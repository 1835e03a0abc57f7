// ABOUTME: Streaming protocol message type definitions
// ABOUTME: JSON control messages exchanged over the subscriber WebSocket
package protocol

// Message is the top-level wrapper for all control messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ClientHello is sent by subscribers to initiate the handshake
type ClientHello struct {
	ClientID         string        `json:"client_id"`
	Name             string        `json:"name"`
	Version          int           `json:"version"`
	Device           *DeviceInfo   `json:"device_info,omitempty"`
	SupportedFormats []AudioFormat `json:"supported_formats,omitempty"`
	BufferCapacity   int           `json:"buffer_capacity,omitempty"`
}

// DeviceInfo contains device identification
type DeviceInfo struct {
	ProductName     string `json:"product_name"`
	Manufacturer    string `json:"manufacturer"`
	SoftwareVersion string `json:"software_version"`
}

// AudioFormat describes a supported audio format
type AudioFormat struct {
	Codec      string `json:"codec"`
	Channels   int    `json:"channels"`
	SampleRate int    `json:"sample_rate"`
	BitDepth   int    `json:"bit_depth"`
}

// ServerHello is the server's response to client/hello
type ServerHello struct {
	ServerID string `json:"server_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
}

// StreamStart notifies the subscriber of its negotiated stream
type StreamStart struct {
	StreamID   string `json:"stream_id"`
	Codec      string `json:"codec"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	BitDepth   int    `json:"bit_depth"`
}

// StreamMetadata carries track information for the active stream
type StreamMetadata struct {
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
	Album  string `json:"album,omitempty"`
}

// StreamEnd tells the subscriber no further chunks will follow
type StreamEnd struct {
	StreamID string `json:"stream_id"`
}

// SubscriberState reports a subscriber's playback state (client/state)
type SubscriberState struct {
	State  string `json:"state"`  // "playing" or "idle"
	Volume int    `json:"volume"` // 0-100
	Muted  bool   `json:"muted"`
}

// ServerError reports a protocol-level failure to the subscriber
type ServerError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ClientTime is sent for clock synchronization
type ClientTime struct {
	ClientTransmitted int64 `json:"client_transmitted"` // Client timestamp in microseconds
}

// ServerTime is the response to client/time
type ServerTime struct {
	ClientTransmitted int64 `json:"client_transmitted"` // Echoed client timestamp
	ServerReceived    int64 `json:"server_received"`    // Server receive timestamp
	ServerTransmitted int64 `json:"server_transmitted"` // Server send timestamp
}
