// ABOUTME: Binary audio chunk framing
// ABOUTME: Chunks are [type:1][timestamp_us:8][payload] with big-endian timestamps
package protocol

import (
	"encoding/binary"
	"fmt"
)

const (
	// ChunkTypeAudio marks a timestamped audio payload.
	ChunkTypeAudio = 1

	// ChunkHeaderSize is the fixed prefix before the payload.
	ChunkHeaderSize = 9
)

// EncodeChunk frames an audio payload with its playback timestamp in
// microseconds of server clock.
func EncodeChunk(timestamp int64, payload []byte) []byte {
	chunk := make([]byte, ChunkHeaderSize+len(payload))
	chunk[0] = ChunkTypeAudio
	binary.BigEndian.PutUint64(chunk[1:9], uint64(timestamp))
	copy(chunk[9:], payload)
	return chunk
}

// DecodeChunk splits a binary message into type, timestamp, and payload.
// The payload aliases the input; callers that keep it must copy.
func DecodeChunk(data []byte) (chunkType byte, timestamp int64, payload []byte, err error) {
	if len(data) < ChunkHeaderSize {
		return 0, 0, nil, fmt.Errorf("chunk too short: %d bytes", len(data))
	}
	chunkType = data[0]
	timestamp = int64(binary.BigEndian.Uint64(data[1:9]))
	payload = data[9:]
	return chunkType, timestamp, payload, nil
}
