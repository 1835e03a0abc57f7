// ABOUTME: Sink interface consumed by the paced engine
// ABOUTME: Implemented by speakers, pipes, writers, and the stream server
package engine

import "github.com/tactus-audio/tactus-go/pkg/audio"

// Sink accepts paced PCM from an Engine. Write receives whole frames
// encoded at the format passed to Open.
type Sink interface {
	// Open prepares the sink for a stream at the given format.
	Open(f audio.Format) error

	// Write consumes one period of encoded frames.
	Write(frames []byte) (int, error)

	// Close releases the sink.
	Close() error
}
