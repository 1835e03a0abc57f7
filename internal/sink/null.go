// ABOUTME: Null sink discarding frames while counting them
// ABOUTME: Lets the pacer run full speed against no device
package sink

import (
	"sync/atomic"

	"github.com/tactus-audio/tactus-go/pkg/audio"
)

// Null accepts and discards all frames. Useful for benchmarking the
// pacing loop without an output device.
type Null struct {
	bytes  atomic.Uint64
	writes atomic.Uint64
}

// NewNull creates a discarding sink.
func NewNull() *Null {
	return &Null{}
}

// Open validates the format and does nothing else.
func (n *Null) Open(f audio.Format) error {
	return f.Validate()
}

// Write discards frames.
func (n *Null) Write(frames []byte) (int, error) {
	n.bytes.Add(uint64(len(frames)))
	n.writes.Add(1)
	return len(frames), nil
}

// Close does nothing.
func (n *Null) Close() error {
	return nil
}

// Bytes returns the total bytes discarded.
func (n *Null) Bytes() uint64 {
	return n.bytes.Load()
}

// Writes returns the number of Write calls.
func (n *Null) Writes() uint64 {
	return n.writes.Load()
}
