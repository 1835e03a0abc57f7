// ABOUTME: Sink adapter writing raw frames to an io.Writer
// ABOUTME: Used for piping paced PCM to files and processes
package sink

import (
	"fmt"
	"io"
	"sync"

	"github.com/tactus-audio/tactus-go/pkg/audio"
)

// Writer forwards frames to an io.Writer as raw interleaved PCM.
// Close does not close the underlying writer; its lifetime belongs to
// the caller.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	format audio.Format
	opened bool
}

// NewWriter wraps w as a sink.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Open records the stream format.
func (s *Writer) Open(f audio.Format) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.w == nil {
		return fmt.Errorf("writer sink has no destination")
	}
	if err := f.Validate(); err != nil {
		return err
	}
	s.format = f
	s.opened = true
	return nil
}

// Write forwards frames to the underlying writer.
func (s *Writer) Write(frames []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return 0, fmt.Errorf("writer sink not open")
	}
	return s.w.Write(frames)
}

// Close marks the sink closed. The underlying writer stays open.
func (s *Writer) Close() error {
	s.mu.Lock()
	s.opened = false
	s.mu.Unlock()
	return nil
}

// Format returns the format set by Open.
func (s *Writer) Format() audio.Format {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.format
}
