// ABOUTME: Tee sink fanning one paced stream into several outputs
// ABOUTME: Lets a server feed subscribers and a local monitor chain at once
package sink

import (
	"fmt"

	"github.com/tactus-audio/tactus-go/pkg/audio"
)

// Target is the sink behavior a Tee fans out to.
type Target interface {
	Open(f audio.Format) error
	Write(frames []byte) (int, error)
	Close() error
}

// Tee duplicates writes across targets. A write error on any target
// fails the whole write; the stream has no meaning with a dead leg.
type Tee struct {
	targets []Target
}

// NewTee creates a tee over the given targets
func NewTee(targets ...Target) *Tee {
	return &Tee{targets: targets}
}

// Open opens every target for the same format
func (t *Tee) Open(f audio.Format) error {
	for i, target := range t.targets {
		if err := target.Open(f); err != nil {
			return fmt.Errorf("opening sink %d: %w", i, err)
		}
	}
	return nil
}

// Write delivers the frames to every target
func (t *Tee) Write(frames []byte) (int, error) {
	for i, target := range t.targets {
		if _, err := target.Write(frames); err != nil {
			return 0, fmt.Errorf("writing sink %d: %w", i, err)
		}
	}
	return len(frames), nil
}

// Close closes every target, returning the first error
func (t *Tee) Close() error {
	var firstErr error
	for _, target := range t.targets {
		if err := target.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
