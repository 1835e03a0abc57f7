// ABOUTME: Silence source
// ABOUTME: Zero-fill generator for underrun padding and tests
package source

import "github.com/tactus-audio/tactus-go/pkg/audio"

// Silence produces zero samples forever.
type Silence struct {
	format audio.Format
}

// NewSilence creates a silence source at the given format.
func NewSilence(f audio.Format) *Silence {
	return &Silence{format: f}
}

func (s *Silence) Read(samples []int32) (int, error) {
	for i := range samples {
		samples[i] = 0
	}
	return len(samples), nil
}

func (s *Silence) Format() audio.Format { return s.format }
func (s *Silence) Metadata() Metadata   { return Metadata{Title: "Silence"} }
func (s *Silence) Close() error         { return nil }
