// ABOUTME: Sine tone generator source
// ABOUTME: A4 reference signal for wiring checks and benchmarks
package source

import (
	"math"
	"sync"

	"github.com/tactus-audio/tactus-go/pkg/audio"
)

// DefaultToneFrequency is the A4 reference pitch.
const DefaultToneFrequency = 440.0

// DefaultToneFormat is the format tone sources use unless told otherwise.
func DefaultToneFormat() audio.Format {
	return audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 16}
}

// Tone generates a sine wave at a fixed frequency.
type Tone struct {
	mu         sync.Mutex
	frameIndex uint64
	frequency  float64
	format     audio.Format
}

// NewTone creates a 440Hz tone source.
func NewTone(f audio.Format) *Tone {
	return NewToneFreq(f, DefaultToneFrequency)
}

// NewToneFreq creates a tone source at an explicit frequency.
func NewToneFreq(f audio.Format, freq float64) *Tone {
	return &Tone{frequency: freq, format: f}
}

func (s *Tone) Read(samples []int32) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frames := len(samples) / s.format.Channels
	for i := 0; i < frames; i++ {
		t := float64(s.frameIndex+uint64(i)) / float64(s.format.SampleRate)
		v := math.Sin(2 * math.Pi * s.frequency * t)

		// 50% volume in the 24-bit range.
		sample := int32(v * float64(audio.Max24Bit) * 0.5)
		for ch := 0; ch < s.format.Channels; ch++ {
			samples[i*s.format.Channels+ch] = sample
		}
	}
	s.frameIndex += uint64(frames)

	return frames * s.format.Channels, nil
}

func (s *Tone) Format() audio.Format { return s.format }
func (s *Tone) Metadata() Metadata {
	return Metadata{Title: "Test Tone", Artist: "Tactus", Album: "Signal Generators"}
}
func (s *Tone) Close() error { return nil }
