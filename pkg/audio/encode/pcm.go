// ABOUTME: PCM chunk encoder
// ABOUTME: Emits little-endian wire bytes at the stream's bit depth
package encode

import (
	"github.com/tactus-audio/tactus-go/pkg/audio"
)

// PCMEncoder packs samples straight to wire bytes.
type PCMEncoder struct {
	format audio.Format
}

// NewPCM creates a PCM encoder for the given format.
func NewPCM(f audio.Format) (Encoder, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &PCMEncoder{format: f}, nil
}

// Encode converts int32 samples to PCM bytes.
func (e *PCMEncoder) Encode(samples []int32) ([]byte, error) {
	return audio.EncodePCM(samples, e.format)
}

// Close releases resources.
func (e *PCMEncoder) Close() error {
	return nil
}
