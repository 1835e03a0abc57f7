// ABOUTME: Opus chunk encoder for bandwidth-efficient streaming
// ABOUTME: Wraps libopus with music-tuned settings
package encode

import (
	"fmt"

	"github.com/tactus-audio/tactus-go/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// maxOpusPacket is the largest packet libopus will produce.
const maxOpusPacket = 4000

// OpusEncoder encodes periods of PCM into Opus packets.
type OpusEncoder struct {
	encoder  *opus.Encoder
	channels int
	scratch  []byte
}

// NewOpus creates an Opus encoder. The sample rate must be one Opus
// supports; 48000 is the usual choice for music.
func NewOpus(f audio.Format) (Encoder, error) {
	switch f.SampleRate {
	case 8000, 12000, 16000, 24000, 48000:
	default:
		return nil, fmt.Errorf("opus does not support %d Hz", f.SampleRate)
	}

	encoder, err := opus.NewEncoder(f.SampleRate, f.Channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}

	// 128 kbps for stereo, 64 kbps for mono.
	if err := encoder.SetBitrate(64000 * f.Channels); err != nil {
		return nil, fmt.Errorf("failed to set opus bitrate: %w", err)
	}

	return &OpusEncoder{
		encoder:  encoder,
		channels: f.Channels,
		scratch:  make([]byte, maxOpusPacket),
	}, nil
}

// Encode converts one period of int32 samples to an Opus packet. The
// period must be an Opus frame length (2.5 to 60 ms of audio).
func (e *OpusEncoder) Encode(samples []int32) ([]byte, error) {
	pcm := make([]int16, len(samples))
	for i, s := range samples {
		pcm[i] = audio.SampleToInt16(s)
	}

	n, err := e.encoder.Encode(pcm, e.scratch)
	if err != nil {
		return nil, fmt.Errorf("opus encode failed: %w", err)
	}

	// Copy out: the scratch buffer is reused on the next call.
	out := make([]byte, n)
	copy(out, e.scratch[:n])
	return out, nil
}

// Close releases resources. libopus encoders free with the Go object.
func (e *OpusEncoder) Close() error {
	return nil
}
