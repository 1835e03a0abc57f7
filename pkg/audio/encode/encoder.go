// ABOUTME: Encoder interface and codec dispatch
// ABOUTME: Common interface for chunk encoders used by the streaming server
package encode

import (
	"fmt"

	"github.com/tactus-audio/tactus-go/pkg/audio"
)

// Wire codec names used in subscriber negotiation.
const (
	CodecPCM  = "pcm"
	CodecOpus = "opus"
)

// Encoder encodes int32 PCM samples into wire chunks.
type Encoder interface {
	// Encode converts one period of samples to encoded audio data.
	Encode(samples []int32) ([]byte, error)

	// Close releases encoder resources.
	Close() error
}

// New returns an encoder for the named codec at the given stream format.
func New(codec string, f audio.Format) (Encoder, error) {
	switch codec {
	case CodecPCM:
		return NewPCM(f)
	case CodecOpus:
		return NewOpus(f)
	default:
		return nil, fmt.Errorf("unsupported codec %q", codec)
	}
}
