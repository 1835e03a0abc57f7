// ABOUTME: Broadcast sink fanning paced periods out to subscribers
// ABOUTME: Encodes per negotiated codec and frames timestamped chunks
package server

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tactus-audio/tactus-go/internal/protocol"
	"github.com/tactus-audio/tactus-go/pkg/audio"
	"github.com/tactus-audio/tactus-go/pkg/audio/encode"
)

// broadcaster receives each paced period from the engine and delivers
// it to every subscriber, PCM passthrough or re-encoded per codec.
type broadcaster struct {
	s *Server

	mu      sync.RWMutex
	format  audio.Format
	opened  bool
	endOnce sync.Once
}

func newBroadcaster(s *Server) *broadcaster {
	return &broadcaster{s: s}
}

// Open records the stream format the engine will deliver.
func (b *broadcaster) Open(f audio.Format) error {
	if err := f.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	b.format = f
	b.opened = true
	b.mu.Unlock()

	log.Infof("Broadcast stream open: %s", f)
	return nil
}

// Format returns the open stream format.
func (b *broadcaster) Format() audio.Format {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.format
}

// Write delivers one period to all subscribers. A full subscriber
// queue drops the chunk for that subscriber only; pacing never stalls
// on a slow peer.
func (b *broadcaster) Write(frames []byte) (int, error) {
	b.mu.RLock()
	opened, format := b.opened, b.format
	b.mu.RUnlock()

	if !opened {
		return 0, fmt.Errorf("broadcast not open")
	}

	s := b.s
	timestamp := s.getClockMicros() + s.config.BufferAhead.Microseconds()
	start := time.Now()

	// The PCM chunk is shared across subscribers; samples are decoded
	// once and only when a compressed codec needs them.
	var pcmChunk []byte
	var samples []int32

	s.subscribersMu.RLock()
	defer s.subscribersMu.RUnlock()

	for _, sub := range s.subscribers {
		sub.mu.RLock()
		codec := sub.Codec
		enc := sub.Encoder
		sub.mu.RUnlock()

		var chunk []byte
		switch codec {
		case encode.CodecPCM:
			if pcmChunk == nil {
				pcmChunk = protocol.EncodeChunk(timestamp, frames)
			}
			chunk = pcmChunk
		case encode.CodecOpus:
			if enc == nil {
				continue
			}
			if samples == nil {
				decoded, err := audio.DecodePCM(frames, format)
				if err != nil {
					return 0, fmt.Errorf("failed to decode period: %w", err)
				}
				samples = decoded
			}
			payload, err := enc.Encode(samples)
			if err != nil {
				log.Errorf("Opus encode failed for %s: %v", sub.Name, err)
				continue
			}
			chunk = protocol.EncodeChunk(timestamp, payload)
		default:
			// Negotiation has not finished; no chunks yet.
			continue
		}

		if err := s.sendBinary(sub, chunk); err != nil {
			if s.metrics != nil {
				s.metrics.Stream.IncrementSendErrors()
			}
			log.Debugf("Dropping chunk for %s: %v", sub.Name, err)
			continue
		}
		if s.metrics != nil {
			s.metrics.Stream.IncrementChunksSent(len(chunk))
		}
	}

	if s.metrics != nil {
		s.metrics.Stream.ObserveEncodeLatency(time.Since(start).Seconds())
	}
	return len(frames), nil
}

// Close announces the end of the stream to all subscribers.
func (b *broadcaster) Close() error {
	b.endStream()
	return nil
}

// endStream sends stream/end once, whether the source drained or the
// server shut down.
func (b *broadcaster) endStream() {
	b.endOnce.Do(func() {
		s := b.s
		s.subscribersMu.RLock()
		defer s.subscribersMu.RUnlock()

		for _, sub := range s.subscribers {
			if err := s.sendMessage(sub, "stream/end", protocol.StreamEnd{StreamID: s.streamID}); err != nil {
				log.Debugf("Could not send stream/end to %s: %v", sub.Name, err)
			}
		}
	})
}
