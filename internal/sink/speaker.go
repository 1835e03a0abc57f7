// ABOUTME: Speaker sink playing paced PCM through oto
// ABOUTME: Streams through a pipe into one persistent 16-bit player
package sink

import (
	"fmt"
	"io"
	"sync"

	"github.com/ebitengine/oto/v3"
	log "github.com/sirupsen/logrus"

	"github.com/tactus-audio/tactus-go/pkg/audio"
)

// Speaker plays frames on the default audio device. oto allows one
// context per process, so a Speaker survives format changes by keeping
// its first device configuration.
type Speaker struct {
	mu         sync.Mutex
	otoCtx     *oto.Context
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	format     audio.Format
	volume     int
	muted      bool
	ready      bool
}

// NewSpeaker creates a speaker sink at full volume.
func NewSpeaker() *Speaker {
	return &Speaker{volume: 100}
}

// Open initializes the audio device for the stream format.
func (s *Speaker) Open(f audio.Format) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := f.Validate(); err != nil {
		return err
	}

	if s.otoCtx != nil {
		if s.format.SampleRate == f.SampleRate && s.format.Channels == f.Channels {
			s.format = f
			return nil
		}
		// A second oto context is not possible; keep the device as-is.
		log.Warnf("Speaker cannot change device format %s -> %s, continuing", s.format, f)
		s.format = f
		return nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   f.SampleRate,
		ChannelCount: f.Channels,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create audio context: %w", err)
	}
	<-readyChan

	s.otoCtx = ctx
	s.format = f
	s.pipeReader, s.pipeWriter = io.Pipe()
	s.player = ctx.NewPlayer(s.pipeReader)
	s.player.Play()
	s.ready = true

	log.Infof("Speaker opened: %s", f)
	return nil
}

// Write queues one period of frames for playback. Blocks while the
// device drains, which is what keeps a non-paced caller honest.
func (s *Speaker) Write(frames []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return 0, fmt.Errorf("speaker not open")
	}

	samples, err := audio.DecodePCM(frames, s.format)
	if err != nil {
		return 0, err
	}
	samples = applyVolume(samples, s.volume, s.muted)

	// The device runs 16-bit regardless of the stream depth.
	out, err := audio.EncodePCM(samples, audio.Format{
		SampleRate: s.format.SampleRate,
		Channels:   s.format.Channels,
		BitDepth:   16,
	})
	if err != nil {
		return 0, err
	}

	if _, err := s.pipeWriter.Write(out); err != nil {
		return 0, fmt.Errorf("device write failed: %w", err)
	}
	return len(frames), nil
}

// Close stops playback and releases the device.
func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pipeWriter != nil {
		s.pipeWriter.Close()
		s.pipeWriter = nil
	}
	if s.player != nil {
		s.player.Close()
		s.player = nil
	}
	if s.pipeReader != nil {
		s.pipeReader.Close()
		s.pipeReader = nil
	}
	if s.otoCtx != nil {
		s.otoCtx.Suspend()
		s.ready = false
	}
	return nil
}

// SetVolume sets playback volume (0-100).
func (s *Speaker) SetVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	s.mu.Lock()
	s.volume = volume
	s.mu.Unlock()
}

// SetMuted sets the mute state.
func (s *Speaker) SetMuted(muted bool) {
	s.mu.Lock()
	s.muted = muted
	s.mu.Unlock()
}

// Volume returns the playback volume.
func (s *Speaker) Volume() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// Muted returns the mute state.
func (s *Speaker) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

// applyVolume scales samples, clamping to the 24-bit range.
func applyVolume(samples []int32, volume int, muted bool) []int32 {
	multiplier := volumeMultiplier(volume, muted)
	if multiplier == 1.0 {
		return samples
	}

	result := make([]int32, len(samples))
	for i, sample := range samples {
		scaled := int64(float64(sample) * multiplier)
		if scaled > audio.Max24Bit {
			scaled = audio.Max24Bit
		} else if scaled < audio.Min24Bit {
			scaled = audio.Min24Bit
		}
		result[i] = int32(scaled)
	}
	return result
}

func volumeMultiplier(volume int, muted bool) float64 {
	if muted {
		return 0.0
	}
	return float64(volume) / 100.0
}
