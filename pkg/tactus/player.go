// ABOUTME: High-level Player API for paced local playback
// ABOUTME: Wires a source through the rate-synchronized engine to an output
package tactus

import (
	"time"

	"github.com/tactus-audio/tactus-go/internal/app"
	"github.com/tactus-audio/tactus-go/internal/dsp"
	"github.com/tactus-audio/tactus-go/pkg/ratesync"
)

// DSPOptions configure an external DSP processor fed over stdin.
type DSPOptions = dsp.Options

// PlayerConfig holds player configuration.
type PlayerConfig struct {
	// Source is a file path or http(s) URL. Empty plays a test tone
	// unless CustomSource is set.
	Source string

	// CustomSource streams a caller-provided Source instead of Source.
	CustomSource Source

	// SampleRate resamples the source when non-zero and different from
	// the source rate.
	SampleRate int

	// Output selects the sink: "speaker" (default), "null", or a file
	// path for raw PCM capture.
	Output string

	// Volume is the initial speaker volume (0-100), 100 when zero.
	Volume int

	// Period is the duration of one paced transfer batch.
	Period time.Duration

	// Sync tunes the rate synchronizer pacing the transfer loop.
	Sync ratesync.Options

	// DSP routes audio through an external processor instead of the
	// built-in outputs.
	DSP *DSPOptions
}

// Player plays one paced local audio session.
type Player struct {
	app *app.Player
}

// NewPlayer creates a player with its source and output resolved.
func NewPlayer(config PlayerConfig) (*Player, error) {
	p, err := app.New(app.Config{
		SourcePath: config.Source,
		Source:     config.CustomSource,
		SampleRate: config.SampleRate,
		Output:     config.Output,
		Volume:     config.Volume,
		Period:     config.Period,
		Sync:       config.Sync,
		DSP:        config.DSP,
	})
	if err != nil {
		return nil, err
	}
	return &Player{app: p}, nil
}

// Play runs paced playback until the source drains or Stop is called.
func (p *Player) Play() error {
	return p.app.Run()
}

// Stop ends playback and releases the source and output. Safe to call
// more than once.
func (p *Player) Stop() {
	p.app.Stop()
}

// Format returns the playing stream format.
func (p *Player) Format() Format {
	return p.app.Format()
}

// Stats returns a snapshot of playback progress.
func (p *Player) Stats() Stats {
	return p.app.Stats()
}
