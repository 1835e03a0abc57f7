// ABOUTME: Local player orchestration
// ABOUTME: Wires source, engine, sink, and the optional TUI together
package app

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"github.com/tactus-audio/tactus-go/internal/dsp"
	"github.com/tactus-audio/tactus-go/internal/engine"
	"github.com/tactus-audio/tactus-go/internal/sink"
	"github.com/tactus-audio/tactus-go/internal/source"
	"github.com/tactus-audio/tactus-go/internal/ui"
	"github.com/tactus-audio/tactus-go/pkg/audio"
	"github.com/tactus-audio/tactus-go/pkg/ratesync"
)

// Config holds player configuration
type Config struct {
	// SourcePath is a file path or URL. Empty plays the test tone.
	SourcePath string

	// Source overrides SourcePath with a prebuilt stream.
	Source source.Source

	// ToneFreq is the test tone frequency, 440 Hz when zero.
	ToneFreq float64

	// SampleRate resamples the source when non-zero and different
	// from the source rate.
	SampleRate int

	// Period and Buffer tune the transfer loop.
	Period time.Duration
	Buffer time.Duration

	// Sync tunes the rate synchronizer.
	Sync ratesync.Options

	// Output selects the sink: "speaker" (default), "null", or a file
	// path for raw PCM capture.
	Output string

	// DSP routes audio through an external processor instead of the
	// built-in outputs. The processor owns the audible output.
	DSP *dsp.Options

	// Volume is the initial speaker volume, 100 when zero.
	Volume int

	// TUI enables the interactive status screen.
	TUI bool
}

// Player runs one local playback session
type Player struct {
	config  Config
	source  source.Source
	engine  *engine.Engine
	speaker *sink.Speaker
	capture *os.File
	control *ui.Control
	prog    *tea.Program
	ctx     context.Context
	cancel  context.CancelFunc

	started  atomic.Bool
	stopOnce sync.Once
}

// New creates a player with its source and sink resolved but nothing
// started yet.
func New(config Config) (*Player, error) {
	ctx, cancel := context.WithCancel(context.Background())

	p := &Player{
		config: config,
		ctx:    ctx,
		cancel: cancel,
	}

	src, err := openSource(config)
	if err != nil {
		cancel()
		return nil, err
	}
	p.source = src

	out, err := p.openSink()
	if err != nil {
		src.Close()
		cancel()
		return nil, err
	}

	eng, err := engine.New(src, out, engine.Options{
		Period: config.Period,
		Buffer: config.Buffer,
		Sync:   config.Sync,
	})
	if err != nil {
		src.Close()
		cancel()
		return nil, err
	}
	p.engine = eng

	if config.TUI {
		p.control = ui.NewControl()
		p.prog = ui.NewProgram(ui.NewModel(p.control))
	}

	return p, nil
}

// Run plays until the source drains or the user quits.
func (p *Player) Run() error {
	if err := p.engine.Start(p.ctx); err != nil {
		return err
	}
	p.started.Store(true)

	if p.speaker != nil && p.config.Volume > 0 {
		p.speaker.SetVolume(p.config.Volume)
	}

	drained := make(chan error, 1)
	go func() { drained <- p.engine.Drain() }()

	if p.prog != nil {
		go p.controlLoop()
		go p.statusLoop()
		go func() {
			if _, err := p.prog.Run(); err != nil {
				log.Errorf("TUI error: %v", err)
			}
			p.cancel()
		}()
	}

	var err error
	select {
	case err = <-drained:
	case <-p.ctx.Done():
	}

	p.Stop()
	return err
}

// openSource resolves the configured source, resampling when asked.
func openSource(config Config) (source.Source, error) {
	var src source.Source

	if config.Source != nil {
		src = config.Source
	} else if config.SourcePath == "" {
		format := source.DefaultToneFormat()
		if config.SampleRate != 0 {
			format.SampleRate = config.SampleRate
		}
		freq := config.ToneFreq
		if freq == 0 {
			freq = 440
		}
		src = source.NewToneFreq(format, freq)
	} else {
		opened, err := source.Open(config.SourcePath)
		if err != nil {
			return nil, fmt.Errorf("opening source: %w", err)
		}
		src = opened
	}

	if config.SampleRate != 0 && src.Format().SampleRate != config.SampleRate {
		src = source.NewResampled(src, config.SampleRate)
	}

	return src, nil
}

// openSink resolves the configured output. The engine opens it when
// playback starts.
func (p *Player) openSink() (engine.Sink, error) {
	if p.config.DSP != nil {
		proc, err := dsp.New(*p.config.DSP)
		if err != nil {
			return nil, fmt.Errorf("configuring dsp: %w", err)
		}
		return proc, nil
	}

	switch p.config.Output {
	case "", "speaker":
		p.speaker = sink.NewSpeaker()
		return p.speaker, nil
	case "null":
		return sink.NewNull(), nil
	default:
		f, err := os.Create(p.config.Output)
		if err != nil {
			return nil, fmt.Errorf("creating output file: %w", err)
		}
		p.capture = f
		return sink.NewWriter(f), nil
	}
}

// controlLoop applies TUI key events to the speaker and engine
func (p *Player) controlLoop() {
	for {
		select {
		case volume := <-p.control.Volume:
			if p.speaker != nil {
				p.speaker.SetVolume(volume)
			}

		case muted := <-p.control.Muted:
			if p.speaker != nil {
				p.speaker.SetMuted(muted)
			}

		case paused := <-p.control.Paused:
			if paused {
				p.engine.Pause()
			} else {
				p.engine.Resume()
			}

		case <-p.control.Quit:
			p.cancel()
			return

		case <-p.ctx.Done():
			return
		}
	}
}

// statusLoop pushes stream state into the TUI
func (p *Player) statusLoop() {
	format := p.engine.Format()
	meta := p.source.Metadata()

	volume := p.config.Volume
	if volume == 0 {
		volume = 100
	}

	p.prog.Send(ui.StatusMsg{
		Source:     p.sourceName(),
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
		BitDepth:   format.BitDepth,
		Title:      meta.Title,
		Artist:     meta.Artist,
		Album:      meta.Album,
		Volume:     volume,
	})

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats := p.engine.Stats()
			p.prog.Send(ui.StatusMsg{
				Mode:      stats.Mode.String(),
				Busy:      stats.Busy,
				Idle:      stats.Idle,
				Periods:   stats.Periods,
				Frames:    stats.Frames,
				Underruns: stats.Underruns,
			})

		case <-p.ctx.Done():
			return
		}
	}
}

// sourceName picks the display name for the stream
func (p *Player) sourceName() string {
	if title := p.source.Metadata().Title; title != "" {
		return title
	}
	if p.config.SourcePath != "" {
		return p.config.SourcePath
	}
	return "test tone"
}

// Stats exposes engine progress for callers without a TUI
func (p *Player) Stats() engine.Stats {
	return p.engine.Stats()
}

// Format returns the playing stream format
func (p *Player) Format() audio.Format {
	return p.engine.Format()
}

// Stop tears the session down. Safe to call more than once.
func (p *Player) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()

		if p.started.Load() {
			if err := p.engine.Stop(); err != nil {
				log.Errorf("engine stop: %v", err)
			}
		} else if err := p.source.Close(); err != nil {
			log.Errorf("closing source: %v", err)
		}

		if p.capture != nil {
			if err := p.capture.Close(); err != nil {
				log.Errorf("closing capture file: %v", err)
			}
		}

		if p.prog != nil {
			p.prog.Quit()
		}
	})
}
