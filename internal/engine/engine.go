// ABOUTME: Paced transfer engine moving frames from a source to a sink
// ABOUTME: A decode goroutine fills a byte FIFO that a rate-synchronized loop drains
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/smallnest/ringbuffer"
	"golang.org/x/sync/errgroup"

	"github.com/tactus-audio/tactus-go/internal/source"
	"github.com/tactus-audio/tactus-go/pkg/audio"
	"github.com/tactus-audio/tactus-go/pkg/ratesync"
)

const (
	// DefaultPeriod is the batch duration moved per paced iteration.
	DefaultPeriod = 20 * time.Millisecond

	// DefaultBuffer is the FIFO depth between decode and playback.
	DefaultBuffer = 500 * time.Millisecond
)

// Options tune an Engine. Zero values pick defaults.
type Options struct {
	// Period is the duration of one transfer batch.
	Period time.Duration

	// Buffer is the FIFO depth. Clamped to at least two periods.
	Buffer time.Duration

	// Sync tunes the rate synchronizer pacing the transfer loop.
	Sync ratesync.Options
}

// Stats is a snapshot of engine progress.
type Stats struct {
	// Frames moved to the sink, silence padding included.
	Frames uint64

	// Periods completed by the paced loop.
	Periods uint64

	// Underruns counts periods the FIFO could not fill.
	Underruns uint64

	// Busy and Idle are the last paced iteration's measurements.
	Busy time.Duration
	Idle time.Duration

	// Mode is the synchronizer regime after the last period.
	Mode ratesync.Mode

	// Transitions counts entries into the synced regime.
	Transitions uint64
}

// Engine moves frames source -> FIFO -> sink, pacing the sink side at
// the stream's nominal rate.
type Engine struct {
	src    source.Source
	sink   Sink
	format audio.Format
	opts   Options

	periodFrames int
	periodBytes  int
	frameBytes   int

	fifo   *ringbuffer.RingBuffer
	fifoMu sync.Mutex
	eof    atomic.Bool

	paused atomic.Bool

	statsMu sync.Mutex
	stats   Stats

	cancel    context.CancelFunc
	group     *errgroup.Group
	closeOnce sync.Once
	closeErr  error
	started   bool
}

// New creates an engine for the source's format.
func New(src source.Source, sink Sink, opts Options) (*Engine, error) {
	if src == nil {
		return nil, fmt.Errorf("nil source")
	}
	if sink == nil {
		return nil, fmt.Errorf("nil sink")
	}

	format := src.Format()
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("invalid source format: %w", err)
	}

	if opts.Period <= 0 {
		opts.Period = DefaultPeriod
	}
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultBuffer
	}
	if opts.Buffer < 2*opts.Period {
		opts.Buffer = 2 * opts.Period
	}

	periodFrames := format.FramesIn(opts.Period)
	if periodFrames == 0 {
		return nil, fmt.Errorf("period %v shorter than one frame at %d Hz", opts.Period, format.SampleRate)
	}
	frameBytes := format.FrameBytes()

	return &Engine{
		src:          src,
		sink:         sink,
		format:       format,
		opts:         opts,
		periodFrames: periodFrames,
		periodBytes:  periodFrames * frameBytes,
		frameBytes:   frameBytes,
		fifo:         ringbuffer.New(format.FramesIn(opts.Buffer) * frameBytes),
	}, nil
}

// Format returns the stream format the engine moves.
func (e *Engine) Format() audio.Format { return e.format }

// Start opens the sink and launches the decode and pacing goroutines.
func (e *Engine) Start(ctx context.Context) error {
	if e.started {
		return fmt.Errorf("engine already started")
	}

	if err := e.sink.Open(e.format); err != nil {
		return fmt.Errorf("failed to open sink: %w", err)
	}

	ctx, e.cancel = context.WithCancel(ctx)
	e.group, ctx = errgroup.WithContext(ctx)
	e.started = true

	log.Infof("Engine started: %s, period %d frames", e.format, e.periodFrames)

	e.group.Go(func() error { return e.produce(ctx) })
	e.group.Go(func() error { return e.pace(ctx) })
	return nil
}

// produce decodes the source into the FIFO until EOF or cancellation.
func (e *Engine) produce(ctx context.Context) error {
	samples := make([]int32, e.periodFrames*e.format.Channels)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		n, err := e.src.Read(samples)
		if n > 0 {
			data, encErr := audio.EncodePCM(samples[:n], e.format)
			if encErr != nil {
				return fmt.Errorf("failed to encode period: %w", encErr)
			}
			if wErr := e.fifoWrite(ctx, data); wErr != nil {
				return wErr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				e.eof.Store(true)
				log.Debug("Source reached end of stream")
				return nil
			}
			return fmt.Errorf("source read failed: %w", err)
		}
	}
}

// fifoWrite pushes data into the FIFO, waiting for room when full.
func (e *Engine) fifoWrite(ctx context.Context, data []byte) error {
	for len(data) > 0 {
		e.fifoMu.Lock()
		n, err := e.fifo.Write(data)
		e.fifoMu.Unlock()

		if err != nil && !errors.Is(err, ringbuffer.ErrIsFull) && !errors.Is(err, ringbuffer.ErrTooMuchDataToWrite) {
			return fmt.Errorf("fifo write failed: %w", err)
		}
		data = data[n:]

		if len(data) > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.opts.Period / 4):
			}
		}
	}
	return nil
}

// pace drains the FIFO to the sink one period at a time, sleeping off
// schedule slack through the synchronizer.
func (e *Engine) pace(ctx context.Context) error {
	rs, err := ratesync.NewWithOptions(e.format.SampleRate, e.opts.Sync)
	if err != nil {
		return fmt.Errorf("failed to create synchronizer: %w", err)
	}

	if err := e.prefill(ctx); err != nil {
		return err
	}

	buf := make([]byte, e.periodBytes)
	wasPaused := false
	prevMode := rs.Mode()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if e.paused.Load() {
			wasPaused = true
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.opts.Period):
			}
			continue
		}
		if wasPaused {
			wasPaused = false
			rs.Reset(e.format.SampleRate)
			prevMode = rs.Mode()
			log.Debug("Engine resumed, synchronizer reset")
		}

		n := e.fifoRead(buf)
		if n == 0 && e.eof.Load() {
			// A remnant smaller than one frame is unplayable; done.
			if e.fifoLength() < e.frameBytes {
				log.Infof("Engine drained after %d periods", e.snapshotPeriods())
				return nil
			}
			continue
		}

		underrun := false
		writeLen := n
		if n < e.periodBytes && !e.eof.Load() {
			// Pad with silence so pacing never spins.
			for i := n; i < e.periodBytes; i++ {
				buf[i] = 0
			}
			writeLen = e.periodBytes
			underrun = true
			log.Debugf("Engine underrun: %d of %d bytes ready", n, e.periodBytes)
		}

		if _, err := e.sink.Write(buf[:writeLen]); err != nil {
			return fmt.Errorf("sink write failed: %w", err)
		}

		frames := uint64(writeLen / e.frameBytes)
		res, err := rs.Sync(frames)
		if err != nil {
			return fmt.Errorf("pacing failed: %w", err)
		}

		e.statsMu.Lock()
		e.stats.Frames += frames
		e.stats.Periods++
		if underrun {
			e.stats.Underruns++
		}
		e.stats.Busy = res.Busy
		e.stats.Idle = res.Idle
		e.stats.Mode = rs.Mode()
		if prevMode == ratesync.ModeStarting && rs.Mode() == ratesync.ModeSynced {
			e.stats.Transitions++
		}
		prevMode = rs.Mode()
		e.statsMu.Unlock()
	}
}

// prefill waits until the FIFO holds one period before pacing begins.
func (e *Engine) prefill(ctx context.Context) error {
	for {
		if e.fifoLength() >= e.periodBytes || e.eof.Load() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

// fifoRead pulls up to one period of whole frames from the FIFO.
func (e *Engine) fifoRead(buf []byte) int {
	e.fifoMu.Lock()
	defer e.fifoMu.Unlock()

	avail := e.fifo.Length()
	toRead := avail
	if toRead > e.periodBytes {
		toRead = e.periodBytes
	}
	toRead -= toRead % e.frameBytes
	if toRead == 0 {
		return 0
	}

	n, err := e.fifo.Read(buf[:toRead])
	if err != nil {
		return 0
	}
	return n
}

func (e *Engine) fifoLength() int {
	e.fifoMu.Lock()
	defer e.fifoMu.Unlock()
	return e.fifo.Length()
}

func (e *Engine) snapshotPeriods() uint64 {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	return e.stats.Periods
}

// Pause suspends the paced loop. Decoding continues until the FIFO
// fills.
func (e *Engine) Pause() {
	e.paused.Store(true)
	log.Debug("Engine paused")
}

// Resume restarts the paced loop. The synchronizer is reset and pacing
// re-enters its startup regime.
func (e *Engine) Resume() {
	e.paused.Store(false)
}

// Drain blocks until the source is exhausted and the FIFO has been
// written out, then returns the run's error, if any.
func (e *Engine) Drain() error {
	if !e.started {
		return fmt.Errorf("engine not started")
	}
	err := e.group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Stop cancels the transfer and releases the source and sink.
func (e *Engine) Stop() error {
	if !e.started {
		return fmt.Errorf("engine not started")
	}

	e.closeOnce.Do(func() {
		e.cancel()
		err := e.group.Wait()
		if err != nil && !errors.Is(err, context.Canceled) {
			e.closeErr = err
		}
		if err := e.sink.Close(); err != nil && e.closeErr == nil {
			e.closeErr = fmt.Errorf("failed to close sink: %w", err)
		}
		if err := e.src.Close(); err != nil && e.closeErr == nil {
			e.closeErr = fmt.Errorf("failed to close source: %w", err)
		}
		log.Info("Engine stopped")
	})
	return e.closeErr
}

// Stats returns a snapshot of engine progress.
func (e *Engine) Stats() Stats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	return e.stats
}
