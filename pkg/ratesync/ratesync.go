// ABOUTME: Rate synchronizer keeping audio transfer loops at a nominal frame rate
// ABOUTME: Sleeps off per-period surplus with damped startup and long-run pacing
package ratesync

import (
	"fmt"
	"time"
)

const (
	// DefaultStartThreshold is the cumulative frame count at which a
	// synchronizer leaves the startup regime and anchors pacing to a
	// fixed baseline.
	DefaultStartThreshold = 200000

	// DefaultStartupDamping is the fraction of the computed surplus
	// actually slept during startup. Full-length startup sleeps starve
	// downstream buffers before they have filled.
	DefaultStartupDamping = 0.5
)

// Mode identifies the pacing regime a synchronizer is in.
type Mode int

const (
	// ModeStarting paces each call against the previous call only and
	// damps sleeps. Active from construction or Reset until the start
	// threshold is crossed.
	ModeStarting Mode = iota

	// ModeSynced paces the cumulative frame count against a fixed
	// baseline so per-period rounding cannot accumulate.
	ModeSynced
)

func (m Mode) String() string {
	switch m {
	case ModeStarting:
		return "starting"
	case ModeSynced:
		return "synced"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Status reports whether a Sync call had to sleep.
type Status int

const (
	// StatusNotRequired means the loop was at or behind pace and Sync
	// returned without sleeping.
	StatusNotRequired Status = iota

	// StatusSynchronized means Sync slept to hold the loop at rate.
	StatusSynchronized
)

func (s Status) String() string {
	switch s {
	case StatusNotRequired:
		return "not required"
	case StatusSynchronized:
		return "synchronized"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result reports what one Sync call measured and did.
type Result struct {
	// Status says whether a pacing sleep happened.
	Status Status

	// Busy is the time spent outside Sync since the previous call
	// returned.
	Busy time.Duration

	// Idle is the time slept when Status is StatusSynchronized, or the
	// overdue amount when the loop was behind pace.
	Idle time.Duration
}

// OperationError wraps a clock read or sleep failure.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return "ratesync: " + e.Op + ": " + e.Err.Error()
}

func (e *OperationError) Unwrap() error { return e.Err }

// Options tunes a Synchronizer. The zero value selects the defaults.
type Options struct {
	// StartThreshold overrides DefaultStartThreshold when non-zero.
	StartThreshold uint64

	// StartupDamping overrides DefaultStartupDamping when non-zero.
	// Must be in (0, 1].
	StartupDamping float64

	// Clock overrides the monotonic system clock.
	Clock Clock
}

// Synchronizer keeps one audio transfer loop running at a nominal frame
// rate by sleeping off whatever time a cycle finished early. It is not
// safe for concurrent use; each stream owns its own instance.
type Synchronizer struct {
	clock     Clock
	threshold uint64
	damping   float64

	rate   int
	frames uint64
	mode   Mode
	start  TimePoint // pacing baseline once synced
	last   TimePoint // end of the previous Sync call

	busy time.Duration
	idle time.Duration
}

// New returns a synchronizer for the given frame rate using the system
// clock and default tuning.
func New(rate int) (*Synchronizer, error) {
	return NewWithOptions(rate, Options{})
}

// NewWithOptions returns a synchronizer with explicit tuning.
func NewWithOptions(rate int, opts Options) (*Synchronizer, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("invalid frame rate %d", rate)
	}
	if opts.StartupDamping < 0 || opts.StartupDamping > 1 {
		return nil, fmt.Errorf("startup damping %v out of range (0, 1]", opts.StartupDamping)
	}

	s := &Synchronizer{
		clock:     opts.Clock,
		threshold: opts.StartThreshold,
		damping:   opts.StartupDamping,
	}
	if s.clock == nil {
		s.clock = NewSystemClock()
	}
	if s.threshold == 0 {
		s.threshold = DefaultStartThreshold
	}
	if s.damping == 0 {
		s.damping = DefaultStartupDamping
	}

	s.Reset(rate)
	return s, nil
}

// Reset reinitializes the synchronizer for a new pacing run, clearing
// the frame counter, regime, and time anchors. Call it whenever the
// stream stops and restarts. A non-positive rate keeps the previous
// rate, so a running loop can never divide by zero.
func (s *Synchronizer) Reset(rate int) {
	if rate > 0 {
		s.rate = rate
	}

	now, err := s.clock.Now()
	if err != nil {
		// Keep the previous anchor; the next Sync surfaces the failure.
		now = s.last
	}

	s.frames = 0
	s.mode = ModeStarting
	s.start = now
	s.last = now
	s.busy = 0
	s.idle = 0
}

// Sync accounts for frames delivered since the previous call and sleeps
// off any surplus so the loop tracks the nominal rate.
//
// Errors come only from the clock, wrapped in *OperationError, and leave
// the synchronizer consistent: frames passed to a failed call are
// already accounted, so retry with zero.
func (s *Synchronizer) Sync(frames uint64) (Result, error) {
	s.frames += frames

	if s.mode == ModeStarting && s.frames >= s.threshold {
		// Anchor long-run pacing at the previous call boundary and
		// count frames from this delivery onward.
		s.mode = ModeSynced
		s.frames = frames
		s.start = s.last
	}

	// Starting mode paces this delivery against the previous call;
	// synced mode paces the cumulative count against the baseline.
	paceFrames, paceFrom := frames, s.last
	if s.mode == ModeSynced {
		paceFrames, paceFrom = s.frames, s.start
	}

	expected := frameSpan(paceFrames, s.rate)

	now, err := s.clock.Now()
	if err != nil {
		return Result{}, &OperationError{Op: "read clock", Err: err}
	}

	s.busy = sub(now, s.last).duration()
	running := sub(now, paceFrom)

	res := Result{Status: StatusNotRequired, Busy: s.busy}
	ord, diff := Compare(running, expected)
	if ord > 0 {
		idle := diff
		if s.mode == ModeStarting {
			idle = time.Duration(float64(idle) * s.damping)
		}
		if err := s.clock.Sleep(idle); err != nil {
			return Result{}, &OperationError{Op: "sleep", Err: err}
		}
		res.Status = StatusSynchronized
		res.Idle = idle
	} else {
		// Behind pace; report how far.
		res.Idle = diff
	}
	s.idle = res.Idle

	// Record the call end after any sleep so the next busy measurement
	// covers only time spent outside Sync.
	end, err := s.clock.Now()
	if err != nil {
		return Result{}, &OperationError{Op: "read clock", Err: err}
	}
	s.last = end

	return res, nil
}

// Rate returns the nominal frame rate.
func (s *Synchronizer) Rate() int { return s.rate }

// Mode returns the current pacing regime.
func (s *Synchronizer) Mode() Mode { return s.mode }

// Synced reports whether long-run pacing is active.
func (s *Synchronizer) Synced() bool { return s.mode == ModeSynced }

// FrameCount returns the frames accumulated in the current regime.
func (s *Synchronizer) FrameCount() uint64 { return s.frames }

// LastBusy returns the busy time measured by the most recent Sync.
func (s *Synchronizer) LastBusy() time.Duration { return s.busy }

// LastIdle returns the idle time from the most recent Sync.
func (s *Synchronizer) LastIdle() time.Duration { return s.idle }
