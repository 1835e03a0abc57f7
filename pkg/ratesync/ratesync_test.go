// ABOUTME: Tests for the rate synchronizer pacing algorithm
// ABOUTME: Uses a scripted clock to verify sleeps, damping, and regime changes
package ratesync

import (
	"errors"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock whose sleeps also advance it,
// so paced loops behave as they would against a real clock.
type fakeClock struct {
	now      TimePoint
	slept    []time.Duration
	nowErr   error
	sleepErr error
}

func (c *fakeClock) Now() (TimePoint, error) {
	if c.nowErr != nil {
		return TimePoint{}, c.nowErr
	}
	return c.now, nil
}

func (c *fakeClock) Sleep(d time.Duration) error {
	if c.sleepErr != nil {
		return c.sleepErr
	}
	c.slept = append(c.slept, d)
	c.now = add(c.now, fromDuration(d))
	return nil
}

func (c *fakeClock) advance(d time.Duration) {
	c.now = add(c.now, fromDuration(d))
}

func newTestSync(t *testing.T, rate int, opts Options) (*Synchronizer, *fakeClock) {
	t.Helper()

	clock := &fakeClock{}
	opts.Clock = clock
	s, err := NewWithOptions(rate, opts)
	if err != nil {
		t.Fatalf("NewWithOptions(%d): %v", rate, err)
	}
	return s, clock
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name      string
		rate      int
		opts      Options
		expectErr bool
	}{
		{"valid rate", 48000, Options{}, false},
		{"zero rate", 0, Options{}, true},
		{"negative rate", -44100, Options{}, true},
		{"damping too large", 48000, Options{StartupDamping: 1.5}, true},
		{"damping negative", 48000, Options{StartupDamping: -0.5}, true},
		{"damping full", 48000, Options{StartupDamping: 1.0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewWithOptions(tt.rate, tt.opts)
			if tt.expectErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.Rate() != tt.rate {
				t.Errorf("rate = %d, want %d", s.Rate(), tt.rate)
			}
			if s.Mode() != ModeStarting {
				t.Errorf("mode = %v, want starting", s.Mode())
			}
		})
	}
}

func TestDefaultsApplied(t *testing.T) {
	s, _ := newTestSync(t, 48000, Options{})

	if s.threshold != DefaultStartThreshold {
		t.Errorf("threshold = %d, want %d", s.threshold, DefaultStartThreshold)
	}
	if s.damping != DefaultStartupDamping {
		t.Errorf("damping = %v, want %v", s.damping, DefaultStartupDamping)
	}
}

func TestOnPaceNeverSleeps(t *testing.T) {
	// 10000 frames/s divides 1e9 evenly, so 1000 frames is exactly 100ms.
	s, clock := newTestSync(t, 10000, Options{})

	for i := 0; i < 10; i++ {
		clock.advance(100 * time.Millisecond)

		res, err := s.Sync(1000)
		if err != nil {
			t.Fatalf("Sync: %v", err)
		}
		if res.Status != StatusNotRequired {
			t.Errorf("call %d: status = %v, want not required", i, res.Status)
		}
		if res.Busy != 100*time.Millisecond {
			t.Errorf("call %d: busy = %v, want 100ms", i, res.Busy)
		}
	}

	if len(clock.slept) != 0 {
		t.Errorf("slept %d times, want 0", len(clock.slept))
	}
}

func TestFastLoopSleepsDamped(t *testing.T) {
	s, clock := newTestSync(t, 10000, Options{})

	// Instant delivery: the full 100ms period is surplus, damped to half
	// while starting.
	res, err := s.Sync(1000)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if res.Status != StatusSynchronized {
		t.Errorf("status = %v, want synchronized", res.Status)
	}
	if res.Idle != 50*time.Millisecond {
		t.Errorf("idle = %v, want 50ms", res.Idle)
	}
	if len(clock.slept) != 1 || clock.slept[0] != 50*time.Millisecond {
		t.Errorf("slept = %v, want [50ms]", clock.slept)
	}
}

func TestStartupSleepIsHalved(t *testing.T) {
	// Two seconds of audio delivered instantly on a fresh synchronizer
	// sleeps one second: the raw surplus halved.
	s, clock := newTestSync(t, 48000, Options{})

	res, err := s.Sync(96000)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if res.Status != StatusSynchronized {
		t.Errorf("status = %v, want synchronized", res.Status)
	}
	if res.Idle != time.Second {
		t.Errorf("idle = %v, want 1s", res.Idle)
	}
	if len(clock.slept) != 1 || clock.slept[0] != time.Second {
		t.Errorf("slept = %v, want [1s]", clock.slept)
	}
	if s.Synced() {
		t.Error("96000 frames should not cross the start threshold")
	}
}

func TestCustomDamping(t *testing.T) {
	s, clock := newTestSync(t, 48000, Options{StartupDamping: 0.25})

	if _, err := s.Sync(96000); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if len(clock.slept) != 1 || clock.slept[0] != 500*time.Millisecond {
		t.Errorf("slept = %v, want [500ms]", clock.slept)
	}
}

func TestModeTransitionOnce(t *testing.T) {
	s, _ := newTestSync(t, 10000, Options{StartThreshold: 5000})

	transitions := 0
	for i := 0; i < 10; i++ {
		wasSynced := s.Synced()
		anchor := s.last

		if _, err := s.Sync(1000); err != nil {
			t.Fatalf("Sync: %v", err)
		}

		if s.Synced() && !wasSynced {
			transitions++
			// The baseline anchors to the end of the previous call and
			// counting restarts from this delivery.
			if s.start != anchor {
				t.Errorf("baseline = %+v, want %+v", s.start, anchor)
			}
			if s.FrameCount() != 1000 {
				t.Errorf("frames after transition = %d, want 1000", s.FrameCount())
			}
			if i != 4 {
				t.Errorf("transition on call %d, want call 4", i)
			}
		}
	}

	if transitions != 1 {
		t.Errorf("transitions = %d, want 1", transitions)
	}
	if !s.Synced() {
		t.Error("synchronizer should stay synced")
	}
	if s.FrameCount() != 6000 {
		t.Errorf("frames = %d, want 6000", s.FrameCount())
	}
}

func TestSyncedSleepsConvergeToPeriod(t *testing.T) {
	s, clock := newTestSync(t, 10000, Options{StartThreshold: 5000})

	// Instant delivery throughout: starting calls sleep the damped half
	// period, synced calls sleep the full period.
	for i := 0; i < 20; i++ {
		if _, err := s.Sync(1000); err != nil {
			t.Fatalf("Sync: %v", err)
		}
	}

	if len(clock.slept) != 20 {
		t.Fatalf("slept %d times, want 20", len(clock.slept))
	}
	for i, d := range clock.slept {
		want := 100 * time.Millisecond
		if i < 4 {
			want = 50 * time.Millisecond
		}
		if d != want {
			t.Errorf("sleep %d = %v, want %v", i, d, want)
		}
	}
}

func TestTransitionWithinSingleCall(t *testing.T) {
	s, clock := newTestSync(t, 48000, Options{})

	res, err := s.Sync(250000)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if !s.Synced() {
		t.Error("250000 frames should cross the threshold within one call")
	}
	// Undamped: the transition happens before the sleep is computed.
	want := 5208330000 * time.Nanosecond
	if res.Idle != want {
		t.Errorf("idle = %v, want %v", res.Idle, want)
	}
	if len(clock.slept) != 1 || clock.slept[0] != want {
		t.Errorf("slept = %v, want [%v]", clock.slept, want)
	}
}

func TestBehindPaceReportsOverdue(t *testing.T) {
	s, clock := newTestSync(t, 10000, Options{})

	clock.advance(150 * time.Millisecond)

	res, err := s.Sync(1000)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if res.Status != StatusNotRequired {
		t.Errorf("status = %v, want not required", res.Status)
	}
	if res.Idle != 50*time.Millisecond {
		t.Errorf("overdue = %v, want 50ms", res.Idle)
	}
	if len(clock.slept) != 0 {
		t.Errorf("slept = %v, want none", clock.slept)
	}
}

func TestBusyExcludesSleep(t *testing.T) {
	s, clock := newTestSync(t, 10000, Options{})

	clock.advance(30 * time.Millisecond)
	res, err := s.Sync(1000)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Busy != 30*time.Millisecond {
		t.Errorf("busy = %v, want 30ms", res.Busy)
	}

	// The previous call slept 35ms; only the fresh 10ms is busy time.
	clock.advance(10 * time.Millisecond)
	res, err = s.Sync(1000)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Busy != 10*time.Millisecond {
		t.Errorf("busy = %v, want 10ms", res.Busy)
	}
}

func TestClockReadFailure(t *testing.T) {
	s, clock := newTestSync(t, 48000, Options{})

	cause := errors.New("clock gone")
	clock.nowErr = cause

	_, err := s.Sync(1000)
	if err == nil {
		t.Fatal("expected error")
	}

	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("error type = %T, want *OperationError", err)
	}
	if !errors.Is(err, cause) {
		t.Error("cause not wrapped")
	}

	// The failed call already accounted its frames; retry with zero.
	if s.FrameCount() != 1000 {
		t.Errorf("frames = %d, want 1000", s.FrameCount())
	}

	clock.nowErr = nil
	if _, err := s.Sync(0); err != nil {
		t.Errorf("retry failed: %v", err)
	}
}

func TestSleepFailure(t *testing.T) {
	s, clock := newTestSync(t, 48000, Options{})

	cause := errors.New("interrupted")
	clock.sleepErr = cause

	_, err := s.Sync(96000)
	if err == nil {
		t.Fatal("expected error")
	}

	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("error type = %T, want *OperationError", err)
	}
	if opErr.Op != "sleep" {
		t.Errorf("op = %q, want \"sleep\"", opErr.Op)
	}

	clock.sleepErr = nil
	if _, err := s.Sync(0); err != nil {
		t.Errorf("retry failed: %v", err)
	}
}

func TestResetClearsState(t *testing.T) {
	s, _ := newTestSync(t, 10000, Options{StartThreshold: 5000})

	for i := 0; i < 6; i++ {
		if _, err := s.Sync(1000); err != nil {
			t.Fatalf("Sync: %v", err)
		}
	}
	if !s.Synced() {
		t.Fatal("should be synced before reset")
	}

	s.Reset(22050)

	if s.Synced() {
		t.Error("reset should return to starting mode")
	}
	if s.Rate() != 22050 {
		t.Errorf("rate = %d, want 22050", s.Rate())
	}
	if s.FrameCount() != 0 {
		t.Errorf("frames = %d, want 0", s.FrameCount())
	}
	if s.LastBusy() != 0 || s.LastIdle() != 0 {
		t.Errorf("busy/idle = %v/%v, want 0/0", s.LastBusy(), s.LastIdle())
	}

	// Non-positive rate keeps the previous one.
	s.Reset(0)
	if s.Rate() != 22050 {
		t.Errorf("rate after Reset(0) = %d, want 22050", s.Rate())
	}
}

func TestTransitionAgainAfterReset(t *testing.T) {
	s, _ := newTestSync(t, 10000, Options{StartThreshold: 5000})

	if _, err := s.Sync(5000); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !s.Synced() {
		t.Fatal("should be synced")
	}

	s.Reset(10000)
	if s.Synced() {
		t.Fatal("should be starting after reset")
	}

	if _, err := s.Sync(5000); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !s.Synced() {
		t.Error("should cross the threshold again after reset")
	}
}

func TestModeAndStatusStrings(t *testing.T) {
	if ModeStarting.String() != "starting" || ModeSynced.String() != "synced" {
		t.Errorf("mode strings = %q/%q", ModeStarting, ModeSynced)
	}
	if StatusNotRequired.String() != "not required" || StatusSynchronized.String() != "synchronized" {
		t.Errorf("status strings = %q/%q", StatusNotRequired, StatusSynchronized)
	}
}
