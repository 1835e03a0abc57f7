// ABOUTME: Tests for the system clock implementation
// ABOUTME: Verifies monotonic readings and approximate sleep durations
package ratesync

import (
	"testing"
	"time"
)

func TestSystemClockMonotonic(t *testing.T) {
	c := NewSystemClock()

	prev, err := c.Now()
	if err != nil {
		t.Fatalf("Now: %v", err)
	}

	for i := 0; i < 100; i++ {
		cur, err := c.Now()
		if err != nil {
			t.Fatalf("Now: %v", err)
		}
		if sign, _ := Compare(prev, cur); sign < 0 {
			t.Fatalf("clock went backwards: %+v then %+v", prev, cur)
		}
		prev = cur
	}
}

func TestSystemClockSleep(t *testing.T) {
	c := NewSystemClock()

	before, _ := c.Now()
	if err := c.Sleep(20 * time.Millisecond); err != nil {
		t.Fatalf("Sleep: %v", err)
	}
	after, _ := c.Now()

	sign, elapsed := Compare(before, after)
	if sign != 1 {
		t.Fatal("no time elapsed across sleep")
	}
	// Allow generous scheduling slop but catch a sleep that returns
	// immediately or hangs.
	if elapsed < 15*time.Millisecond || elapsed > 500*time.Millisecond {
		t.Errorf("slept %v, want roughly 20ms", elapsed)
	}
}

func TestSynchronizerWithSystemClock(t *testing.T) {
	// End to end against the real clock: delivering a full second of
	// audio instantly should sleep about half of it during startup.
	s, err := New(48000)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	start := time.Now()
	res, err := s.Sync(48000)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	elapsed := time.Since(start)

	if res.Status != StatusSynchronized {
		t.Errorf("status = %v, want synchronized", res.Status)
	}
	if elapsed < 400*time.Millisecond || elapsed > 900*time.Millisecond {
		t.Errorf("elapsed %v, want about 500ms", elapsed)
	}
}
