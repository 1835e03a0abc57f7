// ABOUTME: Rate synchronization package for paced audio transfer loops
// ABOUTME: Dual-regime pacing with damped startup and fixed-baseline steady state

// Package ratesync keeps audio transfer loops running at their nominal
// frame rate.
//
// A loop that can move frames faster than real time calls Sync after
// every delivery; Sync sleeps off the surplus so the loop tracks the
// wall clock. Pacing starts in a per-call regime with damped sleeps and
// switches to cumulative pacing against a fixed baseline once enough
// frames have passed, so per-period rounding cannot drift over long
// sessions.
//
// Example:
//
//	s, err := ratesync.New(48000)
//	if err != nil {
//		return err
//	}
//	for {
//		n := transferPeriod()
//		if _, err := s.Sync(uint64(n)); err != nil {
//			return err
//		}
//	}
//
// A Synchronizer is not safe for concurrent use; give each stream its
// own instance.
package ratesync
