// ABOUTME: Clock abstraction over monotonic time reads and pacing sleeps
// ABOUTME: Lets tests drive the synchronizer with fake or failing clocks
package ratesync

import "time"

// Clock supplies monotonic time readings and blocks the caller for
// pacing sleeps. Implementations may fail; the synchronizer surfaces
// failures as *OperationError and stays consistent for a retry.
type Clock interface {
	// Now returns the current monotonic reading. Successive readings
	// never decrease.
	Now() (TimePoint, error)

	// Sleep blocks for approximately d. Waking early is tolerated; the
	// pacing loop self-corrects on the next cycle.
	Sleep(d time.Duration) error
}

// SystemClock reads monotonic time as elapsed time since the clock was
// created and sleeps with time.Sleep. It never returns an error.
type SystemClock struct {
	start time.Time
}

// NewSystemClock returns a monotonic clock anchored at the current
// instant.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// Now returns the time elapsed since the clock origin.
func (c *SystemClock) Now() (TimePoint, error) {
	return fromDuration(time.Since(c.start)), nil
}

// Sleep blocks for d.
func (c *SystemClock) Sleep(d time.Duration) error {
	time.Sleep(d)
	return nil
}
