// ABOUTME: Pacing harness for the rate synchronizer
// ABOUTME: Drives Sync with synthetic work and prints busy/idle telemetry
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/tactus-audio/tactus-go/pkg/ratesync"
)

var (
	rate      = flag.Int("rate", 48000, "Nominal frame rate")
	periodMs  = flag.Int("period-ms", 20, "Delivery period in milliseconds")
	seconds   = flag.Int("seconds", 5, "How long to run")
	workUs    = flag.Int("work-us", 500, "Simulated work per period in microseconds")
	jitterUs  = flag.Int("jitter-us", 200, "Random extra work up to this many microseconds")
	threshold = flag.Uint64("start-threshold", 0, "Frames before pacing locks in (0 uses the default)")
	damping   = flag.Float64("startup-damping", 0, "Startup sleep damping (0 uses the default)")
	reportS   = flag.Int("report-every", 1, "Seconds between telemetry lines")
)

func main() {
	flag.Parse()

	s, err := ratesync.NewWithOptions(*rate, ratesync.Options{
		StartThreshold: *threshold,
		StartupDamping: *damping,
	})
	if err != nil {
		log.Fatalf("synchronizer: %v", err)
	}

	periodFrames := uint64(*rate * *periodMs / 1000)
	iterations := *seconds * 1000 / *periodMs
	if periodFrames == 0 || iterations <= 0 {
		log.Fatalf("period %dms too short for rate %d over %ds", *periodMs, *rate, *seconds)
	}

	fmt.Printf("Pacing %d fps in %d-frame periods for %ds (work %dus, jitter %dus)\n",
		*rate, periodFrames, *seconds, *workUs, *jitterUs)

	start := time.Now()
	nextReport := start.Add(time.Duration(*reportS) * time.Second)

	var slept, overdue int
	var busyTotal, idleTotal time.Duration
	var frames uint64

	for i := 0; i < iterations; i++ {
		work := time.Duration(*workUs) * time.Microsecond
		if *jitterUs > 0 {
			work += time.Duration(rand.Intn(*jitterUs)) * time.Microsecond
		}
		spin(work)

		res, err := s.Sync(periodFrames)
		if err != nil {
			log.Fatalf("sync: %v", err)
		}

		frames += periodFrames
		busyTotal += res.Busy
		idleTotal += res.Idle
		if res.Status == ratesync.StatusSynchronized {
			slept++
		} else {
			overdue++
		}

		if now := time.Now(); now.After(nextReport) {
			elapsed := now.Sub(start)
			effective := float64(frames) / elapsed.Seconds()
			fmt.Printf("%6.2fs  mode=%-8s  frames=%-8d  rate=%8.1f fps  busy=%v  idle=%v\n",
				elapsed.Seconds(), s.Mode(), frames, effective,
				res.Busy.Round(time.Microsecond), res.Idle.Round(time.Microsecond))
			nextReport = now.Add(time.Duration(*reportS) * time.Second)
		}
	}

	elapsed := time.Since(start)
	expected := time.Duration(float64(frames) / float64(*rate) * float64(time.Second))
	drift := elapsed - expected

	fmt.Println()
	fmt.Printf("Delivered %d frames in %v (nominal %v, drift %v)\n",
		frames, elapsed.Round(time.Millisecond), expected.Round(time.Millisecond),
		drift.Round(time.Microsecond))
	fmt.Printf("Paced sleeps: %d, overdue periods: %d\n", slept, overdue)
	fmt.Printf("Average busy %v, average idle %v per period\n",
		(busyTotal / time.Duration(iterations)).Round(time.Microsecond),
		(idleTotal / time.Duration(iterations)).Round(time.Microsecond))
	fmt.Printf("Final mode: %s after %d frames\n", s.Mode(), s.FrameCount())
}

// spin burns CPU for roughly d to mimic decode work; an actual sleep
// would be scheduled against the same clock the synchronizer paces.
func spin(d time.Duration) {
	end := time.Now().Add(d)
	for time.Now().Before(end) {
	}
}
