// ABOUTME: Monotonic time points split into seconds and nanoseconds
// ABOUTME: Comparison yields an explicit sign and a separate magnitude
package ratesync

import "time"

// nanosPerSecond is the capacity of the sub-second field.
const nanosPerSecond = 1_000_000_000

// TimePoint is a monotonic clock reading split into whole seconds and
// nanoseconds. Well-formed values keep Nsec in [0, 1e9).
type TimePoint struct {
	Sec  int64
	Nsec int64
}

// Compare orders two time points and measures the gap between them.
// The sign is +1 when t2 is later than t1, -1 when t2 is earlier, and 0
// when they are equal. When both points fall within the same second only
// the sub-second fields are compared; no carry is performed.
func Compare(t1, t2 TimePoint) (int, time.Duration) {
	if t1.Sec == t2.Sec {
		switch d := t2.Nsec - t1.Nsec; {
		case d > 0:
			return 1, time.Duration(d)
		case d < 0:
			return -1, time.Duration(-d)
		default:
			return 0, 0
		}
	}

	if t2.Sec > t1.Sec {
		return 1, sub(t2, t1).duration()
	}
	return -1, sub(t1, t2).duration()
}

// sub computes a minus b for a at or after b, borrowing from the seconds
// field when the sub-second difference goes negative.
func sub(a, b TimePoint) TimePoint {
	sec := a.Sec - b.Sec
	nsec := a.Nsec - b.Nsec
	if nsec < 0 {
		sec--
		nsec += nanosPerSecond
	}
	return TimePoint{Sec: sec, Nsec: nsec}
}

// add sums two time points, carrying sub-second overflow.
func add(a, b TimePoint) TimePoint {
	sec := a.Sec + b.Sec
	nsec := a.Nsec + b.Nsec
	if nsec >= nanosPerSecond {
		sec++
		nsec -= nanosPerSecond
	}
	return TimePoint{Sec: sec, Nsec: nsec}
}

// duration flattens a time point difference into a time.Duration.
func (t TimePoint) duration() time.Duration {
	return time.Duration(t.Sec)*time.Second + time.Duration(t.Nsec)
}

// fromDuration splits an elapsed duration into a time point.
func fromDuration(d time.Duration) TimePoint {
	return TimePoint{Sec: int64(d / time.Second), Nsec: int64(d % time.Second)}
}

// frameSpan converts a frame count into the wall-clock time those frames
// span at the given rate. 1e9/rate is truncated to whole nanoseconds
// before multiplying by the remainder.
func frameSpan(frames uint64, rate int) TimePoint {
	r := uint64(rate)
	return TimePoint{
		Sec:  int64(frames / r),
		Nsec: int64(nanosPerSecond / r * (frames % r)),
	}
}
