package logic

import "time"

// EffectiveInterval returns the interval to schedule with. Non-positive
// values are clamped to MinInterval so a bad value can never cause the
// timer to re-fire immediately.
func EffectiveInterval(d time.Duration) time.Duration {
	if d <= 0 {
		return MinInterval
	}
	return d
}

// SecondsToInterval converts a whole-second interval to a duration.
func SecondsToInterval(seconds uint32) time.Duration {
	return EffectiveInterval(time.Duration(seconds) * time.Second)
}

// NextDeadline computes the deadline following a firing scheduled at fired.
// The next deadline is relative to the scheduled firing time, not to now, so
// callback latency does not accumulate. If the result is already in the past
// (the process was stalled), it is forwarded by whole intervals until it is
// not before now, and the number of skipped periods is returned.
func NextDeadline(fired time.Time, interval time.Duration, now time.Time) (time.Time, uint64) {
	interval = EffectiveInterval(interval)
	next := fired.Add(interval)
	if !next.Before(now) {
		return next, 0
	}

	// Skip every period that ended before now
	gap := now.Sub(next)
	missed := uint64((gap + interval - 1) / interval)
	next = next.Add(time.Duration(missed) * interval)
	return next, missed
}
