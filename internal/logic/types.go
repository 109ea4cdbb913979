// Package logic contains the pure toggling and scheduling rules of the blinker.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Level represents the logical level of the output line.
type Level string

const (
	Inactive Level = "INACTIVE"
	Active   Level = "ACTIVE"
)

// Flip returns the opposite level. The zero value is treated as Inactive.
func (l Level) Flip() Level {
	if l == Active {
		return Inactive
	}
	return Active
}

// Value returns the raw line value for the level (1 = active).
func (l Level) Value() int {
	if l == Active {
		return 1
	}
	return 0
}

// LevelFromValue converts a raw line value into a Level.
func LevelFromValue(v int) Level {
	if v != 0 {
		return Active
	}
	return Inactive
}

// MinInterval is the interval used when a zero interval reaches the scheduler.
const MinInterval = time.Second

// Counts tracks firing statistics since the timer was armed.
type Counts struct {
	Firings     uint64
	Overruns    uint64
	WriteErrors uint64
}

// Firing describes a single completed firing.
type Firing struct {
	// Deadline the firing was scheduled for (the "firing time")
	At time.Time
	// Level driven onto the line
	Level Level
	// Interval read from the store for the next deadline
	Interval time.Duration
	// Next deadline after overrun correction
	Next time.Time
	// Missed periods skipped by the overrun correction
	Missed uint64
	// Err is the level write error, if any
	Err error
}
