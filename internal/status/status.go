// Package status provides a thread-safe status tracker for the blinker daemon.
// It is fed by the timer engine and read by HTTP handlers and MQTT events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/gpio-blinker/internal/logic"
)

// NetworkInfo contains network state.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Chip            string
	Line            string
	DefaultInterval uint32 // seconds
	MaxInterval     uint32 // seconds
	HeartbeatMs     int64
	Broker          string
	HTTPPort        string
	ControlSocket   string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Level         logic.Level
	Armed         bool
	Interval      uint32 // seconds, current store value
	Counts        logic.Counts
	LastFiring    time.Time
	NextFiring    time.Time
	LastError     string
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// IntervalReader supplies the live interval for snapshots.
type IntervalReader interface {
	Read() uint32
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu       sync.RWMutex
	snap     Snapshot
	interval IntervalReader
	now      func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Level:     logic.Inactive,
			Interval:  cfg.DefaultInterval,
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// SetClock replaces the clock used for Snapshot.Now. Used by tests.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

// SetIntervalReader makes snapshots report the live interval from r.
func (t *Tracker) SetIntervalReader(r IntervalReader) {
	t.mu.Lock()
	t.interval = r
	t.mu.Unlock()
}

// Fired records a completed firing. Called on the timer goroutine, so it
// only takes the lock for a few field writes.
func (t *Tracker) Fired(f logic.Firing) {
	t.mu.Lock()
	t.snap.Level = f.Level
	t.snap.LastFiring = f.At
	t.snap.NextFiring = f.Next
	t.snap.Counts.Firings++
	t.snap.Counts.Overruns += f.Missed
	if f.Err != nil {
		t.snap.Counts.WriteErrors++
		t.snap.LastError = f.Err.Error()
	}
	t.mu.Unlock()
}

// SetArmed records whether the timer is running and, when armed, the first deadline.
func (t *Tracker) SetArmed(armed bool, next time.Time) {
	t.mu.Lock()
	t.snap.Armed = armed
	t.snap.NextFiring = next
	t.mu.Unlock()
}

// SetLevel records a level driven outside a firing (initial or shutdown level).
func (t *Tracker) SetLevel(level logic.Level) {
	t.mu.Lock()
	t.snap.Level = level
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	r := t.interval
	now := t.now
	t.mu.RUnlock()

	if r != nil {
		s.Interval = r.Read()
	}
	s.Now = now()
	return s
}
