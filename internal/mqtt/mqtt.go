// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"
)

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "gpio/blinker/system"

// TopicInterval is the MQTT topic for accepted interval changes.
const TopicInterval = "gpio/blinker/interval"

// ClientID is the MQTT client identifier.
const ClientID = "gpio-blinker"

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishInterval sends an interval change to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishInterval(event IntervalEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// IntervalEvent records an accepted interval change.
type IntervalEvent struct {
	Timestamp time.Time
	Line      string
	Old       uint32 // seconds
	New       uint32 // seconds
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// IntervalPayload represents the MQTT message payload for interval changes.
type IntervalPayload struct {
	Interval IntervalPayloadInner `json:"interval"`
}

// IntervalPayloadInner contains the interval change details.
type IntervalPayloadInner struct {
	Timestamp  string `json:"timestamp"`
	Line       string `json:"line"`
	OldSeconds uint32 `json:"old_seconds"`
	NewSeconds uint32 `json:"new_seconds"`
}

// FormatIntervalPayload creates the JSON payload for an interval change.
func FormatIntervalPayload(event IntervalEvent) ([]byte, error) {
	payload := IntervalPayload{
		Interval: IntervalPayloadInner{
			Timestamp:  event.Timestamp.UTC().Format(time.RFC3339),
			Line:       event.Line,
			OldSeconds: event.Old,
			NewSeconds: event.New,
		},
	}
	return json.Marshal(payload)
}
