package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event           string       `json:"event,omitempty"`
	Reason          string       `json:"reason,omitempty"`
	Level           string       `json:"level"`
	Armed           bool         `json:"armed"`
	IntervalSeconds uint32       `json:"interval_seconds"`
	LastFiring      string       `json:"last_firing,omitempty"`
	NextFiring      string       `json:"next_firing,omitempty"`
	LastError       string       `json:"last_error,omitempty"`
	UptimeSeconds   int64        `json:"uptime_seconds"`
	StartTime       string       `json:"start_time"`
	Timestamp       string       `json:"timestamp"`
	MQTT            MQTTStatus   `json:"mqtt"`
	Counts          CountsJSON   `json:"counts"`
	Network         *NetworkJSON `json:"network,omitempty"`
	Config          ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of firing counts.
type CountsJSON struct {
	Firings     uint64 `json:"firings"`
	Overruns    uint64 `json:"overruns"`
	WriteErrors uint64 `json:"write_errors"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Chip                   string `json:"chip"`
	Line                   string `json:"line"`
	DefaultIntervalSeconds uint32 `json:"default_interval_seconds"`
	MaxIntervalSeconds     uint32 `json:"max_interval_seconds"`
	HeartbeatMs            int64  `json:"heartbeat_ms"`
	Broker                 string `json:"broker"`
	HTTPPort               string `json:"http_port"`
	ControlSocket          string `json:"control_socket,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func buildInner(snap Snapshot) StatusInner {
	level := string(snap.Level)
	if level == "" {
		level = "UNKNOWN"
	}

	return StatusInner{
		Level:           level,
		Armed:           snap.Armed,
		IntervalSeconds: snap.Interval,
		LastFiring:      formatTime(snap.LastFiring),
		NextFiring:      formatTime(snap.NextFiring),
		LastError:       snap.LastError,
		UptimeSeconds:   int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:       snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:       snap.Now.UTC().Format(time.RFC3339),
		MQTT:            MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Firings:     snap.Counts.Firings,
			Overruns:    snap.Counts.Overruns,
			WriteErrors: snap.Counts.WriteErrors,
		},
		Config: ConfigJSON{
			Chip:                   snap.Config.Chip,
			Line:                   snap.Config.Line,
			DefaultIntervalSeconds: snap.Config.DefaultInterval,
			MaxIntervalSeconds:     snap.Config.MaxInterval,
			HeartbeatMs:            snap.Config.HeartbeatMs,
			Broker:                 snap.Config.Broker,
			HTTPPort:               snap.Config.HTTPPort,
			ControlSocket:          snap.Config.ControlSocket,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
