package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/home-sentinel/internal/logic"
	"github.com/sweeney/home-sentinel/internal/sensor"
)

// Status events.
const (
	EventStartup     = "STARTUP"
	EventShutdown    = "SHUTDOWN"
	EventHeartbeat   = "HEARTBEAT"
	EventReconnected = "RECONNECTED"
	EventOffline     = "OFFLINE"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Node          string       `json:"node"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	Link          LinkJSON     `json:"link"`
	Clock         ClockJSON    `json:"clock"`
	Alerts        int          `json:"alerts"`
	Sensors       []SensorJSON `json:"sensors"`
	Config        ConfigJSON   `json:"config"`
}

// LinkJSON reports store connectivity.
type LinkJSON struct {
	Connected   bool   `json:"connected"`
	Broker      string `json:"broker"`
	LastAttempt string `json:"last_attempt,omitempty"`
}

// ClockJSON reports NTP state.
type ClockJSON struct {
	Synced   bool  `json:"synced"`
	OffsetMs int64 `json:"offset_ms"`
}

// SensorJSON is the JSON representation of one sensor.
type SensorJSON struct {
	ID         string   `json:"id"`
	Kind       string   `json:"kind"`
	Enabled    bool     `json:"enabled"`
	Value      *float64 `json:"value,omitempty"`
	LastSample string   `json:"last_sample,omitempty"`
	Alerts     int      `json:"alerts"`
	Open       *bool    `json:"open,omitempty"`
	OpenSince  string   `json:"open_since,omitempty"`
	Locked     *bool    `json:"locked,omitempty"`
	HitCount   *uint    `json:"hit_count,omitempty"`
	Card       string   `json:"card,omitempty"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickMs      int64  `json:"tick_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	ReconnectMs int64  `json:"reconnect_ms"`
	Broker      string `json:"broker"`
	TopicPrefix string `json:"topic_prefix"`
	HTTPAddr    string `json:"http_addr"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func buildSensor(s sensor.Snapshot) SensorJSON {
	j := SensorJSON{
		ID:         s.ID,
		Kind:       string(s.Kind),
		Enabled:    s.Enabled,
		LastSample: formatTime(s.LastSample),
		Alerts:     s.Alerts,
		Card:       s.CardUID,
	}
	if s.HasValue {
		v := s.Value
		j.Value = &v
	}
	if s.Door != nil {
		open, locked := s.Door.Open, s.Door.Locked
		j.Open = &open
		j.Locked = &locked
		j.OpenSince = formatTime(s.Door.OpenSince)
	}
	if s.Kind == logic.KindVibration {
		n := s.HitCount
		j.HitCount = &n
	}
	return j
}

func buildInner(snap Snapshot) StatusInner {
	sensors := make([]SensorJSON, 0, len(snap.Sensors))
	for _, s := range snap.Sensors {
		sensors = append(sensors, buildSensor(s))
	}

	return StatusInner{
		Node:          snap.Config.NodeID,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Link: LinkJSON{
			Connected:   snap.Link.Connected,
			Broker:      snap.Config.Broker,
			LastAttempt: formatTime(snap.Link.LastAttempt),
		},
		Clock: ClockJSON{
			Synced:   snap.Clock.Synced,
			OffsetMs: snap.Clock.Offset.Milliseconds(),
		},
		Alerts:  snap.Alerts(),
		Sensors: sensors,
		Config: ConfigJSON{
			TickMs:      snap.Config.TickMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			ReconnectMs: snap.Config.ReconnectMs,
			Broker:      snap.Config.Broker,
			TopicPrefix: snap.Config.TopicPrefix,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status pushed to /node/status.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

// WillJSON is the last-will payload: just enough to mark the node offline.
type WillJSON struct {
	Status WillInner `json:"status"`
}

// WillInner contains the will details.
type WillInner struct {
	Event  string `json:"event"`
	Reason string `json:"reason"`
	Node   string `json:"node"`
}

// FormatWill returns the payload the broker publishes if the node vanishes.
func FormatWill(nodeID string) []byte {
	data, _ := json.Marshal(WillJSON{Status: WillInner{
		Event:  EventOffline,
		Reason: "MQTT_DISCONNECT",
		Node:   nodeID,
	}})
	return data
}
