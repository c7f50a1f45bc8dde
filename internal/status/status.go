// Package status provides a thread-safe status tracker for the home-sentinel
// daemon. It is written by the tick loop and read by HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/home-sentinel/internal/sensor"
)

// Config contains daemon configuration for display.
type Config struct {
	NodeID      string
	TickMs      int64
	HeartbeatMs int64
	ReconnectMs int64
	Broker      string
	TopicPrefix string
	HTTPAddr    string
}

// LinkInfo is the connectivity state seen by the guardian.
type LinkInfo struct {
	Connected   bool
	LastAttempt time.Time // zero if no attempt yet
}

// ClockInfo is the NTP state.
type ClockInfo struct {
	Synced bool
	Offset time.Duration
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Sensors   []sensor.Snapshot
	StartTime time.Time
	Now       time.Time
	Link      LinkInfo
	Clock     ClockInfo
	Config    Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Sensor returns the snapshot of the sensor with the given ID.
func (s Snapshot) Sensor(id string) (sensor.Snapshot, bool) {
	for _, ss := range s.Sensors {
		if ss.ID == id {
			return ss, true
		}
	}
	return sensor.Snapshot{}, false
}

// Alerts returns the total alerts raised across all sensors.
func (s Snapshot) Alerts() int {
	n := 0
	for _, ss := range s.Sensors {
		n += ss.Alerts
	}
	return n
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// SetNow replaces the time source used to stamp snapshots.
func (t *Tracker) SetNow(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

// Update replaces the sensor views. Called from the tick loop.
func (t *Tracker) Update(sensors []sensor.Snapshot) {
	t.mu.Lock()
	t.snap.Sensors = sensors
	t.mu.Unlock()
}

// SetLink sets the connectivity state.
func (t *Tracker) SetLink(info LinkInfo) {
	t.mu.Lock()
	t.snap.Link = info
	t.mu.Unlock()
}

// SetClock sets the NTP state.
func (t *Tracker) SetClock(info ClockInfo) {
	t.mu.Lock()
	t.snap.Clock = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Sensors = append([]sensor.Snapshot(nil), t.snap.Sensors...)
	now := t.now
	t.mu.RUnlock()
	s.Now = now()
	return s
}
