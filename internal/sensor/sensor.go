// Package sensor runs one state machine per physical sensor. Machines are
// owned by the tick goroutine: only Registry.Tick and Registry.Apply, called
// from that goroutine, mutate them.
package sensor

import (
	"log/slog"
	"time"

	"github.com/sweeney/home-sentinel/internal/logic"
	"github.com/sweeney/home-sentinel/internal/metrics"
)

// DefaultReinitInterval is the minimum spacing between attempts to reopen
// hardware that failed.
const DefaultReinitInterval = 30 * time.Second

// Pusher receives everything a machine decides to publish.
type Pusher interface {
	PushEnabled(sensorID string, enabled bool) bool
	Apply(sensorID string, d logic.Decision)
}

// Machine is the common lifecycle of every sensor kind.
type Machine interface {
	ID() string
	Kind() logic.Kind

	// Begin publishes the initial flags and arms the hardware.
	Begin(now time.Time) error

	// Update samples and evaluates the sensor if it is enabled and due.
	Update(now time.Time)

	// SetEnabled moves the machine between Active and Disabled.
	SetEnabled(enabled bool, now time.Time)
	Enabled() bool

	Snapshot() Snapshot

	// Close releases the sensor's hardware.
	Close() error
}

// Locker is implemented by machines with a lock flag.
type Locker interface {
	SetLocked(locked bool, now time.Time)
}

// Snapshot is a point-in-time view of one sensor.
type Snapshot struct {
	ID         string
	Kind       logic.Kind
	Enabled    bool
	Value      float64
	HasValue   bool
	LastSample time.Time
	Alerts     int

	Door     *DoorState
	HitCount uint
	CardUID  string
}

// DoorState is the door-specific part of a Snapshot.
type DoorState struct {
	Open      bool
	OpenSince time.Time
	Locked    bool
}

// Deps are the collaborators shared by all machines.
type Deps struct {
	Push    Pusher
	Log     *slog.Logger
	Metrics *metrics.Metrics
}

// Common holds the settings every sensor has.
type Common struct {
	ID       string
	Interval time.Duration
	Enabled  bool
}

type base struct {
	id       string
	kind     logic.Kind
	interval time.Duration
	enabled  bool

	sampled    bool
	lastSample time.Time
	value      float64
	hasValue   bool
	alerts     int

	push    Pusher
	log     *slog.Logger
	metrics *metrics.Metrics
}

func (d Deps) base(c Common, kind logic.Kind) base {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	return base{
		id:       c.ID,
		kind:     kind,
		interval: c.Interval,
		enabled:  c.Enabled,
		push:     d.Push,
		log:      log.With("sensor", c.ID),
		metrics:  d.Metrics,
	}
}

func (b *base) ID() string       { return b.id }
func (b *base) Kind() logic.Kind { return b.kind }
func (b *base) Enabled() bool    { return b.enabled }

// due reports whether the sample interval has passed since the last sample.
func (b *base) due(now time.Time) bool {
	return !b.sampled || now.Sub(b.lastSample) >= b.interval
}

func (b *base) markSampled(now time.Time) {
	b.sampled = true
	b.lastSample = now
}

func (b *base) record(v float64) {
	b.value = v
	b.hasValue = true
}

// emit forwards d to the pusher. Alerts of a disabled machine are dropped.
func (b *base) emit(d logic.Decision) {
	if d.Alert != nil && !b.enabled {
		d.Alert = nil
	}
	if d.Empty() {
		return
	}
	if d.Alert != nil {
		b.alerts++
	}
	b.push.Apply(b.id, d)
}

func (b *base) readFailed(err error) {
	b.log.Warn("sensor: read failed", "err", err)
	b.metrics.ObserveReadError(b.id)
}

func (b *base) beginFlags() {
	b.push.PushEnabled(b.id, b.enabled)
}

func (b *base) setEnabled(enabled bool) {
	if enabled != b.enabled {
		b.log.Info("sensor: enabled changed", "enabled", enabled)
	}
	b.enabled = enabled
	b.push.PushEnabled(b.id, enabled)
}

func (b *base) snapshot() Snapshot {
	return Snapshot{
		ID:         b.id,
		Kind:       b.kind,
		Enabled:    b.enabled,
		Value:      b.value,
		HasValue:   b.hasValue,
		LastSample: b.lastSample,
		Alerts:     b.alerts,
	}
}
