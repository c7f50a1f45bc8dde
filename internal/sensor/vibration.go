package sensor

import (
	"sync/atomic"
	"time"

	"github.com/sweeney/home-sentinel/internal/gpio"
	"github.com/sweeney/home-sentinel/internal/logic"
)

// VibrationConfig configures a vibration machine.
type VibrationConfig struct {
	Common
	Window    time.Duration
	Threshold uint
}

// Vibration counts edges from a vibration switch. Edges arrive on the GPIO
// event goroutine and only increment pending; the tick drains it.
type Vibration struct {
	base
	src      gpio.EdgeSource
	counter  *logic.VibrationCounter
	pending  atomic.Uint32
	attached bool

	lastAttach time.Time
}

// NewVibration creates a vibration machine fed by src.
func NewVibration(cfg VibrationConfig, src gpio.EdgeSource, deps Deps) *Vibration {
	return &Vibration{
		base: deps.base(cfg.Common, logic.KindVibration),
		src:  src,
		counter: logic.NewVibrationCounter(logic.VibrationConfig{
			SensorID:  cfg.ID,
			Window:    cfg.Window,
			Threshold: cfg.Threshold,
		}),
	}
}

func (v *Vibration) onEdge() {
	v.pending.Add(1)
}

// Begin publishes isEnabled and attaches the edge callback if enabled.
// A failed attach is retried from Update.
func (v *Vibration) Begin(now time.Time) error {
	v.beginFlags()
	if !v.enabled {
		return nil
	}
	v.lastAttach = now
	return v.attach()
}

func (v *Vibration) retryAttach(now time.Time) {
	if now.Sub(v.lastAttach) < DefaultReinitInterval {
		return
	}
	v.lastAttach = now
	if err := v.attach(); err != nil {
		v.log.Warn("vibration: attach failed", "err", err, "retry_in", DefaultReinitInterval)
		return
	}
	v.log.Info("vibration: attached")
}

func (v *Vibration) attach() error {
	if v.attached {
		return nil
	}
	v.pending.Store(0)
	if err := v.src.Attach(v.onEdge); err != nil {
		return err
	}
	v.attached = true
	return nil
}

func (v *Vibration) detach() error {
	if !v.attached {
		return nil
	}
	v.attached = false
	return v.src.Detach()
}

// Update drains pending edges every tick and pushes the rate when due.
func (v *Vibration) Update(now time.Time) {
	if !v.enabled {
		return
	}
	if !v.attached {
		v.retryAttach(now)
	}
	dec := v.counter.Process(v.pending.Swap(0), now)
	if v.due(now) {
		v.markSampled(now)
		u := v.counter.RateUpdate()
		v.record(u.Value.(float64))
		dec.Updates = append(dec.Updates, u)
	}
	v.emit(dec)
}

// SetEnabled detaches the edge callback when disabling. Enabling clears the
// window and any stale count before re-attaching.
func (v *Vibration) SetEnabled(enabled bool, now time.Time) {
	if enabled == v.enabled {
		v.setEnabled(enabled)
		return
	}
	if enabled {
		v.counter.Reset()
		v.lastAttach = now
		if err := v.attach(); err != nil {
			v.log.Warn("vibration: attach failed", "err", err)
		}
	} else if err := v.detach(); err != nil {
		v.log.Warn("vibration: detach failed", "err", err)
	}
	v.setEnabled(enabled)
}

// Snapshot returns the current view.
func (v *Vibration) Snapshot() Snapshot {
	s := v.snapshot()
	s.HitCount = v.counter.HitCount()
	return s
}

// Close detaches the edge callback.
func (v *Vibration) Close() error {
	return v.detach()
}
