package sensor

import (
	"time"

	"github.com/sweeney/home-sentinel/internal/gpio"
	"github.com/sweeney/home-sentinel/internal/logic"
)

// DoorConfig configures a door machine.
type DoorConfig struct {
	Common
	OpenThreshold  time.Duration
	LeftOpenRepeat time.Duration
	Heartbeat      time.Duration
	Locked         bool // initial lock state
}

// Door samples a reed switch. The sample interval is the only debounce.
type Door struct {
	base
	src     gpio.DigitalReader
	tracker *logic.DoorTracker
	initial bool
}

// NewDoor creates a door machine reading src (true = open).
func NewDoor(cfg DoorConfig, src gpio.DigitalReader, deps Deps) *Door {
	return &Door{
		base: deps.base(cfg.Common, logic.KindDoor),
		src:  src,
		tracker: logic.NewDoorTracker(logic.DoorConfig{
			SensorID:       cfg.ID,
			OpenThreshold:  cfg.OpenThreshold,
			LeftOpenRepeat: cfg.LeftOpenRepeat,
			Heartbeat:      cfg.Heartbeat,
		}),
		initial: cfg.Locked,
	}
}

// Begin publishes isEnabled and isLocked.
func (d *Door) Begin(now time.Time) error {
	d.beginFlags()
	d.emit(d.tracker.SetLocked(d.initial, now))
	return nil
}

// Update samples the switch when due.
func (d *Door) Update(now time.Time) {
	if !d.enabled || !d.due(now) {
		return
	}
	d.markSampled(now)

	open, err := d.src.Read()
	if err != nil {
		d.readFailed(err)
		return
	}
	if open {
		d.record(1.0)
	} else {
		d.record(0.0)
	}
	dec := d.tracker.Process(open, now)
	if dec.Alert != nil {
		d.log.Info("door: alert", "type", dec.Alert.Type, "open", open, "locked", d.tracker.IsLocked())
	}
	d.emit(dec)
}

// SetLocked changes the lock flag. The flag is kept and published while the
// machine is disabled, but no alert is raised.
func (d *Door) SetLocked(locked bool, now time.Time) {
	d.emit(d.tracker.SetLocked(locked, now))
}

// SetEnabled changes the machine state.
func (d *Door) SetEnabled(enabled bool, now time.Time) {
	d.setEnabled(enabled)
}

// Snapshot returns the current view.
func (d *Door) Snapshot() Snapshot {
	s := d.snapshot()
	since, _ := d.tracker.OpenSince()
	s.Door = &DoorState{
		Open:      d.tracker.IsOpen(),
		OpenSince: since,
		Locked:    d.tracker.IsLocked(),
	}
	return s
}

// Close releases the input line.
func (d *Door) Close() error {
	return d.src.Close()
}
