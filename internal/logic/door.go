package logic

import (
	"fmt"
	"time"
)

// DoorConfig configures a DoorTracker.
type DoorConfig struct {
	SensorID string
	// OpenThreshold is how long the door may stay open before DOOR_LEFT_OPEN.
	OpenThreshold time.Duration
	// LeftOpenRepeat is the minimum spacing between repeated DOOR_LEFT_OPEN
	// alerts within one open interval. Zero means alert once per interval.
	LeftOpenRepeat time.Duration
	// Heartbeat re-pushes the current value when nothing changed.
	// Zero disables the heartbeat.
	Heartbeat time.Duration
}

// DoorTracker tracks the reed switch and lock state of one door.
type DoorTracker struct {
	cfg       DoorConfig
	baselined bool
	open      bool
	openSince time.Time // zero iff closed
	locked    bool
	lastPush  time.Time

	leftOpenAlerted bool
	lastLeftOpen    time.Time
}

// NewDoorTracker creates a tracker that has not seen a sample yet.
func NewDoorTracker(cfg DoorConfig) *DoorTracker {
	return &DoorTracker{cfg: cfg}
}

// Process takes a new reed switch sample (true = open) and returns what to push.
// The door is assumed closed before the first sample: its value is always
// pushed, and a first sample of open while locked raises DOOR_UNAUTHORIZED.
func (d *DoorTracker) Process(open bool, now time.Time) Decision {
	var dec Decision

	if !d.baselined {
		d.baselined = true
		d.setOpen(open, now)
		dec.Updates = append(dec.Updates, Update{Field: FieldValue, Value: boolValue(open)})
		d.lastPush = now
		if open && d.locked {
			dec.Alert = d.alert(AlertDoorUnauthorized, "Door opened while locked!", now)
		}
		return dec
	}

	changed := open != d.open
	if changed || (d.cfg.Heartbeat > 0 && now.Sub(d.lastPush) >= d.cfg.Heartbeat) {
		dec.Updates = append(dec.Updates, Update{Field: FieldValue, Value: boolValue(open)})
		d.lastPush = now
	}

	if changed {
		d.setOpen(open, now)
		if open && d.locked {
			dec.Alert = d.alert(AlertDoorUnauthorized, "Door opened while locked!", now)
			return dec
		}
	}

	if d.open {
		dec.Alert = d.checkLeftOpen(now)
	}

	return dec
}

func (d *DoorTracker) setOpen(open bool, now time.Time) {
	d.open = open
	if open {
		d.openSince = now
	} else {
		d.openSince = time.Time{}
	}
	d.leftOpenAlerted = false
	d.lastLeftOpen = time.Time{}
}

func (d *DoorTracker) checkLeftOpen(now time.Time) *Alert {
	openFor := now.Sub(d.openSince)
	if openFor <= d.cfg.OpenThreshold {
		return nil
	}
	if d.leftOpenAlerted {
		if d.cfg.LeftOpenRepeat <= 0 || now.Sub(d.lastLeftOpen) < d.cfg.LeftOpenRepeat {
			return nil
		}
	}
	d.leftOpenAlerted = true
	d.lastLeftOpen = now
	msg := fmt.Sprintf("Door left open for %d seconds", int(openFor/time.Second))
	return d.alert(AlertDoorLeftOpen, msg, now)
}

// SetLocked records the lock state. Locking while the door is open raises
// DOOR_LEFT_OPEN immediately.
func (d *DoorTracker) SetLocked(locked bool, now time.Time) Decision {
	d.locked = locked
	dec := Decision{Updates: []Update{{Field: FieldLocked, Value: locked}}}
	if locked && d.open {
		dec.Alert = d.alert(AlertDoorLeftOpen, "Attempting to lock while door is open!", now)
	}
	return dec
}

func (d *DoorTracker) alert(t AlertType, msg string, now time.Time) *Alert {
	return &Alert{SensorID: d.cfg.SensorID, Type: t, Message: msg, Timestamp: now}
}

// IsOpen returns the last sampled door state.
func (d *DoorTracker) IsOpen() bool {
	return d.open
}

// IsLocked returns the lock state.
func (d *DoorTracker) IsLocked() bool {
	return d.locked
}

// OpenSince returns when the door opened, or false if it is closed.
func (d *DoorTracker) OpenSince() (time.Time, bool) {
	if !d.open {
		return time.Time{}, false
	}
	return d.openSince, true
}

// IsBaselined reports whether a first sample has been seen.
func (d *DoorTracker) IsBaselined() bool {
	return d.baselined
}
