package logic

import (
	"fmt"
	"time"
)

// VibrationConfig configures a VibrationCounter.
type VibrationConfig struct {
	SensorID  string
	Window    time.Duration
	Threshold uint
}

// VibrationCounter counts vibration hits inside a fixed window.
// The window opens on the first hit after a reset and closes once
// now - windowStart exceeds Window.
type VibrationCounter struct {
	cfg         VibrationConfig
	hitCount    uint
	windowStart time.Time
	alerted     bool
}

// NewVibrationCounter creates a counter with an empty window.
func NewVibrationCounter(cfg VibrationConfig) *VibrationCounter {
	return &VibrationCounter{cfg: cfg}
}

// Process expires the current window if it is over, then adds hits drained
// since the previous tick. VIBRATION_DETECTED is raised on the tick where the
// count first exceeds the threshold; it is not raised again until the window
// resets.
func (v *VibrationCounter) Process(hits uint32, now time.Time) Decision {
	v.expire(now)

	if hits == 0 {
		return Decision{}
	}
	if v.hitCount == 0 {
		v.windowStart = now
	}
	v.hitCount += uint(hits)

	if v.alerted || v.hitCount <= v.cfg.Threshold {
		return Decision{}
	}
	v.alerted = true
	return Decision{Alert: &Alert{
		SensorID:  v.cfg.SensorID,
		Type:      AlertVibration,
		Message:   fmt.Sprintf("High vibration detected: %d hits", v.hitCount),
		Timestamp: now,
	}}
}

func (v *VibrationCounter) expire(now time.Time) {
	if v.hitCount > 0 && now.Sub(v.windowStart) > v.cfg.Window {
		v.Reset()
	}
}

// Reset empties the window.
func (v *VibrationCounter) Reset() {
	v.hitCount = 0
	v.windowStart = time.Time{}
	v.alerted = false
}

// HitCount returns the hits in the current window.
func (v *VibrationCounter) HitCount() uint {
	return v.hitCount
}

// Rate returns hits per second over the window length.
func (v *VibrationCounter) Rate() float64 {
	secs := v.cfg.Window.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(v.hitCount) / secs
}

// RateUpdate returns the periodic rate push.
func (v *VibrationCounter) RateUpdate() Update {
	return Update{Field: FieldValue, Value: v.Rate()}
}
