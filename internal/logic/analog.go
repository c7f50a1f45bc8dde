package logic

import (
	"fmt"
	"math"
	"time"
)

// Direction selects which side of the threshold raises an alert.
type Direction int

const (
	// Above alerts when the value is strictly greater than the threshold.
	Above Direction = iota
	// Below alerts when the value is strictly less than the threshold.
	Below
)

// AnalogConfig configures an AnalogTracker.
type AnalogConfig struct {
	SensorID  string
	Field     string
	Threshold float64
	Direction Direction
	// Epsilon is the minimum change that forces a push.
	Epsilon float64
	// Heartbeat forces a push when this long has passed since the last one,
	// even if the value is flat. Zero disables the heartbeat.
	Heartbeat time.Duration
	AlertType AlertType
	// Message formats the alert text from the sampled value.
	Message func(v float64) string
}

// GasConfig returns the analog rules for a gas sensor. The heartbeat is
// twice the sample interval.
func GasConfig(sensorID string, threshold, epsilon float64, interval time.Duration) AnalogConfig {
	return AnalogConfig{
		SensorID:  sensorID,
		Field:     FieldGasValue,
		Threshold: threshold,
		Direction: Above,
		Epsilon:   epsilon,
		Heartbeat: 2 * interval,
		AlertType: AlertGasLeak,
		Message: func(v float64) string {
			return fmt.Sprintf("High gas level detected: %.1f ppm", v)
		},
	}
}

// ProximityConfig returns the analog rules for an ultrasonic range sensor.
func ProximityConfig(sensorID string, thresholdCM, epsilon float64, interval time.Duration) AnalogConfig {
	return AnalogConfig{
		SensorID:  sensorID,
		Field:     FieldValue,
		Threshold: thresholdCM,
		Direction: Below,
		Epsilon:   epsilon,
		Heartbeat: 2 * interval,
		AlertType: AlertProximity,
		Message: func(v float64) string {
			return fmt.Sprintf("Object detected at %.1f cm", v)
		},
	}
}

// AnalogTracker decides when a continuous reading is pushed and when it alerts.
type AnalogTracker struct {
	cfg          AnalogConfig
	lastReported float64
	lastPush     time.Time
	reported     bool
}

// NewAnalogTracker creates a tracker with nothing reported yet.
func NewAnalogTracker(cfg AnalogConfig) *AnalogTracker {
	return &AnalogTracker{cfg: cfg}
}

// Process evaluates one sample. The first sample is always pushed; later
// samples are pushed when they move by more than Epsilon or when the
// heartbeat has elapsed. The alert depends only on the sample itself.
func (a *AnalogTracker) Process(v float64, now time.Time) Decision {
	var d Decision

	if a.shouldPush(v, now) {
		d.Updates = append(d.Updates, Update{Field: a.cfg.Field, Value: v})
		a.lastReported = v
		a.lastPush = now
		a.reported = true
	}

	if a.Exceeds(v) {
		d.Alert = &Alert{
			SensorID:  a.cfg.SensorID,
			Type:      a.cfg.AlertType,
			Message:   a.cfg.Message(v),
			Timestamp: now,
		}
	}

	return d
}

func (a *AnalogTracker) shouldPush(v float64, now time.Time) bool {
	if !a.reported {
		return true
	}
	if math.Abs(v-a.lastReported) > a.cfg.Epsilon {
		return true
	}
	return a.cfg.Heartbeat > 0 && now.Sub(a.lastPush) >= a.cfg.Heartbeat
}

// Exceeds reports whether v is on the alerting side of the threshold.
func (a *AnalogTracker) Exceeds(v float64) bool {
	if a.cfg.Direction == Below {
		return v < a.cfg.Threshold
	}
	return v > a.cfg.Threshold
}

// LastReported returns the last pushed value and whether one exists.
func (a *AnalogTracker) LastReported() (float64, bool) {
	return a.lastReported, a.reported
}
