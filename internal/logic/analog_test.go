package logic

import (
	"strings"
	"testing"
	"time"
)

func TestGasFirstSampleAlwaysPushed(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	a := NewAnalogTracker(GasConfig("gas_sensor_1", 900, 5, 5*time.Second))

	d := a.Process(0, now)
	if len(d.Updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(d.Updates))
	}
	if d.Updates[0].Field != FieldGasValue {
		t.Errorf("field: got %q, want %q", d.Updates[0].Field, FieldGasValue)
	}
	if d.Alert != nil {
		t.Errorf("unexpected alert: %+v", d.Alert)
	}
}

func TestGasLeakScenario(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	a := NewAnalogTracker(GasConfig("gas_sensor_1", 900, 5, 5*time.Second))

	d := a.Process(950, now)
	if len(d.Updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(d.Updates))
	}
	if d.Updates[0].Field != "gas_value" || d.Updates[0].Value != 950.0 {
		t.Errorf("unexpected update: %+v", d.Updates[0])
	}
	if d.Alert == nil {
		t.Fatal("expected GAS_LEAK alert")
	}
	if d.Alert.Type != AlertGasLeak {
		t.Errorf("alert type: got %s, want GAS_LEAK", d.Alert.Type)
	}
	if !strings.Contains(d.Alert.Message, "950.0") {
		t.Errorf("alert message %q does not contain 950.0", d.Alert.Message)
	}
	if d.Alert.SensorID != "gas_sensor_1" {
		t.Errorf("sensor id: got %q", d.Alert.SensorID)
	}
}

func TestGasAlertIffAboveThreshold(t *testing.T) {
	tests := []struct {
		ppm       float64
		wantAlert bool
	}{
		{0, false},
		{899.9, false},
		{900, false},
		{900.1, true},
		{3300, true},
	}

	for _, tt := range tests {
		a := NewAnalogTracker(GasConfig("gas", 900, 5, time.Second))
		d := a.Process(tt.ppm, time.Now())
		if got := d.Alert != nil; got != tt.wantAlert {
			t.Errorf("ppm=%.1f: alert=%v, want %v", tt.ppm, got, tt.wantAlert)
		}
	}
}

func TestGasAlertRepeatsForEverySampleAboveThreshold(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	a := NewAnalogTracker(GasConfig("gas", 900, 5, 5*time.Second))

	for i := 0; i < 3; i++ {
		d := a.Process(950, now.Add(time.Duration(i)*5*time.Second))
		if d.Alert == nil {
			t.Errorf("sample %d: expected alert", i)
		}
	}
}

func TestGasSmallChangeNotPushed(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	a := NewAnalogTracker(GasConfig("gas", 900, 5, 5*time.Second))

	a.Process(100, now)

	d := a.Process(104, now.Add(5*time.Second))
	if len(d.Updates) != 0 {
		t.Errorf("expected no push for change of 4, got %+v", d.Updates)
	}

	d = a.Process(105.5, now.Add(9*time.Second))
	if len(d.Updates) != 1 {
		t.Fatalf("expected push for change of 5.5, got %d updates", len(d.Updates))
	}
	if v, _ := a.LastReported(); v != 105.5 {
		t.Errorf("last reported: got %v, want 105.5", v)
	}
}

func TestGasHeartbeatPushWhenFlat(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	a := NewAnalogTracker(GasConfig("gas", 900, 5, 5*time.Second))

	a.Process(100, now)

	d := a.Process(100, now.Add(5*time.Second))
	if len(d.Updates) != 0 {
		t.Errorf("expected no push at 5s, got %d", len(d.Updates))
	}

	d = a.Process(100, now.Add(10*time.Second))
	if len(d.Updates) != 1 {
		t.Errorf("expected heartbeat push at 2x interval, got %d", len(d.Updates))
	}
}

func TestProximityAlertsBelowThreshold(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	a := NewAnalogTracker(ProximityConfig("ultrasonic_sensor_1", 20, 1, time.Second))

	d := a.Process(150, now)
	if d.Alert != nil {
		t.Errorf("unexpected alert at 150cm")
	}
	if len(d.Updates) != 1 || d.Updates[0].Field != FieldValue {
		t.Errorf("unexpected updates: %+v", d.Updates)
	}

	d = a.Process(12.5, now.Add(time.Second))
	if d.Alert == nil {
		t.Fatal("expected PROXIMITY alert at 12.5cm")
	}
	if d.Alert.Type != AlertProximity {
		t.Errorf("alert type: got %s", d.Alert.Type)
	}
	if !strings.Contains(d.Alert.Message, "12.5") {
		t.Errorf("message: %q", d.Alert.Message)
	}
}
