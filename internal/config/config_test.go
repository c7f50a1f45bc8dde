package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	data := `
node:
  id: hall
store:
  broker: tcp://192.168.1.200:1883
sensors:
  gas:
    threshold: 850
  door:
    locked: true
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Node.Tick != DefaultTick {
		t.Fatalf("expected default tick, got %s", cfg.Node.Tick)
	}
	if cfg.Store.ClientID != "hall" || cfg.Store.TopicPrefix != "home/hall" {
		t.Fatalf("expected node-derived store ids, got %q %q", cfg.Store.ClientID, cfg.Store.TopicPrefix)
	}
	if cfg.Link.ReconnectInterval != 30*time.Second {
		t.Fatalf("expected 30s reconnect interval, got %s", cfg.Link.ReconnectInterval)
	}
	if cfg.Sensors.Gas.PPMThreshold() != 850 || cfg.Sensors.Gas.Epsilon != 5 {
		t.Fatalf("gas: got threshold %v epsilon %v", cfg.Sensors.Gas.PPMThreshold(), cfg.Sensors.Gas.Epsilon)
	}
	if cfg.Sensors.Vibration.HitThreshold() != DefaultVibrationThreshold {
		t.Fatalf("vibration threshold: got %v", cfg.Sensors.Vibration.HitThreshold())
	}
	if cfg.Sensors.Gas.ID != "gas_sensor_1" || !cfg.Sensors.Gas.IsEnabled() {
		t.Fatalf("gas base: %+v", cfg.Sensors.Gas.SensorBase)
	}
	if !cfg.Sensors.Door.Locked || cfg.Sensors.Door.Repeat() != DefaultLeftOpenRepeat {
		t.Fatalf("door: locked=%v repeat=%v", cfg.Sensors.Door.Locked, cfg.Sensors.Door.Repeat())
	}
	if len(cfg.Sensors.Proximity) != 2 || cfg.Sensors.Proximity[1].ID != "ultrasonic_sensor_2" {
		t.Fatalf("expected two default proximity sensors, got %+v", cfg.Sensors.Proximity)
	}
	if cfg.Sensors.CardReader.Baud != 9600 || cfg.Sensors.CardReader.Suppression != time.Second {
		t.Fatalf("card reader: %+v", cfg.Sensors.CardReader)
	}
	if cfg.Sensors.CardReader.ReinitInterval != cfg.Link.ReconnectInterval {
		t.Fatalf("card reinit interval: got %v", cfg.Sensors.CardReader.ReinitInterval)
	}
}

func TestParseDurationsAndFlags(t *testing.T) {
	cfg, err := Parse([]byte(`
node:
  tick: 50ms
heartbeat: 1m
http:
  addr: "off"
log:
  level: debug
sensors:
  gas:
    threshold: 0
  door:
    left_open_repeat: 0s
  vibration:
    enabled: false
    window: 2s
    threshold: 0
  proximity:
    - id: porch
      trig_pin: 5
      echo_pin: 6
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Node.Tick != 50*time.Millisecond || cfg.Heartbeat != time.Minute {
		t.Errorf("durations: tick=%v heartbeat=%v", cfg.Node.Tick, cfg.Heartbeat)
	}
	if cfg.HTTP.Enabled() {
		t.Error("http should be disabled")
	}
	if lvl, _ := cfg.Log.SlogLevel(); lvl != slog.LevelDebug {
		t.Errorf("level: got %v", lvl)
	}
	if cfg.Sensors.Door.Repeat() != 0 {
		t.Errorf("explicit zero repeat: got %v", cfg.Sensors.Door.Repeat())
	}
	if cfg.Sensors.Gas.PPMThreshold() != 0 {
		t.Errorf("explicit zero gas threshold: got %v", cfg.Sensors.Gas.PPMThreshold())
	}
	if cfg.Sensors.Vibration.HitThreshold() != 0 {
		t.Errorf("explicit zero vibration threshold: got %v", cfg.Sensors.Vibration.HitThreshold())
	}
	if cfg.Sensors.Vibration.IsEnabled() || cfg.Sensors.Vibration.Window != 2*time.Second {
		t.Errorf("vibration: %+v", cfg.Sensors.Vibration)
	}
	if len(cfg.Sensors.Proximity) != 1 || cfg.Sensors.Proximity[0].ID != "porch" || cfg.Sensors.Proximity[0].ThresholdCM != 20 {
		t.Errorf("proximity: %+v", cfg.Sensors.Proximity)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"broker scheme", "store:\n  broker: localhost:1883\n", "scheme"},
		{"bad level", "log:\n  level: loud\n", "log.level"},
		{"duplicate ids", "sensors:\n  gas:\n    id: x\n  door:\n    id: x\n", "duplicate sensor id"},
		{"negative gas threshold", "sensors:\n  gas:\n    threshold: -1\n", "gas.threshold"},
		{"negative repeat", "sensors:\n  door:\n    left_open_repeat: -1s\n", "left_open_repeat"},
		{"same pins", "sensors:\n  proximity:\n    - trig_pin: 4\n      echo_pin: 4\n", "pins must differ"},
		{"negative interval", "sensors:\n  gas:\n    interval: -1s\n", "interval must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Sensors.Door.Pin == 0 || cfg.Sensors.Vibration.Pin == 0 {
		t.Error("default pins not set")
	}
}
