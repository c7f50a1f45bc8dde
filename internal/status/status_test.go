package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/home-sentinel/internal/logic"
	"github.com/sweeney/home-sentinel/internal/sensor"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func testSensors() []sensor.Snapshot {
	return []sensor.Snapshot{
		{ID: "gas_sensor_1", Kind: logic.KindGas, Enabled: true, Value: 950, HasValue: true,
			LastSample: start.Add(time.Minute), Alerts: 2},
		{ID: "door_sensor_1", Kind: logic.KindDoor, Enabled: true, Value: 1, HasValue: true,
			Door: &sensor.DoorState{Open: true, OpenSince: start.Add(30 * time.Second), Locked: true}, Alerts: 1},
		{ID: "vibration_sensor_1", Kind: logic.KindVibration, Enabled: false},
		{ID: "nfc_reader_1", Kind: logic.KindCardReader, Enabled: true, CardUID: "04A1B2C3"},
	}
}

func TestNewTracker(t *testing.T) {
	cfg := Config{NodeID: "hall", TickMs: 100, Broker: "tcp://localhost:1883", HTTPAddr: ":8080"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.TickMs != 100 {
		t.Errorf("Config.TickMs: got %d, want 100", snap.Config.TickMs)
	}
	if snap.Config.HTTPAddr != ":8080" {
		t.Errorf("Config.HTTPAddr: got %q, want %q", snap.Config.HTTPAddr, ":8080")
	}
	if snap.Link.Connected {
		t.Error("expected Link.Connected=false initially")
	}
	if len(snap.Sensors) != 0 {
		t.Errorf("expected no sensors initially, got %d", len(snap.Sensors))
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.Update(testSensors())

	snap := tr.Snapshot()
	if len(snap.Sensors) != 4 {
		t.Fatalf("expected 4 sensors, got %d", len(snap.Sensors))
	}
	door, ok := snap.Sensor("door_sensor_1")
	if !ok || door.Door == nil || !door.Door.Locked {
		t.Errorf("door: got (%+v, %v)", door, ok)
	}
	if _, ok := snap.Sensor("missing"); ok {
		t.Error("expected miss for unknown sensor")
	}
	if snap.Alerts() != 3 {
		t.Errorf("Alerts: got %d, want 3", snap.Alerts())
	}
}

func TestSetLinkAndClock(t *testing.T) {
	tr := NewTracker(start, Config{})

	tr.SetLink(LinkInfo{Connected: true, LastAttempt: start})
	tr.SetClock(ClockInfo{Synced: true, Offset: 250 * time.Millisecond})

	snap := tr.Snapshot()
	if !snap.Link.Connected || !snap.Link.LastAttempt.Equal(start) {
		t.Errorf("Link: %+v", snap.Link)
	}
	if !snap.Clock.Synced || snap.Clock.Offset != 250*time.Millisecond {
		t.Errorf("Clock: %+v", snap.Clock)
	}

	tr.SetLink(LinkInfo{Connected: false, LastAttempt: start.Add(time.Minute)})
	if tr.Snapshot().Link.Connected {
		t.Error("expected Link.Connected=false")
	}
}

func TestSnapshotUptime(t *testing.T) {
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(start, Config{})

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	if snap.Now.Before(before) || snap.Now.After(after) {
		t.Errorf("Now (%v) not between %v and %v", snap.Now, before, after)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(start, Config{})
	sensors := testSensors()
	tr.Update(sensors)

	snap1 := tr.Snapshot()
	snap1.Sensors[0].Value = 1

	if tr.Snapshot().Sensors[0].Value != 950 {
		t.Error("snapshot should be a copy; tracker state was modified")
	}

	tr.Update(sensors[:1])
	if len(snap1.Sensors) != 4 {
		t.Error("snapshot should be a copy; sensor list was modified")
	}
}

func TestFormatJSON(t *testing.T) {
	snap := Snapshot{
		Sensors:   testSensors(),
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
		Link:      LinkInfo{Connected: true, LastAttempt: start},
		Clock:     ClockInfo{Synced: true, Offset: 1500 * time.Millisecond},
		Config:    Config{NodeID: "hall", TickMs: 100, HeartbeatMs: 900000, Broker: "tcp://localhost:1883", HTTPAddr: ":8080"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	st := parsed.Status
	if st.Node != "hall" {
		t.Errorf("Node: got %q, want hall", st.Node)
	}
	if st.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", st.UptimeSeconds)
	}
	if !st.Link.Connected || st.Link.LastAttempt != "2026-01-01T00:00:00Z" {
		t.Errorf("Link: %+v", st.Link)
	}
	if !st.Clock.Synced || st.Clock.OffsetMs != 1500 {
		t.Errorf("Clock: %+v", st.Clock)
	}
	if st.Alerts != 3 {
		t.Errorf("Alerts: got %d, want 3", st.Alerts)
	}
	if len(st.Sensors) != 4 {
		t.Fatalf("expected 4 sensors, got %d", len(st.Sensors))
	}
	// Event and Reason should be omitted
	if st.Event != "" || st.Reason != "" {
		t.Errorf("expected empty Event/Reason for web format, got %q/%q", st.Event, st.Reason)
	}
}

func TestFormatJSONSensorFields(t *testing.T) {
	snap := Snapshot{Sensors: testSensors(), StartTime: start, Now: start}

	var raw map[string]map[string]any
	if err := json.Unmarshal(FormatJSON(snap), &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	sensors := raw["status"]["sensors"].([]any)

	gas := sensors[0].(map[string]any)
	if gas["value"] != 950.0 || gas["kind"] != "GAS" {
		t.Errorf("gas: %v", gas)
	}
	if _, exists := gas["open"]; exists {
		t.Error("gas should not carry door fields")
	}

	door := sensors[1].(map[string]any)
	if door["open"] != true || door["locked"] != true || door["open_since"] != "2026-01-01T00:00:30Z" {
		t.Errorf("door: %v", door)
	}

	vib := sensors[2].(map[string]any)
	if vib["hit_count"] != 0.0 {
		t.Errorf("vibration hit_count: %v", vib["hit_count"])
	}
	if _, exists := vib["value"]; exists {
		t.Error("unsampled sensor should omit value")
	}

	card := sensors[3].(map[string]any)
	if card["card"] != "04A1B2C3" {
		t.Errorf("card: %v", card)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	snap := Snapshot{
		Sensors:   testSensors(),
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
		Link:      LinkInfo{Connected: true},
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, EventHeartbeat, "")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "HEARTBEAT" {
		t.Errorf("Event: got %q, want HEARTBEAT", parsed.Status.Event)
	}
	if parsed.Status.Reason != "" {
		t.Errorf("Reason: got %q, want empty", parsed.Status.Reason)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
}

func TestFormatStatusEventShutdown(t *testing.T) {
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(30 * time.Minute),
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, EventShutdown, "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(time.Second),
	}

	data := FormatStatusEvent(snap, EventStartup, "")

	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestFormatWill(t *testing.T) {
	expected := `{"status":{"event":"OFFLINE","reason":"MQTT_DISCONNECT","node":"hall"}}`
	if got := string(FormatWill("hall")); got != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", got, expected)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(start, Config{})
	var wg sync.WaitGroup

	// Writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(testSensors())
			tr.SetLink(LinkInfo{Connected: i%2 == 0})
			tr.SetClock(ClockInfo{Synced: true})
		}
	}()

	// Reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()
}

func TestTrackerSetNow(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.SetNow(func() time.Time { return start.Add(90 * time.Second) })

	snap := tr.Snapshot()
	if snap.Uptime() != 90*time.Second {
		t.Errorf("uptime: got %v, want 90s", snap.Uptime())
	}
}
