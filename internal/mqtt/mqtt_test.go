package mqtt

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPaths(t *testing.T) {
	if got := SensorPath("gas_sensor_1", "gas_value"); got != "/sensors/gas_sensor_1/gas_value" {
		t.Errorf("SensorPath: got %q", got)
	}
	if got := AlertPath("abc"); got != "/alerts/abc" {
		t.Errorf("AlertPath: got %q", got)
	}
}

func TestTopic(t *testing.T) {
	tests := []struct {
		prefix, path, want string
	}{
		{"home/sentinel", "/node/status", "home/sentinel/node/status"},
		{"home/sentinel/", "/node/status", "home/sentinel/node/status"},
		{"", "/alerts/x", "/alerts/x"},
	}
	for _, tt := range tests {
		if got := Topic(tt.prefix, tt.path); got != tt.want {
			t.Errorf("Topic(%q, %q): got %q, want %q", tt.prefix, tt.path, got, tt.want)
		}
	}
}

func TestCommandFilter(t *testing.T) {
	if got := CommandFilter("home/sentinel"); got != "home/sentinel/sensors/+/+/set" {
		t.Errorf("got %q", got)
	}
}

func TestParseCommand(t *testing.T) {
	const prefix = "home/sentinel"
	tests := []struct {
		name    string
		topic   string
		payload string
		want    Command
		wantErr bool
	}{
		{"enable", "home/sentinel/sensors/gas_sensor_1/isEnabled/set", "true",
			Command{SensorID: "gas_sensor_1", Field: "isEnabled", Value: true}, false},
		{"unlock", "home/sentinel/sensors/door_sensor_1/isLocked/set", " false\n",
			Command{SensorID: "door_sensor_1", Field: "isLocked", Value: false}, false},
		{"numeric", "home/sentinel/sensors/door_sensor_1/isLocked/set", "1",
			Command{SensorID: "door_sensor_1", Field: "isLocked", Value: true}, false},
		{"unknown field", "home/sentinel/sensors/gas_sensor_1/value/set", "1", Command{}, true},
		{"other prefix", "other/sensors/gas_sensor_1/isEnabled/set", "true", Command{}, true},
		{"missing set", "home/sentinel/sensors/gas_sensor_1/isEnabled", "true", Command{}, true},
		{"too deep", "home/sentinel/sensors/a/b/isEnabled/set", "true", Command{}, true},
		{"empty id", "home/sentinel/sensors//isEnabled/set", "true", Command{}, true},
		{"bad payload", "home/sentinel/sensors/gas_sensor_1/isEnabled/set", "maybe", Command{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(prefix, tt.topic, []byte(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNewClientOptions(t *testing.T) {
	c := NewClient(Options{
		Broker:      "tcp://127.0.0.1:1883",
		ClientID:    "node-1",
		TopicPrefix: "home/sentinel",
		WillPayload: []byte(`{"gone":true}`),
	}, nil, quietLogger())

	r := c.client.OptionsReader()
	if r.ClientID() != "node-1" {
		t.Errorf("client id: got %q", r.ClientID())
	}
	if r.AutoReconnect() {
		t.Error("auto reconnect must be off")
	}
	if !r.WillEnabled() || !r.WillRetained() {
		t.Error("expected retained will")
	}
	if r.WillTopic() != "home/sentinel/node/status" {
		t.Errorf("will topic: got %q", r.WillTopic())
	}
	if string(r.WillPayload()) != `{"gone":true}` {
		t.Errorf("will payload: got %s", r.WillPayload())
	}
	if r.ConnectTimeout() != DefaultConnectTimeout {
		t.Errorf("connect timeout: got %v", r.ConnectTimeout())
	}
}

func TestClientPublishWhileDisconnected(t *testing.T) {
	c := NewClient(Options{Broker: "tcp://127.0.0.1:1", PublishTimeout: time.Millisecond}, nil, quietLogger())

	if c.IsConnected() {
		t.Fatal("new client should not be connected")
	}
	if err := c.SetValue("/sensors/x/value", 1.0); !errors.Is(err, ErrNotConnected) {
		t.Errorf("SetValue: got %v, want ErrNotConnected", err)
	}
	if err := c.PushRecord("/alerts/x", []byte(`{}`)); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PushRecord: got %v, want ErrNotConnected", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestClientSetValueEncodeError(t *testing.T) {
	c := NewClient(Options{Broker: "tcp://127.0.0.1:1"}, nil, quietLogger())
	if err := c.SetValue("/x", make(chan int)); err == nil || errors.Is(err, ErrNotConnected) {
		t.Errorf("expected encode error, got %v", err)
	}
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

func TestClientHandleMessage(t *testing.T) {
	var got []Command
	c := NewClient(Options{TopicPrefix: "p"}, func(cmd Command) { got = append(got, cmd) }, quietLogger())

	c.handleMessage(nil, fakeMessage{topic: "p/sensors/door_sensor_1/isLocked/set", payload: []byte("true")})
	c.handleMessage(nil, fakeMessage{topic: "p/sensors/door_sensor_1/bogus/set", payload: []byte("true")})

	if len(got) != 1 {
		t.Fatalf("expected 1 command, got %d", len(got))
	}
	want := Command{SensorID: "door_sensor_1", Field: "isLocked", Value: true}
	if got[0] != want {
		t.Errorf("got %+v, want %+v", got[0], want)
	}
}

func TestDefaultWillPayload(t *testing.T) {
	o := Options{}
	o.applyDefaults()

	var parsed map[string]map[string]string
	if err := json.Unmarshal(o.WillPayload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed["status"]["event"] != "OFFLINE" {
		t.Errorf("unexpected will: %s", o.WillPayload)
	}
	if o.PublishTimeout != DefaultPublishTimeout {
		t.Errorf("publish timeout: got %v", o.PublishTimeout)
	}
}

func TestFakeStore(t *testing.T) {
	f := NewFakeStore()

	if f.IsConnected() {
		t.Error("should start disconnected")
	}
	if err := f.Connect(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.IsConnected() || f.Connects != 1 {
		t.Error("expected connected after Connect")
	}

	f.SetValue("/sensors/a/value", 1.0)
	f.SetValue("/sensors/b/value", 2.0)
	f.SetValue("/sensors/a/value", 3.0)
	f.PushRecord("/alerts/1", []byte(`{}`))

	if v, ok := f.Last("/sensors/a/value"); !ok || v != 3.0 {
		t.Errorf("Last: got (%v, %v)", v, ok)
	}
	if _, ok := f.Last("/sensors/c/value"); ok {
		t.Error("Last should miss unknown path")
	}
	if got := f.WritesTo("/sensors/a/value"); len(got) != 2 {
		t.Errorf("WritesTo: got %v", got)
	}
	if len(f.Records) != 1 || f.Calls != 4 {
		t.Errorf("records=%d calls=%d", len(f.Records), f.Calls)
	}

	f.Reset()
	if len(f.Values) != 0 || len(f.Records) != 0 || f.Calls != 0 {
		t.Error("Reset should clear writes")
	}
}

func TestFakeStoreErrors(t *testing.T) {
	f := NewFakeStore()
	f.ConnectError = errors.New("refused")
	f.SetValueError = errors.New("boom")
	f.PushRecordError = errors.New("boom")

	if err := f.Connect(); err == nil {
		t.Error("expected connect error")
	}
	if f.IsConnected() {
		t.Error("failed connect must leave store disconnected")
	}
	if err := f.SetValue("/x", 1); err == nil {
		t.Error("expected SetValue error")
	}
	if err := f.PushRecord("/y", nil); err == nil {
		t.Error("expected PushRecord error")
	}
	if len(f.Values) != 0 || len(f.Records) != 0 {
		t.Error("failed writes must not be recorded")
	}
	if f.Calls != 2 {
		t.Errorf("calls: got %d, want 2", f.Calls)
	}

	f.Close()
	if !f.Closed {
		t.Error("expected closed")
	}
}
