// Package cloudsync pushes sensor state and alerts to the remote store.
// Every push is best effort: it is skipped while the link is down and
// dropped on failure. Nothing is queued or retried.
package cloudsync

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/home-sentinel/internal/logic"
	"github.com/sweeney/home-sentinel/internal/metrics"
	"github.com/sweeney/home-sentinel/internal/mqtt"
)

// ErrGated is reported when a push is skipped because the link is down.
var ErrGated = errors.New("cloudsync: link down")

// Store is the remote store.
type Store interface {
	SetValue(path string, value any) error
	PushRecord(path string, payload []byte) error
}

// Gate reports link liveness.
type Gate interface {
	IsConnected() bool
}

// WallClock supplies alert timestamps.
type WallClock interface {
	Now() time.Time
}

// AlertRecord is the JSON document stored under /alerts/{id}.
type AlertRecord struct {
	Type           string `json:"type"`
	Message        string `json:"message"`
	Timestamp      int64  `json:"timestamp"`
	SensorID       string `json:"sensorId"`
	IsAcknowledged bool   `json:"isAcknowledged"`
}

// Sync is the only path from the core to the store.
type Sync struct {
	store   Store
	gate    Gate
	clock   WallClock
	log     *slog.Logger
	metrics *metrics.Metrics
	newID   func() string
}

// New creates a Sync. A nil clock uses the system time.
func New(store Store, gate Gate, clock WallClock, log *slog.Logger, m *metrics.Metrics) *Sync {
	if log == nil {
		log = slog.Default()
	}
	if clock == nil {
		clock = systemClock{}
	}
	return &Sync{
		store:   store,
		gate:    gate,
		clock:   clock,
		log:     log,
		metrics: m,
		newID:   uuid.NewString,
	}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// PushValue writes a sensor reading.
func (s *Sync) PushValue(sensorID, field string, value float64) bool {
	s.metrics.SetValue(sensorID, field, value)
	path := mqtt.SensorPath(sensorID, field)
	return s.do(metrics.KindValue, path, func() error {
		return s.store.SetValue(path, value)
	})
}

// PushEnabled writes a sensor's isEnabled flag.
func (s *Sync) PushEnabled(sensorID string, enabled bool) bool {
	return s.pushFlag(sensorID, logic.FieldEnabled, enabled)
}

// PushLocked writes a sensor's isLocked flag.
func (s *Sync) PushLocked(sensorID string, locked bool) bool {
	return s.pushFlag(sensorID, logic.FieldLocked, locked)
}

func (s *Sync) pushFlag(sensorID, field string, v bool) bool {
	path := mqtt.SensorPath(sensorID, field)
	return s.do(metrics.KindValue, path, func() error {
		return s.store.SetValue(path, v)
	})
}

// PushUpdate writes one decision update for sensorID.
func (s *Sync) PushUpdate(sensorID string, u logic.Update) bool {
	switch v := u.Value.(type) {
	case float64:
		return s.PushValue(sensorID, u.Field, v)
	case bool:
		return s.pushFlag(sensorID, u.Field, v)
	default:
		s.log.Warn("sync: unsupported update", "sensor", sensorID, "field", u.Field, "type", fmt.Sprintf("%T", u.Value))
		return false
	}
}

// PushAlert stores alert as a new record with a random ID.
func (s *Sync) PushAlert(a logic.Alert) bool {
	s.metrics.ObserveAlert(string(a.Type))
	s.log.Info("alert", "sensor", a.SensorID, "type", a.Type, "message", a.Message)

	rec := AlertRecord{
		Type:      string(a.Type),
		Message:   a.Message,
		Timestamp: s.clock.Now().Unix(),
		SensorID:  a.SensorID,
	}
	path := mqtt.AlertPath(s.newID())
	return s.do(metrics.KindAlert, path, func() error {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode alert: %w", err)
		}
		return s.store.PushRecord(path, payload)
	})
}

// PushStatus writes the node status document.
func (s *Sync) PushStatus(payload []byte) bool {
	return s.do(metrics.KindStatus, mqtt.StatusPath, func() error {
		return s.store.SetValue(mqtt.StatusPath, json.RawMessage(payload))
	})
}

// Apply pushes every update and the alert, if any, of d.
func (s *Sync) Apply(sensorID string, d logic.Decision) {
	for _, u := range d.Updates {
		s.PushUpdate(sensorID, u)
	}
	if d.Alert != nil {
		s.PushAlert(*d.Alert)
	}
}

func (s *Sync) do(kind, path string, fn func() error) bool {
	err := s.gated(fn)
	switch {
	case err == nil:
		s.metrics.ObservePush(kind, metrics.ResultOK)
		return true
	case errors.Is(err, ErrGated):
		s.metrics.ObservePush(kind, metrics.ResultGated)
		s.log.Debug("sync: skipped", "path", path)
		return false
	default:
		s.metrics.ObservePush(kind, metrics.ResultDropped)
		s.log.Warn("sync: push dropped", "path", path, "err", err)
		return false
	}
}

func (s *Sync) gated(fn func() error) error {
	if !s.gate.IsConnected() {
		return ErrGated
	}
	return fn()
}
