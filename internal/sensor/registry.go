package sensor

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sweeney/home-sentinel/internal/logic"
)

// Command is a request to change a sensor flag.
type Command struct {
	SensorID string
	Field    string // logic.FieldEnabled or logic.FieldLocked
	Value    bool
}

// ErrUnknownSensor is returned for commands naming no configured sensor.
var ErrUnknownSensor = errors.New("unknown sensor")

// Registry holds every machine and dispatches ticks and commands to them.
type Registry struct {
	machines []Machine
	byID     map[string]Machine
	log      *slog.Logger
}

// NewRegistry creates a registry. Sensor IDs must be unique.
func NewRegistry(log *slog.Logger, machines ...Machine) (*Registry, error) {
	if log == nil {
		log = slog.Default()
	}
	r := &Registry{byID: make(map[string]Machine, len(machines)), log: log}
	for _, m := range machines {
		if _, dup := r.byID[m.ID()]; dup {
			return nil, fmt.Errorf("duplicate sensor id %q", m.ID())
		}
		r.byID[m.ID()] = m
		r.machines = append(r.machines, m)
	}
	return r, nil
}

// Begin starts every machine. A machine that fails to start stays in the
// registry; its error is returned joined with the others.
func (r *Registry) Begin(now time.Time) error {
	var errs []error
	for _, m := range r.machines {
		if err := m.Begin(now); err != nil {
			errs = append(errs, fmt.Errorf("begin %s: %w", m.ID(), err))
		}
	}
	return errors.Join(errs...)
}

// Tick updates every machine in registration order.
func (r *Registry) Tick(now time.Time) {
	for _, m := range r.machines {
		m.Update(now)
	}
}

// Apply executes a command.
func (r *Registry) Apply(cmd Command, now time.Time) error {
	m, ok := r.byID[cmd.SensorID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSensor, cmd.SensorID)
	}
	switch cmd.Field {
	case logic.FieldEnabled:
		m.SetEnabled(cmd.Value, now)
	case logic.FieldLocked:
		l, ok := m.(Locker)
		if !ok {
			return fmt.Errorf("sensor %q has no lock", cmd.SensorID)
		}
		l.SetLocked(cmd.Value, now)
	default:
		return fmt.Errorf("unknown field %q", cmd.Field)
	}
	r.log.Info("sensor: command applied", "sensor", cmd.SensorID, "field", cmd.Field, "value", cmd.Value)
	return nil
}

// Get returns the machine with the given ID.
func (r *Registry) Get(id string) (Machine, bool) {
	m, ok := r.byID[id]
	return m, ok
}

// Snapshots returns a view of every machine in registration order.
func (r *Registry) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, len(r.machines))
	for _, m := range r.machines {
		out = append(out, m.Snapshot())
	}
	return out
}

// Close releases every machine's hardware.
func (r *Registry) Close() error {
	var errs []error
	for _, m := range r.machines {
		if err := m.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", m.ID(), err))
		}
	}
	return errors.Join(errs...)
}
