package sensor

import (
	"io"
	"time"

	"github.com/sweeney/home-sentinel/internal/gpio"
	"github.com/sweeney/home-sentinel/internal/logic"
)

// Conversion turns ADC counts into ppm.
type Conversion struct {
	FullScale  float64 // counts at VRef
	VRef       float64 // volts
	PPMPerVolt float64
}

// DefaultConversion matches a 12-bit ADC on a 3.3 V MQ-series sensor.
var DefaultConversion = Conversion{FullScale: 4095, VRef: 3.3, PPMPerVolt: 1000}

// PPM converts raw ADC counts.
func (c Conversion) PPM(raw int) float64 {
	return float64(raw) * c.VRef * c.PPMPerVolt / c.FullScale
}

// GasConfig configures a gas machine.
type GasConfig struct {
	Common
	Threshold  float64
	Epsilon    float64
	Conversion Conversion
}

// ProximityConfig configures an ultrasonic proximity machine.
type ProximityConfig struct {
	Common
	ThresholdCM float64
	Epsilon     float64
}

// Analog samples a continuous reading and applies an analog tracker.
// Gas and proximity sensors share it.
type Analog struct {
	base
	sample  func() (float64, error)
	tracker *logic.AnalogTracker
	closer  io.Closer
}

// NewGas creates a gas machine reading ADC counts from src.
func NewGas(cfg GasConfig, src gpio.AnalogReader, deps Deps) *Analog {
	conv := cfg.Conversion
	if conv.FullScale == 0 {
		conv = DefaultConversion
	}
	a := &Analog{
		base:    deps.base(cfg.Common, logic.KindGas),
		tracker: logic.NewAnalogTracker(logic.GasConfig(cfg.ID, cfg.Threshold, cfg.Epsilon, cfg.Interval)),
		sample: func() (float64, error) {
			raw, err := src.ReadRaw()
			if err != nil {
				return 0, err
			}
			return conv.PPM(raw), nil
		},
	}
	a.closer, _ = src.(io.Closer)
	return a
}

// NewProximity creates a proximity machine measuring with src.
func NewProximity(cfg ProximityConfig, src gpio.RangeFinder, deps Deps) *Analog {
	a := &Analog{
		base:    deps.base(cfg.Common, logic.KindProximity),
		tracker: logic.NewAnalogTracker(logic.ProximityConfig(cfg.ID, cfg.ThresholdCM, cfg.Epsilon, cfg.Interval)),
		sample:  src.Measure,
	}
	a.closer, _ = src.(io.Closer)
	return a
}

// Begin publishes isEnabled.
func (a *Analog) Begin(now time.Time) error {
	a.beginFlags()
	return nil
}

// Update takes a sample when due.
func (a *Analog) Update(now time.Time) {
	if !a.enabled || !a.due(now) {
		return
	}
	a.markSampled(now)

	v, err := a.sample()
	if err != nil {
		a.readFailed(err)
		return
	}
	a.record(v)
	a.emit(a.tracker.Process(v, now))
}

// SetEnabled changes the machine state.
func (a *Analog) SetEnabled(enabled bool, now time.Time) {
	a.setEnabled(enabled)
}

// Snapshot returns the current view.
func (a *Analog) Snapshot() Snapshot {
	return a.snapshot()
}

// Close releases the source if it holds any resources.
func (a *Analog) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
