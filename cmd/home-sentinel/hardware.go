package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sweeney/home-sentinel/internal/config"
	"github.com/sweeney/home-sentinel/internal/gpio"
	"github.com/sweeney/home-sentinel/internal/nfc"
	"github.com/sweeney/home-sentinel/internal/sensor"
)

// hardware hands out the raw sources behind each sensor.
type hardware interface {
	DoorSwitch(pin int) (gpio.DigitalReader, error)
	VibrationEdges(pin int) gpio.EdgeSource
	Ultrasonic(trigPin, echoPin int, timeout time.Duration) (gpio.RangeFinder, error)
	GasADC(cfg config.ADCConfig) gpio.AnalogReader
	CardReader(port string, baud int) nfc.Source
	Close() error
}

// chipHardware opens sources on a GPIO chip, the IIO ADC and a serial port.
type chipHardware struct {
	chip *gpio.Chip
	log  *slog.Logger
}

func openHardware(chipName string, log *slog.Logger) (*chipHardware, error) {
	chip, err := gpio.OpenChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("init gpio: %w", err)
	}
	return &chipHardware{chip: chip, log: log}, nil
}

// DoorSwitch requests a pulled-up reed switch input: high means open.
func (h *chipHardware) DoorSwitch(pin int) (gpio.DigitalReader, error) {
	return h.chip.DigitalInput(pin, true)
}

func (h *chipHardware) VibrationEdges(pin int) gpio.EdgeSource {
	return h.chip.EdgeInput(pin)
}

func (h *chipHardware) Ultrasonic(trigPin, echoPin int, timeout time.Duration) (gpio.RangeFinder, error) {
	return h.chip.Ultrasonic(trigPin, echoPin, timeout)
}

func (h *chipHardware) GasADC(cfg config.ADCConfig) gpio.AnalogReader {
	if cfg.Path != "" {
		return gpio.NewIIOChannelAt(cfg.Path)
	}
	return gpio.NewIIOChannel(cfg.Device, cfg.Channel)
}

func (h *chipHardware) CardReader(port string, baud int) nfc.Source {
	return nfc.NewSerial(port, baud, h.log)
}

func (h *chipHardware) Close() error {
	return h.chip.Close()
}

// buildMachines creates one machine per configured sensor. On error every
// source opened so far is closed.
func buildMachines(cfg *config.Config, hw hardware, deps sensor.Deps) ([]sensor.Machine, error) {
	s := cfg.Sensors
	var machines []sensor.Machine
	fail := func(err error) ([]sensor.Machine, error) {
		errs := []error{err}
		for _, m := range machines {
			errs = append(errs, m.Close())
		}
		return nil, errors.Join(errs...)
	}

	machines = append(machines, sensor.NewGas(sensor.GasConfig{
		Common:    common(s.Gas.SensorBase),
		Threshold: s.Gas.PPMThreshold(),
		Epsilon:   s.Gas.Epsilon,
		Conversion: sensor.Conversion{
			FullScale:  s.Gas.ADC.FullScale,
			VRef:       s.Gas.ADC.VRef,
			PPMPerVolt: s.Gas.ADC.PPMPerVolt,
		},
	}, hw.GasADC(s.Gas.ADC), deps))

	door, err := hw.DoorSwitch(s.Door.Pin)
	if err != nil {
		return fail(fmt.Errorf("door %s: %w", s.Door.ID, err))
	}
	machines = append(machines, sensor.NewDoor(sensor.DoorConfig{
		Common:         common(s.Door.SensorBase),
		OpenThreshold:  s.Door.OpenThreshold,
		LeftOpenRepeat: s.Door.Repeat(),
		Heartbeat:      s.Door.Heartbeat,
		Locked:         s.Door.Locked,
	}, door, deps))

	machines = append(machines, sensor.NewVibration(sensor.VibrationConfig{
		Common:    common(s.Vibration.SensorBase),
		Window:    s.Vibration.Window,
		Threshold: s.Vibration.HitThreshold(),
	}, hw.VibrationEdges(s.Vibration.Pin), deps))

	for _, p := range s.Proximity {
		rf, err := hw.Ultrasonic(p.TrigPin, p.EchoPin, p.EchoTimeout)
		if err != nil {
			return fail(fmt.Errorf("proximity %s: %w", p.ID, err))
		}
		machines = append(machines, sensor.NewProximity(sensor.ProximityConfig{
			Common:      common(p.SensorBase),
			ThresholdCM: p.ThresholdCM,
			Epsilon:     p.Epsilon,
		}, rf, deps))
	}

	card := hw.CardReader(s.CardReader.Port, s.CardReader.Baud)
	if s.CardReader.IsEnabled() {
		// A missing reader is not fatal; polling retries the open.
		if err := card.Reinit(); err != nil {
			log := deps.Log
			if log == nil {
				log = slog.Default()
			}
			log.Warn("card reader unavailable", "port", s.CardReader.Port, "err", err)
		}
	}
	machines = append(machines, sensor.NewCardReader(sensor.CardConfig{
		Common:         common(s.CardReader.SensorBase),
		Suppression:    s.CardReader.Suppression,
		ReinitInterval: s.CardReader.ReinitInterval,
	}, card, deps))

	return machines, nil
}

func common(b config.SensorBase) sensor.Common {
	return sensor.Common{ID: b.ID, Interval: b.Interval, Enabled: b.IsEnabled()}
}
