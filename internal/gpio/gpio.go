// Package gpio provides raw sensor inputs with hardware abstraction.
// The real implementations use the Linux GPIO character device and the IIO
// ADC sysfs interface. The fake implementations allow testing without hardware.
package gpio

import "time"

// DigitalReader reads a single binary input.
type DigitalReader interface {
	// Read returns the logical state of the input (true = active).
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// EdgeSource delivers rising edges to a callback.
// The callback runs on the event goroutine, never on the caller's.
type EdgeSource interface {
	// Attach starts delivering rising edges to fn.
	Attach(fn func()) error

	// Detach stops edge delivery. Detach on a detached source is a no-op.
	Detach() error
}

// AnalogReader reads raw ADC counts.
type AnalogReader interface {
	ReadRaw() (int, error)
}

// RangeFinder measures a distance in centimetres.
type RangeFinder interface {
	Measure() (float64, error)
}

// Default pin definitions (BCM numbering).
const (
	DefaultPinDoor      = 13
	DefaultPinVibration = 19
	DefaultPinTrig1     = 23
	DefaultPinEcho1     = 24
	DefaultPinTrig2     = 20
	DefaultPinEcho2     = 21
)

// Speed of sound in cm/s at ~20°C.
const speedOfSoundCMPerSec = 34300.0

// pulseToCM converts an echo round-trip time to a one-way distance.
func pulseToCM(d time.Duration) float64 {
	return d.Seconds() * speedOfSoundCMPerSec / 2
}
