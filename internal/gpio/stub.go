//go:build !linux

package gpio

import (
	"errors"
	"time"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// Chip is not available on non-Linux platforms.
type Chip struct{}

// OpenChip returns an error on non-Linux platforms.
func OpenChip(name string) (*Chip, error) {
	return nil, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (c *Chip) Close() error { return nil }

// DigitalPin is not available on non-Linux platforms.
type DigitalPin struct{}

// DigitalInput returns an error on non-Linux platforms.
func (c *Chip) DigitalInput(pin int, pullUp bool) (*DigitalPin, error) {
	return nil, errUnsupported
}

// Read is not implemented on non-Linux platforms.
func (p *DigitalPin) Read() (bool, error) { return false, errUnsupported }

// Close is not implemented on non-Linux platforms.
func (p *DigitalPin) Close() error { return nil }

// EdgePin is not available on non-Linux platforms.
type EdgePin struct{}

// EdgeInput returns an inert pin on non-Linux platforms.
func (c *Chip) EdgeInput(pin int) *EdgePin { return &EdgePin{} }

// Attach is not implemented on non-Linux platforms.
func (e *EdgePin) Attach(fn func()) error { return errUnsupported }

// Detach is not implemented on non-Linux platforms.
func (e *EdgePin) Detach() error { return nil }

// Ultrasonic is not available on non-Linux platforms.
type Ultrasonic struct{}

// Ultrasonic returns an error on non-Linux platforms.
func (c *Chip) Ultrasonic(trigPin, echoPin int, timeout time.Duration) (*Ultrasonic, error) {
	return nil, errUnsupported
}

// Measure is not implemented on non-Linux platforms.
func (u *Ultrasonic) Measure() (float64, error) { return 0, errUnsupported }

// Close is not implemented on non-Linux platforms.
func (u *Ultrasonic) Close() error { return nil }
