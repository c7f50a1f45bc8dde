//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// Chip is an open GPIO character device that hands out sensor inputs.
type Chip struct {
	chip *gpiocdev.Chip
}

// OpenChip opens the named GPIO chip, e.g. "gpiochip0".
func OpenChip(name string) (*Chip, error) {
	chip, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	return &Chip{chip: chip}, nil
}

// Close releases the chip. Lines handed out must be closed first.
func (c *Chip) Close() error {
	return c.chip.Close()
}

// DigitalPin is a single input line.
type DigitalPin struct {
	line *gpiocdev.Line
	pin  int
}

// DigitalInput requests pin as an input. With pullUp the line idles high,
// as a reed switch wired to ground does when the magnet is away.
func (c *Chip) DigitalInput(pin int, pullUp bool) (*DigitalPin, error) {
	bias := gpiocdev.WithPullDown
	if pullUp {
		bias = gpiocdev.WithPullUp
	}
	line, err := c.chip.RequestLine(pin, gpiocdev.AsInput, bias)
	if err != nil {
		return nil, fmt.Errorf("request pin %d: %w", pin, err)
	}
	return &DigitalPin{line: line, pin: pin}, nil
}

// Read returns true when the line is high.
func (p *DigitalPin) Read() (bool, error) {
	v, err := p.line.Value()
	if err != nil {
		return false, fmt.Errorf("read pin %d: %w", p.pin, err)
	}
	return v == 1, nil
}

// Close releases the line.
// Reconfigures it to input with pull-down (matching Pi boot defaults) before
// closing to ensure clean state for system shutdown/reboot.
func (p *DigitalPin) Close() error {
	var errs []error
	if err := p.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", p.pin, err))
	}
	if err := p.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close pin %d: %w", p.pin, err))
	}
	return errors.Join(errs...)
}

// EdgePin delivers rising edges of an input line to a callback.
type EdgePin struct {
	chip *gpiocdev.Chip
	pin  int
	line *gpiocdev.Line
}

// EdgeInput prepares pin for edge detection. The line is not requested
// until Attach.
func (c *Chip) EdgeInput(pin int) *EdgePin {
	return &EdgePin{chip: c.chip, pin: pin}
}

// Attach requests the line with rising edge detection. fn runs on the
// gpiocdev event goroutine.
func (e *EdgePin) Attach(fn func()) error {
	if e.line != nil {
		return nil
	}
	line, err := e.chip.RequestLine(e.pin,
		gpiocdev.WithPullDown,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) { fn() }),
	)
	if err != nil {
		return fmt.Errorf("request edge pin %d: %w", e.pin, err)
	}
	e.line = line
	return nil
}

// Detach releases the line, stopping edge delivery.
func (e *EdgePin) Detach() error {
	if e.line == nil {
		return nil
	}
	err := e.line.Close()
	e.line = nil
	if err != nil {
		return fmt.Errorf("close edge pin %d: %w", e.pin, err)
	}
	return nil
}

// Ultrasonic is an HC-SR04 style range finder: a trigger output and an echo
// input whose high pulse width is the round-trip time.
type Ultrasonic struct {
	trig    *gpiocdev.Line
	echo    *gpiocdev.Line
	events  chan gpiocdev.LineEvent
	timeout time.Duration
}

// Ultrasonic requests the trigger and echo lines. timeout bounds a single
// measurement.
func (c *Chip) Ultrasonic(trigPin, echoPin int, timeout time.Duration) (*Ultrasonic, error) {
	u := &Ultrasonic{
		events:  make(chan gpiocdev.LineEvent, 8),
		timeout: timeout,
	}

	trig, err := c.chip.RequestLine(trigPin, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request trig pin %d: %w", trigPin, err)
	}

	echo, err := c.chip.RequestLine(echoPin,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(u.handle),
	)
	if err != nil {
		trig.Close()
		return nil, fmt.Errorf("request echo pin %d: %w", echoPin, err)
	}

	u.trig = trig
	u.echo = echo
	return u, nil
}

func (u *Ultrasonic) handle(evt gpiocdev.LineEvent) {
	select {
	case u.events <- evt:
	default:
	}
}

// Measure fires a 10µs trigger pulse and times the echo pulse using the
// kernel event timestamps.
func (u *Ultrasonic) Measure() (float64, error) {
	for len(u.events) > 0 {
		<-u.events
	}

	if err := u.trig.SetValue(1); err != nil {
		return 0, fmt.Errorf("set trig: %w", err)
	}
	time.Sleep(10 * time.Microsecond)
	if err := u.trig.SetValue(0); err != nil {
		return 0, fmt.Errorf("clear trig: %w", err)
	}

	deadline := time.NewTimer(u.timeout)
	defer deadline.Stop()

	var rise time.Duration
	var haveRise bool
	for {
		select {
		case evt := <-u.events:
			switch {
			case evt.Type == gpiocdev.LineEventRisingEdge:
				rise = evt.Timestamp
				haveRise = true
			case haveRise:
				return pulseToCM(evt.Timestamp - rise), nil
			}
		case <-deadline.C:
			return 0, errors.New("echo timeout")
		}
	}
}

// Close releases both lines.
func (u *Ultrasonic) Close() error {
	return errors.Join(u.trig.Close(), u.echo.Close())
}
