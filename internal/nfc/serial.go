package nfc

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"go.bug.st/serial"
)

var errReaderStopped = errors.New("nfc: serial reader stopped")

// SerialReader reads UID lines from a microcontroller driving the RFID
// module over a serial link. A background goroutine stores the most recent
// UID; Poll takes it. The goroutine is the only writer and Poll the only
// reader of the slot.
type SerialReader struct {
	portName string
	mode     *serial.Mode
	log      *slog.Logger

	latest  atomic.Pointer[string]
	stopped atomic.Bool

	port serial.Port
	done chan struct{}
}

// NewSerial returns a reader for portName (e.g. /dev/ttyUSB0) at the given
// baud rate. The port is not opened until Reinit; until then Poll reports
// the reader as stopped.
func NewSerial(portName string, baud int, log *slog.Logger) *SerialReader {
	if log == nil {
		log = slog.Default()
	}
	r := &SerialReader{
		portName: portName,
		mode:     &serial.Mode{BaudRate: baud},
		log:      log,
	}
	r.stopped.Store(true)
	return r
}

func (r *SerialReader) open() error {
	port, err := serial.Open(r.portName, r.mode)
	if err != nil {
		r.stopped.Store(true)
		return fmt.Errorf("open %s: %w", r.portName, err)
	}
	r.port = port
	r.done = make(chan struct{})
	r.latest.Store(nil)
	r.stopped.Store(false)
	go r.readLoop(port, r.done)
	return nil
}

func (r *SerialReader) readLoop(port serial.Port, done chan struct{}) {
	defer close(done)
	sc := bufio.NewScanner(port)
	for sc.Scan() {
		uid, err := ParseUID(sc.Text())
		if err != nil {
			r.log.Debug("nfc: ignoring line", "line", sc.Text(), "err", err)
			continue
		}
		s := FormatUID(uid)
		r.latest.Store(&s)
	}
	if err := sc.Err(); err != nil {
		r.log.Warn("nfc: serial read failed", "port", r.portName, "err", err)
	}
	r.stopped.Store(true)
}

// Poll returns the UID read since the previous poll, if any.
func (r *SerialReader) Poll() (string, bool, error) {
	if r.stopped.Load() {
		return "", false, errReaderStopped
	}
	p := r.latest.Swap(nil)
	if p == nil {
		return "", false, nil
	}
	return *p, true, nil
}

// Reinit closes and reopens the serial port.
func (r *SerialReader) Reinit() error {
	if err := r.Close(); err != nil {
		r.log.Warn("nfc: close before reinit", "err", err)
	}
	return r.open()
}

// Close closes the port and waits for the read goroutine to exit.
func (r *SerialReader) Close() error {
	if r.port == nil {
		return nil
	}
	err := r.port.Close()
	<-r.done
	r.port = nil
	return err
}
