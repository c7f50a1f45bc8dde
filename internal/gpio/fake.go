package gpio

import "errors"

// FakeDigital is a test double that returns scripted input values.
type FakeDigital struct {
	// Samples contains scripted values to return.
	// Each call to Read() consumes the next sample.
	Samples []bool

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeDigital creates a FakeDigital with the given samples.
func NewFakeDigital(samples ...bool) *FakeDigital {
	return &FakeDigital{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeDigital) Read() (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}
	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return sample, nil
}

// Close marks the reader as closed.
func (f *FakeDigital) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the reader to the beginning of samples.
func (f *FakeDigital) Reset() {
	f.index = 0
	f.Closed = false
}

// FakeEdge is a test double for an edge-triggered input.
// Fire simulates edges arriving from the event goroutine.
type FakeEdge struct {
	fn func()

	// AttachError, if set, will be returned by Attach()
	AttachError error

	// Attaches counts successful Attach calls.
	Attaches int

	// Detaches counts Detach calls on an attached source.
	Detaches int
}

// NewFakeEdge creates a detached FakeEdge.
func NewFakeEdge() *FakeEdge {
	return &FakeEdge{}
}

// Attach stores fn as the edge callback.
func (f *FakeEdge) Attach(fn func()) error {
	if f.AttachError != nil {
		return f.AttachError
	}
	f.fn = fn
	f.Attaches++
	return nil
}

// Detach drops the callback.
func (f *FakeEdge) Detach() error {
	if f.fn != nil {
		f.Detaches++
	}
	f.fn = nil
	return nil
}

// Attached reports whether a callback is installed.
func (f *FakeEdge) Attached() bool {
	return f.fn != nil
}

// Fire delivers n rising edges. Edges on a detached source are lost,
// as they would be on hardware.
func (f *FakeEdge) Fire(n int) {
	for i := 0; i < n; i++ {
		if f.fn != nil {
			f.fn()
		}
	}
}

// FakeAnalog is a test double that returns scripted ADC counts.
type FakeAnalog struct {
	Samples   []int
	index     int
	ReadError error
}

// NewFakeAnalog creates a FakeAnalog with the given samples.
func NewFakeAnalog(samples ...int) *FakeAnalog {
	return &FakeAnalog{Samples: samples}
}

// ReadRaw returns the next scripted count, repeating the last one.
func (f *FakeAnalog) ReadRaw() (int, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if len(f.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return sample, nil
}

// FakeRange is a test double that returns scripted distances.
type FakeRange struct {
	Samples   []float64
	index     int
	ReadError error
}

// NewFakeRange creates a FakeRange with the given samples.
func NewFakeRange(samples ...float64) *FakeRange {
	return &FakeRange{Samples: samples}
}

// Measure returns the next scripted distance, repeating the last one.
func (f *FakeRange) Measure() (float64, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if len(f.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return sample, nil
}
