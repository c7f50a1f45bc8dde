package nfc

// FakeSource is a test double that returns scripted polls.
type FakeSource struct {
	// UIDs contains scripted poll results; "" means no card.
	// Exhausted scripts return no card.
	UIDs  []string
	index int

	// PollError, if set, will be returned by Poll.
	PollError error

	// ReinitError, if set, will be returned by Reinit.
	ReinitError error

	// Reinits counts Reinit calls.
	Reinits int

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeSource creates a FakeSource with the given script.
func NewFakeSource(uids ...string) *FakeSource {
	return &FakeSource{UIDs: uids}
}

// Poll returns the next scripted UID.
func (f *FakeSource) Poll() (string, bool, error) {
	if f.PollError != nil {
		return "", false, f.PollError
	}
	if f.index >= len(f.UIDs) {
		return "", false, nil
	}
	uid := f.UIDs[f.index]
	f.index++
	return uid, uid != "", nil
}

// Reinit records the call.
func (f *FakeSource) Reinit() error {
	f.Reinits++
	f.Closed = false
	return f.ReinitError
}

// Close marks the source as closed.
func (f *FakeSource) Close() error {
	f.Closed = true
	return nil
}
