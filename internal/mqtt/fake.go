package mqtt

import "sync"

// SetValueCall is one recorded SetValue.
type SetValueCall struct {
	Path  string
	Value any
}

// RecordCall is one recorded PushRecord.
type RecordCall struct {
	Path    string
	Payload []byte
}

// FakeStore records store writes for test assertions.
type FakeStore struct {
	mu sync.Mutex

	// Values contains every successful SetValue in order.
	Values []SetValueCall

	// Records contains every successful PushRecord in order.
	Records []RecordCall

	// Calls counts all write attempts, including failed ones.
	Calls int

	// SetValueError, if set, will be returned by SetValue.
	SetValueError error

	// PushRecordError, if set, will be returned by PushRecord.
	PushRecordError error

	// Connected controls the return value of IsConnected.
	Connected bool

	// ConnectError, if set, will be returned by Connect.
	ConnectError error

	// Connects counts Connect calls.
	Connects int

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeStore creates a disconnected FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{}
}

// Connect marks the store connected unless ConnectError is set.
func (f *FakeStore) Connect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Connects++
	if f.ConnectError != nil {
		return f.ConnectError
	}
	f.Connected = true
	return nil
}

// IsConnected reports whether the fake store is "connected".
func (f *FakeStore) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// SetConnected changes the connection state.
func (f *FakeStore) SetConnected(v bool) {
	f.mu.Lock()
	f.Connected = v
	f.mu.Unlock()
}

// SetValue records the write.
func (f *FakeStore) SetValue(path string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if f.SetValueError != nil {
		return f.SetValueError
	}
	f.Values = append(f.Values, SetValueCall{Path: path, Value: value})
	return nil
}

// PushRecord records the write.
func (f *FakeStore) PushRecord(path string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if f.PushRecordError != nil {
		return f.PushRecordError
	}
	f.Records = append(f.Records, RecordCall{Path: path, Payload: payload})
	return nil
}

// Close marks the store as closed.
func (f *FakeStore) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// Last returns the most recent value written at path.
func (f *FakeStore) Last(path string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.Values) - 1; i >= 0; i-- {
		if f.Values[i].Path == path {
			return f.Values[i].Value, true
		}
	}
	return nil, false
}

// WritesTo returns all values written at path.
func (f *FakeStore) WritesTo(path string) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []any
	for _, v := range f.Values {
		if v.Path == path {
			out = append(out, v.Value)
		}
	}
	return out
}

// Reset clears recorded writes.
func (f *FakeStore) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Values = nil
	f.Records = nil
	f.Calls = 0
	f.SetValueError = nil
	f.PushRecordError = nil
}
