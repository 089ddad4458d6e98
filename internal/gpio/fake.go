package gpio

import "sync"

// FakeBoard is a test double with settable sensor levels that records
// every output write.
type FakeBoard struct {
	mu sync.Mutex

	opened bool
	closed bool
	onEdge EdgeFunc

	// RelayWrites records every value written to the relay, in order.
	RelayWrites []bool

	// LEDWrites records every value written to the status indicator.
	LEDWrites []bool

	// Reads counts calls to Read.
	Reads int

	// ReadError, if set, will be returned by Read()
	ReadError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeBoard creates a FakeBoard that reports edges to onEdge.
func NewFakeBoard(onEdge EdgeFunc) *FakeBoard {
	return &FakeBoard{onEdge: onEdge}
}

// SetSensors changes the logical sensor states and fires one edge per
// sensor that changed, like the real drivers.
func (f *FakeBoard) SetSensors(opened, closed bool) {
	f.mu.Lock()
	edges := 0
	if f.opened != opened {
		edges++
	}
	if f.closed != closed {
		edges++
	}
	f.opened, f.closed = opened, closed
	cb := f.onEdge
	f.mu.Unlock()

	for i := 0; i < edges && cb != nil; i++ {
		cb()
	}
}

// Read returns the current logical sensor states.
func (f *FakeBoard) Read() (bool, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reads++
	if f.ReadError != nil {
		return false, false, f.ReadError
	}
	return f.opened, f.closed, nil
}

// SetRelay records the relay write.
func (f *FakeBoard) SetRelay(on bool) error {
	f.mu.Lock()
	f.RelayWrites = append(f.RelayWrites, on)
	f.mu.Unlock()
	return nil
}

// SetLED records the status indicator write.
func (f *FakeBoard) SetLED(on bool) error {
	f.mu.Lock()
	f.LEDWrites = append(f.LEDWrites, on)
	f.mu.Unlock()
	return nil
}

// Pulses returns the number of completed high-then-low relay cycles.
func (f *FakeBoard) Pulses() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for i := 1; i < len(f.RelayWrites); i++ {
		if f.RelayWrites[i-1] && !f.RelayWrites[i] {
			n++
		}
	}
	return n
}

// Close marks the board as closed.
func (f *FakeBoard) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
