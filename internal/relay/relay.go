// Package relay simulates a press of the garage door button.
package relay

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// PulseWidth is how long the relay is held closed.
const PulseWidth = 250 * time.Millisecond

// Output is the relay pin.
type Output interface {
	SetRelay(on bool) error
}

// Actuator pulses the relay. Overlapping Pulse calls are serialized: a second
// request waits for the running pulse and then performs its own full pulse.
type Actuator struct {
	mu    sync.Mutex
	out   Output
	width time.Duration
	sleep func(time.Duration)
}

// New creates an Actuator with the standard pulse width.
func New(out Output) *Actuator {
	return &Actuator{out: out, width: PulseWidth, sleep: time.Sleep}
}

// WithSleep replaces the blocking delay. Used by tests.
func (a *Actuator) WithSleep(sleep func(time.Duration)) *Actuator {
	a.sleep = sleep
	return a
}

// Pulse drives the relay high, blocks for the pulse width, then drives it low.
// Once started the pulse always completes; the release is attempted even if
// raising the relay failed.
func (a *Actuator) Pulse() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	log.Printf("relay: pulse %v", a.width)
	errOn := a.out.SetRelay(true)
	a.sleep(a.width)
	errOff := a.out.SetRelay(false)

	if errOn != nil {
		return fmt.Errorf("relay on: %w", errOn)
	}
	if errOff != nil {
		return fmt.Errorf("relay off: %w", errOff)
	}
	return nil
}
