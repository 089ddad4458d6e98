package gpio

import (
	"fmt"
	"sync"
	"time"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// edgePollTimeout bounds each WaitForEdge call so Close can stop the watchers.
const edgePollTimeout = 200 * time.Millisecond

// PeriphBoard drives the door pins through periph.io. It is the fallback for
// kernels without the GPIO character device.
type PeriphBoard struct {
	opened pgpio.PinIO
	closed pgpio.PinIO
	relay  pgpio.PinIO
	led    pgpio.PinIO

	done chan struct{}
	wg   sync.WaitGroup
}

// NewPeriphBoard initialises the periph host drivers and configures the pins.
// Pins are addressed by their BCM numbers; pins.Chip is ignored.
func NewPeriphBoard(pins Pins, onEdge EdgeFunc) (*PeriphBoard, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}

	b := &PeriphBoard{done: make(chan struct{})}
	var err error
	if b.opened, err = periphPin(pins.Opened); err != nil {
		return nil, err
	}
	if b.closed, err = periphPin(pins.Closed); err != nil {
		return nil, err
	}
	if b.relay, err = periphPin(pins.Relay); err != nil {
		return nil, err
	}
	if pins.LED != NoPin {
		if b.led, err = periphPin(pins.LED); err != nil {
			return nil, err
		}
		if err := b.led.Out(pgpio.Low); err != nil {
			return nil, fmt.Errorf("configure led pin %d: %w", pins.LED, err)
		}
	}

	if err := b.relay.Out(pgpio.Low); err != nil {
		return nil, fmt.Errorf("configure relay pin %d: %w", pins.Relay, err)
	}
	for _, p := range []pgpio.PinIO{b.opened, b.closed} {
		if err := p.In(pgpio.PullUp, pgpio.BothEdges); err != nil {
			return nil, fmt.Errorf("configure sensor pin %s: %w", p, err)
		}
	}

	for _, p := range []pgpio.PinIO{b.opened, b.closed} {
		b.wg.Add(1)
		go b.watch(p, onEdge)
	}
	return b, nil
}

func periphPin(n int) (pgpio.PinIO, error) {
	p := gpioreg.ByName(fmt.Sprintf("GPIO%d", n))
	if p == nil {
		return nil, fmt.Errorf("gpio pin %d not found", n)
	}
	return p, nil
}

func (b *PeriphBoard) watch(p pgpio.PinIO, onEdge EdgeFunc) {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return
		default:
		}
		if p.WaitForEdge(edgePollTimeout) && onEdge != nil {
			onEdge()
		}
	}
}

// Read returns the logical endstop states.
func (b *PeriphBoard) Read() (bool, bool, error) {
	return b.opened.Read() == pgpio.Low, b.closed.Read() == pgpio.Low, nil
}

// SetRelay drives the relay output.
func (b *PeriphBoard) SetRelay(on bool) error {
	if err := b.relay.Out(pgpio.Level(on)); err != nil {
		return fmt.Errorf("set relay: %w", err)
	}
	return nil
}

// SetLED drives the status indicator. It is a no-op without an LED pin.
func (b *PeriphBoard) SetLED(on bool) error {
	if b.led == nil {
		return nil
	}
	if err := b.led.Out(pgpio.Level(on)); err != nil {
		return fmt.Errorf("set led: %w", err)
	}
	return nil
}

// Close stops the edge watchers and drives the relay low.
func (b *PeriphBoard) Close() error {
	close(b.done)
	b.wg.Wait()

	var errs []error
	if err := b.relay.Out(pgpio.Low); err != nil {
		errs = append(errs, fmt.Errorf("release relay: %w", err))
	}
	for _, p := range []pgpio.PinIO{b.opened, b.closed} {
		if err := p.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("halt %s: %w", p, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
