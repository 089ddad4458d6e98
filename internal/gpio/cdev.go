//go:build linux

package gpio

import (
	"fmt"
	"log"

	"github.com/warthog618/go-gpiocdev"
)

// CdevBoard drives the door pins through the Linux GPIO character device.
type CdevBoard struct {
	chip   *gpiocdev.Chip
	opened *gpiocdev.Line
	closed *gpiocdev.Line
	relay  *gpiocdev.Line
	led    *gpiocdev.Line
}

// NewCdevBoard requests the sensor inputs with pull-ups and both-edge
// detection, and the relay (and optional LED) as outputs driven low.
// onEdge is invoked for every level change on either sensor.
func NewCdevBoard(pins Pins, onEdge EdgeFunc) (*CdevBoard, error) {
	chip, err := gpiocdev.NewChip(pins.Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	b := &CdevBoard{chip: chip}

	handler := func(evt gpiocdev.LineEvent) {
		log.Printf("gpio: edge on line %d", evt.Offset)
		if onEdge != nil {
			onEdge()
		}
	}
	inputOpts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(handler),
	}

	if b.opened, err = chip.RequestLine(pins.Opened, inputOpts...); err != nil {
		b.Close()
		return nil, fmt.Errorf("request opened sensor pin %d: %w", pins.Opened, err)
	}
	if b.closed, err = chip.RequestLine(pins.Closed, inputOpts...); err != nil {
		b.Close()
		return nil, fmt.Errorf("request closed sensor pin %d: %w", pins.Closed, err)
	}
	if b.relay, err = chip.RequestLine(pins.Relay, gpiocdev.AsOutput(0)); err != nil {
		b.Close()
		return nil, fmt.Errorf("request relay pin %d: %w", pins.Relay, err)
	}
	if pins.LED != NoPin {
		if b.led, err = chip.RequestLine(pins.LED, gpiocdev.AsOutput(0)); err != nil {
			b.Close()
			return nil, fmt.Errorf("request led pin %d: %w", pins.LED, err)
		}
	}
	return b, nil
}

// Read returns the logical endstop states.
func (b *CdevBoard) Read() (bool, bool, error) {
	openedRaw, err := b.opened.Value()
	if err != nil {
		return false, false, fmt.Errorf("read opened sensor: %w", err)
	}
	closedRaw, err := b.closed.Value()
	if err != nil {
		return false, false, fmt.Errorf("read closed sensor: %w", err)
	}
	return openedRaw == 0, closedRaw == 0, nil
}

// SetRelay drives the relay output.
func (b *CdevBoard) SetRelay(on bool) error {
	if err := b.relay.SetValue(level(on)); err != nil {
		return fmt.Errorf("set relay: %w", err)
	}
	return nil
}

// SetLED drives the status indicator. It is a no-op without an LED pin.
func (b *CdevBoard) SetLED(on bool) error {
	if b.led == nil {
		return nil
	}
	if err := b.led.SetValue(level(on)); err != nil {
		return fmt.Errorf("set led: %w", err)
	}
	return nil
}

// Close releases GPIO resources.
// The relay is driven low before its line is released so a shutdown in the
// middle of a pulse never leaves the button held.
func (b *CdevBoard) Close() error {
	var errs []error

	if b.relay != nil {
		if err := b.relay.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("release relay: %w", err))
		}
	}
	for _, l := range []*gpiocdev.Line{b.opened, b.closed, b.relay, b.led} {
		if l == nil {
			continue
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line: %w", err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
