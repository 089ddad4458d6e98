// Package gpio provides the door controller's pin I/O with hardware abstraction.
// Real implementations use the Linux GPIO character device (go-gpiocdev) or
// periph.io. The fake implementation allows testing without hardware.
package gpio

// Board is the door controller's view of the GPIO header.
type Board interface {
	// Read returns the logical endstop states (opened, closed).
	// Inputs are pulled up and the reed switch grounds the pin, so a raw
	// LOW reading means the sensor is active.
	Read() (bool, bool, error)

	// SetRelay drives the relay output (active-high).
	SetRelay(on bool) error

	// SetLED drives the status indicator, if one is configured.
	SetLED(on bool) error

	// Close releases GPIO resources.
	Close() error
}

// EdgeFunc is called from the driver's event goroutine whenever either
// sensor input changes level.
type EdgeFunc func()

// Pin definitions (BCM numbering)
const (
	DefaultPinRelay  = 12
	DefaultPinOpened = 5
	DefaultPinClosed = 4
	NoPin            = -1
)

// DefaultChip is the GPIO character device used by the cdev driver.
const DefaultChip = "gpiochip0"

// Pins selects the lines used by a Board.
type Pins struct {
	Chip   string
	Relay  int
	Opened int
	Closed int
	LED    int // NoPin disables the status indicator
}

// DefaultPins returns the wiring of the reference build.
func DefaultPins() Pins {
	return Pins{
		Chip:   DefaultChip,
		Relay:  DefaultPinRelay,
		Opened: DefaultPinOpened,
		Closed: DefaultPinClosed,
		LED:    NoPin,
	}
}

func level(on bool) int {
	if on {
		return 1
	}
	return 0
}
