//go:build !linux

package gpio

import "errors"

// CdevBoard is not available on non-Linux platforms.
type CdevBoard struct{}

// NewCdevBoard returns an error on non-Linux platforms.
func NewCdevBoard(pins Pins, onEdge EdgeFunc) (*CdevBoard, error) {
	return nil, errors.New("gpio: character device not supported on this platform (requires Linux)")
}

// Read is not implemented on non-Linux platforms.
func (b *CdevBoard) Read() (bool, bool, error) {
	return false, false, errors.New("gpio: not supported")
}

// SetRelay is not implemented on non-Linux platforms.
func (b *CdevBoard) SetRelay(on bool) error {
	return errors.New("gpio: not supported")
}

// SetLED is not implemented on non-Linux platforms.
func (b *CdevBoard) SetLED(on bool) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (b *CdevBoard) Close() error {
	return nil
}
