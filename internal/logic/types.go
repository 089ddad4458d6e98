// Package logic contains pure state for the garage door controller.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// DebounceWindow is how long the sensors must be quiet after the last edge
// before a status publish fires.
const DebounceWindow = 1000 * time.Millisecond

// DoorState is the door position as reported by the two endstop sensors.
// It is recomputed from the pins on every read; nothing checks that at most
// one flag is set.
type DoorState struct {
	Opened bool // door is at the fully-open endstop
	Closed bool // door is at the fully-closed endstop
}

// String renders the state for logs and the status page.
func (d DoorState) String() string {
	switch {
	case d.Opened && d.Closed:
		return "INVALID"
	case d.Opened:
		return "OPEN"
	case d.Closed:
		return "CLOSED"
	default:
		return "MOVING"
	}
}

// Command is an action requested over the command topic.
type Command string

const (
	CommandTrigger Command = "trigger"
	CommandStatus  Command = "status"
)
