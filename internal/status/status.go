// Package status provides host telemetry and a thread-safe status tracker
// for the garage-door daemon. The tracker is read by the HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/toblum/McGarager/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs     int64
	DebounceMs int64
	GPIODriver string
	HTTPAddr   string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Door          logic.DoorState
	DoorKnown     bool // false until the sensors have been read once
	MQTTConnected bool
	Publishes     int
	LastPublish   time.Time
	Pulses        int
	LastPulse     time.Time
	StartTime     time.Time
	Now           time.Time
	Host          Host
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// SetDoor records the latest sensor read.
func (t *Tracker) SetDoor(door logic.DoorState) {
	t.mu.Lock()
	t.snap.Door = door
	t.snap.DoorKnown = true
	t.mu.Unlock()
}

// RecordPublish counts a status message handed to the broker.
func (t *Tracker) RecordPublish(at time.Time) {
	t.mu.Lock()
	t.snap.Publishes++
	t.snap.LastPublish = at
	t.mu.Unlock()
}

// RecordPulse counts a relay pulse.
func (t *Tracker) RecordPulse(at time.Time) {
	t.mu.Lock()
	t.snap.Pulses++
	t.snap.LastPulse = at
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetHost stores the latest host telemetry sample.
func (t *Tracker) SetHost(h Host) {
	t.mu.Lock()
	t.snap.Host = h
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
