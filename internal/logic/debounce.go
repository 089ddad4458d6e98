package logic

import (
	"sync/atomic"
	"time"
)

// Debouncer collapses bursts of sensor edges into a single delayed publish.
//
// Edges arrive from the GPIO event goroutine while PollDue runs on the main
// loop. The armed flag and deadline live in one atomic word: zero means
// disarmed, anything else is the deadline in Unix nanoseconds.
type Debouncer struct {
	window   time.Duration
	deadline atomic.Int64
}

// NewDebouncer creates a trailing-edge debouncer with the given window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// OnEdge arms a publish at now+window, replacing any earlier deadline.
// Safe to call from any goroutine.
func (d *Debouncer) OnEdge(now time.Time) {
	d.deadline.Store(encode(now.Add(d.window)))
}

// ArmNow arms a publish that is due immediately, overriding a pending
// edge-triggered deadline.
func (d *Debouncer) ArmNow(now time.Time) {
	d.deadline.Store(encode(now))
}

// PollDue reports whether an armed publish is due at now. It returns true at
// most once per arm; the disarm is a compare-and-swap so an edge landing
// between the check and the clear keeps its newer deadline.
func (d *Debouncer) PollDue(now time.Time) bool {
	v := d.deadline.Load()
	if v == 0 || now.UnixNano() < v {
		return false
	}
	return d.deadline.CompareAndSwap(v, 0)
}

// Pending returns the armed deadline, if any.
func (d *Debouncer) Pending() (time.Time, bool) {
	v := d.deadline.Load()
	if v == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, v), true
}

func encode(t time.Time) int64 {
	v := t.UnixNano()
	if v == 0 {
		return 1
	}
	return v
}
