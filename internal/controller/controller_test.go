package controller

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/toblum/McGarager/internal/gpio"
	"github.com/toblum/McGarager/internal/logic"
	"github.com/toblum/McGarager/internal/mqtt"
	"github.com/toblum/McGarager/internal/status"
)

const (
	statusTopic  = "mc_garager/status"
	commandTopic = "mc_garager/cmnd"
)

type fakeTelemetry struct {
	host status.Host
}

func (f fakeTelemetry) Sample() status.Host { return f.host }

// harness wires a Controller to fakes with a manually advanced clock.
type harness struct {
	t       *testing.T
	now     time.Time
	board   *gpio.FakeBoard
	client  *mqtt.FakeClient
	deb     *logic.Debouncer
	tracker *status.Tracker
	ctl     *Controller
	slept   []time.Duration
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		now:    time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		client: mqtt.NewFakeClient(),
		deb:    logic.NewDebouncer(logic.DebounceWindow),
	}
	h.board = gpio.NewFakeBoard(func() { h.deb.OnEdge(h.now) })
	h.tracker = status.NewTracker(h.now, status.Config{})
	h.ctl = New(Options{
		Board:     h.board,
		Client:    h.client,
		Debouncer: h.deb,
		Telemetry: fakeTelemetry{host: status.Host{RSSI: -60, Memory: 30000, Uptime: "0d 1h 2m"}},
		Tracker:   h.tracker,
		Topic:     "mc_garager",
		Now:       func() time.Time { return h.now },
		Sleep:     func(d time.Duration) { h.slept = append(h.slept, d) },
	})
	return h
}

// advance moves the clock forward in loop-sized steps, ticking each time.
func (h *harness) advance(d time.Duration) {
	const step = 50 * time.Millisecond
	for end := h.now.Add(d); h.now.Before(end); {
		h.now = h.now.Add(step)
		h.ctl.Tick()
	}
}

func (h *harness) statusMessages() []mqtt.StatusPayload {
	h.t.Helper()
	var out []mqtt.StatusPayload
	for _, m := range h.client.PublishedOn(statusTopic) {
		var p mqtt.StatusPayload
		if err := json.Unmarshal(m.Payload, &p); err != nil {
			h.t.Fatalf("invalid status payload %s: %v", m.Payload, err)
		}
		out = append(out, p)
	}
	return out
}

func TestFirstTickConnectsAndSubscribes(t *testing.T) {
	h := newHarness(t)
	h.ctl.Tick()

	if !h.client.IsConnected() {
		t.Fatal("expected connection on first tick")
	}
	if !h.client.Subscribed(commandTopic) {
		t.Error("expected command topic subscription")
	}
	if !h.tracker.Snapshot().MQTTConnected {
		t.Error("tracker should report the live session")
	}
	if len(h.client.Published) != 0 {
		t.Error("nothing should be published without an edge or command")
	}
}

func TestEdgeBurstPublishesOnceAfterQuietWindow(t *testing.T) {
	h := newHarness(t)
	h.ctl.Tick()

	// Door starts moving and the reed contact bounces.
	h.board.SetSensors(false, true)
	h.advance(100 * time.Millisecond)
	h.board.SetSensors(false, false)
	h.advance(100 * time.Millisecond)
	h.board.SetSensors(false, true)
	lastEdge := h.now

	h.advance(950 * time.Millisecond)
	if n := len(h.statusMessages()); n != 0 {
		t.Fatalf("published %d messages before the quiet window elapsed", n)
	}

	h.advance(100 * time.Millisecond)
	msgs := h.statusMessages()
	if len(msgs) != 1 {
		t.Fatalf("expected exactly 1 status message, got %d", len(msgs))
	}
	if h.tracker.Snapshot().LastPublish.Before(lastEdge.Add(logic.DebounceWindow)) {
		t.Error("publish happened before last edge + 1s")
	}

	want := mqtt.StatusPayload{
		RSSI:         "-60",
		Memory:       "30000",
		Uptime:       "0d 1h 2m",
		SensorOpened: "false",
		SensorClosed: "true",
	}
	if msgs[0] != want {
		t.Errorf("payload: got %+v, want %+v", msgs[0], want)
	}

	h.advance(5 * time.Second)
	if n := len(h.statusMessages()); n != 1 {
		t.Errorf("expected no further publishes, got %d total", n)
	}
}

func TestStatusCommandPublishesImmediately(t *testing.T) {
	h := newHarness(t)
	h.ctl.Tick()
	h.board.SetSensors(true, false)

	if err := h.client.Deliver(commandTopic, []byte("status")); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	deadline, ok := h.deb.Pending()
	if !ok || deadline.After(h.now) {
		t.Fatalf("status should arm an immediate publish, got %v %v", deadline, ok)
	}

	h.ctl.Tick()
	msgs := h.statusMessages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 status message, got %d", len(msgs))
	}
	if msgs[0].SensorOpened != "true" || msgs[0].SensorClosed != "false" {
		t.Errorf("unexpected sensor fields: %+v", msgs[0])
	}
}

func TestTriggerPulsesRelay(t *testing.T) {
	h := newHarness(t)
	h.ctl.Tick()

	h.client.Deliver(commandTopic, []byte("trigger"))

	if got := h.board.Pulses(); got != 1 {
		t.Errorf("pulses: got %d, want 1", got)
	}
	if len(h.slept) != 1 || h.slept[0] != 250*time.Millisecond {
		t.Errorf("pulse width: got %v, want [250ms]", h.slept)
	}
	if got := h.tracker.Snapshot().Pulses; got != 1 {
		t.Errorf("tracker pulses: got %d, want 1", got)
	}
}

func TestShortOrUnknownPayloadsIgnored(t *testing.T) {
	h := newHarness(t)
	h.ctl.Tick()

	for _, p := range []string{"trig", "stat", "", "open", "TRIGGER"} {
		h.client.Deliver(commandTopic, []byte(p))
	}

	if got := h.board.Pulses(); got != 0 {
		t.Errorf("pulses: got %d, want 0", got)
	}
	if _, ok := h.deb.Pending(); ok {
		t.Error("no publish should be armed")
	}
}

func TestTriggerAfterReconnect(t *testing.T) {
	h := newHarness(t)
	h.ctl.Tick()

	h.client.Drop()
	h.ctl.Tick()
	if !h.client.Subscribed(commandTopic) {
		t.Fatal("command topic should be re-subscribed after reconnect")
	}

	if err := h.client.Deliver(commandTopic, []byte("trigger")); err != nil {
		t.Fatalf("deliver after reconnect: %v", err)
	}
	if got := h.board.Pulses(); got != 1 {
		t.Errorf("pulses: got %d, want 1", got)
	}
	if len(h.client.ConnectIDs) != 2 {
		t.Errorf("expected 2 connects, got %d", len(h.client.ConnectIDs))
	}
}

func TestPublishWhileDisconnectedIsDropped(t *testing.T) {
	h := newHarness(t)
	h.client.ConnectError = errors.New("broker down")

	h.board.SetSensors(true, false)
	h.advance(1100 * time.Millisecond)

	if _, ok := h.deb.Pending(); ok {
		t.Error("due publish should be consumed even when it cannot be sent")
	}
	if got := h.tracker.Snapshot().Publishes; got != 0 {
		t.Errorf("tracker publishes: got %d, want 0", got)
	}

	// Broker comes back: the missed update is not replayed.
	h.client.ConnectError = nil
	h.advance(6 * time.Second)
	if !h.client.IsConnected() {
		t.Fatal("expected reconnect")
	}
	if n := len(h.client.Published); n != 0 {
		t.Errorf("missed update must not be replayed, got %d messages", n)
	}
}

func TestReconnectAttemptsAreRateLimited(t *testing.T) {
	h := newHarness(t)
	h.client.ConnectError = errors.New("broker down")

	h.advance(4900 * time.Millisecond)
	if n := len(h.client.ConnectIDs); n != 1 {
		t.Errorf("attempts in first 4.9s: got %d, want 1", n)
	}
	h.advance(200 * time.Millisecond)
	if n := len(h.client.ConnectIDs); n != 2 {
		t.Errorf("attempts after 5s: got %d, want 2", n)
	}
}

func TestReadErrorSkipsPublish(t *testing.T) {
	h := newHarness(t)
	h.ctl.Tick()
	h.board.ReadError = errors.New("line gone")

	h.client.Deliver(commandTopic, []byte("status"))
	h.ctl.Tick()

	if n := len(h.client.Published); n != 0 {
		t.Errorf("stale state must not be published, got %d messages", n)
	}
}

func TestLEDFollowsConnection(t *testing.T) {
	h := newHarness(t)
	h.client.ConnectError = errors.New("broker down")

	h.ctl.Tick()
	h.ctl.Tick()
	h.client.ConnectError = nil
	h.advance(5 * time.Second)

	want := []bool{true, false}
	if len(h.board.LEDWrites) != len(want) {
		t.Fatalf("LED writes: got %v, want %v", h.board.LEDWrites, want)
	}
	for i := range want {
		if h.board.LEDWrites[i] != want[i] {
			t.Fatalf("LED writes: got %v, want %v", h.board.LEDWrites, want)
		}
	}
}
