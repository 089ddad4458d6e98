package internal

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/toblum/McGarager/internal/config"
	"github.com/toblum/McGarager/internal/controller"
	"github.com/toblum/McGarager/internal/gpio"
	"github.com/toblum/McGarager/internal/logic"
	"github.com/toblum/McGarager/internal/mqtt"
	"github.com/toblum/McGarager/internal/status"
	"github.com/toblum/McGarager/internal/web"
)

type stubTelemetry struct{}

func (stubTelemetry) Sample() status.Host {
	return status.Host{RSSI: -55, Memory: 41000, Uptime: "0d 0h 5m"}
}

// TestIntegrationFullFlow drives a door cycle from GPIO edges through the
// controller to MQTT and the HTTP status page using fakes.
func TestIntegrationFullFlow(t *testing.T) {
	store, err := config.Open(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("open config: %v", err)
	}
	settings := store.Get()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	deb := logic.NewDebouncer(logic.DebounceWindow)
	board := gpio.NewFakeBoard(func() { deb.OnEdge(now) })
	client := mqtt.NewFakeClient()
	tracker := status.NewTracker(now, status.Config{PollMs: 50, DebounceMs: 1000})

	ctl := controller.New(controller.Options{
		Board:     board,
		Client:    client,
		Debouncer: deb,
		Telemetry: stubTelemetry{},
		Tracker:   tracker,
		Topic:     settings.MQTT.Topic,
		Now:       func() time.Time { return now },
		Sleep:     func(time.Duration) {},
	})

	statusTopic := mqtt.StatusTopic(settings.MQTT.Topic)
	commandTopic := mqtt.CommandTopic(settings.MQTT.Topic)

	step := func(d time.Duration) {
		for end := now.Add(d); now.Before(end); {
			now = now.Add(50 * time.Millisecond)
			ctl.Tick()
		}
	}

	step(50 * time.Millisecond)
	if !client.Subscribed(commandTopic) {
		t.Fatalf("expected subscription to %s", commandTopic)
	}

	// Door starts closed, gets triggered, leaves the endstop and reaches open.
	board.SetSensors(false, true)
	step(1100 * time.Millisecond)

	if err := client.Deliver(commandTopic, []byte("trigger")); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if board.Pulses() != 1 {
		t.Fatalf("relay pulses: got %d, want 1", board.Pulses())
	}

	board.SetSensors(false, false)
	step(400 * time.Millisecond)
	board.SetSensors(true, false)
	step(1100 * time.Millisecond)

	msgs := client.PublishedOn(statusTopic)
	if len(msgs) != 2 {
		t.Fatalf("status publishes: got %d, want 2", len(msgs))
	}

	var last mqtt.StatusPayload
	if err := json.Unmarshal(msgs[1].Payload, &last); err != nil {
		t.Fatalf("invalid payload %s: %v", msgs[1].Payload, err)
	}
	want := mqtt.StatusPayload{
		RSSI:         "-55",
		Memory:       "41000",
		Uptime:       "0d 0h 5m",
		SensorOpened: "true",
		SensorClosed: "false",
	}
	if last != want {
		t.Errorf("payload: got %+v, want %+v", last, want)
	}

	// Broker drops; commands are lost until the next tick reconnects and
	// subscribes again.
	client.Drop()
	if err := client.Deliver(commandTopic, []byte("status")); !errors.Is(err, mqtt.ErrNotConnected) {
		t.Fatalf("deliver while down: got %v, want ErrNotConnected", err)
	}
	step(50 * time.Millisecond)
	if !tracker.Snapshot().MQTTConnected || !client.Subscribed(commandTopic) {
		t.Fatal("expected reconnect with subscription restored")
	}

	if err := client.Deliver(commandTopic, []byte("status")); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	step(50 * time.Millisecond)
	if got := len(client.PublishedOn(statusTopic)); got != 3 {
		t.Errorf("status publishes after status command: got %d, want 3", got)
	}

	// The HTTP status page reads the sensors live, ahead of the debounced
	// publish.
	board.SetSensors(false, false)
	srv := web.New(":0", tracker, store, stubTelemetry{}, ctl)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}

	var doc status.StatusJSON
	if err := json.Unmarshal(body, &doc); err != nil {
		t.Fatalf("invalid json %s: %v", body, err)
	}
	if doc.Status.Door != "MOVING" {
		t.Errorf("door: got %q, want MOVING", doc.Status.Door)
	}
	if doc.Status.Relay.Pulses != 1 {
		t.Errorf("pulses: got %d, want 1", doc.Status.Relay.Pulses)
	}
	if !doc.Status.MQTT.Connected {
		t.Error("expected mqtt_connected true")
	}
}
