package mqtt

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/toblum/McGarager/internal/logic"
)

func TestFormatStatus(t *testing.T) {
	payload, err := FormatStatus(Report{
		Door:   logic.DoorState{Opened: false, Closed: true},
		RSSI:   -60,
		Memory: 30000,
		Uptime: "0d 1h 2m",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	want := map[string]string{
		"rssi":          "-60",
		"memory":        "30000",
		"uptime":        "0d 1h 2m",
		"sensor_opened": "false",
		"sensor_closed": "true",
	}
	if len(parsed) != len(want) {
		t.Errorf("expected %d fields, got %d: %s", len(want), len(parsed), payload)
	}
	for k, v := range want {
		got, ok := parsed[k].(string)
		if !ok {
			t.Errorf("%s: expected string value, got %T", k, parsed[k])
			continue
		}
		if got != v {
			t.Errorf("%s: got %q, want %q", k, got, v)
		}
	}
}

func TestFormatStatusFieldOrder(t *testing.T) {
	payload, err := FormatStatus(Report{
		Door:   logic.DoorState{Opened: true},
		RSSI:   -71,
		Memory: 123,
		Uptime: "2d 0h 5m",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"rssi":"-71","memory":"123","uptime":"2d 0h 5m","sensor_opened":"true","sensor_closed":"false"}`
	if string(payload) != want {
		t.Errorf("payload:\n got %s\nwant %s", payload, want)
	}
}

func TestTopics(t *testing.T) {
	if got := StatusTopic("mc_garager"); got != "mc_garager/status" {
		t.Errorf("StatusTopic: got %q", got)
	}
	if got := CommandTopic("mc_garager"); got != "mc_garager/cmnd" {
		t.Errorf("CommandTopic: got %q", got)
	}
}

func TestBrokerURL(t *testing.T) {
	tests := []struct {
		cfg  Config
		want string
	}{
		{Config{Host: "somehost.fritz.box", Port: "1883"}, "tcp://somehost.fritz.box:1883"},
		{Config{Host: "192.168.1.200", Port: "8883"}, "tcp://192.168.1.200:8883"},
		{Config{Host: "::1", Port: "1883"}, "tcp://[::1]:1883"},
	}
	for _, tt := range tests {
		if got := tt.cfg.BrokerURL(); got != tt.want {
			t.Errorf("BrokerURL(%+v): got %q, want %q", tt.cfg, got, tt.want)
		}
	}
}

func TestFakeClientPublishRequiresConnection(t *testing.T) {
	f := NewFakeClient()

	if err := f.Publish("a/status", []byte("x")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	if len(f.Published) != 0 {
		t.Error("nothing should be recorded while disconnected")
	}

	if err := f.Connect("id"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := f.Publish("a/status", []byte("x")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := f.PublishedOn("a/status"); len(got) != 1 {
		t.Errorf("expected 1 message on a/status, got %d", len(got))
	}
}

func TestFakeClientDropLosesSubscriptions(t *testing.T) {
	f := NewFakeClient()
	f.Connect("id")

	var got []string
	f.Subscribe("a/cmnd", func(topic string, payload []byte) {
		got = append(got, string(payload))
	})

	if err := f.Deliver("a/cmnd", []byte("status")); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	f.Drop()
	if f.Subscribed("a/cmnd") {
		t.Error("subscription should be gone after drop")
	}
	if err := f.Deliver("a/cmnd", []byte("status")); err == nil {
		t.Error("expected delivery to fail while disconnected")
	}
	if len(got) != 1 {
		t.Errorf("expected 1 delivered message, got %d", len(got))
	}
}

func TestFakeClientClose(t *testing.T) {
	f := NewFakeClient()
	f.Connect("id")

	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}
	if f.IsConnected() {
		t.Error("should not be connected after Close()")
	}
}
