package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Door          string     `json:"door"`
	SensorOpened  bool       `json:"sensor_opened"`
	SensorClosed  bool       `json:"sensor_closed"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Relay         RelayJSON  `json:"relay"`
	RSSI          int        `json:"rssi"`
	Memory        uint64     `json:"memory"`
	Config        ConfigJSON `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected   bool   `json:"connected"`
	Publishes   int    `json:"publishes"`
	LastPublish string `json:"last_publish,omitempty"`
}

// RelayJSON reports relay activity.
type RelayJSON struct {
	Pulses    int    `json:"pulses"`
	LastPulse string `json:"last_pulse,omitempty"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs     int64  `json:"poll_ms"`
	DebounceMs int64  `json:"debounce_ms"`
	GPIODriver string `json:"gpio_driver"`
	HTTPAddr   string `json:"http_addr"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// FormatJSON returns the JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	door := snap.Door.String()
	if !snap.DoorKnown {
		door = "UNKNOWN"
	}

	inner := StatusInner{
		Door:          door,
		SensorOpened:  snap.Door.Opened,
		SensorClosed:  snap.Door.Closed,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     formatTime(snap.StartTime),
		Timestamp:     formatTime(snap.Now),
		MQTT: MQTTStatus{
			Connected:   snap.MQTTConnected,
			Publishes:   snap.Publishes,
			LastPublish: formatTime(snap.LastPublish),
		},
		Relay: RelayJSON{
			Pulses:    snap.Pulses,
			LastPulse: formatTime(snap.LastPulse),
		},
		RSSI:   snap.Host.RSSI,
		Memory: snap.Host.Memory,
		Config: ConfigJSON{
			PollMs:     snap.Config.PollMs,
			DebounceMs: snap.Config.DebounceMs,
			GPIODriver: snap.Config.GPIODriver,
			HTTPAddr:   snap.Config.HTTPAddr,
		},
	}

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}
