// Package mqtt provides the broker session with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/toblum/McGarager/internal/logic"
)

// Topic suffixes appended to the configured prefix.
const (
	StatusSuffix  = "/status"
	CommandSuffix = "/cmnd"
)

// ErrNotConnected is returned by Publish and Subscribe without a session.
var ErrNotConnected = errors.New("mqtt: not connected")

// MessageHandler receives messages delivered on a subscribed topic.
type MessageHandler func(topic string, payload []byte)

// Client is a single broker session.
type Client interface {
	// Connect opens a new session using the given client identifier,
	// replacing any previous one.
	Connect(clientID string) error

	// IsConnected reports whether the session is live.
	IsConnected() bool

	// Subscribe registers handler for topic on the current session.
	Subscribe(topic string, handler MessageHandler) error

	// Publish sends payload to topic with the client's default QoS and
	// retain settings.
	Publish(topic string, payload []byte) error

	// Close disconnects from the broker.
	Close() error
}

// StatusTopic returns the topic status reports are published on.
func StatusTopic(prefix string) string {
	return prefix + StatusSuffix
}

// CommandTopic returns the topic commands are received on.
func CommandTopic(prefix string) string {
	return prefix + CommandSuffix
}

// Report is everything a status message carries.
type Report struct {
	Door   logic.DoorState
	RSSI   int
	Memory uint64
	Uptime string
}

// StatusPayload is the wire format of a status message. Every value is a
// string and the field order is fixed.
type StatusPayload struct {
	RSSI         string `json:"rssi"`
	Memory       string `json:"memory"`
	Uptime       string `json:"uptime"`
	SensorOpened string `json:"sensor_opened"`
	SensorClosed string `json:"sensor_closed"`
}

// FormatStatus creates the JSON payload for a status report.
func FormatStatus(r Report) ([]byte, error) {
	payload := StatusPayload{
		RSSI:         strconv.Itoa(r.RSSI),
		Memory:       strconv.FormatUint(r.Memory, 10),
		Uptime:       r.Uptime,
		SensorOpened: strconv.FormatBool(r.Door.Opened),
		SensorClosed: strconv.FormatBool(r.Door.Closed),
	}
	return json.Marshal(payload)
}
