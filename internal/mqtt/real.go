package mqtt

import (
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// DefaultTimeout bounds each connect, subscribe and publish. Connect runs on
// the main loop, so a black-holed broker stalls it for at most this long.
const DefaultTimeout = 2 * time.Second

// Config holds broker credentials.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	Timeout  time.Duration // zero means DefaultTimeout
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// BrokerURL returns the tcp:// address for the configured host and port.
func (c Config) BrokerURL() string {
	return "tcp://" + net.JoinHostPort(c.Host, c.Port)
}

// RealClient talks to an actual MQTT broker.
//
// Reconnects are driven by Supervisor, so paho's own auto-reconnect is off
// and every Connect builds a fresh paho client with the new client ID.
type RealClient struct {
	cfg Config

	mu     sync.Mutex
	client paho.Client
}

// NewRealClient creates a client for the given broker. It does not connect.
func NewRealClient(cfg Config) *RealClient {
	return &RealClient{cfg: cfg}
}

// Connect opens a session with the given client ID.
func (c *RealClient) Connect(clientID string) error {
	opts := paho.NewClientOptions().
		AddBroker(c.cfg.BrokerURL()).
		SetClientID(clientID).
		SetUsername(c.cfg.Username).
		SetPassword(c.cfg.Password).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetConnectTimeout(c.cfg.timeout()).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(c.cfg.timeout()) {
		client.Disconnect(0)
		return fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}

	c.mu.Lock()
	old := c.client
	c.client = client
	c.mu.Unlock()

	if old != nil && old.IsConnected() {
		old.Disconnect(250)
	}
	return nil
}

// IsConnected reports whether the current session is live.
func (c *RealClient) IsConnected() bool {
	cl := c.current()
	return cl != nil && cl.IsConnected()
}

// Subscribe registers handler for topic at QoS 0.
func (c *RealClient) Subscribe(topic string, handler MessageHandler) error {
	cl := c.current()
	if cl == nil || !cl.IsConnected() {
		return ErrNotConnected
	}

	token := cl.Subscribe(topic, 0, func(_ paho.Client, msg paho.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(c.cfg.timeout()) {
		return fmt.Errorf("subscribe timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

// Publish sends payload to topic.
func (c *RealClient) Publish(topic string, payload []byte) error {
	cl := c.current()
	if cl == nil || !cl.IsConnected() {
		return ErrNotConnected
	}

	// QoS 0 (at-most-once), not retained
	token := cl.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(c.cfg.timeout()) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (c *RealClient) Close() error {
	if cl := c.current(); cl != nil {
		cl.Disconnect(1000) // 1 second timeout
	}
	return nil
}

func (c *RealClient) current() paho.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client
}
