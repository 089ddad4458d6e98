package mqtt

import (
	"fmt"
	"log"
	"math/rand"
	"time"
)

// RetryInterval is the minimum time between reconnect attempts after a
// failed attempt.
const RetryInterval = 5000 * time.Millisecond

// ClientIDPrefix starts every client identifier; a random hex suffix is
// appended per attempt.
const ClientIDPrefix = "McGaragerClient-"

// Supervisor keeps the broker session alive and re-subscribes the command
// topic after every successful connect. It is driven from the main loop and
// is not safe for concurrent use.
type Supervisor struct {
	client       Client
	commandTopic string
	handler      MessageHandler

	interval    time.Duration
	lastAttempt time.Time // last failed attempt; zero = never failed
	connected   bool      // last observed state, for transition logging
	randN       func(n int) int
}

// NewSupervisor creates a supervisor that subscribes handler to commandTopic.
func NewSupervisor(client Client, commandTopic string, handler MessageHandler) *Supervisor {
	return &Supervisor{
		client:       client,
		commandTopic: commandTopic,
		handler:      handler,
		interval:     RetryInterval,
		randN:        rand.Intn,
	}
}

// Ensure reconnects if the session is down. It returns whether the session
// is live afterwards.
func (s *Supervisor) Ensure(now time.Time) bool {
	if s.client.IsConnected() {
		s.connected = true
		return true
	}
	if s.connected {
		log.Printf("mqtt: disconnected")
		s.connected = false
	}
	return s.Reconnect(now)
}

// Reconnect attempts a new session unless the last failed attempt was less
// than the retry interval ago, in which case it does nothing and returns
// false. A failure records now as the last attempt; a success leaves it.
// A session whose command subscription fails is torn down and counts as a
// failed attempt.
func (s *Supervisor) Reconnect(now time.Time) bool {
	if !s.lastAttempt.IsZero() && now.Sub(s.lastAttempt) < s.interval {
		return false
	}

	clientID := fmt.Sprintf("%s%x", ClientIDPrefix, s.randN(0xffff))
	log.Printf("mqtt: connecting as %s", clientID)

	if err := s.client.Connect(clientID); err != nil {
		log.Printf("mqtt: connection failed: %v, try again in %v", err, s.interval)
		s.lastAttempt = now
		return false
	}

	if err := s.client.Subscribe(s.commandTopic, s.handler); err != nil {
		log.Printf("mqtt: subscribe %s failed: %v, try again in %v", s.commandTopic, err, s.interval)
		s.client.Close()
		s.lastAttempt = now
		return false
	}

	log.Printf("mqtt: connected")
	s.connected = true
	return true
}
