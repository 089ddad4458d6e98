package mqtt

import (
	"errors"
	"sync"
)

// Message is a publish recorded by FakeClient.
type Message struct {
	Topic   string
	Payload []byte
}

// FakeClient records broker traffic for test assertions.
type FakeClient struct {
	mu sync.Mutex

	connected     bool
	subscriptions map[string]MessageHandler

	// ConnectIDs contains the client ID of every Connect call.
	ConnectIDs []string

	// Published contains every successful publish.
	Published []Message

	// ConnectError, if set, will be returned by Connect.
	ConnectError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeClient creates a disconnected FakeClient.
func NewFakeClient() *FakeClient {
	return &FakeClient{subscriptions: make(map[string]MessageHandler)}
}

// Connect records the attempt and, unless ConnectError is set, goes online
// with a clean session.
func (f *FakeClient) Connect(clientID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ConnectIDs = append(f.ConnectIDs, clientID)
	if f.ConnectError != nil {
		return f.ConnectError
	}
	f.connected = true
	f.subscriptions = make(map[string]MessageHandler)
	return nil
}

// IsConnected reports whether the fake is "connected".
func (f *FakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// Subscribe records handler for topic.
func (f *FakeClient) Subscribe(topic string, handler MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return ErrNotConnected
	}
	f.subscriptions[topic] = handler
	return nil
}

// Publish records the message. It fails while disconnected.
func (f *FakeClient) Publish(topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return ErrNotConnected
	}
	f.Published = append(f.Published, Message{Topic: topic, Payload: payload})
	return nil
}

// Close marks the client as closed.
func (f *FakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	f.connected = false
	return nil
}

// Drop simulates the broker dropping the session. Subscriptions are lost.
func (f *FakeClient) Drop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	f.subscriptions = make(map[string]MessageHandler)
}

// Subscribed reports whether topic has a handler on the current session.
func (f *FakeClient) Subscribed(topic string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.subscriptions[topic]
	return ok
}

// Deliver simulates the broker delivering payload on topic.
func (f *FakeClient) Deliver(topic string, payload []byte) error {
	f.mu.Lock()
	h, ok := f.subscriptions[topic]
	connected := f.connected
	f.mu.Unlock()

	if !connected {
		return ErrNotConnected
	}
	if !ok {
		return errors.New("no subscription for " + topic)
	}
	h(topic, payload)
	return nil
}

// PublishedOn returns the messages published on topic.
func (f *FakeClient) PublishedOn(topic string) []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Message
	for _, m := range f.Published {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}
