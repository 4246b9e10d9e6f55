package mqtt

import (
	"sync"

	"github.com/sweeney/timekeeper/internal/logic"
)

// FakePublisher records publications for test assertions. It serializes
// exactly like RealPublisher, so Messages holds what a broker would see.
type FakePublisher struct {
	mu sync.Mutex

	Events       []logic.Event
	SystemEvents []SystemEvent

	// Messages holds every serialized publication on both topics, in order.
	Messages []Message

	// PublishError and PublishSystemError, if set, are returned instead of
	// recording.
	PublishError       error
	PublishSystemError error

	Closed    bool
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Publish records the control event.
func (f *FakePublisher) Publish(event logic.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	msg, err := EventMessage(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Messages = append(f.Messages, msg)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	msg, err := SystemMessage(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.Messages = append(f.Messages, msg)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// IsConnected returns Connected.
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Payloads returns the payloads published on topic, in order.
func (f *FakePublisher) Payloads(topic string) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]byte
	for _, m := range f.Messages {
		if m.Topic == topic {
			out = append(out, m.Payload)
		}
	}
	return out
}

// EventTypes returns the types of the recorded control events in order.
func (f *FakePublisher) EventTypes() []logic.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []logic.EventType
	for _, e := range f.Events {
		out = append(out, e.Type)
	}
	return out
}

// Reset clears everything recorded and all injected errors.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Events = nil
	f.SystemEvents = nil
	f.Messages = nil
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Closed = false
	f.Connected = false
}
