// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/timekeeper/internal/logic"
)

// Topic is the MQTT topic for control and scheduling events.
const Topic = "device/timekeeper/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "device/timekeeper/system"

// System lifecycle event names.
const (
	SystemStartup     = "STARTUP"
	SystemHeartbeat   = "HEARTBEAT"
	SystemShutdown    = "SHUTDOWN"
	SystemReconnected = "RECONNECTED"
	SystemOffline     = "OFFLINE"
)

// Control events are at-most-once; lifecycle events are at-least-once.
const (
	qosEvent  byte = 0
	qosSystem byte = 1
)

// Message is one serialized publication.
type Message struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a control event to the broker. It is called from the
	// run loop and must not block on the network.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent is a lifecycle announcement on TopicSystem.
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // one of the System* names
	Reason     string // signal name, shutdown only
	RawPayload []byte // full status snapshot; replaces the short form when set
	Retained   bool
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Timekeeper EventPayload `json:"timekeeper"`
}

// EventPayload contains the event details.
type EventPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Wifi      string `json:"wifi"`
	Sync      string `json:"sync"`
}

// FormatPayload creates the JSON payload for a control event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Timekeeper: EventPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Wifi:      event.Wifi,
			Sync:      event.Sync,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// EventMessage serializes a control event for Topic.
func EventMessage(event logic.Event) (Message, error) {
	payload, err := FormatPayload(event)
	if err != nil {
		return Message{}, fmt.Errorf("format payload: %w", err)
	}
	return Message{Topic: Topic, Payload: payload, QoS: qosEvent}, nil
}

// SystemMessage serializes a lifecycle event for TopicSystem.
func SystemMessage(event SystemEvent) (Message, error) {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return Message{}, fmt.Errorf("format system payload: %w", err)
	}
	return Message{Topic: TopicSystem, Payload: payload, QoS: qosSystem, Retained: event.Retained}, nil
}

// WillPayload is the last-will message the broker publishes if the
// daemon disappears without a clean disconnect.
func WillPayload() []byte {
	data, _ := json.Marshal(SystemPayload{System: SystemPayloadInner{Event: SystemOffline}})
	return data
}
