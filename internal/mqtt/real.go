package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/sweeney/timekeeper/internal/logic"
	"github.com/sweeney/timekeeper/internal/metrics"
)

const (
	bufferCapacity = 100
	queueCapacity  = 64
	publishTimeout = 2 * time.Second
)

// client is the subset of paho.Client the publisher uses.
type client interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// RealPublisher publishes to an actual MQTT broker. Publish only queues
// the message; a sender goroutine waits on the broker. Messages published
// while the broker is unreachable are buffered and replayed on reconnect.
type RealPublisher struct {
	client client
	log    zerolog.Logger
	now    func() time.Time
	out    chan Message
	done   chan struct{}

	mu        sync.Mutex
	buf       *ringBuffer
	connected bool // at least one connection has been made
	closed    bool
}

// NewRealPublisher creates a publisher for the given broker. It does not
// wait for the connection: the broker is often unreachable until WiFi is
// up, so the client keeps retrying in the background.
func NewRealPublisher(broker, clientID string, log zerolog.Logger) *RealPublisher {
	var p *RealPublisher

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(WillPayload()), qosSystem, true).
		SetOnConnectHandler(func(paho.Client) { p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn().Err(err).Msg("mqtt connection lost")
		})

	c := paho.NewClient(opts)
	p = newPublisher(c, log)
	c.Connect()
	return p
}

func newPublisher(c client, log zerolog.Logger) *RealPublisher {
	p := &RealPublisher{
		client: c,
		log:    log,
		now:    time.Now,
		out:    make(chan Message, queueCapacity),
		done:   make(chan struct{}),
		buf:    newRingBuffer(bufferCapacity, log),
	}
	go p.sender()
	return p
}

// Publish queues a control event for the MQTT broker. It never waits on
// the broker; delivery failures are logged and counted by the sender.
func (p *RealPublisher) Publish(event logic.Event) error {
	msg, err := EventMessage(event)
	if err != nil {
		return err
	}
	return p.enqueue(msg)
}

// PublishSystem queues a system lifecycle event for the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	msg, err := SystemMessage(event)
	if err != nil {
		return err
	}
	return p.enqueue(msg)
}

// IsConnected reports whether the broker connection is open.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// Close flushes queued messages and disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.out)
	}
	p.mu.Unlock()

	<-p.done
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

func (p *RealPublisher) enqueue(msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("publish %s: publisher closed", msg.Topic)
	}
	if !p.client.IsConnectionOpen() {
		p.buf.push(msg)
		return nil
	}
	select {
	case p.out <- msg:
		return nil
	default:
		return fmt.Errorf("publish %s: send queue full", msg.Topic)
	}
}

// sender delivers queued messages in order until Close.
func (p *RealPublisher) sender() {
	defer close(p.done)
	for msg := range p.out {
		if !p.client.IsConnectionOpen() {
			p.mu.Lock()
			p.buf.push(msg)
			p.mu.Unlock()
			continue
		}
		if err := p.deliver(msg); err != nil {
			p.log.Warn().Err(err).Msg("mqtt publish failed")
			metrics.RecordPublishError()
		}
	}
}

func (p *RealPublisher) deliver(msg Message) error {
	token := p.client.Publish(msg.Topic, msg.QoS, msg.Retained, msg.Payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s timeout", msg.Topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Topic, err)
	}
	return nil
}

// onConnect replays buffered messages and announces a reconnection.
func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	pending, dropped := p.buf.drain()
	reconnect := p.connected
	p.connected = true
	p.mu.Unlock()

	for _, msg := range pending {
		p.client.Publish(msg.Topic, msg.QoS, msg.Retained, msg.Payload)
	}
	if len(pending) > 0 || dropped > 0 {
		p.log.Info().Int("count", len(pending)).Int("dropped", dropped).Msg("mqtt: replayed buffered messages")
	}

	if reconnect {
		msg, _ := SystemMessage(SystemEvent{Timestamp: p.now(), Event: SystemReconnected})
		p.client.Publish(msg.Topic, msg.QoS, msg.Retained, msg.Payload)
	}
	p.log.Info().Bool("reconnect", reconnect).Msg("mqtt connected")
}
