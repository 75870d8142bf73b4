// Package mqtt publishes dispatcher state transitions to an MQTT broker.
// The notifier subscribes to the internal event bus and fans the events out
// as retained JSON messages; the dispatcher core never talks to the broker
// directly.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/evroam/roaminghub/core/events"
	"github.com/evroam/roaminghub/infra/logger"
	"github.com/evroam/roaminghub/internal/eventbus"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Enabled     bool   `json:"enabled"`
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	TopicPrefix string `json:"topic_prefix"`
	QoS         byte   `json:"qos"`
	TimeoutMS   int    `json:"timeout_ms"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "roaminghub"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "roaming"
	}
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = 5000
	}
}

// Publisher abstracts the broker connection for tests.
type Publisher interface {
	Publish(topic string, payload []byte) error
	Close()
}

// PahoPublisher implements Publisher using Eclipse Paho.
type PahoPublisher struct {
	cli     paho.Client
	qos     byte
	timeout time.Duration
}

// NewPahoPublisher connects to the MQTT broker.
func NewPahoPublisher(cfg Config) (*PahoPublisher, error) {
	cfg.SetDefaults()
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true)
	cli := paho.NewClient(opts)
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	tok := cli.Connect()
	if !tok.WaitTimeout(timeout) {
		return nil, fmt.Errorf("mqtt: connect timeout after %s", timeout)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect: %w", err)
	}
	return &PahoPublisher{cli: cli, qos: cfg.QoS, timeout: timeout}, nil
}

// Publish sends the payload and waits for broker confirmation.
func (p *PahoPublisher) Publish(topic string, payload []byte) error {
	tok := p.cli.Publish(topic, p.qos, false, payload)
	if !tok.WaitTimeout(p.timeout) {
		return fmt.Errorf("mqtt: publish timeout on %s", topic)
	}
	return tok.Error()
}

// Close disconnects from the broker.
func (p *PahoPublisher) Close() { p.cli.Disconnect(250) }

// Notifier drains the event bus and publishes each event on its topic.
type Notifier struct {
	pub    Publisher
	prefix string
	log    logger.Logger
}

// NewNotifier creates a Notifier publishing under the given topic prefix.
func NewNotifier(pub Publisher, prefix string, log logger.Logger) *Notifier {
	if prefix == "" {
		prefix = "roaming"
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Notifier{pub: pub, prefix: prefix, log: log}
}

// Run consumes bus events until the context is canceled or the bus closes.
func (n *Notifier) Run(ctx context.Context, bus eventbus.EventBus) {
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)
	for {
		select {
		case ev, ok := <-sub:
			if !ok {
				return
			}
			n.notify(ev)
		case <-ctx.Done():
			return
		}
	}
}

func (n *Notifier) notify(ev eventbus.Event) {
	topic, payload := n.encode(ev)
	if topic == "" {
		return
	}
	if err := n.pub.Publish(topic, payload); err != nil {
		n.log.Errorf("notify %s: %v", topic, err)
	}
}

// encode maps an event to its topic and JSON payload. Unknown event types are
// skipped.
func (n *Notifier) encode(ev eventbus.Event) (string, []byte) {
	var topic string
	switch e := ev.(type) {
	case events.SessionStartedEvent:
		topic = fmt.Sprintf("%s/sessions/%s/started", n.prefix, e.SessionID)
	case events.SessionStoppedEvent:
		topic = fmt.Sprintf("%s/sessions/%s/stopped", n.prefix, e.SessionID)
	case events.ReservationEvent:
		topic = fmt.Sprintf("%s/reservations/%s/%s", n.prefix, e.ReservationID, e.State)
	case events.AuthorizationEvent:
		topic = fmt.Sprintf("%s/authorizations/%s", n.prefix, e.Outcome)
	case events.CDRSettledEvent:
		topic = fmt.Sprintf("%s/cdrs/%s/settled", n.prefix, e.SessionID)
	default:
		return "", nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		n.log.Errorf("encode event for %s: %v", topic, err)
		return "", nil
	}
	return topic, payload
}
