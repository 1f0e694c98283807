package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// SubjectPrefix is prepended to the event type to form the NATS subject
const SubjectPrefix = "earnbot."

// Envelope is the wire format of a forwarded event
type Envelope struct {
	ID         string          `json:"id"`
	Type       EventType       `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Publisher is the subset of *nats.Conn used by the forwarder
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSForwarder republishes committed bus events on NATS
type NATSForwarder struct {
	pub Publisher
	now func() time.Time
}

// NewNATSForwarder creates a forwarder over an existing publisher
func NewNATSForwarder(pub Publisher) *NATSForwarder {
	return &NATSForwarder{pub: pub, now: time.Now}
}

// ConnectNATS opens a NATS connection with reconnect logging
func ConnectNATS(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("earnbot"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Error("NATS disconnected with error")
			} else {
				log.Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.WithField("url", url).Info("Connected to NATS")
	return nc, nil
}

// Attach subscribes the forwarder to every event type on the bus
func (f *NATSForwarder) Attach(bus *Bus) {
	bus.SubscribeAll(f.Handle)
}

// Handle publishes a single event; failures are logged and dropped
func (f *NATSForwarder) Handle(ctx context.Context, event Event) {
	data, err := f.encode(event)
	if err != nil {
		log.WithError(err).WithField("eventType", event.Type()).Error("Failed to encode event for NATS")
		return
	}

	subject := SubjectPrefix + string(event.Type())
	if err := f.pub.Publish(subject, data); err != nil {
		log.WithFields(log.Fields{
			"subject": subject,
			"error":   err,
		}).Warn("Failed to publish event to NATS")
		return
	}

	log.WithFields(log.Fields{
		"subject": subject,
		"size":    len(data),
	}).Debug("Published event to NATS")
}

func (f *NATSForwarder) encode(event Event) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	return json.Marshal(Envelope{
		ID:         uuid.NewString(),
		Type:       event.Type(),
		OccurredAt: f.now().UTC(),
		Payload:    payload,
	})
}
