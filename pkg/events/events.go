package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/edcshuttle/passgate/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// NopEventBus drops everything; used when NATS_URL is not configured.
type NopEventBus struct{}

func (NopEventBus) Publish(ctx context.Context, subject string, data interface{}) error { return nil }
func (NopEventBus) Subscribe(subject string, handler func(msg *Message)) error          { return nil }
func (NopEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	return nil
}
func (NopEventBus) Close() error { return nil }

// Scan event subjects
const (
	ScanAllowed = "scan.allowed"
	ScanDenied  = "scan.denied"
	ScanErrored = "scan.errored"
)

// ScanRecordedEvent mirrors the audit row appended for each validation attempt.
type ScanRecordedEvent struct {
	Token     string    `json:"token"`
	ScanType  string    `json:"scan_type"`
	Outcome   string    `json:"outcome"`
	Message   string    `json:"message"`
	DeviceID  string    `json:"device_id,omitempty"`
	ScannedAt time.Time `json:"scanned_at"`
}
