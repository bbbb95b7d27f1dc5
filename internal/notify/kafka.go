package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes notification events for a downstream mailer to deliver.
// A successful publish counts as sent.
type Kafka struct {
	writer messageWriter
}

// Event is the payload written to the notifications topic.
type Event struct {
	Kind       Kind      `json:"kind"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	Message    Message   `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}}
}

func (n *Kafka) SendBookingNotification(ctx context.Context, msg Message) error {
	return n.publish(ctx, KindBooking, msg)
}

func (n *Kafka) SendReminder(ctx context.Context, msg Message) error {
	return n.publish(ctx, KindReminder, msg)
}

func (n *Kafka) publish(ctx context.Context, kind Kind, msg Message) error {
	if msg.PatientEmail == "" {
		return deliveryError(kind, msg, ErrNoRecipient)
	}

	payload, err := json.Marshal(Event{
		Kind:       kind,
		Subject:    subject(kind, msg),
		Body:       body(kind, msg),
		Message:    msg,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return deliveryError(kind, msg, err)
	}

	// Keyed by appointment so events of one appointment stay ordered.
	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.AppointmentID.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(kind)},
		},
	})
	if err != nil {
		return deliveryError(kind, msg, err)
	}
	return nil
}

func (n *Kafka) Close() error {
	return n.writer.Close()
}
