package notify

import (
	"context"

	"go.uber.org/zap"
)

// Log writes notifications to the application log instead of sending them.
// It is the development driver.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log {
	return &Log{log: log}
}

func (n *Log) SendBookingNotification(ctx context.Context, msg Message) error {
	return n.write(KindBooking, msg)
}

func (n *Log) SendReminder(ctx context.Context, msg Message) error {
	return n.write(KindReminder, msg)
}

func (n *Log) write(kind Kind, msg Message) error {
	if msg.PatientEmail == "" {
		return deliveryError(kind, msg, ErrNoRecipient)
	}
	n.log.Info("notification",
		zap.String("kind", string(kind)),
		zap.String("appointment_id", msg.AppointmentID.String()),
		zap.String("to", msg.PatientEmail),
		zap.String("subject", subject(kind, msg)),
	)
	return nil
}
