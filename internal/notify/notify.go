// Package notify delivers patient notifications. Delivery is best effort:
// callers log and count failures and never fail the operation that
// triggered them.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/calendar"
	"github.com/google/uuid"
)

type Kind string

const (
	KindBooking  Kind = "booking"
	KindReminder Kind = "reminder"
)

type Message struct {
	AppointmentID uuid.UUID          `json:"appointment_id"`
	PatientEmail  string             `json:"patient_email"`
	PatientName   string             `json:"patient_name"`
	DoctorName    string             `json:"doctor_name"`
	Specialty     string             `json:"specialty"`
	Date          calendar.Date      `json:"date"`
	Time          calendar.TimeOfDay `json:"time"`
}

type Notifier interface {
	SendBookingNotification(ctx context.Context, msg Message) error
	SendReminder(ctx context.Context, msg Message) error
}

var (
	ErrDeliveryFailed = errors.New("notification delivery failed")
	ErrNoRecipient    = errors.New("patient has no email address")
)

// DeliveryError is returned by every Notifier. It matches both
// ErrDeliveryFailed and the underlying cause under errors.Is.
type DeliveryError struct {
	Kind      Kind
	Recipient string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("sending %s notification to %q: %v", e.Kind, e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() []error {
	return []error{ErrDeliveryFailed, e.Err}
}

func deliveryError(kind Kind, msg Message, err error) error {
	var de *DeliveryError
	if errors.As(err, &de) {
		return err
	}
	return &DeliveryError{Kind: kind, Recipient: msg.PatientEmail, Err: err}
}

// subject and body are shared by every transport.
func subject(kind Kind, msg Message) string {
	if kind == KindReminder {
		return "Reminder: your appointment tomorrow at " + msg.Time.String()
	}
	return "Appointment confirmation for " + msg.Date.String() + " at " + msg.Time.String()
}

func body(kind Kind, msg Message) string {
	intro := "Your appointment has been booked."
	if kind == KindReminder {
		intro = "This is a reminder of your appointment tomorrow."
	}
	return fmt.Sprintf("Hello %s,\n\n%s\n\nDoctor: %s (%s)\nDate: %s\nTime: %s\n",
		msg.PatientName, intro, msg.DoctorName, msg.Specialty, msg.Date, msg.Time)
}
