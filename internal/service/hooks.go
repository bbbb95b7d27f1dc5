package service

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/patient"
)

type EventKind string

const (
	EventCreated       EventKind = "created"
	EventUpdated       EventKind = "updated"
	EventStatusChanged EventKind = "status_changed"
	EventCancelled     EventKind = "cancelled"
)

// AppointmentEvent describes a committed appointment write. Appointment is
// the stored state; hooks may flip its notification flags after persisting
// them so the caller's response stays accurate.
type AppointmentEvent struct {
	Kind           EventKind
	PreviousStatus appointment.Status
	Appointment    *appointment.Appointment
	Doctor         *doctor.Doctor
	Patient        *patient.Patient
}

// PostCommitHook runs after the write has committed and the booking lock is
// released. Hooks handle their own failures; they cannot fail the write.
type PostCommitHook func(ctx context.Context, ev AppointmentEvent)
