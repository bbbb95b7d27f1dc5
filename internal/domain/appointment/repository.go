package appointment

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/calendar"
	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error)
	List(ctx context.Context, q *ListQuery) (*PagedDetails, error)

	// Update writes only the fields set in cmd. Columns it does not name,
	// including the notification flags, are left as they are in the store.
	Update(ctx context.Context, id uuid.UUID, cmd *UpdateCommand) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	MarkNotificationSent(ctx context.Context, id uuid.UUID) error
	MarkReminderSent(ctx context.Context, id uuid.UUID) error

	// ListBooked returns the non-cancelled appointments of a doctor on a date,
	// skipping excludeID when it is set.
	ListBooked(ctx context.Context, doctorID uuid.UUID, date calendar.Date, excludeID *uuid.UUID) ([]*Appointment, error)

	// ListDueReminders returns confirmed appointments on date whose reminder
	// has not been sent yet.
	ListDueReminders(ctx context.Context, date calendar.Date) ([]*Appointment, error)
}
