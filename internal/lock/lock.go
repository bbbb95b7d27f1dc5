// Package lock serializes booking decisions. Every create or reschedule
// holds the lock of its target (doctor, date) from the moment it reads the
// booked intervals until its write has committed. A move to another day
// also holds the day it leaves.
package lock

import (
	"context"
	"errors"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/calendar"
	"github.com/google/uuid"
)

var ErrNotAcquired = errors.New("could not acquire booking lock")

// Locker hands out exclusive locks by key. Lock blocks until the lock is
// held or ctx is done; the returned func releases it and must be called
// exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// BookingKey is the lock key for a doctor's day.
func BookingKey(doctorID uuid.UUID, date calendar.Date) string {
	return "booking:" + doctorID.String() + ":" + date.String()
}
