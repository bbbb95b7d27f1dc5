package calendar

import "errors"

var (
	ErrInvalidCalendar  = errors.New("invalid doctor calendar")
	ErrInvalidTimeOfDay = errors.New("invalid time of day, use HH:MM")
	ErrInvalidDate      = errors.New("invalid date, use YYYY-MM-DD")
	ErrInvalidWeekday   = errors.New("invalid weekday, use 0 (Sunday) to 6 (Saturday)")

	ErrDoctorNotAvailableThisWeekday = errors.New("doctor does not work on this weekday")
	ErrOutsideWorkingHours           = errors.New("time is outside the doctor's working hours")
	ErrSlotAlreadyBooked             = errors.New("time slot is already booked for this doctor")
)

// Reason enumerates why a proposed appointment was rejected.
type Reason string

const (
	ReasonNotWorkingDay       Reason = "DOCTOR_NOT_AVAILABLE_THIS_WEEKDAY"
	ReasonOutsideWorkingHours Reason = "OUTSIDE_WORKING_HOURS"
	ReasonSlotAlreadyBooked   Reason = "SLOT_ALREADY_BOOKED"
)

// RejectionError is returned by Validate. It unwraps to the sentinel matching
// its Reason so callers can use errors.Is.
type RejectionError struct {
	Reason Reason
	// Window bounds, set for ReasonOutsideWorkingHours.
	DayStart TimeOfDay
	DayEnd   TimeOfDay
	// Conflicting booking, set for ReasonSlotAlreadyBooked.
	Conflict *BookedInterval
}

func (e *RejectionError) Error() string {
	switch e.Reason {
	case ReasonOutsideWorkingHours:
		return ErrOutsideWorkingHours.Error() + " (" + e.DayStart.String() + " - " + e.DayEnd.String() + ")"
	case ReasonSlotAlreadyBooked:
		return ErrSlotAlreadyBooked.Error()
	default:
		return ErrDoctorNotAvailableThisWeekday.Error()
	}
}

func (e *RejectionError) Unwrap() error {
	switch e.Reason {
	case ReasonOutsideWorkingHours:
		return ErrOutsideWorkingHours
	case ReasonSlotAlreadyBooked:
		return ErrSlotAlreadyBooked
	default:
		return ErrDoctorNotAvailableThisWeekday
	}
}
