package calendar

import "github.com/google/uuid"

// Validate decides whether an appointment starting at start on d can be
// booked. Checks run in a fixed order and the first failure is reported:
// working day, working window, then overlap with booked intervals. The
// booking identified by excludeID is ignored, which lets an existing
// appointment be revalidated against everyone else. Pass uuid.Nil when
// creating.
func Validate(cal Calendar, d Date, start TimeOfDay, excludeID uuid.UUID, booked []BookedInterval) (Interval, error) {
	if err := cal.Validate(); err != nil {
		return Interval{}, err
	}

	if !cal.IsWorkingDay(d) {
		return Interval{}, &RejectionError{Reason: ReasonNotWorkingDay}
	}

	proposed := Interval{Start: start, End: cal.SlotEnd(start)}
	if !cal.WithinWindow(proposed.Start, proposed.End) {
		return Interval{}, &RejectionError{
			Reason:   ReasonOutsideWorkingHours,
			DayStart: cal.DayStart,
			DayEnd:   cal.DayEnd,
		}
	}

	for i := range booked {
		b := booked[i]
		if excludeID != uuid.Nil && b.AppointmentID == excludeID {
			continue
		}
		if proposed.Overlaps(b.Interval) {
			return Interval{}, &RejectionError{Reason: ReasonSlotAlreadyBooked, Conflict: &b}
		}
	}

	return proposed, nil
}
