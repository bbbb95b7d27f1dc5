// Package calendar holds the scheduling rules of a doctor's working calendar:
// working-day membership, slot boundaries, overlap tests, free-slot
// computation and booking validation. Nothing in it performs I/O.
package calendar

import "fmt"

// Calendar is a snapshot of a doctor's working configuration.
type Calendar struct {
	WorkingDays WeekdaySet `json:"working_days"`
	DayStart    TimeOfDay  `json:"day_start"`
	DayEnd      TimeOfDay  `json:"day_end"`
	SlotMinutes int        `json:"slot_minutes"`
}

func (c Calendar) Validate() error {
	if c.SlotMinutes <= 0 {
		return fmt.Errorf("%w: slot duration must be positive, got %d", ErrInvalidCalendar, c.SlotMinutes)
	}
	if c.DayStart < 0 || c.DayEnd > minutesPerDay {
		return fmt.Errorf("%w: working window %s-%s is not within one day", ErrInvalidCalendar, c.DayStart, c.DayEnd)
	}
	if c.DayStart >= c.DayEnd {
		return fmt.Errorf("%w: day start %s must be before day end %s", ErrInvalidCalendar, c.DayStart, c.DayEnd)
	}
	return nil
}

func (c Calendar) IsWorkingDay(d Date) bool {
	return c.WorkingDays.Has(d.Weekday())
}

// SlotEnd does not wrap at midnight.
func (c Calendar) SlotEnd(start TimeOfDay) TimeOfDay {
	return start.Add(c.SlotMinutes)
}

func (c Calendar) WithinWindow(start, end TimeOfDay) bool {
	return start >= c.DayStart && end <= c.DayEnd
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Intervals that only touch at an endpoint do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd TimeOfDay) bool {
	return aStart < bEnd && bStart < aEnd
}
