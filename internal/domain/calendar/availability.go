package calendar

// Availability returns the free slots of d in ascending start order. A day
// the doctor does not work yields an empty slice. booked must already be
// restricted to the doctor's non-cancelled appointments on d.
func Availability(cal Calendar, d Date, booked []Interval) ([]Slot, error) {
	if err := cal.Validate(); err != nil {
		return nil, err
	}

	slots := make([]Slot, 0)
	if !cal.IsWorkingDay(d) {
		return slots, nil
	}

	for start := cal.DayStart; cal.SlotEnd(start) <= cal.DayEnd; start = cal.SlotEnd(start) {
		candidate := Slot{Start: start, End: cal.SlotEnd(start)}
		if !overlapsAny(candidate, booked) {
			slots = append(slots, candidate)
		}
	}
	return slots, nil
}

func overlapsAny(candidate Interval, booked []Interval) bool {
	for _, b := range booked {
		if candidate.Overlaps(b) {
			return true
		}
	}
	return false
}

// Booked projects start times of existing appointments onto intervals of the
// calendar's slot duration.
func (c Calendar) Booked(starts ...TimeOfDay) []Interval {
	out := make([]Interval, len(starts))
	for i, s := range starts {
		out[i] = Interval{Start: s, End: c.SlotEnd(s)}
	}
	return out
}
