package calendar

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestAvailability_NonWorkingDayIsEmpty(t *testing.T) {
	slots, err := Availability(weekdayCalendar(), sunday, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slots == nil || len(slots) != 0 {
		t.Errorf("expected an empty, non-nil slice, got %#v", slots)
	}

	// Every day of a week without working days is empty too.
	noDays := weekdayCalendar()
	noDays.WorkingDays = 0
	for i := 0; i < 7; i++ {
		slots, _ := Availability(noDays, monday.AddDays(i), nil)
		if len(slots) != 0 {
			t.Errorf("day %d: expected no slots, got %d", i, len(slots))
		}
	}
}

func TestAvailability_FullDay(t *testing.T) {
	slots, err := Availability(weekdayCalendar(), monday, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"08:00-08:30", "08:30-09:00", "09:00-09:30", "09:30-10:00",
		"10:00-10:30", "10:30-11:00", "11:00-11:30", "11:30-12:00",
	}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d", len(want), len(slots))
	}
	for i, s := range slots {
		if s.String() != want[i] {
			t.Errorf("slot %d = %s, want %s", i, s, want[i])
		}
	}
}

func TestAvailability_ExcludesBookedSlot(t *testing.T) {
	c := weekdayCalendar()
	booked := c.Booked(MustParseTimeOfDay("09:00"))

	slots, err := Availability(c, monday, booked)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 7 {
		t.Fatalf("expected 7 slots, got %d", len(slots))
	}
	for _, s := range slots {
		if s.Start == MustParseTimeOfDay("09:00") {
			t.Error("booked 09:00 slot should not be offered")
		}
	}
}

func TestAvailability_ComplementsBookings(t *testing.T) {
	c := weekdayCalendar()
	c.DayEnd = MustParseTimeOfDay("17:00")
	c.SlotMinutes = 20
	at := MustParseTimeOfDay

	// Bookings that are off-grid relative to the 20-minute walk.
	booked := []Interval{
		{at("08:10"), at("08:30")},
		{at("12:00"), at("12:20")},
		{at("16:50"), at("17:10")},
	}

	slots, err := Availability(c, monday, booked)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := 0
	for start := c.DayStart; c.SlotEnd(start) <= c.DayEnd; start = c.SlotEnd(start) {
		candidate := Interval{start, c.SlotEnd(start)}
		if !overlapsAny(candidate, booked) {
			expected++
		}
	}
	if len(slots) != expected {
		t.Fatalf("expected %d slots, got %d", expected, len(slots))
	}

	for i, s := range slots {
		if int(s.End-s.Start) != c.SlotMinutes {
			t.Errorf("slot %s has wrong length", s)
		}
		if !c.WithinWindow(s.Start, s.End) {
			t.Errorf("slot %s is outside the window", s)
		}
		for _, b := range booked {
			if s.Overlaps(b) {
				t.Errorf("slot %s overlaps booking %s", s, b)
			}
		}
		if i > 0 && slots[i-1].Start >= s.Start {
			t.Errorf("slots not ascending at %d", i)
		}
	}
}

func TestAvailability_LastPartialSlotDropped(t *testing.T) {
	c := weekdayCalendar()
	c.DayEnd = MustParseTimeOfDay("09:45")

	slots, err := Availability(c, monday, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("expected 3 whole slots, got %d", len(slots))
	}
	if last := slots[len(slots)-1]; last.End != MustParseTimeOfDay("09:30") {
		t.Errorf("last slot = %s, want 09:00-09:30", last)
	}
}

func TestAvailability_Idempotent(t *testing.T) {
	c := weekdayCalendar()
	booked := c.Booked(MustParseTimeOfDay("08:30"), MustParseTimeOfDay("11:00"))

	first, err := Availability(c, monday, booked)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := Availability(c, monday, booked)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ between calls: %v vs %v", first, second)
	}
}

func TestAvailability_InvalidCalendar(t *testing.T) {
	c := weekdayCalendar()
	c.SlotMinutes = 0
	if _, err := Availability(c, monday, nil); !errors.Is(err, ErrInvalidCalendar) {
		t.Errorf("expected ErrInvalidCalendar, got %v", err)
	}
}

func TestAvailability_WeekendDoctor(t *testing.T) {
	c := weekdayCalendar()
	c.WorkingDays = NewWeekdaySet(time.Saturday, time.Sunday)

	slots, _ := Availability(c, sunday, nil)
	if len(slots) != 8 {
		t.Errorf("expected 8 Sunday slots, got %d", len(slots))
	}
	slots, _ = Availability(c, monday, nil)
	if len(slots) != 0 {
		t.Errorf("expected no Monday slots, got %d", len(slots))
	}
}
