package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/calendar"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/patient"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCreate_Success(t *testing.T) {
	f := newAppointmentFixture(t)

	d, err := f.create(t, monday, "09:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Status != appointment.StatusScheduled {
		t.Errorf("expected status scheduled, got %s", d.Status)
	}
	if d.PatientName != "Ana Lima" || d.DoctorName != "Gregory House" || d.DoctorSpecialty != "Diagnostics" {
		t.Errorf("unexpected detail names: %+v", d)
	}
	if !d.NotificationSent {
		t.Error("expected notification to be marked sent")
	}
	if !f.repo.get(d.ID).NotificationSent {
		t.Error("expected notification flag to be persisted")
	}
	if got := f.notifier.bookingCount(); got != 1 {
		t.Errorf("expected 1 booking notification, got %d", got)
	}
	if got := testutil.ToFloat64(f.metrics.AppointmentsTotal.WithLabelValues("scheduled")); got != 1 {
		t.Errorf("expected appointments_total{scheduled}=1, got %v", got)
	}
}

func TestCreate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		date   calendar.Date
		start  string
		want   error
		reason calendar.Reason
	}{
		{"sunday", sunday, "09:00", calendar.ErrDoctorNotAvailableThisWeekday, calendar.ReasonNotWorkingDay},
		{"before opening", monday, "07:30", calendar.ErrOutsideWorkingHours, calendar.ReasonOutsideWorkingHours},
		{"runs past closing", monday, "11:45", calendar.ErrOutsideWorkingHours, calendar.ReasonOutsideWorkingHours},
		{"exact duplicate", monday, "09:00", calendar.ErrSlotAlreadyBooked, calendar.ReasonSlotAlreadyBooked},
		{"partial overlap", monday, "09:15", calendar.ErrSlotAlreadyBooked, calendar.ReasonSlotAlreadyBooked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAppointmentFixture(t)
			f.mustCreate(t, monday, "09:00")

			_, err := f.create(t, tt.date, tt.start)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			var rej *calendar.RejectionError
			if !errors.As(err, &rej) || rej.Reason != tt.reason {
				t.Fatalf("expected rejection reason %s, got %v", tt.reason, err)
			}
			if got := testutil.ToFloat64(f.metrics.BookingRejections.WithLabelValues(string(tt.reason))); got != 1 {
				t.Errorf("expected one rejection counted, got %v", got)
			}
		})
	}
}

func TestCreate_BackToBackAccepted(t *testing.T) {
	f := newAppointmentFixture(t)
	f.mustCreate(t, monday, "09:00")
	f.mustCreate(t, monday, "09:30")
	f.mustCreate(t, monday, "08:30")
}

func TestCreate_CancelledDoesNotBlock(t *testing.T) {
	f := newAppointmentFixture(t)
	first := f.mustCreate(t, monday, "09:00")
	if err := f.svc.Cancel(context.Background(), first.ID, receptionist); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.mustCreate(t, monday, "09:00")
}

func TestCreate_NotificationFailureDoesNotFail(t *testing.T) {
	f := newAppointmentFixture(t)
	f.notifier.failAll = true

	d, err := f.create(t, monday, "10:00")
	if err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}
	if d.NotificationSent {
		t.Error("expected notification flag to stay false")
	}
	if f.repo.get(d.ID).NotificationSent {
		t.Error("expected stored notification flag to stay false")
	}
	if got := testutil.ToFloat64(f.metrics.NotifyFailures); got != 1 {
		t.Errorf("expected 1 notify failure, got %v", got)
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newAppointmentFixture(t)

	_, err := f.svc.Create(context.Background(), &appointment.CreateCommand{}, receptionist)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(ve.Fields) != 3 {
		t.Errorf("expected 3 field errors, got %v", ve.Fields)
	}

	_, err = f.svc.Create(context.Background(), &appointment.CreateCommand{
		PatientID: f.patient.ID, DoctorID: uuid.New(), Date: monday, StartTime: at("09:00"),
	}, receptionist)
	if !errors.Is(err, doctor.ErrDoctorNotFound) {
		t.Errorf("expected ErrDoctorNotFound, got %v", err)
	}

	_, err = f.svc.Create(context.Background(), &appointment.CreateCommand{
		PatientID: uuid.New(), DoctorID: f.doctor.ID, Date: monday, StartTime: at("09:00"),
	}, receptionist)
	if !errors.Is(err, patient.ErrPatientNotFound) {
		t.Errorf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestCreate_InactiveDoctor(t *testing.T) {
	f := newAppointmentFixture(t)
	f.doctor.User.IsActive = false

	if _, err := f.create(t, monday, "09:00"); !errors.Is(err, doctor.ErrDoctorInactive) {
		t.Fatalf("expected ErrDoctorInactive, got %v", err)
	}
}

func TestCreate_ConcurrentSameSlot(t *testing.T) {
	f := newAppointmentFixture(t)

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.create(t, monday, "10:00")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, calendar.ErrSlotAlreadyBooked):
				rejected++
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || rejected != workers-1 {
		t.Fatalf("expected 1 success and %d rejections, got %d and %d", workers-1, succeeded, rejected)
	}
}

func TestUpdate_RescheduleExcludesItself(t *testing.T) {
	f := newAppointmentFixture(t)
	a := f.mustCreate(t, monday, "08:00")
	f.mustCreate(t, monday, "09:00")

	start := at("08:15")
	d, err := f.svc.Update(context.Background(), a.ID, &appointment.UpdateCommand{StartTime: &start}, receptionist)
	if err != nil {
		t.Fatalf("expected overlap with its own old slot to be ignored, got %v", err)
	}
	if d.StartTime != start {
		t.Errorf("expected start 08:15, got %s", d.StartTime)
	}

	clash := at("08:45")
	_, err = f.svc.Update(context.Background(), a.ID, &appointment.UpdateCommand{StartTime: &clash}, receptionist)
	if !errors.Is(err, calendar.ErrSlotAlreadyBooked) {
		t.Fatalf("expected ErrSlotAlreadyBooked, got %v", err)
	}
	if f.repo.get(a.ID).StartTime != start {
		t.Error("expected rejected reschedule to leave the appointment unchanged")
	}
}

func TestUpdate_RescheduleToSunday(t *testing.T) {
	f := newAppointmentFixture(t)
	a := f.mustCreate(t, monday, "08:00")

	date := sunday
	_, err := f.svc.Update(context.Background(), a.ID, &appointment.UpdateCommand{Date: &date}, receptionist)
	if !errors.Is(err, calendar.ErrDoctorNotAvailableThisWeekday) {
		t.Fatalf("expected ErrDoctorNotAvailableThisWeekday, got %v", err)
	}
}

func TestUpdate_UsesCurrentCalendar(t *testing.T) {
	f := newAppointmentFixture(t)
	a := f.mustCreate(t, monday, "11:00")

	// The doctor now stops at 11:00; the booking stays but cannot move to
	// another late slot.
	f.doctor.DayEnd = at("11:00")
	start := at("10:30")
	if _, err := f.svc.Update(context.Background(), a.ID, &appointment.UpdateCommand{StartTime: &start}, receptionist); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	late := at("11:00")
	if _, err := f.svc.Update(context.Background(), a.ID, &appointment.UpdateCommand{StartTime: &late}, receptionist); !errors.Is(err, calendar.ErrOutsideWorkingHours) {
		t.Fatalf("expected ErrOutsideWorkingHours, got %v", err)
	}
}

func TestUpdate_NotesOnlySkipsValidation(t *testing.T) {
	f := newAppointmentFixture(t)
	a := f.mustCreate(t, monday, "11:00")
	f.doctor.WorkingDays = calendar.NewWeekdaySet()

	notes := "bring x-rays"
	d, err := f.svc.Update(context.Background(), a.ID, &appointment.UpdateCommand{Notes: &notes}, receptionist)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Notes != notes {
		t.Errorf("expected notes %q, got %q", notes, d.Notes)
	}
}

func TestUpdate_ConfirmSendsPendingNotification(t *testing.T) {
	f := newAppointmentFixture(t)
	f.notifier.failAll = true
	a := f.mustCreate(t, monday, "09:00")

	f.notifier.failAll = false
	confirmed := appointment.StatusConfirmed
	d, err := f.svc.Update(context.Background(), a.ID, &appointment.UpdateCommand{Status: &confirmed}, receptionist)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.NotificationSent || !f.repo.get(a.ID).NotificationSent {
		t.Error("expected the pending notification to be sent on confirmation")
	}
	if got := f.notifier.bookingCount(); got != 1 {
		t.Errorf("expected 1 booking notification, got %d", got)
	}

	notes := "again"
	if _, err := f.svc.Update(context.Background(), a.ID, &appointment.UpdateCommand{Notes: &notes}, receptionist); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.notifier.bookingCount(); got != 1 {
		t.Errorf("expected no second notification, got %d", got)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	f := newAppointmentFixture(t)
	notes := "x"
	_, err := f.svc.Update(context.Background(), uuid.New(), &appointment.UpdateCommand{Notes: &notes}, receptionist)
	if !errors.Is(err, appointment.ErrAppointmentNotFound) {
		t.Fatalf("expected ErrAppointmentNotFound, got %v", err)
	}
}

func TestPatchStatus_AllowsAnyTransitionByDefault(t *testing.T) {
	f := newAppointmentFixture(t)
	a := f.mustCreate(t, monday, "09:00")

	for _, s := range []appointment.Status{appointment.StatusCompleted, appointment.StatusScheduled, appointment.StatusRescheduled} {
		d, err := f.svc.PatchStatus(context.Background(), a.ID, s, receptionist)
		if err != nil {
			t.Fatalf("moving to %s: unexpected error: %v", s, err)
		}
		if d.Status != s {
			t.Errorf("expected status %s, got %s", s, d.Status)
		}
	}

	if _, err := f.svc.PatchStatus(context.Background(), a.ID, "archived", receptionist); err == nil {
		t.Error("expected an invalid status to be refused")
	}
}

func TestPatchStatus_StrictGuard(t *testing.T) {
	f := newAppointmentFixture(t, WithTransitionGuard(appointment.StrictTransitions))
	a := f.mustCreate(t, monday, "09:00")

	if _, err := f.svc.PatchStatus(context.Background(), a.ID, appointment.StatusCompleted, receptionist); !errors.Is(err, appointment.ErrInvalidStatusTransition) {
		t.Fatalf("expected ErrInvalidStatusTransition, got %v", err)
	}
}

func TestPatchStatus_ReopeningRechecksSlot(t *testing.T) {
	f := newAppointmentFixture(t)
	a := f.mustCreate(t, monday, "09:00")
	if err := f.svc.Cancel(context.Background(), a.ID, receptionist); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.mustCreate(t, monday, "09:00")

	_, err := f.svc.PatchStatus(context.Background(), a.ID, appointment.StatusScheduled, receptionist)
	if !errors.Is(err, calendar.ErrSlotAlreadyBooked) {
		t.Fatalf("expected ErrSlotAlreadyBooked, got %v", err)
	}
	if f.repo.get(a.ID).Status != appointment.StatusCancelled {
		t.Error("expected the appointment to stay cancelled")
	}
}

func TestCancel_NeverDeletes(t *testing.T) {
	f := newAppointmentFixture(t)
	a := f.mustCreate(t, monday, "09:00")

	if err := f.svc.Cancel(context.Background(), a.ID, receptionist); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.repo.get(a.ID); got.Status != appointment.StatusCancelled {
		t.Errorf("expected cancelled, got %s", got.Status)
	}
	if err := f.svc.Cancel(context.Background(), uuid.New(), receptionist); !errors.Is(err, appointment.ErrAppointmentNotFound) {
		t.Errorf("expected ErrAppointmentNotFound, got %v", err)
	}
}

func TestPostCommitHook_RunsAfterWrite(t *testing.T) {
	var events []EventKind
	var f *appointmentFixture
	f = newAppointmentFixture(t, WithPostCommitHook(func(ctx context.Context, ev AppointmentEvent) {
		if _, err := f.repo.GetByID(ctx, ev.Appointment.ID); err != nil {
			t.Errorf("hook ran before the write was visible: %v", err)
		}
		events = append(events, ev.Kind)
	}))

	a := f.mustCreate(t, monday, "09:00")
	if _, err := f.svc.PatchStatus(context.Background(), a.ID, appointment.StatusConfirmed, receptionist); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.svc.Cancel(context.Background(), a.ID, receptionist); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []EventKind{EventCreated, EventStatusChanged, EventCancelled}
	if len(events) != len(want) {
		t.Fatalf("expected events %v, got %v", want, events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], events[i])
		}
	}
}

func TestGetAvailability(t *testing.T) {
	f := newAppointmentFixture(t)
	ctx := context.Background()

	av, err := f.svc.GetAvailability(ctx, f.doctor.ID, monday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(av.Slots) != 8 {
		t.Fatalf("expected 8 slots, got %d", len(av.Slots))
	}
	if av.DoctorName != "Gregory House" || av.SlotMinutes != 30 || av.Message != "" {
		t.Errorf("unexpected availability header: %+v", av)
	}

	f.mustCreate(t, monday, "09:00")
	av, _ = f.svc.GetAvailability(ctx, f.doctor.ID, monday)
	if len(av.Slots) != 7 {
		t.Fatalf("expected 7 slots, got %d", len(av.Slots))
	}
	for _, s := range av.Slots {
		if s.Start == at("09:00") {
			t.Error("expected 09:00 to be taken")
		}
	}

	av, _ = f.svc.GetAvailability(ctx, f.doctor.ID, sunday)
	if av.Slots == nil || len(av.Slots) != 0 {
		t.Errorf("expected empty non-nil slots on sunday, got %v", av.Slots)
	}
	if av.Message == "" {
		t.Error("expected a message explaining the empty day")
	}

	if _, err := f.svc.GetAvailability(ctx, uuid.New(), monday); !errors.Is(err, doctor.ErrDoctorNotFound) {
		t.Errorf("expected ErrDoctorNotFound, got %v", err)
	}
}

func TestGetAvailability_InvalidCalendar(t *testing.T) {
	f := newAppointmentFixture(t)
	f.doctor.SlotMinutes = 0

	if _, err := f.svc.GetAvailability(context.Background(), f.doctor.ID, monday); !errors.Is(err, calendar.ErrInvalidCalendar) {
		t.Fatalf("expected ErrInvalidCalendar, got %v", err)
	}
}

func TestListForDoctorUser(t *testing.T) {
	f := newAppointmentFixture(t)
	f.mustCreate(t, monday, "09:00")

	if _, err := f.svc.ListForDoctorUser(context.Background(), &appointment.ListQuery{}, receptionist); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	caller := domain.Caller{UserID: f.doctor.UserID, Role: domain.RoleDoctor}
	page, err := f.svc.ListForDoctorUser(context.Background(), &appointment.ListQuery{}, caller)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.TotalCount != 1 {
		t.Errorf("expected 1 appointment, got %d", page.TotalCount)
	}
	if page.PageSize != defaultPageSize || page.Page != 1 {
		t.Errorf("expected default pagination, got page %d size %d", page.Page, page.PageSize)
	}
}

func TestListForDoctorUser_UsesTokenDoctorID(t *testing.T) {
	f := newAppointmentFixture(t)
	f.mustCreate(t, monday, "09:00")

	// The user id matches no doctor; the doctor id from the token is enough.
	caller := domain.Caller{UserID: uuid.New(), Role: domain.RoleDoctor, DoctorID: &f.doctor.ID}
	page, err := f.svc.ListForDoctorUser(context.Background(), &appointment.ListQuery{}, caller)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.TotalCount != 1 {
		t.Errorf("expected 1 appointment, got %d", page.TotalCount)
	}

	stranger := domain.Caller{UserID: uuid.New(), Role: domain.RoleDoctor}
	if _, err := f.svc.ListForDoctorUser(context.Background(), &appointment.ListQuery{}, stranger); !errors.Is(err, doctor.ErrDoctorNotFound) {
		t.Errorf("expected ErrDoctorNotFound, got %v", err)
	}
}

func TestList_RejectsInvertedRange(t *testing.T) {
	f := newAppointmentFixture(t)
	from, to := monday, monday.AddDays(-1)

	_, err := f.svc.List(context.Background(), &appointment.ListQuery{DateFrom: &from, DateTo: &to})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
