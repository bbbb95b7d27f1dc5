package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/calendar"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/lock"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/notify"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/dmehra2102/prod-golang-projects/clinicbook/internal/service")

const defaultNotifyTimeout = 10 * time.Second

type AppointmentService struct {
	repo     appointment.Repository
	doctors  doctor.Repository
	patients patient.Repository
	locker   lock.Locker
	notifier notify.Notifier
	auditSvc *AuditService
	metrics  *metrics.Collector
	log      *zap.Logger

	guard         appointment.TransitionGuard
	hooks         []PostCommitHook
	notifyTimeout time.Duration
}

type AppointmentOption func(*AppointmentService)

// WithTransitionGuard replaces the default guard, which allows every
// transition between valid statuses.
func WithTransitionGuard(g appointment.TransitionGuard) AppointmentOption {
	return func(s *AppointmentService) { s.guard = g }
}

// WithPostCommitHook adds a hook after the built-in notification hook.
func WithPostCommitHook(h PostCommitHook) AppointmentOption {
	return func(s *AppointmentService) { s.hooks = append(s.hooks, h) }
}

func WithNotifyTimeout(d time.Duration) AppointmentOption {
	return func(s *AppointmentService) {
		if d > 0 {
			s.notifyTimeout = d
		}
	}
}

func NewAppointmentService(
	repo appointment.Repository,
	doctors doctor.Repository,
	patients patient.Repository,
	locker lock.Locker,
	notifier notify.Notifier,
	auditSvc *AuditService,
	m *metrics.Collector,
	log *zap.Logger,
	opts ...AppointmentOption,
) *AppointmentService {
	s := &AppointmentService{
		repo:          repo,
		doctors:       doctors,
		patients:      patients,
		locker:        locker,
		notifier:      notifier,
		auditSvc:      auditSvc,
		metrics:       m,
		log:           log,
		guard:         appointment.AllowAnyTransition,
		notifyTimeout: defaultNotifyTimeout,
	}
	s.hooks = []PostCommitHook{s.bookingNotificationHook}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AppointmentService) Create(ctx context.Context, cmd *appointment.CreateCommand, caller domain.Caller) (*appointment.Detail, error) {
	ctx, span := tracer.Start(ctx, "AppointmentService.Create", trace.WithAttributes(
		attribute.String("doctor_id", cmd.DoctorID.String()),
		attribute.String("date", cmd.Date.String()),
	))
	defer span.End()

	if cmd.Status == "" {
		cmd.Status = appointment.StatusScheduled
	}
	if err := validateCreateAppointment(cmd); err != nil {
		return nil, err
	}

	d, err := s.doctors.GetByID(ctx, cmd.DoctorID)
	if err != nil {
		return nil, err
	}
	if !d.IsActive() {
		return nil, doctor.ErrDoctorInactive
	}
	p, err := s.patients.GetByID(ctx, cmd.PatientID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive() {
		return nil, patient.ErrPatientInactive
	}

	a := &appointment.Appointment{
		PatientID:   p.ID,
		DoctorID:    d.ID,
		Date:        cmd.Date,
		StartTime:   cmd.StartTime,
		HealthIssue: strings.TrimSpace(cmd.HealthIssue),
		Status:      cmd.Status,
		Notes:       strings.TrimSpace(cmd.Notes),
		CreatedBy:   caller.UserID,
	}

	err = s.withBookingLock(ctx, d.ID, a.Date, func(ctx context.Context) error {
		if a.Status.Occupies() {
			if err := s.checkSlot(ctx, d, a.Date, a.StartTime, uuid.Nil); err != nil {
				return err
			}
		}
		return s.repo.Create(ctx, a)
	})
	if err != nil {
		s.recordFailure(span, err)
		return nil, err
	}

	s.metrics.AppointmentsTotal.WithLabelValues(string(a.Status)).Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Caller:       caller,
		Action:       domain.ActionCreate,
		ResourceType: "appointment",
		ResourceID:   a.ID.String(),
	})
	s.log.Info("appointment created",
		zap.String("appointment_id", a.ID.String()),
		zap.String("doctor_id", d.ID.String()),
		zap.String("date", a.Date.String()),
		zap.String("start", a.StartTime.String()),
	)

	s.runHooks(ctx, AppointmentEvent{Kind: EventCreated, Appointment: a, Doctor: d, Patient: p})
	return newDetail(a, d, p), nil
}

// Update edits an appointment. Only the fields set in cmd are written. A
// change of doctor, date, start or status is decided under the booking lock
// of the target (doctor, date) against a fresh read of the row, and a move
// or a reopening revalidates against the doctor's current calendar.
func (s *AppointmentService) Update(ctx context.Context, id uuid.UUID, cmd *appointment.UpdateCommand, caller domain.Caller) (*appointment.Detail, error) {
	ctx, span := tracer.Start(ctx, "AppointmentService.Update", trace.WithAttributes(
		attribute.String("appointment_id", id.String()),
	))
	defer span.End()

	normalizeUpdate(cmd)
	if err := validateUpdateAppointment(cmd); err != nil {
		return nil, err
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	doctorID, date := current.DoctorID, current.Date
	if cmd.DoctorID != nil {
		doctorID = *cmd.DoctorID
	}
	if cmd.Date != nil {
		date = *cmd.Date
	}

	var (
		before, after *appointment.Appointment
		d             *doctor.Doctor
		p             *patient.Patient
		rescheduled   bool
	)
	apply := func(ctx context.Context) error {
		fresh, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		// The locks were taken for the row as first read; if another
		// request has since moved it, they no longer cover it.
		moved := fresh.DoctorID != current.DoctorID || !fresh.Date.Equal(current.Date)
		if cmd.TouchesSlot() && moved {
			return appointment.ErrConcurrentUpdate
		}
		if cmd.Status != nil {
			if err := s.guard(fresh.Status, *cmd.Status); err != nil {
				return err
			}
		}

		target := *fresh
		cmd.Apply(&target)

		if d, err = s.doctors.GetByID(ctx, target.DoctorID); err != nil {
			return err
		}
		if p, err = s.patients.GetByID(ctx, target.PatientID); err != nil {
			return err
		}
		if target.PatientID != fresh.PatientID && !p.IsActive() {
			return patient.ErrPatientInactive
		}

		rescheduled = cmd.Reschedules(fresh)
		if target.Status.Occupies() && (rescheduled || !fresh.Status.Occupies()) {
			if target.DoctorID != fresh.DoctorID && !d.IsActive() {
				return doctor.ErrDoctorInactive
			}
			if err := s.checkSlot(ctx, d, target.Date, target.StartTime, id); err != nil {
				return err
			}
		}

		if err := s.repo.Update(ctx, id, cmd); err != nil {
			return err
		}
		before, after = fresh, &target
		return nil
	}

	if cmd.TouchesSlot() {
		// A move holds the day it leaves as well, so a status change there
		// cannot interleave with it.
		err = s.withBookingLocks(ctx, apply,
			lock.BookingKey(current.DoctorID, current.Date),
			lock.BookingKey(doctorID, date),
		)
	} else {
		err = apply(ctx)
	}
	if err != nil {
		s.recordFailure(span, err)
		return nil, err
	}

	if after.Status != before.Status {
		s.metrics.AppointmentsTotal.WithLabelValues(string(after.Status)).Inc()
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Caller:       caller,
		Action:       domain.ActionUpdate,
		ResourceType: "appointment",
		ResourceID:   id.String(),
		Changes:      changes(updateChanges(cmd)),
	})
	s.log.Info("appointment updated",
		zap.String("appointment_id", id.String()),
		zap.Bool("rescheduled", rescheduled),
		zap.String("status", string(after.Status)),
	)

	s.runHooks(ctx, AppointmentEvent{Kind: EventUpdated, PreviousStatus: before.Status, Appointment: after, Doctor: d, Patient: p})
	return newDetail(after, d, p), nil
}

// Cancel marks the appointment cancelled. Appointments are never deleted.
func (s *AppointmentService) Cancel(ctx context.Context, id uuid.UUID, caller domain.Caller) error {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guard(a.Status, appointment.StatusCancelled); err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, id, appointment.StatusCancelled); err != nil {
		return err
	}
	previous := a.Status
	a.Status = appointment.StatusCancelled

	s.metrics.AppointmentsTotal.WithLabelValues(string(a.Status)).Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Caller:       caller,
		Action:       domain.ActionDelete,
		ResourceType: "appointment",
		ResourceID:   id.String(),
		Changes:      changes(map[string]any{"status": appointment.StatusCancelled}),
	})
	s.log.Info("appointment cancelled", zap.String("appointment_id", id.String()))

	s.runHooks(ctx, AppointmentEvent{Kind: EventCancelled, PreviousStatus: previous, Appointment: a})
	return nil
}

// PatchStatus sets the status through the transition guard. Leaving the
// cancelled state takes the slot again, so a move to a slot-holding status
// is decided under the booking lock against a fresh read of the row.
func (s *AppointmentService) PatchStatus(ctx context.Context, id uuid.UUID, status appointment.Status, caller domain.Caller) (*appointment.Detail, error) {
	if !status.IsValid() {
		return nil, &ValidationError{Fields: []string{"status is invalid"}}
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var a *appointment.Appointment
	var previous appointment.Status
	apply := func(ctx context.Context) error {
		fresh, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if fresh.DoctorID != current.DoctorID || !fresh.Date.Equal(current.Date) {
			return appointment.ErrConcurrentUpdate
		}
		if err := s.guard(fresh.Status, status); err != nil {
			return err
		}
		if status.Occupies() && !fresh.Status.Occupies() {
			d, err := s.doctors.GetByID(ctx, fresh.DoctorID)
			if err != nil {
				return err
			}
			if err := s.checkSlot(ctx, d, fresh.Date, fresh.StartTime, fresh.ID); err != nil {
				return err
			}
		}
		if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
			return err
		}
		previous = fresh.Status
		a = fresh
		a.Status = status
		return nil
	}

	if status.Occupies() {
		err = s.withBookingLock(ctx, current.DoctorID, current.Date, apply)
	} else {
		err = apply(ctx)
	}
	if err != nil {
		s.recordFailure(nil, err)
		return nil, err
	}

	d, err := s.doctors.GetByID(ctx, a.DoctorID)
	if err != nil {
		return nil, err
	}
	p, err := s.patients.GetByID(ctx, a.PatientID)
	if err != nil {
		return nil, err
	}

	s.metrics.AppointmentsTotal.WithLabelValues(string(status)).Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Caller:       caller,
		Action:       domain.ActionUpdate,
		ResourceType: "appointment",
		ResourceID:   id.String(),
		Changes:      changes(map[string]any{"status": status, "previous": previous}),
	})

	s.runHooks(ctx, AppointmentEvent{Kind: EventStatusChanged, PreviousStatus: previous, Appointment: a, Doctor: d, Patient: p})
	return newDetail(a, d, p), nil
}

func (s *AppointmentService) Get(ctx context.Context, id uuid.UUID, caller domain.Caller) (*appointment.Detail, error) {
	d, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Caller:       caller,
		Action:       domain.ActionRead,
		ResourceType: "appointment",
		ResourceID:   id.String(),
	})
	return d, nil
}

func (s *AppointmentService) List(ctx context.Context, q *appointment.ListQuery) (*appointment.PagedDetails, error) {
	if q.Status != nil && !q.Status.IsValid() {
		return nil, &ValidationError{Fields: []string{"status is invalid"}}
	}
	if q.DateFrom != nil && q.DateTo != nil && q.DateTo.Before(*q.DateFrom) {
		return nil, &ValidationError{Fields: []string{"date_to must not be before date_from"}}
	}
	normalizePage(&q.Page, &q.PageSize)
	return s.repo.List(ctx, q)
}

// ListForDoctorUser lists the agenda of the doctor linked to the caller's
// login. The doctor id comes from the token when present; logins linked
// after the token was issued are resolved by user id.
func (s *AppointmentService) ListForDoctorUser(ctx context.Context, q *appointment.ListQuery, caller domain.Caller) (*appointment.PagedDetails, error) {
	if caller.Role != domain.RoleDoctor {
		return nil, ErrForbidden
	}
	if caller.DoctorID != nil {
		q.DoctorID = caller.DoctorID
		return s.List(ctx, q)
	}
	d, err := s.doctors.GetByUserID(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	q.DoctorID = &d.ID
	return s.List(ctx, q)
}

type Availability struct {
	DoctorID    uuid.UUID       `json:"doctor_id"`
	DoctorName  string          `json:"doctor_name"`
	Specialty   string          `json:"specialty"`
	Date        calendar.Date   `json:"date"`
	SlotMinutes int             `json:"slot_minutes"`
	Slots       []calendar.Slot `json:"slots"`
	Message     string          `json:"message,omitempty"`
}

func (s *AppointmentService) GetAvailability(ctx context.Context, doctorID uuid.UUID, date calendar.Date) (*Availability, error) {
	ctx, span := tracer.Start(ctx, "AppointmentService.GetAvailability", trace.WithAttributes(
		attribute.String("doctor_id", doctorID.String()),
		attribute.String("date", date.String()),
	))
	defer span.End()

	d, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	cal := d.Calendar()

	result := &Availability{
		DoctorID:    d.ID,
		DoctorName:  d.Name(),
		Specialty:   d.Specialty,
		Date:        date,
		SlotMinutes: cal.SlotMinutes,
	}

	var booked []calendar.Interval
	if cal.IsWorkingDay(date) {
		intervals, err := s.bookedIntervals(ctx, d, date, nil)
		if err != nil {
			return nil, err
		}
		booked = make([]calendar.Interval, len(intervals))
		for i, b := range intervals {
			booked[i] = b.Interval
		}
	}

	slots, err := calendar.Availability(cal, date, booked)
	if err != nil {
		s.log.Error("doctor has an invalid calendar", zap.String("doctor_id", d.ID.String()), zap.Error(err))
		return nil, err
	}
	result.Slots = slots
	if !cal.IsWorkingDay(date) {
		result.Message = calendar.ErrDoctorNotAvailableThisWeekday.Error()
	}

	s.metrics.AvailabilityQueries.Inc()
	span.SetAttributes(attribute.Int("slots", len(slots)))
	return result, nil
}

func (s *AppointmentService) withBookingLock(ctx context.Context, doctorID uuid.UUID, date calendar.Date, fn func(context.Context) error) error {
	return s.withBookingLocks(ctx, fn, lock.BookingKey(doctorID, date))
}

// withBookingLocks runs fn holding every key. Keys are taken in sorted order
// so two requests locking the same pair cannot deadlock.
func (s *AppointmentService) withBookingLocks(ctx context.Context, fn func(context.Context) error, keys ...string) error {
	slices.Sort(keys)
	keys = slices.Compact(keys)
	for _, key := range keys {
		unlock, err := s.locker.Lock(ctx, key)
		if err != nil {
			s.log.Warn("booking lock not acquired", zap.String("key", key), zap.Error(err))
			return err
		}
		defer unlock()
	}
	return fn(ctx)
}

// checkSlot runs the calendar rules against the doctor's other bookings.
// It must be called while holding the booking lock of (d, date).
func (s *AppointmentService) checkSlot(ctx context.Context, d *doctor.Doctor, date calendar.Date, start calendar.TimeOfDay, excludeID uuid.UUID) error {
	var exclude *uuid.UUID
	if excludeID != uuid.Nil {
		exclude = &excludeID
	}
	booked, err := s.bookedIntervals(ctx, d, date, exclude)
	if err != nil {
		return err
	}
	_, err = calendar.Validate(d.Calendar(), date, start, excludeID, booked)
	return err
}

func (s *AppointmentService) bookedIntervals(ctx context.Context, d *doctor.Doctor, date calendar.Date, excludeID *uuid.UUID) ([]calendar.BookedInterval, error) {
	appts, err := s.repo.ListBooked(ctx, d.ID, date, excludeID)
	if err != nil {
		return nil, fmt.Errorf("listing booked intervals: %w", err)
	}
	cal := d.Calendar()
	booked := make([]calendar.BookedInterval, len(appts))
	for i, a := range appts {
		booked[i] = calendar.BookedInterval{
			AppointmentID: a.ID,
			Interval:      calendar.Interval{Start: a.StartTime, End: cal.SlotEnd(a.StartTime)},
		}
	}
	return booked, nil
}

func (s *AppointmentService) recordFailure(span trace.Span, err error) {
	var rej *calendar.RejectionError
	if errors.As(err, &rej) {
		s.metrics.BookingRejections.WithLabelValues(string(rej.Reason)).Inc()
	}
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func (s *AppointmentService) runHooks(ctx context.Context, ev AppointmentEvent) {
	for _, h := range s.hooks {
		h(ctx, ev)
	}
}

// bookingNotificationHook sends the booking notification for new
// appointments and for updates that move an appointment to confirmed when
// none went out before. A failure is
// logged and counted; the flag stays false.
func (s *AppointmentService) bookingNotificationHook(ctx context.Context, ev AppointmentEvent) {
	a := ev.Appointment
	if a.NotificationSent || ev.Doctor == nil || ev.Patient == nil {
		return
	}
	switch ev.Kind {
	case EventCreated:
		if !a.Status.Occupies() {
			return
		}
	case EventUpdated:
		if a.Status != appointment.StatusConfirmed || ev.PreviousStatus == appointment.StatusConfirmed {
			return
		}
	default:
		return
	}

	ctx = context.WithoutCancel(ctx)
	sendCtx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()

	err := s.notifier.SendBookingNotification(sendCtx, notificationMessage(a, ev.Doctor, ev.Patient))
	s.metrics.Notification(string(notify.KindBooking), err)
	if err != nil {
		s.log.Warn("booking notification failed",
			zap.String("appointment_id", a.ID.String()),
			zap.Error(err),
		)
		return
	}

	if err := s.repo.MarkNotificationSent(ctx, a.ID); err != nil {
		s.log.Error("failed to record notification",
			zap.String("appointment_id", a.ID.String()),
			zap.Error(err),
		)
		return
	}
	a.NotificationSent = true
}

func notificationMessage(a *appointment.Appointment, d *doctor.Doctor, p *patient.Patient) notify.Message {
	return notify.Message{
		AppointmentID: a.ID,
		PatientEmail:  p.Email,
		PatientName:   p.FullName(),
		DoctorName:    d.Name(),
		Specialty:     d.Specialty,
		Date:          a.Date,
		Time:          a.StartTime,
	}
}

func newDetail(a *appointment.Appointment, d *doctor.Doctor, p *patient.Patient) *appointment.Detail {
	detail := appointment.DetailOf(a)
	detail.PatientName = p.FullName()
	detail.PatientNationalID = p.NationalID
	detail.DoctorName = d.Name()
	detail.DoctorSpecialty = d.Specialty
	return detail
}

func normalizeUpdate(cmd *appointment.UpdateCommand) {
	if cmd.HealthIssue != nil {
		v := strings.TrimSpace(*cmd.HealthIssue)
		cmd.HealthIssue = &v
	}
	if cmd.Notes != nil {
		v := strings.TrimSpace(*cmd.Notes)
		cmd.Notes = &v
	}
}

func updateChanges(cmd *appointment.UpdateCommand) map[string]any {
	fields := map[string]any{}
	if cmd.PatientID != nil {
		fields["patient_id"] = *cmd.PatientID
	}
	if cmd.DoctorID != nil {
		fields["doctor_id"] = *cmd.DoctorID
	}
	if cmd.Date != nil {
		fields["date"] = *cmd.Date
	}
	if cmd.StartTime != nil {
		fields["start_time"] = *cmd.StartTime
	}
	if cmd.Status != nil {
		fields["status"] = *cmd.Status
	}
	return fields
}

func validateCreateAppointment(cmd *appointment.CreateCommand) error {
	var errs fieldErrors
	if cmd.PatientID == uuid.Nil {
		errs.add("patient_id is required")
	}
	if cmd.DoctorID == uuid.Nil {
		errs.add("doctor_id is required")
	}
	if cmd.Date.IsZero() {
		errs.add("date is required")
	}
	if !cmd.Status.IsValid() {
		errs.add("status is invalid")
	}
	return errs.err()
}

func validateUpdateAppointment(cmd *appointment.UpdateCommand) error {
	var errs fieldErrors
	if cmd.PatientID != nil && *cmd.PatientID == uuid.Nil {
		errs.add("patient_id must not be empty")
	}
	if cmd.DoctorID != nil && *cmd.DoctorID == uuid.Nil {
		errs.add("doctor_id must not be empty")
	}
	if cmd.Date != nil && cmd.Date.IsZero() {
		errs.add("date must not be empty")
	}
	if cmd.Status != nil && !cmd.Status.IsValid() {
		errs.add("status is invalid")
	}
	return errs.err()
}
