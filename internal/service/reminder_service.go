package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/calendar"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/notify"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ReminderFailure struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	Patient       string    `json:"patient"`
	Error         string    `json:"error"`
}

type ReminderReport struct {
	Date   calendar.Date     `json:"date"`
	Total  int               `json:"total"`
	Sent   int               `json:"sent"`
	Errors []ReminderFailure `json:"errors"`
}

type ReminderService struct {
	repo     appointment.Repository
	doctors  doctor.Repository
	patients patient.Repository
	notifier notify.Notifier
	metrics  *metrics.Collector
	log      *zap.Logger
	loc      *time.Location
	timeout  time.Duration
}

func NewReminderService(
	repo appointment.Repository,
	doctors doctor.Repository,
	patients patient.Repository,
	notifier notify.Notifier,
	m *metrics.Collector,
	log *zap.Logger,
	loc *time.Location,
	timeout time.Duration,
) *ReminderService {
	if loc == nil {
		loc = time.UTC
	}
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	return &ReminderService{
		repo:     repo,
		doctors:  doctors,
		patients: patients,
		notifier: notifier,
		metrics:  m,
		log:      log,
		loc:      loc,
		timeout:  timeout,
	}
}

// Today is the current date in the clinic's timezone.
func (s *ReminderService) Today() calendar.Date {
	return calendar.DateOf(time.Now().In(s.loc))
}

// Run reminds every patient with a confirmed appointment on the day after
// today that has not been reminded yet. Items are processed one by one and
// a failing item never stops the sweep; the only error returned is a
// failure to load the candidates.
func (s *ReminderService) Run(ctx context.Context, today calendar.Date) (*ReminderReport, error) {
	target := today.AddDays(1)
	ctx, span := tracer.Start(ctx, "ReminderService.Run", trace.WithAttributes(
		attribute.String("date", target.String()),
	))
	defer span.End()

	due, err := s.repo.ListDueReminders(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("loading reminder candidates: %w", err)
	}

	report := &ReminderReport{
		Date:   target,
		Total:  len(due),
		Errors: make([]ReminderFailure, 0),
	}
	for _, a := range due {
		if name, err := s.remind(ctx, a); err != nil {
			s.metrics.ReminderFailures.Inc()
			s.log.Warn("reminder failed",
				zap.String("appointment_id", a.ID.String()),
				zap.Error(err),
			)
			report.Errors = append(report.Errors, ReminderFailure{
				AppointmentID: a.ID,
				Patient:       name,
				Error:         err.Error(),
			})
			continue
		}
		report.Sent++
		s.metrics.RemindersSent.Inc()
	}

	s.metrics.ReminderSweeps.Inc()
	span.SetAttributes(
		attribute.Int("total", report.Total),
		attribute.Int("sent", report.Sent),
	)
	s.log.Info("reminder sweep finished",
		zap.String("date", target.String()),
		zap.Int("total", report.Total),
		zap.Int("sent", report.Sent),
		zap.Int("failed", len(report.Errors)),
	)
	return report, nil
}

// remind returns the patient's name, when known, alongside any error.
func (s *ReminderService) remind(ctx context.Context, a *appointment.Appointment) (string, error) {
	p, err := s.patients.GetByID(ctx, a.PatientID)
	if err != nil {
		return "", fmt.Errorf("loading patient: %w", err)
	}
	d, err := s.doctors.GetByID(ctx, a.DoctorID)
	if err != nil {
		return p.FullName(), fmt.Errorf("loading doctor: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	err = s.notifier.SendReminder(sendCtx, notificationMessage(a, d, p))
	cancel()
	s.metrics.Notification(string(notify.KindReminder), err)
	if err != nil {
		return p.FullName(), err
	}

	// A delivered reminder whose flag cannot be stored is reported as failed:
	// the next sweep will pick it up again.
	if err := s.repo.MarkReminderSent(ctx, a.ID); err != nil {
		return p.FullName(), fmt.Errorf("recording reminder: %w", err)
	}
	return p.FullName(), nil
}

// Schedule runs a sweep for the current day every interval until ctx is
// done.
func (s *ReminderService) Schedule(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("reminder schedule started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("reminder schedule stopped")
			return
		case <-ticker.C:
			if _, err := s.Run(ctx, s.Today()); err != nil {
				s.log.Error("scheduled reminder sweep failed", zap.Error(err))
			}
		}
	}
}
