package repository

import (
	"context"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/calendar"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

const detailColumns = `appointments.id, appointments.patient_id, appointments.doctor_id,
	appointments.appointment_date, appointments.start_time, appointments.health_issue,
	appointments.status, appointments.notes,
	appointments.notification_sent, appointments.reminder_sent,
	appointments.created_at, appointments.updated_at,
	patients.first_name || ' ' || patients.last_name AS patient_name,
	patients.national_id AS patient_national_id,
	users.first_name || ' ' || users.last_name AS doctor_name,
	doctors.specialty AS doctor_specialty`

func (r *AppointmentRepository) details(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("appointments").
		Select(detailColumns).
		Joins("JOIN patients ON patients.id = appointments.patient_id").
		Joins("JOIN doctors ON doctors.id = appointments.doctor_id").
		Joins("JOIN users ON users.id = doctors.user_id")
}

func (r *AppointmentRepository) Create(ctx context.Context, a *appointment.Appointment) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("creating appointment: %w", err)
	}
	return nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var a appointment.Appointment
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, appointment.ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("getting appointment: %w", err)
	}
	return &a, nil
}

func (r *AppointmentRepository) GetDetail(ctx context.Context, id uuid.UUID) (*appointment.Detail, error) {
	var rows []*appointment.Detail
	if err := r.details(ctx).Where("appointments.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("getting appointment detail: %w", err)
	}
	if len(rows) == 0 {
		return nil, appointment.ErrAppointmentNotFound
	}
	return rows[0], nil
}

func applyFilters(query *gorm.DB, q *appointment.ListQuery) *gorm.DB {
	if q.PatientID != nil {
		query = query.Where("appointments.patient_id = ?", *q.PatientID)
	}
	if q.DoctorID != nil {
		query = query.Where("appointments.doctor_id = ?", *q.DoctorID)
	}
	if q.Status != nil {
		query = query.Where("appointments.status = ?", *q.Status)
	}
	if q.DateFrom != nil {
		query = query.Where("appointments.appointment_date >= ?", *q.DateFrom)
	}
	if q.DateTo != nil {
		query = query.Where("appointments.appointment_date <= ?", *q.DateTo)
	}
	return query
}

func (r *AppointmentRepository) List(ctx context.Context, q *appointment.ListQuery) (*appointment.PagedDetails, error) {
	var count int64
	err := applyFilters(r.db.WithContext(ctx).Model(&appointment.Appointment{}), q).Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("counting appointments: %w", err)
	}

	rows := make([]*appointment.Detail, 0)
	err = applyFilters(r.details(ctx), q).
		Order("appointments.appointment_date ASC, appointments.start_time ASC").
		Offset(offset(q.Page, q.PageSize)).
		Limit(q.PageSize).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing appointments: %w", err)
	}

	return &appointment.PagedDetails{
		Appointments: rows,
		TotalCount:   count,
		Page:         q.Page,
		PageSize:     q.PageSize,
		TotalPages:   totalPages(count, q.PageSize),
	}, nil
}

func (r *AppointmentRepository) Update(ctx context.Context, id uuid.UUID, cmd *appointment.UpdateCommand) error {
	fields := map[string]any{}
	if cmd.PatientID != nil {
		fields["patient_id"] = *cmd.PatientID
	}
	if cmd.DoctorID != nil {
		fields["doctor_id"] = *cmd.DoctorID
	}
	if cmd.Date != nil {
		fields["appointment_date"] = *cmd.Date
	}
	if cmd.StartTime != nil {
		fields["start_time"] = *cmd.StartTime
	}
	if cmd.HealthIssue != nil {
		fields["health_issue"] = *cmd.HealthIssue
	}
	if cmd.Notes != nil {
		fields["notes"] = *cmd.Notes
	}
	if cmd.Status != nil {
		fields["status"] = *cmd.Status
	}

	if len(fields) == 0 {
		_, err := r.GetByID(ctx, id)
		return err
	}

	res := r.db.WithContext(ctx).Model(&appointment.Appointment{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("updating appointment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return appointment.ErrAppointmentNotFound
	}
	return nil
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status appointment.Status) error {
	return r.setColumn(ctx, id, "status", status)
}

func (r *AppointmentRepository) MarkNotificationSent(ctx context.Context, id uuid.UUID) error {
	return r.setColumn(ctx, id, "notification_sent", true)
}

func (r *AppointmentRepository) MarkReminderSent(ctx context.Context, id uuid.UUID) error {
	return r.setColumn(ctx, id, "reminder_sent", true)
}

func (r *AppointmentRepository) setColumn(ctx context.Context, id uuid.UUID, column string, value any) error {
	res := r.db.WithContext(ctx).Model(&appointment.Appointment{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return fmt.Errorf("updating appointment %s: %w", column, res.Error)
	}
	if res.RowsAffected == 0 {
		return appointment.ErrAppointmentNotFound
	}
	return nil
}

func (r *AppointmentRepository) ListBooked(ctx context.Context, doctorID uuid.UUID, date calendar.Date, excludeID *uuid.UUID) ([]*appointment.Appointment, error) {
	query := r.db.WithContext(ctx).
		Where("doctor_id = ? AND appointment_date = ? AND status <> ?", doctorID, date, appointment.StatusCancelled)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var booked []*appointment.Appointment
	if err := query.Order("start_time ASC").Find(&booked).Error; err != nil {
		return nil, fmt.Errorf("listing booked appointments: %w", err)
	}
	return booked, nil
}

func (r *AppointmentRepository) ListDueReminders(ctx context.Context, date calendar.Date) ([]*appointment.Appointment, error) {
	var due []*appointment.Appointment
	err := r.db.WithContext(ctx).
		Where("appointment_date = ? AND status = ? AND reminder_sent = ?", date, appointment.StatusConfirmed, false).
		Order("start_time ASC").
		Find(&due).Error
	if err != nil {
		return nil, fmt.Errorf("listing due reminders: %w", err)
	}
	return due, nil
}
