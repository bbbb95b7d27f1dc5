package appointment

import (
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/calendar"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusConfirmed   Status = "confirmed"
	StatusCancelled   Status = "cancelled"
	StatusCompleted   Status = "completed"
	StatusRescheduled Status = "rescheduled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCancelled, StatusCompleted, StatusRescheduled:
		return true
	}
	return false
}

// Occupies reports whether an appointment in this status holds its slot.
func (s Status) Occupies() bool {
	return s != StatusCancelled
}

type Appointment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	PatientID uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index" json:"patient_id"`
	DoctorID  uuid.UUID `gorm:"column:doctor_id;type:uuid;not null;index:idx_appointments_doctor_date,priority:1" json:"doctor_id"`

	Date      calendar.Date      `gorm:"column:appointment_date;type:date;not null;index:idx_appointments_doctor_date,priority:2" json:"date"`
	StartTime calendar.TimeOfDay `gorm:"column:start_time;type:varchar(5);not null" json:"start_time"`

	HealthIssue string `gorm:"column:health_issue;type:text" json:"health_issue,omitempty"`
	Status      Status `gorm:"column:status;type:varchar(20);not null;default:'scheduled';index" json:"status"`
	Notes       string `gorm:"column:notes;type:text" json:"notes,omitempty"`

	NotificationSent bool `gorm:"column:notification_sent;not null;default:false" json:"notification_sent"`
	ReminderSent     bool `gorm:"column:reminder_sent;not null;default:false" json:"reminder_sent"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
}

func (Appointment) TableName() string {
	return "appointments"
}

func (a *Appointment) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Detail is the read projection returned by queries: the appointment plus
// the names needed to display it.
type Detail struct {
	ID uuid.UUID `gorm:"column:id" json:"id"`

	PatientID         uuid.UUID `gorm:"column:patient_id" json:"patient_id"`
	PatientName       string    `gorm:"column:patient_name" json:"patient_name"`
	PatientNationalID string    `gorm:"column:patient_national_id" json:"patient_national_id"`

	DoctorID        uuid.UUID `gorm:"column:doctor_id" json:"doctor_id"`
	DoctorName      string    `gorm:"column:doctor_name" json:"doctor_name"`
	DoctorSpecialty string    `gorm:"column:doctor_specialty" json:"doctor_specialty"`

	Date        calendar.Date      `gorm:"column:appointment_date" json:"date"`
	StartTime   calendar.TimeOfDay `gorm:"column:start_time" json:"start_time"`
	HealthIssue string             `gorm:"column:health_issue" json:"health_issue,omitempty"`
	Status      Status             `gorm:"column:status" json:"status"`
	Notes       string             `gorm:"column:notes" json:"notes,omitempty"`

	NotificationSent bool `gorm:"column:notification_sent" json:"notification_sent"`
	ReminderSent     bool `gorm:"column:reminder_sent" json:"reminder_sent"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// DetailOf projects a. The patient and doctor names are left for the caller.
func DetailOf(a *Appointment) *Detail {
	return &Detail{
		ID:               a.ID,
		PatientID:        a.PatientID,
		DoctorID:         a.DoctorID,
		Date:             a.Date,
		StartTime:        a.StartTime,
		HealthIssue:      a.HealthIssue,
		Status:           a.Status,
		Notes:            a.Notes,
		NotificationSent: a.NotificationSent,
		ReminderSent:     a.ReminderSent,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

type CreateCommand struct {
	PatientID   uuid.UUID
	DoctorID    uuid.UUID
	Date        calendar.Date
	StartTime   calendar.TimeOfDay
	HealthIssue string
	Notes       string
	// Status defaults to scheduled when empty.
	Status    Status
	CreatedBy uuid.UUID
}

// UpdateCommand carries a partial update; nil fields are left unchanged.
type UpdateCommand struct {
	PatientID   *uuid.UUID
	DoctorID    *uuid.UUID
	Date        *calendar.Date
	StartTime   *calendar.TimeOfDay
	HealthIssue *string
	Notes       *string
	Status      *Status
}

// Reschedules reports whether applying cmd to a moves it in time or to
// another doctor.
func (cmd *UpdateCommand) Reschedules(a *Appointment) bool {
	return (cmd.Date != nil && !cmd.Date.Equal(a.Date)) ||
		(cmd.StartTime != nil && *cmd.StartTime != a.StartTime) ||
		(cmd.DoctorID != nil && *cmd.DoctorID != a.DoctorID)
}

// TouchesSlot reports whether cmd may change which slot the appointment
// holds: its doctor, date, start or status.
func (cmd *UpdateCommand) TouchesSlot() bool {
	return cmd.DoctorID != nil || cmd.Date != nil || cmd.StartTime != nil || cmd.Status != nil
}

// Apply copies the set fields of cmd onto a.
func (cmd *UpdateCommand) Apply(a *Appointment) {
	if cmd.PatientID != nil {
		a.PatientID = *cmd.PatientID
	}
	if cmd.DoctorID != nil {
		a.DoctorID = *cmd.DoctorID
	}
	if cmd.Date != nil {
		a.Date = *cmd.Date
	}
	if cmd.StartTime != nil {
		a.StartTime = *cmd.StartTime
	}
	if cmd.HealthIssue != nil {
		a.HealthIssue = *cmd.HealthIssue
	}
	if cmd.Notes != nil {
		a.Notes = *cmd.Notes
	}
	if cmd.Status != nil {
		a.Status = *cmd.Status
	}
}

type ListQuery struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    *Status
	DateFrom  *calendar.Date
	DateTo    *calendar.Date
	Page      int
	PageSize  int
}

type PagedDetails struct {
	Appointments []*Detail `json:"appointments"`
	TotalCount   int64     `json:"total_count"`
	Page         int       `json:"page"`
	PageSize     int       `json:"page_size"`
	TotalPages   int       `json:"total_pages"`
}
