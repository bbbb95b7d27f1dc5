package medical_record

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MedicalRecord documents the outcome of one completed appointment. Once
// created it is never edited; corrections are appended as addenda.
type MedicalRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`

	PatientID     uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index" json:"patient_id"`
	AppointmentID uuid.UUID `gorm:"column:appointment_id;type:uuid;not null;uniqueIndex" json:"appointment_id"`
	DoctorID      uuid.UUID `gorm:"column:doctor_id;type:uuid;not null;index" json:"doctor_id"`

	Diagnosis string `gorm:"column:diagnosis;type:text" json:"diagnosis,omitempty"`
	Treatment string `gorm:"column:treatment;type:text" json:"treatment,omitempty"`
	Notes     string `gorm:"column:notes;type:text" json:"notes,omitempty"`

	Addenda []Addendum `gorm:"foreignKey:MedicalRecordID" json:"addenda,omitempty"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
}

func (MedicalRecord) TableName() string {
	return "medical_records"
}

func (r *MedicalRecord) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Addendum is an append-only correction to an existing medical record.
type Addendum struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	MedicalRecordID uuid.UUID `gorm:"column:medical_record_id;type:uuid;not null;index" json:"medical_record_id"`
	Content         string    `gorm:"column:content;type:text;not null" json:"content"`
	CreatedBy       uuid.UUID `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
}

func (Addendum) TableName() string {
	return "medical_record_addenda"
}

func (a *Addendum) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

type CreateRecordCommand struct {
	AppointmentID uuid.UUID
	Diagnosis     string
	Treatment     string
	Notes         string
	CreatedBy     uuid.UUID
}

type AddAddendumCommand struct {
	MedicalRecordID uuid.UUID
	Content         string
	CreatedBy       uuid.UUID
}

type ListRecordsQuery struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Page      int
	PageSize  int
}

type PagedRecords struct {
	Records    []*MedicalRecord `json:"records"`
	TotalCount int64            `json:"total_count"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}
