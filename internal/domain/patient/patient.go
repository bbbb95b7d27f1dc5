package patient

import (
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/calendar"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// ContactType is how the clinic prefers to reach the patient by phone.
type ContactType string

const (
	ContactMobile   ContactType = "mobile"
	ContactLandline ContactType = "landline"
	ContactWhatsApp ContactType = "whatsapp"
	ContactOther    ContactType = "other"
)

func (c ContactType) IsValid() bool {
	switch c {
	case ContactMobile, ContactLandline, ContactWhatsApp, ContactOther:
		return true
	}
	return false
}

// Status represents the lifecycle state of a patient record.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

type ContactInfo struct {
	Phone       string      `gorm:"column:phone;type:varchar(20);not null" json:"phone"`
	ContactType ContactType `gorm:"column:contact_type;type:varchar(20);not null" json:"contact_type"`
	Email       string      `gorm:"column:email;type:varchar(255)" json:"email,omitempty"`
	Address     string      `gorm:"column:address;type:text" json:"address,omitempty"`
	City        string      `gorm:"column:city;type:varchar(100)" json:"city,omitempty"`
	State       string      `gorm:"column:state;type:varchar(50)" json:"state,omitempty"`
	ZipCode     string      `gorm:"column:zip_code;type:varchar(20)" json:"zip_code,omitempty"`
}

type Patient struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"-"` // Soft Delete

	FirstName   string        `gorm:"column:first_name;type:varchar(100);not null" json:"first_name"`
	LastName    string        `gorm:"column:last_name;type:varchar(100);not null" json:"last_name"`
	DateOfBirth calendar.Date `gorm:"column:date_of_birth;type:date;not null" json:"date_of_birth"`
	Gender      Gender        `gorm:"column:gender;type:varchar(20);not null" json:"gender"`
	NationalID  string        `gorm:"column:national_id;type:varchar(20);not null;uniqueIndex" json:"national_id"`

	ContactInfo

	Status Status `gorm:"column:status;type:varchar(20);default:'active';index" json:"status"`
	Notes  string `gorm:"column:notes;type:text" json:"notes,omitempty"`

	// Audit: who registered this patient and when
	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
}

func (Patient) TableName() string {
	return "patients"
}

func (p *Patient) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Age is the patient's age in whole years on the given day.
func (p *Patient) Age(on calendar.Date) int {
	dob := p.DateOfBirth.Time()
	now := on.Time()
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() ||
		(now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	return years
}

func (p *Patient) IsActive() bool {
	return p.Status == StatusActive && p.DeletedAt == nil
}

type CreatePatientCommand struct {
	FirstName   string
	LastName    string
	DateOfBirth calendar.Date
	Gender      Gender
	NationalID  string
	Phone       string
	ContactType ContactType
	Email       string
	Address     string
	City        string
	State       string
	ZipCode     string
	Notes       string
	CreatedBy   uuid.UUID
}

type UpdatePatientCommand struct {
	FirstName   *string
	LastName    *string
	DateOfBirth *calendar.Date
	Gender      *Gender
	Phone       *string
	ContactType *ContactType
	Email       *string
	Address     *string
	City        *string
	State       *string
	ZipCode     *string
	Notes       *string
}

// ListPatientsQuery defines filtering and pagination for patient list queries.
type ListPatientsQuery struct {
	Search   string // matched against first and last name
	Status   *Status
	Page     int
	PageSize int
}

type PagedPatients struct {
	Patients   []*Patient `json:"patients"`
	TotalCount int64      `json:"total_count"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
}
