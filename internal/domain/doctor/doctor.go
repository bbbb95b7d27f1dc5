package doctor

import (
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/calendar"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	DefaultDayStart    = calendar.MustParseTimeOfDay("08:00")
	DefaultDayEnd      = calendar.MustParseTimeOfDay("18:00")
	DefaultWorkingDays = calendar.NewWeekdaySet(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)
)

const DefaultSlotMinutes = 30

type Doctor struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	// Name, email and active flag live on the linked login.
	UserID uuid.UUID    `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	User   *domain.User `gorm:"foreignKey:UserID"`

	LicenseNumber string        `gorm:"column:license_number;type:varchar(30);not null;uniqueIndex"`
	Specialty     string        `gorm:"column:specialty;type:varchar(100);not null;index"`
	Phone         string        `gorm:"column:phone;type:varchar(20);not null"`
	DateOfBirth   calendar.Date `gorm:"column:date_of_birth;type:date;not null"`
	NationalID    string        `gorm:"column:national_id;type:varchar(20);not null;uniqueIndex"`

	DayStart    calendar.TimeOfDay  `gorm:"column:day_start;type:varchar(5);not null"`
	DayEnd      calendar.TimeOfDay  `gorm:"column:day_end;type:varchar(5);not null"`
	WorkingDays calendar.WeekdaySet `gorm:"column:working_days;type:varchar(20);not null"`
	SlotMinutes int                 `gorm:"column:slot_minutes;not null"`
}

func (Doctor) TableName() string {
	return "doctors"
}

func (d *Doctor) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Calendar returns the doctor's current working configuration. It is built
// from the stored columns on every call.
func (d *Doctor) Calendar() calendar.Calendar {
	return calendar.Calendar{
		WorkingDays: d.WorkingDays,
		DayStart:    d.DayStart,
		DayEnd:      d.DayEnd,
		SlotMinutes: d.SlotMinutes,
	}
}

func (d *Doctor) Name() string {
	if d.User == nil {
		return ""
	}
	return d.User.FullName()
}

func (d *Doctor) IsActive() bool {
	return d.User != nil && d.User.IsActive
}

// Profile is the read projection of a doctor.
type Profile struct {
	ID            uuid.UUID         `json:"id"`
	UserID        uuid.UUID         `json:"user_id"`
	Name          string            `json:"name"`
	Email         string            `json:"email"`
	Active        bool              `json:"active"`
	LicenseNumber string            `json:"license_number"`
	Specialty     string            `json:"specialty"`
	Phone         string            `json:"phone"`
	DateOfBirth   calendar.Date     `json:"date_of_birth"`
	NationalID    string            `json:"national_id"`
	Calendar      calendar.Calendar `json:"calendar"`
	CreatedAt     time.Time         `json:"created_at"`
}

func (d *Doctor) Profile() *Profile {
	p := &Profile{
		ID:            d.ID,
		UserID:        d.UserID,
		Name:          d.Name(),
		Active:        d.IsActive(),
		LicenseNumber: d.LicenseNumber,
		Specialty:     d.Specialty,
		Phone:         d.Phone,
		DateOfBirth:   d.DateOfBirth,
		NationalID:    d.NationalID,
		Calendar:      d.Calendar(),
		CreatedAt:     d.CreatedAt,
	}
	if d.User != nil {
		p.Email = d.User.Email
	}
	return p
}

// CreateCommand registers a doctor for an existing doctor login. Calendar
// fields left nil take the clinic defaults.
type CreateCommand struct {
	UserID        uuid.UUID
	LicenseNumber string
	Specialty     string
	Phone         string
	DateOfBirth   calendar.Date
	NationalID    string

	DayStart    *calendar.TimeOfDay
	DayEnd      *calendar.TimeOfDay
	WorkingDays *calendar.WeekdaySet
	SlotMinutes *int
}

type UpdateCommand struct {
	LicenseNumber *string
	Specialty     *string
	Phone         *string
	DateOfBirth   *calendar.Date
	NationalID    *string

	DayStart    *calendar.TimeOfDay
	DayEnd      *calendar.TimeOfDay
	WorkingDays *calendar.WeekdaySet
	SlotMinutes *int
}

type ListQuery struct {
	Specialty string
	Page      int
	PageSize  int
}

type PagedProfiles struct {
	Doctors    []*Profile `json:"doctors"`
	TotalCount int64      `json:"total_count"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
}
