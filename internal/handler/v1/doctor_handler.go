package v1

import (
	"context"
	"net/http"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DoctorService interface {
	CreateDoctor(ctx context.Context, cmd *doctor.CreateCommand, caller domain.Caller) (*doctor.Profile, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*doctor.Profile, error)
	ListDoctors(ctx context.Context, q *doctor.ListQuery) (*doctor.PagedProfiles, error)
	UpdateDoctor(ctx context.Context, id uuid.UUID, cmd *doctor.UpdateCommand, caller domain.Caller) (*doctor.Profile, error)
	DeactivateDoctor(ctx context.Context, id uuid.UUID, caller domain.Caller) error
}

type DoctorHandler struct {
	svc      DoctorService
	validate *validator.Validator
}

func NewDoctorHandler(svc DoctorService, v *validator.Validator) *DoctorHandler {
	return &DoctorHandler{svc: svc, validate: v}
}

// Calendar fields are optional on create; the defaults are 08:00-18:00,
// Monday to Friday, 30 minute slots.
type createDoctorRequest struct {
	UserID        string  `json:"user_id" validate:"required,uuid"`
	LicenseNumber string  `json:"license_number" validate:"required,max=30"`
	Specialty     string  `json:"specialty" validate:"required,max=100"`
	Phone         string  `json:"phone" validate:"required,max=20"`
	DateOfBirth   string  `json:"date_of_birth" validate:"required,isodate"`
	NationalID    string  `json:"national_id" validate:"required,max=20"`
	DayStart      *string `json:"day_start" validate:"omitempty,hhmm"`
	DayEnd        *string `json:"day_end" validate:"omitempty,hhmm"`
	WorkingDays   *string `json:"working_days" validate:"omitempty,weekdays"`
	SlotMinutes   *int    `json:"slot_minutes" validate:"omitempty,min=5,max=480"`
}

type updateDoctorRequest struct {
	LicenseNumber *string `json:"license_number" validate:"omitempty,max=30"`
	Specialty     *string `json:"specialty" validate:"omitempty,max=100"`
	Phone         *string `json:"phone" validate:"omitempty,max=20"`
	DateOfBirth   *string `json:"date_of_birth" validate:"omitempty,isodate"`
	NationalID    *string `json:"national_id" validate:"omitempty,max=20"`
	DayStart      *string `json:"day_start" validate:"omitempty,hhmm"`
	DayEnd        *string `json:"day_end" validate:"omitempty,hhmm"`
	WorkingDays   *string `json:"working_days" validate:"omitempty,weekdays"`
	SlotMinutes   *int    `json:"slot_minutes" validate:"omitempty,min=5,max=480"`
}

func (h *DoctorHandler) Create(c *gin.Context) {
	var req createDoctorRequest
	if !bindJSON(c, h.validate, &req) {
		return
	}

	var fp fieldParser
	cmd := &doctor.CreateCommand{
		UserID:        fp.id("user_id", req.UserID),
		LicenseNumber: req.LicenseNumber,
		Specialty:     req.Specialty,
		Phone:         req.Phone,
		DateOfBirth:   fp.date("date_of_birth", req.DateOfBirth),
		NationalID:    req.NationalID,
		DayStart:      fp.optTimeOfDay("day_start", req.DayStart),
		DayEnd:        fp.optTimeOfDay("day_end", req.DayEnd),
		WorkingDays:   fp.optWeekdays("working_days", req.WorkingDays),
		SlotMinutes:   req.SlotMinutes,
	}
	if err := fp.err(); err != nil {
		respondServiceError(c, err)
		return
	}

	profile, err := h.svc.CreateDoctor(c.Request.Context(), cmd, caller(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, profile)
}

func (h *DoctorHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	profile, err := h.svc.GetDoctor(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, profile)
}

func (h *DoctorHandler) List(c *gin.Context) {
	page, err := h.svc.ListDoctors(c.Request.Context(), &doctor.ListQuery{
		Specialty: c.Query("specialty"),
		Page:      parseQueryInt(c, "page", 1),
		PageSize:  parseQueryInt(c, "page_size", 20),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, page)
}

func (h *DoctorHandler) Update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updateDoctorRequest
	if !bindJSON(c, h.validate, &req) {
		return
	}

	var fp fieldParser
	cmd := &doctor.UpdateCommand{
		LicenseNumber: req.LicenseNumber,
		Specialty:     req.Specialty,
		Phone:         req.Phone,
		DateOfBirth:   fp.optDate("date_of_birth", req.DateOfBirth),
		NationalID:    req.NationalID,
		DayStart:      fp.optTimeOfDay("day_start", req.DayStart),
		DayEnd:        fp.optTimeOfDay("day_end", req.DayEnd),
		WorkingDays:   fp.optWeekdays("working_days", req.WorkingDays),
		SlotMinutes:   req.SlotMinutes,
	}
	if err := fp.err(); err != nil {
		respondServiceError(c, err)
		return
	}

	profile, err := h.svc.UpdateDoctor(c.Request.Context(), id, cmd, caller(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, profile)
}

func (h *DoctorHandler) Deactivate(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeactivateDoctor(c.Request.Context(), id, caller(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
