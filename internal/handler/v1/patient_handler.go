package v1

import (
	"context"
	"net/http"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	mr "github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PatientService interface {
	CreatePatient(ctx context.Context, cmd *patient.CreatePatientCommand, caller domain.Caller) (*patient.Patient, error)
	GetPatient(ctx context.Context, id uuid.UUID, caller domain.Caller) (*patient.Patient, error)
	UpdatePatient(ctx context.Context, id uuid.UUID, cmd *patient.UpdatePatientCommand, caller domain.Caller) (*patient.Patient, error)
	DeactivatePatient(ctx context.Context, id uuid.UUID, caller domain.Caller) error
	ListPatients(ctx context.Context, q *patient.ListPatientsQuery) (*patient.PagedPatients, error)
}

// PatientHistory serves a patient's medical records.
type PatientHistory interface {
	ListByPatient(ctx context.Context, patientID uuid.UUID, page, pageSize int, caller domain.Caller) (*mr.PagedRecords, error)
}

type PatientHandler struct {
	svc      PatientService
	history  PatientHistory
	validate *validator.Validator
}

func NewPatientHandler(svc PatientService, history PatientHistory, v *validator.Validator) *PatientHandler {
	return &PatientHandler{svc: svc, history: history, validate: v}
}

type createPatientRequest struct {
	FirstName   string `json:"first_name" validate:"required,max=100"`
	LastName    string `json:"last_name" validate:"required,max=100"`
	DateOfBirth string `json:"date_of_birth" validate:"required,isodate"`
	Gender      string `json:"gender" validate:"required,oneof=male female other"`
	NationalID  string `json:"national_id" validate:"required,max=20"`
	Phone       string `json:"phone" validate:"required,max=20"`
	ContactType string `json:"contact_type" validate:"omitempty,oneof=mobile landline whatsapp other"`
	Email       string `json:"email" validate:"omitempty,email"`
	Address     string `json:"address"`
	City        string `json:"city" validate:"max=100"`
	State       string `json:"state" validate:"max=50"`
	ZipCode     string `json:"zip_code" validate:"max=20"`
	Notes       string `json:"notes"`
}

type updatePatientRequest struct {
	FirstName   *string `json:"first_name" validate:"omitempty,max=100"`
	LastName    *string `json:"last_name" validate:"omitempty,max=100"`
	DateOfBirth *string `json:"date_of_birth" validate:"omitempty,isodate"`
	Gender      *string `json:"gender" validate:"omitempty,oneof=male female other"`
	Phone       *string `json:"phone" validate:"omitempty,max=20"`
	ContactType *string `json:"contact_type" validate:"omitempty,oneof=mobile landline whatsapp other"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Address     *string `json:"address"`
	City        *string `json:"city" validate:"omitempty,max=100"`
	State       *string `json:"state" validate:"omitempty,max=50"`
	ZipCode     *string `json:"zip_code" validate:"omitempty,max=20"`
	Notes       *string `json:"notes"`
}

func (h *PatientHandler) Create(c *gin.Context) {
	var req createPatientRequest
	if !bindJSON(c, h.validate, &req) {
		return
	}

	var fp fieldParser
	cmd := &patient.CreatePatientCommand{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DateOfBirth: fp.date("date_of_birth", req.DateOfBirth),
		Gender:      patient.Gender(req.Gender),
		NationalID:  req.NationalID,
		Phone:       req.Phone,
		ContactType: patient.ContactType(req.ContactType),
		Email:       req.Email,
		Address:     req.Address,
		City:        req.City,
		State:       req.State,
		ZipCode:     req.ZipCode,
		Notes:       req.Notes,
	}
	if err := fp.err(); err != nil {
		respondServiceError(c, err)
		return
	}

	p, err := h.svc.CreatePatient(c.Request.Context(), cmd, caller(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, p)
}

func (h *PatientHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	p, err := h.svc.GetPatient(c.Request.Context(), id, caller(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, p)
}

func (h *PatientHandler) List(c *gin.Context) {
	q := &patient.ListPatientsQuery{
		Search:   c.Query("search"),
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 20),
	}
	if raw := c.Query("status"); raw != "" {
		status := patient.Status(raw)
		if status != patient.StatusActive && status != patient.StatusInactive {
			respondError(c, http.StatusBadRequest, "invalid status: must be active or inactive")
			return
		}
		q.Status = &status
	}

	page, err := h.svc.ListPatients(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, page)
}

func (h *PatientHandler) Update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updatePatientRequest
	if !bindJSON(c, h.validate, &req) {
		return
	}

	var fp fieldParser
	cmd := &patient.UpdatePatientCommand{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DateOfBirth: fp.optDate("date_of_birth", req.DateOfBirth),
		Phone:       req.Phone,
		Email:       req.Email,
		Address:     req.Address,
		City:        req.City,
		State:       req.State,
		ZipCode:     req.ZipCode,
		Notes:       req.Notes,
	}
	if req.Gender != nil {
		g := patient.Gender(*req.Gender)
		cmd.Gender = &g
	}
	if req.ContactType != nil {
		ct := patient.ContactType(*req.ContactType)
		cmd.ContactType = &ct
	}
	if err := fp.err(); err != nil {
		respondServiceError(c, err)
		return
	}

	p, err := h.svc.UpdatePatient(c.Request.Context(), id, cmd, caller(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, p)
}

func (h *PatientHandler) Deactivate(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeactivatePatient(c.Request.Context(), id, caller(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PatientHandler) MedicalRecords(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	records, err := h.history.ListByPatient(c.Request.Context(), id,
		parseQueryInt(c, "page", 1), parseQueryInt(c, "page_size", 20), caller(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, records)
}
