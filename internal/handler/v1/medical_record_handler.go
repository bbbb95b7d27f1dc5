package v1

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	mr "github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MedicalRecordService interface {
	CreateRecord(ctx context.Context, cmd *mr.CreateRecordCommand, caller domain.Caller) (*mr.MedicalRecord, error)
	GetRecord(ctx context.Context, id uuid.UUID, caller domain.Caller) (*mr.MedicalRecord, error)
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID, caller domain.Caller) (*mr.MedicalRecord, error)
	AddAddendum(ctx context.Context, cmd *mr.AddAddendumCommand, caller domain.Caller) (*mr.MedicalRecord, error)
}

type MedicalRecordHandler struct {
	svc      MedicalRecordService
	validate *validator.Validator
}

func NewMedicalRecordHandler(svc MedicalRecordService, v *validator.Validator) *MedicalRecordHandler {
	return &MedicalRecordHandler{svc: svc, validate: v}
}

type createRecordRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required,uuid"`
	Diagnosis     string `json:"diagnosis"`
	Treatment     string `json:"treatment"`
	Notes         string `json:"notes"`
}

type addendumRequest struct {
	Content string `json:"content" validate:"required"`
}

func (h *MedicalRecordHandler) Create(c *gin.Context) {
	var req createRecordRequest
	if !bindJSON(c, h.validate, &req) {
		return
	}

	var fp fieldParser
	cmd := &mr.CreateRecordCommand{
		AppointmentID: fp.id("appointment_id", req.AppointmentID),
		Diagnosis:     req.Diagnosis,
		Treatment:     req.Treatment,
		Notes:         req.Notes,
	}
	if err := fp.err(); err != nil {
		respondServiceError(c, err)
		return
	}

	rec, err := h.svc.CreateRecord(c.Request.Context(), cmd, caller(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, rec)
}

func (h *MedicalRecordHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	rec, err := h.svc.GetRecord(c.Request.Context(), id, caller(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, rec)
}

func (h *MedicalRecordHandler) GetByAppointment(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	rec, err := h.svc.GetByAppointment(c.Request.Context(), id, caller(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, rec)
}

func (h *MedicalRecordHandler) AddAddendum(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req addendumRequest
	if !bindJSON(c, h.validate, &req) {
		return
	}

	rec, err := h.svc.AddAddendum(c.Request.Context(), &mr.AddAddendumCommand{
		MedicalRecordID: id,
		Content:         req.Content,
	}, caller(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, rec)
}
