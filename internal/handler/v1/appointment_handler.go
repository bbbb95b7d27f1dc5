package v1

import (
	"context"
	"net/http"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/calendar"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/service"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AppointmentService interface {
	Create(ctx context.Context, cmd *appointment.CreateCommand, caller domain.Caller) (*appointment.Detail, error)
	Update(ctx context.Context, id uuid.UUID, cmd *appointment.UpdateCommand, caller domain.Caller) (*appointment.Detail, error)
	Cancel(ctx context.Context, id uuid.UUID, caller domain.Caller) error
	PatchStatus(ctx context.Context, id uuid.UUID, status appointment.Status, caller domain.Caller) (*appointment.Detail, error)
	Get(ctx context.Context, id uuid.UUID, caller domain.Caller) (*appointment.Detail, error)
	List(ctx context.Context, q *appointment.ListQuery) (*appointment.PagedDetails, error)
	ListForDoctorUser(ctx context.Context, q *appointment.ListQuery, caller domain.Caller) (*appointment.PagedDetails, error)
	GetAvailability(ctx context.Context, doctorID uuid.UUID, date calendar.Date) (*service.Availability, error)
}

type ReminderService interface {
	Today() calendar.Date
	Run(ctx context.Context, today calendar.Date) (*service.ReminderReport, error)
}

type AppointmentHandler struct {
	svc       AppointmentService
	reminders ReminderService
	validate  *validator.Validator
}

func NewAppointmentHandler(svc AppointmentService, reminders ReminderService, v *validator.Validator) *AppointmentHandler {
	return &AppointmentHandler{svc: svc, reminders: reminders, validate: v}
}

type createAppointmentRequest struct {
	PatientID   string `json:"patient_id" validate:"required,uuid"`
	DoctorID    string `json:"doctor_id" validate:"required,uuid"`
	Date        string `json:"date" validate:"required,isodate"`
	StartTime   string `json:"start_time" validate:"required,hhmm"`
	HealthIssue string `json:"health_issue"`
	Notes       string `json:"notes"`
	Status      string `json:"status" validate:"omitempty,oneof=scheduled confirmed cancelled completed rescheduled"`
}

type updateAppointmentRequest struct {
	PatientID   *string `json:"patient_id" validate:"omitempty,uuid"`
	DoctorID    *string `json:"doctor_id" validate:"omitempty,uuid"`
	Date        *string `json:"date" validate:"omitempty,isodate"`
	StartTime   *string `json:"start_time" validate:"omitempty,hhmm"`
	HealthIssue *string `json:"health_issue"`
	Notes       *string `json:"notes"`
	Status      *string `json:"status" validate:"omitempty,oneof=scheduled confirmed cancelled completed rescheduled"`
}

type patchStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=scheduled confirmed cancelled completed rescheduled"`
}

// Availability returns the free slots of a doctor on one date. A date the
// doctor does not work yields an empty list and an explanatory message.
func (h *AppointmentHandler) Availability(c *gin.Context) {
	doctorID, ok := parseQueryUUID(c, "doctor_id")
	if !ok {
		return
	}
	date, ok := parseQueryDate(c, "date")
	if !ok {
		return
	}
	if doctorID == nil || date == nil {
		respondError(c, http.StatusBadRequest, "doctor_id and date are required")
		return
	}

	result, err := h.svc.GetAvailability(c.Request.Context(), *doctorID, *date)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, result)
}

func (h *AppointmentHandler) Create(c *gin.Context) {
	var req createAppointmentRequest
	if !bindJSON(c, h.validate, &req) {
		return
	}

	var fp fieldParser
	cmd := &appointment.CreateCommand{
		PatientID:   fp.id("patient_id", req.PatientID),
		DoctorID:    fp.id("doctor_id", req.DoctorID),
		Date:        fp.date("date", req.Date),
		StartTime:   fp.timeOfDay("start_time", req.StartTime),
		HealthIssue: req.HealthIssue,
		Notes:       req.Notes,
		Status:      appointment.Status(req.Status),
	}
	if err := fp.err(); err != nil {
		respondServiceError(c, err)
		return
	}

	d, err := h.svc.Create(c.Request.Context(), cmd, caller(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, d)
}

func (h *AppointmentHandler) Update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updateAppointmentRequest
	if !bindJSON(c, h.validate, &req) {
		return
	}

	var fp fieldParser
	cmd := &appointment.UpdateCommand{
		PatientID:   fp.optID("patient_id", req.PatientID),
		DoctorID:    fp.optID("doctor_id", req.DoctorID),
		Date:        fp.optDate("date", req.Date),
		StartTime:   fp.optTimeOfDay("start_time", req.StartTime),
		HealthIssue: req.HealthIssue,
		Notes:       req.Notes,
	}
	if req.Status != nil {
		st := appointment.Status(*req.Status)
		cmd.Status = &st
	}
	if err := fp.err(); err != nil {
		respondServiceError(c, err)
		return
	}

	d, err := h.svc.Update(c.Request.Context(), id, cmd, caller(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, d)
}

// Cancel is a soft delete: the appointment stays, its status becomes
// cancelled and its slot is released.
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Cancel(c.Request.Context(), id, caller(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AppointmentHandler) PatchStatus(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req patchStatusRequest
	if !bindJSON(c, h.validate, &req) {
		return
	}

	d, err := h.svc.PatchStatus(c.Request.Context(), id, appointment.Status(req.Status), caller(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, d)
}

func (h *AppointmentHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	d, err := h.svc.Get(c.Request.Context(), id, caller(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, d)
}

func (h *AppointmentHandler) List(c *gin.Context) {
	q, ok := listQuery(c)
	if !ok {
		return
	}

	page, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, page)
}

// Mine lists the calling doctor's own agenda.
func (h *AppointmentHandler) Mine(c *gin.Context) {
	q, ok := listQuery(c)
	if !ok {
		return
	}

	page, err := h.svc.ListForDoctorUser(c.Request.Context(), q, caller(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, page)
}

// RunReminders sends reminders for tomorrow's confirmed appointments.
// ?date=YYYY-MM-DD overrides "today".
func (h *AppointmentHandler) RunReminders(c *gin.Context) {
	date, ok := parseQueryDate(c, "date")
	if !ok {
		return
	}
	today := h.reminders.Today()
	if date != nil {
		today = *date
	}

	report, err := h.reminders.Run(c.Request.Context(), today)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, report)
}

func listQuery(c *gin.Context) (*appointment.ListQuery, bool) {
	q := &appointment.ListQuery{
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 20),
	}

	var ok bool
	if q.PatientID, ok = parseQueryUUID(c, "patient_id"); !ok {
		return nil, false
	}
	if q.DoctorID, ok = parseQueryUUID(c, "doctor_id"); !ok {
		return nil, false
	}
	if q.DateFrom, ok = parseQueryDate(c, "date_from"); !ok {
		return nil, false
	}
	if q.DateTo, ok = parseQueryDate(c, "date_to"); !ok {
		return nil, false
	}
	if raw := c.Query("status"); raw != "" {
		status := appointment.Status(raw)
		q.Status = &status
	}
	return q, true
}
