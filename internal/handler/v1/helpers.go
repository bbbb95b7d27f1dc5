package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/calendar"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/doctor"
	mr "github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/lock"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/service"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: validErr.Fields,
		})
		return
	}

	var rejection *calendar.RejectionError
	if errors.As(err, &rejection) {
		resp := ErrorResponse{Error: rejection.Error(), Code: string(rejection.Reason)}
		if rejection.Reason == calendar.ReasonOutsideWorkingHours {
			resp.Details = map[string]string{
				"day_start": rejection.DayStart.String(),
				"day_end":   rejection.DayEnd.String(),
			}
		}
		c.JSON(http.StatusUnprocessableEntity, resp)
		return
	}

	switch {
	case errors.Is(err, patient.ErrPatientNotFound),
		errors.Is(err, doctor.ErrDoctorNotFound),
		errors.Is(err, appointment.ErrAppointmentNotFound),
		errors.Is(err, mr.ErrRecordNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})

	case errors.Is(err, patient.ErrPatientAlreadyExists),
		errors.Is(err, doctor.ErrLicenseTaken),
		errors.Is(err, doctor.ErrNationalIDTaken),
		errors.Is(err, doctor.ErrUserAlreadyDoctor),
		errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, mr.ErrRecordExists),
		errors.Is(err, mr.ErrAppointmentNotCompleted),
		errors.Is(err, appointment.ErrInvalidStatusTransition),
		errors.Is(err, appointment.ErrConcurrentUpdate):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})

	case errors.Is(err, doctor.ErrDoctorInactive),
		errors.Is(err, doctor.ErrUserNotDoctor),
		errors.Is(err, patient.ErrPatientInactive),
		errors.Is(err, calendar.ErrInvalidCalendar):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})

	case errors.Is(err, appointment.ErrInvalidStatus),
		errors.Is(err, calendar.ErrInvalidDate),
		errors.Is(err, calendar.ErrInvalidTimeOfDay),
		errors.Is(err, calendar.ErrInvalidWeekday),
		errors.Is(err, domain.ErrInvalidRole):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})

	case errors.Is(err, lock.ErrNotAcquired):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "the schedule is busy, please retry",
			Code:  "BOOKING_BUSY",
		})

	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "access denied"})

	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})

	case errors.Is(err, service.ErrAccountInactive):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error: "account is inactive",
			Code:  "ACCOUNT_INACTIVE",
		})

	case errors.Is(err, service.ErrAccountLocked):
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error: "account temporarily locked",
			Code:  "ACCOUNT_LOCKED",
		})

	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

// bindJSON decodes the body into obj and runs its validate tags.
func bindJSON(c *gin.Context, v *validator.Validator, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return false
	}
	if err := v.Validate(obj); err != nil {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: v.FormatValidationErrors(err),
		})
		return false
	}
	return true
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	raw := c.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + param + ": must be a valid UUID"})
		return uuid.Nil, false
	}
	return id, true
}

// parseQueryUUID returns nil when the parameter is absent.
func parseQueryUUID(c *gin.Context, key string) (*uuid.UUID, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + key + ": must be a valid UUID"})
		return nil, false
	}
	return &id, true
}

// parseQueryDate returns nil when the parameter is absent.
func parseQueryDate(c *gin.Context, key string) (*calendar.Date, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	d, err := calendar.ParseDate(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + key + ": " + err.Error()})
		return nil, false
	}
	return &d, true
}

func parseQueryInt(c *gin.Context, key string, defaultVal int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}

func caller(c *gin.Context) domain.Caller {
	cl, _ := middleware.CallerFrom(c)
	return cl
}

// fieldParser converts the string fields of a bound request into domain
// values. Bad values are collected per field and reported together.
type fieldParser struct {
	fields []string
}

func (fp *fieldParser) fail(field string, err error) {
	fp.fields = append(fp.fields, field+": "+err.Error())
}

// err is nil when every field parsed.
func (fp *fieldParser) err() error {
	if len(fp.fields) == 0 {
		return nil
	}
	return &service.ValidationError{Fields: fp.fields}
}

func (fp *fieldParser) id(field, s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		fp.fail(field, errors.New("must be a valid UUID"))
	}
	return id
}

func (fp *fieldParser) optID(field string, s *string) *uuid.UUID {
	if s == nil {
		return nil
	}
	id := fp.id(field, *s)
	return &id
}

func (fp *fieldParser) date(field, s string) calendar.Date {
	d, err := calendar.ParseDate(s)
	if err != nil {
		fp.fail(field, err)
	}
	return d
}

func (fp *fieldParser) optDate(field string, s *string) *calendar.Date {
	if s == nil {
		return nil
	}
	d := fp.date(field, *s)
	return &d
}

func (fp *fieldParser) timeOfDay(field, s string) calendar.TimeOfDay {
	t, err := calendar.ParseTimeOfDay(s)
	if err != nil {
		fp.fail(field, err)
	}
	return t
}

func (fp *fieldParser) optTimeOfDay(field string, s *string) *calendar.TimeOfDay {
	if s == nil {
		return nil
	}
	t := fp.timeOfDay(field, *s)
	return &t
}

func (fp *fieldParser) optWeekdays(field string, s *string) *calendar.WeekdaySet {
	if s == nil {
		return nil
	}
	set, err := calendar.ParseWeekdaySet(*s)
	if err != nil {
		fp.fail(field, err)
	}
	return &set
}
