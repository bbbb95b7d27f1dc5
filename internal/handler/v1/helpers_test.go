package v1

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/service"
	"github.com/gin-gonic/gin"
)

func TestFieldParser_CollectsEveryBadField(t *testing.T) {
	var fp fieldParser
	good := "2024-01-15"
	bad := "15/01/2024"
	days := "1,9"

	fp.id("doctor_id", "6f1c2a7e-0000-4000-8000-000000000001")
	fp.id("patient_id", "nope")
	fp.date("date", good)
	fp.optDate("date_to", &bad)
	fp.timeOfDay("start_time", "24:30")
	fp.optTimeOfDay("day_end", nil)
	fp.optWeekdays("working_days", &days)

	var ve *service.ValidationError
	if !errors.As(fp.err(), &ve) {
		t.Fatalf("expected a ValidationError, got %v", fp.err())
	}
	if len(ve.Fields) != 4 {
		t.Fatalf("expected 4 field errors, got %v", ve.Fields)
	}
	for i, field := range []string{"patient_id", "date_to", "start_time", "working_days"} {
		if !strings.HasPrefix(ve.Fields[i], field+": ") {
			t.Errorf("expected error %d to name %s, got %q", i, field, ve.Fields[i])
		}
	}
}

func TestFieldParser_AllValid(t *testing.T) {
	var fp fieldParser
	end := "24:00"

	if got := fp.optTimeOfDay("day_end", &end); got == nil || got.String() != "24:00" {
		t.Errorf("expected 24:00, got %v", got)
	}
	if id := fp.optID("doctor_id", nil); id != nil {
		t.Errorf("expected nil for an absent id, got %v", id)
	}
	if err := fp.err(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestRespondServiceError_Mapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"field errors", &service.ValidationError{Fields: []string{"date: invalid"}}, http.StatusBadRequest},
		{"concurrent update", appointment.ErrConcurrentUpdate, http.StatusConflict},
		{"not found", appointment.ErrAppointmentNotFound, http.StatusNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondServiceError(c, tt.err)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d (%s)", tt.want, w.Code, w.Body.String())
			}
		})
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondServiceError(c, &service.ValidationError{Fields: []string{"date: invalid"}})
	var body ValidationErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if body.Error != "validation failed" || len(body.Fields) != 1 {
		t.Errorf("unexpected body: %+v", body)
	}
}
