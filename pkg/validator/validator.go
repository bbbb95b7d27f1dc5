package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/calendar"
	"github.com/go-playground/validator/v10"
)

// Validator checks request DTOs tagged with `validate:"..."`. Besides the
// stock rules it knows hhmm (24-hour time), isodate (YYYY-MM-DD) and
// weekdays (comma-joined 0..6).
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	mustRegister(v, "hhmm", func(fl validator.FieldLevel) bool {
		_, err := calendar.ParseTimeOfDay(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "isodate", func(fl validator.FieldLevel) bool {
		_, err := calendar.ParseDate(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "weekdays", func(fl validator.FieldLevel) bool {
		_, err := calendar.ParseWeekdaySet(fl.Field().String())
		return err == nil
	})

	return &Validator{validate: v}
}

// mustRegister panics when a custom rule cannot be registered; that is a
// programming error caught on first start.
func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validator: registering %q: %v", tag, err))
	}
}

func (v *Validator) Validate(i any) error {
	return v.validate.Struct(i)
}

// FormatValidationErrors turns a validation error into one message per field.
func (v *Validator) FormatValidationErrors(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	fields := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := e.Field()
		switch e.Tag() {
		case "required":
			fields = append(fields, field+" is required")
		case "email":
			fields = append(fields, field+" must be a valid email address")
		case "min":
			fields = append(fields, field+" must be at least "+e.Param())
		case "max":
			fields = append(fields, field+" must be at most "+e.Param())
		case "oneof":
			fields = append(fields, field+" must be one of: "+e.Param())
		case "uuid":
			fields = append(fields, field+" must be a valid UUID")
		case "hhmm":
			fields = append(fields, field+" must be a time in HH:MM format")
		case "isodate":
			fields = append(fields, field+" must be a date in YYYY-MM-DD format")
		case "weekdays":
			fields = append(fields, field+" must be comma-separated weekdays 0 (Sunday) to 6 (Saturday)")
		default:
			fields = append(fields, field+" is invalid")
		}
	}
	return fields
}
