package medical_record

import "errors"

var (
	ErrRecordNotFound          = errors.New("medical record not found")
	ErrRecordExists            = errors.New("this appointment already has a medical record")
	ErrAppointmentNotCompleted = errors.New("medical records can only be written for completed appointments")
)
