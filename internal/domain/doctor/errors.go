package doctor

import "errors"

var (
	ErrDoctorNotFound    = errors.New("doctor not found")
	ErrLicenseTaken      = errors.New("a doctor with this license number already exists")
	ErrNationalIDTaken   = errors.New("a doctor with this national ID already exists")
	ErrUserAlreadyDoctor = errors.New("this user is already linked to a doctor")
	ErrUserNotDoctor     = errors.New("linked user must have the doctor role")
	ErrDoctorInactive    = errors.New("doctor is inactive")
)
