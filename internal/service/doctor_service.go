package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/doctor"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DoctorUsers is the part of the user store the doctor registry needs.
type DoctorUsers interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

type DoctorService struct {
	repo     doctor.Repository
	users    DoctorUsers
	auditSvc *AuditService
	log      *zap.Logger
}

func NewDoctorService(repo doctor.Repository, users DoctorUsers, auditSvc *AuditService, log *zap.Logger) *DoctorService {
	return &DoctorService{repo: repo, users: users, auditSvc: auditSvc, log: log}
}

func (s *DoctorService) CreateDoctor(ctx context.Context, cmd *doctor.CreateCommand, caller domain.Caller) (*doctor.Profile, error) {
	if err := validateCreateDoctor(cmd); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if user.Role != domain.RoleDoctor {
		return nil, doctor.ErrUserNotDoctor
	}
	if _, err := s.repo.GetByUserID(ctx, user.ID); err == nil {
		return nil, doctor.ErrUserAlreadyDoctor
	}
	if err := s.checkUnique(ctx, cmd.LicenseNumber, cmd.NationalID, nil); err != nil {
		return nil, err
	}

	d := &doctor.Doctor{
		UserID:        user.ID,
		LicenseNumber: strings.TrimSpace(cmd.LicenseNumber),
		Specialty:     strings.TrimSpace(cmd.Specialty),
		Phone:         strings.TrimSpace(cmd.Phone),
		DateOfBirth:   cmd.DateOfBirth,
		NationalID:    strings.TrimSpace(cmd.NationalID),
		DayStart:      doctor.DefaultDayStart,
		DayEnd:        doctor.DefaultDayEnd,
		WorkingDays:   doctor.DefaultWorkingDays,
		SlotMinutes:   doctor.DefaultSlotMinutes,
	}
	if cmd.DayStart != nil {
		d.DayStart = *cmd.DayStart
	}
	if cmd.DayEnd != nil {
		d.DayEnd = *cmd.DayEnd
	}
	if cmd.WorkingDays != nil {
		d.WorkingDays = *cmd.WorkingDays
	}
	if cmd.SlotMinutes != nil {
		d.SlotMinutes = *cmd.SlotMinutes
	}
	if err := d.Calendar().Validate(); err != nil {
		return nil, &ValidationError{Fields: []string{err.Error()}}
	}

	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	d.User = user

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Caller:       caller,
		Action:       domain.ActionCreate,
		ResourceType: "doctor",
		ResourceID:   d.ID.String(),
	})
	s.log.Info("doctor registered",
		zap.String("doctor_id", d.ID.String()),
		zap.String("user_id", user.ID.String()),
	)

	return d.Profile(), nil
}

func (s *DoctorService) GetDoctor(ctx context.Context, id uuid.UUID) (*doctor.Profile, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return d.Profile(), nil
}

func (s *DoctorService) ListDoctors(ctx context.Context, q *doctor.ListQuery) (*doctor.PagedProfiles, error) {
	normalizePage(&q.Page, &q.PageSize)

	doctors, count, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing doctors: %w", err)
	}

	profiles := make([]*doctor.Profile, len(doctors))
	for i, d := range doctors {
		profiles[i] = d.Profile()
	}
	return &doctor.PagedProfiles{
		Doctors:    profiles,
		TotalCount: count,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: totalPages(count, q.PageSize),
	}, nil
}

// UpdateDoctor applies a partial update. Calendar changes take effect for
// every later availability query and booking; existing appointments are
// left as they are.
func (s *DoctorService) UpdateDoctor(ctx context.Context, id uuid.UUID, cmd *doctor.UpdateCommand, caller domain.Caller) (*doctor.Profile, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	license, nationalID := "", ""
	if cmd.LicenseNumber != nil {
		license = strings.TrimSpace(*cmd.LicenseNumber)
		if license == "" {
			return nil, &ValidationError{Fields: []string{"license_number must not be empty"}}
		}
	}
	if cmd.NationalID != nil {
		nationalID = strings.TrimSpace(*cmd.NationalID)
		if nationalID == "" {
			return nil, &ValidationError{Fields: []string{"national_id must not be empty"}}
		}
	}
	if err := s.checkUnique(ctx, license, nationalID, &d.ID); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if license != "" {
		d.LicenseNumber = license
		fields["license_number"] = license
	}
	if nationalID != "" {
		d.NationalID = nationalID
		fields["national_id"] = nationalID
	}
	if cmd.Specialty != nil {
		d.Specialty = strings.TrimSpace(*cmd.Specialty)
		fields["specialty"] = d.Specialty
	}
	if cmd.Phone != nil {
		d.Phone = strings.TrimSpace(*cmd.Phone)
	}
	if cmd.DateOfBirth != nil {
		d.DateOfBirth = *cmd.DateOfBirth
	}
	if cmd.DayStart != nil {
		d.DayStart = *cmd.DayStart
		fields["day_start"] = d.DayStart
	}
	if cmd.DayEnd != nil {
		d.DayEnd = *cmd.DayEnd
		fields["day_end"] = d.DayEnd
	}
	if cmd.WorkingDays != nil {
		d.WorkingDays = *cmd.WorkingDays
		fields["working_days"] = d.WorkingDays.String()
	}
	if cmd.SlotMinutes != nil {
		d.SlotMinutes = *cmd.SlotMinutes
		fields["slot_minutes"] = d.SlotMinutes
	}
	if err := d.Calendar().Validate(); err != nil {
		return nil, &ValidationError{Fields: []string{err.Error()}}
	}

	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Caller:       caller,
		Action:       domain.ActionUpdate,
		ResourceType: "doctor",
		ResourceID:   d.ID.String(),
		Changes:      changes(fields),
	})
	return d.Profile(), nil
}

// DeactivateDoctor disables the doctor's login. The doctor row stays so that
// past appointments keep resolving; new bookings are refused.
func (s *DoctorService) DeactivateDoctor(ctx context.Context, id uuid.UUID, caller domain.Caller) error {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.SetActive(ctx, d.UserID, false); err != nil {
		return err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Caller:       caller,
		Action:       domain.ActionDelete,
		ResourceType: "doctor",
		ResourceID:   id.String(),
	})
	s.log.Info("doctor deactivated", zap.String("doctor_id", id.String()))
	return nil
}

// checkUnique skips empty values.
func (s *DoctorService) checkUnique(ctx context.Context, license, nationalID string, excludeID *uuid.UUID) error {
	if license != "" {
		taken, err := s.repo.ExistsByLicense(ctx, license, excludeID)
		if err != nil {
			return err
		}
		if taken {
			return doctor.ErrLicenseTaken
		}
	}
	if nationalID != "" {
		taken, err := s.repo.ExistsByNationalID(ctx, nationalID, excludeID)
		if err != nil {
			return err
		}
		if taken {
			return doctor.ErrNationalIDTaken
		}
	}
	return nil
}

func validateCreateDoctor(cmd *doctor.CreateCommand) error {
	var errs fieldErrors
	if cmd.UserID == uuid.Nil {
		errs.add("user_id is required")
	}
	if strings.TrimSpace(cmd.LicenseNumber) == "" {
		errs.add("license_number is required")
	}
	if strings.TrimSpace(cmd.Specialty) == "" {
		errs.add("specialty is required")
	}
	if strings.TrimSpace(cmd.Phone) == "" {
		errs.add("phone is required")
	}
	if cmd.DateOfBirth.IsZero() {
		errs.add("date_of_birth is required")
	}
	if strings.TrimSpace(cmd.NationalID) == "" {
		errs.add("national_id is required")
	}
	return errs.err()
}
