package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/calendar"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PatientService struct {
	repo     patient.Repository
	auditSvc *AuditService
	metrics  *metrics.Collector
	log      *zap.Logger
}

func NewPatientService(repo patient.Repository, auditSvc *AuditService, m *metrics.Collector, log *zap.Logger) *PatientService {
	return &PatientService{
		repo:     repo,
		auditSvc: auditSvc,
		metrics:  m,
		log:      log,
	}
}

func (s *PatientService) CreatePatient(ctx context.Context, cmd *patient.CreatePatientCommand, caller domain.Caller) (*patient.Patient, error) {
	if cmd.ContactType == "" {
		cmd.ContactType = patient.ContactMobile
	}
	if err := validateCreatePatient(cmd); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByNationalID(ctx, cmd.NationalID, nil)
	if err != nil {
		s.log.Error("failed to check national ID uniqueness", zap.Error(err))
		return nil, fmt.Errorf("checking uniqueness: %w", err)
	}
	if exists {
		return nil, patient.ErrPatientAlreadyExists
	}

	p := &patient.Patient{
		FirstName:   strings.TrimSpace(cmd.FirstName),
		LastName:    strings.TrimSpace(cmd.LastName),
		DateOfBirth: cmd.DateOfBirth,
		Gender:      cmd.Gender,
		NationalID:  strings.TrimSpace(cmd.NationalID),
		ContactInfo: patient.ContactInfo{
			Phone:       strings.TrimSpace(cmd.Phone),
			ContactType: cmd.ContactType,
			Email:       strings.ToLower(strings.TrimSpace(cmd.Email)),
			Address:     cmd.Address,
			City:        cmd.City,
			State:       cmd.State,
			ZipCode:     cmd.ZipCode,
		},
		Notes:     cmd.Notes,
		Status:    patient.StatusActive,
		CreatedBy: caller.UserID,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		s.log.Error("failed to create patient", zap.Error(err))
		return nil, err
	}

	s.metrics.PatientsCreatedTotal.Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Caller:       caller,
		Action:       domain.ActionCreate,
		ResourceType: "patient",
		ResourceID:   p.ID.String(),
	})

	s.log.Info("patient created",
		zap.String("patient_id", p.ID.String()),
		zap.String("created_by", caller.UserID.String()),
	)

	return p, nil
}

func (s *PatientService) GetPatient(ctx context.Context, id uuid.UUID, caller domain.Caller) (*patient.Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Caller:       caller,
		Action:       domain.ActionRead,
		ResourceType: "patient",
		ResourceID:   id.String(),
	})

	return p, nil
}

func (s *PatientService) UpdatePatient(ctx context.Context, id uuid.UUID, cmd *patient.UpdatePatientCommand, caller domain.Caller) (*patient.Patient, error) {
	if err := validateUpdatePatient(cmd); err != nil {
		return nil, err
	}

	p, err := s.repo.Update(ctx, id, cmd)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Caller:       caller,
		Action:       domain.ActionUpdate,
		ResourceType: "patient",
		ResourceID:   id.String(),
	})

	return p, nil
}

func (s *PatientService) DeactivatePatient(ctx context.Context, id uuid.UUID, caller domain.Caller) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !p.IsActive() {
		return patient.ErrPatientInactive
	}

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Caller:       caller,
		Action:       domain.ActionDelete,
		ResourceType: "patient",
		ResourceID:   id.String(),
	})

	return nil
}

func (s *PatientService) ListPatients(ctx context.Context, q *patient.ListPatientsQuery) (*patient.PagedPatients, error) {
	normalizePage(&q.Page, &q.PageSize)
	return s.repo.List(ctx, q)
}

func validateCreatePatient(cmd *patient.CreatePatientCommand) error {
	var errs fieldErrors

	if strings.TrimSpace(cmd.FirstName) == "" {
		errs.add("first_name is required")
	}
	if strings.TrimSpace(cmd.LastName) == "" {
		errs.add("last_name is required")
	}
	if cmd.DateOfBirth.IsZero() {
		errs.add("date_of_birth is required")
	} else if cmd.DateOfBirth.After(calendar.DateOf(time.Now())) {
		errs.add("date_of_birth cannot be in the future")
	}
	if !cmd.Gender.IsValid() {
		errs.add("gender is invalid")
	}
	if strings.TrimSpace(cmd.NationalID) == "" {
		errs.add("national_id is required")
	}
	if strings.TrimSpace(cmd.Phone) == "" {
		errs.add("phone is required")
	}
	if !cmd.ContactType.IsValid() {
		errs.add("contact_type is invalid")
	}

	return errs.err()
}

func validateUpdatePatient(cmd *patient.UpdatePatientCommand) error {
	var errs fieldErrors

	if cmd.FirstName != nil && strings.TrimSpace(*cmd.FirstName) == "" {
		errs.add("first_name must not be empty")
	}
	if cmd.LastName != nil && strings.TrimSpace(*cmd.LastName) == "" {
		errs.add("last_name must not be empty")
	}
	if cmd.DateOfBirth != nil && cmd.DateOfBirth.After(calendar.DateOf(time.Now())) {
		errs.add("date_of_birth cannot be in the future")
	}
	if cmd.Gender != nil && !cmd.Gender.IsValid() {
		errs.add("gender is invalid")
	}
	if cmd.ContactType != nil && !cmd.ContactType.IsValid() {
		errs.add("contact_type is invalid")
	}

	return errs.err()
}
