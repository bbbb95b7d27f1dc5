package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/doctor"
	mr "github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/patient"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type MedicalRecordService struct {
	repo         mr.Repository
	appointments appointment.Repository
	doctors      doctor.Repository
	patients     patient.Repository
	auditSvc     *AuditService
	log          *zap.Logger
}

func NewMedicalRecordService(
	repo mr.Repository,
	appointments appointment.Repository,
	doctors doctor.Repository,
	patients patient.Repository,
	auditSvc *AuditService,
	log *zap.Logger,
) *MedicalRecordService {
	return &MedicalRecordService{
		repo:         repo,
		appointments: appointments,
		doctors:      doctors,
		patients:     patients,
		auditSvc:     auditSvc,
		log:          log,
	}
}

// CreateRecord documents a completed appointment. A doctor may only write
// records for their own appointments.
func (s *MedicalRecordService) CreateRecord(ctx context.Context, cmd *mr.CreateRecordCommand, caller domain.Caller) (*mr.MedicalRecord, error) {
	if !caller.Is(domain.RoleDoctor, domain.RoleAdmin) {
		return nil, ErrForbidden
	}
	if cmd.AppointmentID == uuid.Nil {
		return nil, &ValidationError{Fields: []string{"appointment_id is required"}}
	}

	a, err := s.appointments.GetByID(ctx, cmd.AppointmentID)
	if err != nil {
		return nil, err
	}
	if a.Status != appointment.StatusCompleted {
		return nil, mr.ErrAppointmentNotCompleted
	}
	if err := s.ensureOwnPatient(ctx, caller, a.DoctorID); err != nil {
		return nil, err
	}

	rec := &mr.MedicalRecord{
		PatientID:     a.PatientID,
		AppointmentID: a.ID,
		DoctorID:      a.DoctorID,
		Diagnosis:     strings.TrimSpace(cmd.Diagnosis),
		Treatment:     strings.TrimSpace(cmd.Treatment),
		Notes:         strings.TrimSpace(cmd.Notes),
		CreatedBy:     caller.UserID,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Caller:       caller,
		Action:       domain.ActionCreate,
		ResourceType: "medical_record",
		ResourceID:   rec.ID.String(),
	})
	s.log.Info("medical record created",
		zap.String("record_id", rec.ID.String()),
		zap.String("appointment_id", a.ID.String()),
	)
	return rec, nil
}

func (s *MedicalRecordService) GetRecord(ctx context.Context, id uuid.UUID, caller domain.Caller) (*mr.MedicalRecord, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Caller:       caller,
		Action:       domain.ActionRead,
		ResourceType: "medical_record",
		ResourceID:   id.String(),
	})
	return rec, nil
}

func (s *MedicalRecordService) GetByAppointment(ctx context.Context, appointmentID uuid.UUID, caller domain.Caller) (*mr.MedicalRecord, error) {
	rec, err := s.repo.GetByAppointmentID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Caller:       caller,
		Action:       domain.ActionRead,
		ResourceType: "medical_record",
		ResourceID:   rec.ID.String(),
	})
	return rec, nil
}

// ListByPatient returns a patient's medical history, newest first.
func (s *MedicalRecordService) ListByPatient(ctx context.Context, patientID uuid.UUID, page, pageSize int, caller domain.Caller) (*mr.PagedRecords, error) {
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return nil, err
	}
	normalizePage(&page, &pageSize)

	records, err := s.repo.List(ctx, &mr.ListRecordsQuery{PatientID: &patientID, Page: page, PageSize: pageSize})
	if err != nil {
		return nil, fmt.Errorf("listing medical records: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Caller:       caller,
		Action:       domain.ActionRead,
		ResourceType: "patient_medical_records",
		ResourceID:   patientID.String(),
	})
	return records, nil
}

// AddAddendum appends a correction. Records themselves are never edited.
func (s *MedicalRecordService) AddAddendum(ctx context.Context, cmd *mr.AddAddendumCommand, caller domain.Caller) (*mr.MedicalRecord, error) {
	if !caller.Is(domain.RoleDoctor, domain.RoleAdmin) {
		return nil, ErrForbidden
	}
	content := strings.TrimSpace(cmd.Content)
	if content == "" {
		return nil, &ValidationError{Fields: []string{"content is required"}}
	}

	rec, err := s.repo.GetByID(ctx, cmd.MedicalRecordID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureOwnPatient(ctx, caller, rec.DoctorID); err != nil {
		return nil, err
	}

	addendum := &mr.Addendum{
		MedicalRecordID: rec.ID,
		Content:         content,
		CreatedBy:       caller.UserID,
	}
	if err := s.repo.AddAddendum(ctx, addendum); err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Caller:       caller,
		Action:       domain.ActionUpdate,
		ResourceType: "medical_record",
		ResourceID:   rec.ID.String(),
		Changes:      changes(map[string]any{"addendum_id": addendum.ID}),
	})

	rec.Addenda = append(rec.Addenda, *addendum)
	return rec, nil
}

func (s *MedicalRecordService) ensureOwnPatient(ctx context.Context, caller domain.Caller, doctorID uuid.UUID) error {
	if caller.Role != domain.RoleDoctor {
		return nil
	}
	d, err := s.doctors.GetByUserID(ctx, caller.UserID)
	if err != nil {
		return ErrForbidden
	}
	if d.ID != doctorID {
		return ErrForbidden
	}
	return nil
}
