package repository

import (
	"context"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/medical_record"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MedicalRecordRepository struct {
	db *gorm.DB
}

func NewMedicalRecordRepository(db *gorm.DB) *MedicalRecordRepository {
	return &MedicalRecordRepository{db: db}
}

func (r *MedicalRecordRepository) Create(ctx context.Context, rec *medical_record.MedicalRecord) error {
	if err := r.db.WithContext(ctx).Omit("Addenda").Create(rec).Error; err != nil {
		if isDuplicate(err) {
			return medical_record.ErrRecordExists
		}
		return fmt.Errorf("creating medical record: %w", err)
	}
	return nil
}

func (r *MedicalRecordRepository) GetByID(ctx context.Context, id uuid.UUID) (*medical_record.MedicalRecord, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *MedicalRecordRepository) GetByAppointmentID(ctx context.Context, appointmentID uuid.UUID) (*medical_record.MedicalRecord, error) {
	return r.first(ctx, "appointment_id = ?", appointmentID)
}

func (r *MedicalRecordRepository) first(ctx context.Context, cond string, arg any) (*medical_record.MedicalRecord, error) {
	var rec medical_record.MedicalRecord
	err := r.db.WithContext(ctx).
		Preload("Addenda", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&rec, cond, arg).Error
	if err != nil {
		if isNotFound(err) {
			return nil, medical_record.ErrRecordNotFound
		}
		return nil, fmt.Errorf("getting medical record: %w", err)
	}
	return &rec, nil
}

func (r *MedicalRecordRepository) AddAddendum(ctx context.Context, a *medical_record.Addendum) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("adding addendum: %w", err)
	}
	return nil
}

func (r *MedicalRecordRepository) List(ctx context.Context, q *medical_record.ListRecordsQuery) (*medical_record.PagedRecords, error) {
	query := r.db.WithContext(ctx).Model(&medical_record.MedicalRecord{})
	if q.PatientID != nil {
		query = query.Where("patient_id = ?", *q.PatientID)
	}
	if q.DoctorID != nil {
		query = query.Where("doctor_id = ?", *q.DoctorID)
	}
	query = query.Session(&gorm.Session{})

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return nil, fmt.Errorf("counting medical records: %w", err)
	}

	records := make([]*medical_record.MedicalRecord, 0)
	err := query.Preload("Addenda").
		Order("created_at DESC").
		Offset(offset(q.Page, q.PageSize)).
		Limit(q.PageSize).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("listing medical records: %w", err)
	}

	return &medical_record.PagedRecords{
		Records:    records,
		TotalCount: count,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: totalPages(count, q.PageSize),
	}, nil
}
