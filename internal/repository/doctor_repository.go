package repository

import (
	"context"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/doctor"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DoctorRepository struct {
	db *gorm.DB
}

func NewDoctorRepository(db *gorm.DB) *DoctorRepository {
	return &DoctorRepository{db: db}
}

func (r *DoctorRepository) Create(ctx context.Context, d *doctor.Doctor) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(d).Error; err != nil {
		if isDuplicate(err) {
			return doctor.ErrUserAlreadyDoctor
		}
		return fmt.Errorf("creating doctor: %w", err)
	}
	return nil
}

func (r *DoctorRepository) GetByID(ctx context.Context, id uuid.UUID) (*doctor.Doctor, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *DoctorRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*doctor.Doctor, error) {
	return r.first(ctx, "user_id = ?", userID)
}

func (r *DoctorRepository) first(ctx context.Context, query string, arg any) (*doctor.Doctor, error) {
	var d doctor.Doctor
	if err := r.db.WithContext(ctx).Preload("User").First(&d, query, arg).Error; err != nil {
		if isNotFound(err) {
			return nil, doctor.ErrDoctorNotFound
		}
		return nil, fmt.Errorf("getting doctor: %w", err)
	}
	return &d, nil
}

func (r *DoctorRepository) Update(ctx context.Context, d *doctor.Doctor) error {
	if err := r.db.WithContext(ctx).Omit("User").Save(d).Error; err != nil {
		return fmt.Errorf("updating doctor: %w", err)
	}
	return nil
}

func (r *DoctorRepository) List(ctx context.Context, q *doctor.ListQuery) ([]*doctor.Doctor, int64, error) {
	query := r.db.WithContext(ctx).Model(&doctor.Doctor{})
	if q.Specialty != "" {
		query = query.Where("LOWER(specialty) LIKE ?", likePattern(q.Specialty))
	}
	query = query.Session(&gorm.Session{})

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("counting doctors: %w", err)
	}

	var doctors []*doctor.Doctor
	err := query.Preload("User").
		Order("specialty ASC, created_at ASC").
		Offset(offset(q.Page, q.PageSize)).
		Limit(q.PageSize).
		Find(&doctors).Error
	if err != nil {
		return nil, 0, fmt.Errorf("listing doctors: %w", err)
	}
	return doctors, count, nil
}

func (r *DoctorRepository) ExistsByLicense(ctx context.Context, license string, excludeID *uuid.UUID) (bool, error) {
	return r.exists(ctx, "license_number = ?", license, excludeID)
}

func (r *DoctorRepository) ExistsByNationalID(ctx context.Context, nationalID string, excludeID *uuid.UUID) (bool, error) {
	return r.exists(ctx, "national_id = ?", nationalID, excludeID)
}

func (r *DoctorRepository) exists(ctx context.Context, cond string, arg any, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&doctor.Doctor{}).Where(cond, arg)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("checking doctor uniqueness: %w", err)
	}
	return count > 0, nil
}
