package doctor

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, d *Doctor) error

	// GetByID and GetByUserID load the linked user. Both return
	// ErrDoctorNotFound when nothing matches.
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error)

	Update(ctx context.Context, d *Doctor) error
	List(ctx context.Context, q *ListQuery) ([]*Doctor, int64, error)

	ExistsByLicense(ctx context.Context, license string, excludeID *uuid.UUID) (bool, error)
	ExistsByNationalID(ctx context.Context, nationalID string, excludeID *uuid.UUID) (bool, error)
}
