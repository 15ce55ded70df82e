package staff

import (
	"context"

	"github.com/google/uuid"

	"github.com/dentalink/clinic/internal/domain/schedule"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Staff, error)
	ListByClinic(ctx context.Context, clinicID uuid.UUID, limit, offset int) ([]*Staff, int, error)
	Create(ctx context.Context, s *Staff) error
	Update(ctx context.Context, s *Staff) error

	AddShift(ctx context.Context, sh *Shift) error
	RemoveShift(ctx context.Context, staffID uuid.UUID, date string) error
	WorkingOn(ctx context.Context, clinicID uuid.UUID, date string) ([]schedule.WorkingStaff, error)
}
