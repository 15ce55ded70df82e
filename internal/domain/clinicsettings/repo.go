package clinicsettings

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Clinic, error)
	List(ctx context.Context, limit, offset int) ([]*Clinic, int, error)
	Create(ctx context.Context, c *Clinic) error
	Update(ctx context.Context, c *Clinic) error
}
