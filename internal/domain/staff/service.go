package staff

import (
	"context"

	"github.com/google/uuid"

	"github.com/dentalink/clinic/internal/domain/schedule"
)

// Service manages the staff directory and shift assignments, and serves as
// the schedule engine's roster collaborator.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetStaff(ctx context.Context, id uuid.UUID) (*Staff, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListStaff(ctx context.Context, clinicID uuid.UUID, limit, offset int) ([]*Staff, int, error) {
	return s.repo.ListByClinic(ctx, clinicID, limit, offset)
}

func (s *Service) CreateStaff(ctx context.Context, st *Staff) error {
	if err := st.Validate(); err != nil {
		return err
	}
	return s.repo.Create(ctx, st)
}

func (s *Service) UpdateStaff(ctx context.Context, st *Staff) error {
	if err := st.Validate(); err != nil {
		return err
	}
	return s.repo.Update(ctx, st)
}

func (s *Service) AddShift(ctx context.Context, sh *Shift) error {
	if err := sh.Validate(); err != nil {
		return err
	}
	return s.repo.AddShift(ctx, sh)
}

func (s *Service) RemoveShift(ctx context.Context, staffID uuid.UUID, date string) error {
	return s.repo.RemoveShift(ctx, staffID, date)
}

// WorkingOn implements schedule.RosterSource. Column order (position
// precedence, then name) is applied by the engine via SortRoster.
func (s *Service) WorkingOn(ctx context.Context, clinicID uuid.UUID, date string) ([]schedule.WorkingStaff, error) {
	return s.repo.WorkingOn(ctx, clinicID, date)
}
