package clinicsettings

import (
	"context"

	"github.com/google/uuid"

	"github.com/dentalink/clinic/internal/domain/schedule"
)

// Service owns clinic configuration and doubles as the schedule engine's
// settings collaborator.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetClinic(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListClinics(ctx context.Context, limit, offset int) ([]*Clinic, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) CreateClinic(ctx context.Context, c *Clinic) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return s.repo.Create(ctx, c)
}

func (s *Service) UpdateClinic(ctx context.Context, c *Clinic) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return s.repo.Update(ctx, c)
}

// -- schedule.SettingsSource --

func (s *Service) BusinessHours(ctx context.Context, clinicID uuid.UUID) (schedule.BusinessHours, error) {
	c, err := s.repo.GetByID(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	return c.BusinessHours, nil
}

func (s *Service) BreakTimes(ctx context.Context, clinicID uuid.UUID) (schedule.BreakTimes, error) {
	c, err := s.repo.GetByID(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	return c.BreakTimes, nil
}

func (s *Service) Holidays(ctx context.Context, clinicID uuid.UUID) (schedule.Holidays, error) {
	c, err := s.repo.GetByID(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	return c.Holidays, nil
}

func (s *Service) SlotMinutes(ctx context.Context, clinicID uuid.UUID) (int, error) {
	c, err := s.repo.GetByID(ctx, clinicID)
	if err != nil {
		return 0, err
	}
	return c.SlotMinutes, nil
}

func (s *Service) Scope(ctx context.Context, clinicID uuid.UUID) (schedule.ConflictScope, error) {
	c, err := s.repo.GetByID(ctx, clinicID)
	if err != nil {
		return "", err
	}
	return c.ConflictScope, nil
}
