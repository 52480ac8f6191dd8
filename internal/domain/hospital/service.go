package hospital

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, h *Hospital) error {
	if h.Name == "" {
		return fmt.Errorf("hospital name is required")
	}
	h.Active = true
	return s.repo.Create(ctx, h)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, h *Hospital) error {
	if h.Name == "" {
		return fmt.Errorf("hospital name is required")
	}
	return s.repo.Update(ctx, h)
}

// Deactivate retires a hospital without destroying its rows; other
// entities keep their foreign keys but the tenant stops resolving.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	h, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	h.Active = false
	return s.repo.Update(ctx, h)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Hospital, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// Exists implements db.HospitalResolver for the tenancy middleware.
func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.repo.Exists(ctx, id)
}
