package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/careops/hms/internal/platform/db"
)

// Service manages users together with their role side records. User and
// specialized-record writes run in one transaction so the 1:1 invariant
// holds even under failure.
type Service struct {
	pool     *pgxpool.Pool
	users    Repository
	roles    RoleRepository
	registry *Registry
}

func NewService(pool *pgxpool.Pool, users Repository, roles RoleRepository, registry *Registry) *Service {
	return &Service{pool: pool, users: users, roles: roles, registry: registry}
}

type Input struct {
	Name   string            `json:"name"`
	Email  string            `json:"email"`
	Phone  *string           `json:"phone"`
	RoleID uuid.UUID         `json:"role_id"`
	Status string            `json:"status"`
	Record *SpecializedInput `json:"record"`
}

func (in *Input) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(in.Email) == "" {
		return fmt.Errorf("email is required")
	}
	if !strings.Contains(in.Email, "@") {
		return fmt.Errorf("email is invalid")
	}
	if in.RoleID == uuid.Nil {
		return fmt.Errorf("role_id is required")
	}
	if in.Status != "" && in.Status != StatusActive && in.Status != StatusInactive {
		return fmt.Errorf("status must be active or inactive")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, hospitalID uuid.UUID, in *Input) (*User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	role, err := s.roles.GetByID(ctx, in.RoleID)
	if err != nil {
		return nil, fmt.Errorf("role %s: %w", in.RoleID, err)
	}

	u := &User{
		HospitalID: hospitalID,
		RoleID:     role.ID,
		Name:       strings.TrimSpace(in.Name),
		Email:      strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:      in.Phone,
		Status:     in.Status,
	}
	err = db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		if err := s.users.Create(ctx, u); err != nil {
			return err
		}
		return s.registry.Create(ctx, role.Type, u, in.Record)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	log.Info().Str("id", u.ID.String()).Str("role_type", role.Type).
		Str("hospital_id", hospitalID.String()).Msg("user created")
	return u, nil
}

func (s *Service) Get(ctx context.Context, hospitalID, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, hospitalID, id)
}

func (s *Service) Update(ctx context.Context, hospitalID, id uuid.UUID, in *Input) (*User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, hospitalID, id)
	if err != nil {
		return nil, err
	}
	oldRole, err := s.roles.GetByID(ctx, u.RoleID)
	if err != nil {
		return nil, fmt.Errorf("role %s: %w", u.RoleID, err)
	}
	newRole, err := s.roles.GetByID(ctx, in.RoleID)
	if err != nil {
		return nil, fmt.Errorf("role %s: %w", in.RoleID, err)
	}

	u.RoleID = newRole.ID
	u.Name = strings.TrimSpace(in.Name)
	u.Email = strings.ToLower(strings.TrimSpace(in.Email))
	u.Phone = in.Phone
	if in.Status != "" {
		u.Status = in.Status
	}
	err = db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		if err := s.users.Update(ctx, u); err != nil {
			return err
		}
		return s.registry.Sync(ctx, oldRole.Type, newRole.Type, u, in.Record)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return u, nil
}

// Delete removes the specialized row before the user row, inside one
// transaction, so no orphaned side record survives.
func (s *Service) Delete(ctx context.Context, hospitalID, id uuid.UUID) error {
	u, err := s.users.GetByID(ctx, hospitalID, id)
	if err != nil {
		return err
	}
	role, err := s.roles.GetByID(ctx, u.RoleID)
	if err != nil {
		return fmt.Errorf("role %s: %w", u.RoleID, err)
	}
	err = db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		if err := s.registry.Delete(ctx, role.Type, hospitalID, id); err != nil {
			return err
		}
		return s.users.Delete(ctx, hospitalID, id)
	})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	log.Info().Str("id", id.String()).Str("hospital_id", hospitalID.String()).Msg("user deleted")
	return nil
}

func (s *Service) List(ctx context.Context, hospitalID uuid.UUID, roleType string, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, hospitalID, roleType, limit, offset)
}

func (s *Service) Roles(ctx context.Context) ([]*Role, error) {
	return s.roles.List(ctx)
}

// PatientRecord returns the patient side record for a user, or ErrNotFound
// when the user has no Patient row under the hospital. Case intake uses
// this both to validate step 1 and to build the recommendation input.
func (s *Service) PatientRecord(ctx context.Context, hospitalID, userID uuid.UUID) (*SpecializedRecord, error) {
	return s.registry.repo.GetByUser(ctx, RolePatient, hospitalID, userID)
}

// HasRole reports whether the user exists under the hospital and carries
// the given role type.
func (s *Service) HasRole(ctx context.Context, hospitalID, userID uuid.UUID, roleType string) (bool, error) {
	u, err := s.users.GetByID(ctx, hospitalID, userID)
	if err != nil {
		return false, err
	}
	role, err := s.roles.GetByID(ctx, u.RoleID)
	if err != nil {
		return false, err
	}
	return role.Type == roleType, nil
}

// AgeOf derives a patient's age in whole years from the side record,
// preferring the stored dob over the stored age field.
func AgeOf(rec *SpecializedRecord, now time.Time) int {
	if rec.DOB != nil {
		years := now.Year() - rec.DOB.Year()
		if now.YearDay() < rec.DOB.YearDay() {
			years--
		}
		return years
	}
	if rec.Age != nil {
		return *rec.Age
	}
	return 0
}
