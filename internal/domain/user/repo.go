package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound covers both missing rows and rows under another hospital.
var ErrNotFound = errors.New("not found")

type RoleRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Role, error)
	GetByType(ctx context.Context, roleType string) (*Role, error)
	List(ctx context.Context) ([]*Role, error)
}

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, hospitalID, id uuid.UUID) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, hospitalID, id uuid.UUID) error
	List(ctx context.Context, hospitalID uuid.UUID, roleType string, limit, offset int) ([]*User, int, error)
}

// SpecializedRepository persists the role side tables. roleType selects
// the table; an unmapped role type is the caller's bug, not this layer's.
type SpecializedRepository interface {
	Create(ctx context.Context, roleType string, rec *SpecializedRecord) error
	GetByUser(ctx context.Context, roleType string, hospitalID, userID uuid.UUID) (*SpecializedRecord, error)
	Update(ctx context.Context, roleType string, rec *SpecializedRecord) error
	DeleteByUser(ctx context.Context, roleType string, hospitalID, userID uuid.UUID) error
}
