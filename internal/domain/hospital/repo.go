package hospital

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown hospital ids.
var ErrNotFound = errors.New("not found")

// Repository defines the persistence interface for hospitals.
type Repository interface {
	Create(ctx context.Context, h *Hospital) error
	GetByID(ctx context.Context, id uuid.UUID) (*Hospital, error)
	Update(ctx context.Context, h *Hospital) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Hospital, int, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}
