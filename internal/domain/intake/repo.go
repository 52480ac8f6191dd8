package intake

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

// DraftRepository persists wizard drafts. Reads are scoped to hospital
// and technician: a draft is private to the technician who opened it.
type DraftRepository interface {
	Create(ctx context.Context, d *Draft) error
	GetByID(ctx context.Context, hospitalID, technicianID, id uuid.UUID) (*Draft, error)
	Update(ctx context.Context, d *Draft) error
	Delete(ctx context.Context, hospitalID, technicianID, id uuid.UUID) error
	ListByTechnician(ctx context.Context, hospitalID, technicianID uuid.UUID) ([]*Draft, error)
}
