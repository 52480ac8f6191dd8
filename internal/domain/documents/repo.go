package documents

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

type Repository interface {
	Create(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, hospitalID, id uuid.UUID) (*Document, error)
	ListByCase(ctx context.Context, hospitalID, caseID uuid.UUID) ([]*Document, error)
	Delete(ctx context.Context, hospitalID, id uuid.UUID) error
}
