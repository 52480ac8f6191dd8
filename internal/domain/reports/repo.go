package reports

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

type Repository interface {
	Create(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, hospitalID, id uuid.UUID) (*Report, error)
	ListByCase(ctx context.Context, hospitalID, caseID uuid.UUID) ([]*Report, error)
	Delete(ctx context.Context, hospitalID, id uuid.UUID) error

	AddSlides(ctx context.Context, slides []*Slide) error
	ListSlides(ctx context.Context, hospitalID, reportID uuid.UUID) ([]*Slide, error)
}
