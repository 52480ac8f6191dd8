package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound covers both a genuinely missing row and a row belonging to
// another hospital; callers cannot tell the two apart.
var ErrNotFound = errors.New("not found")

// RefRepository is the persistence interface shared by all five reference
// entity kinds. Every method is hospital-scoped: ids that exist under a
// different hospital behave exactly like ids that do not exist.
type RefRepository interface {
	Create(ctx context.Context, kind Kind, r *Ref) error
	GetByID(ctx context.Context, kind Kind, hospitalID, id uuid.UUID) (*Ref, error)
	Update(ctx context.Context, kind Kind, r *Ref) error
	Delete(ctx context.Context, kind Kind, hospitalID, id uuid.UUID) error
	List(ctx context.Context, kind Kind, hospitalID uuid.UUID, nameFilter string, limit, offset int) ([]*Ref, int, error)
}

// ExamProcedureRepository persists the exam × procedure join rows.
type ExamProcedureRepository interface {
	Create(ctx context.Context, ep *ExamProcedure) error
	GetByID(ctx context.Context, hospitalID, id uuid.UUID) (*ExamProcedure, error)
	GetMany(ctx context.Context, hospitalID uuid.UUID, ids []uuid.UUID) ([]*ExamProcedure, error)
	Delete(ctx context.Context, hospitalID, id uuid.UUID) error
	List(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*ExamProcedure, int, error)
}
