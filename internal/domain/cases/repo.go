package cases

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

// ListFilter narrows case listings. Zero values mean no filtering.
type ListFilter struct {
	Status     string
	PatientID  uuid.UUID
	AssigneeID uuid.UUID
}

type Repository interface {
	Create(ctx context.Context, c *MedicalCase) error
	GetByID(ctx context.Context, hospitalID, id uuid.UUID) (*MedicalCase, error)
	Update(ctx context.Context, c *MedicalCase) error
	Delete(ctx context.Context, hospitalID, id uuid.UUID) error
	List(ctx context.Context, hospitalID uuid.UUID, f ListFilter, limit, offset int) ([]*MedicalCase, int, error)

	AddProcedures(ctx context.Context, procs []*CaseExamProcedure) error
	ListProcedures(ctx context.Context, hospitalID, caseID uuid.UUID) ([]*CaseExamProcedure, error)
	ReplaceProcedures(ctx context.Context, hospitalID, caseID uuid.UUID, procs []*CaseExamProcedure) error

	AddVersion(ctx context.Context, v *CaseVersion) error
	ListVersions(ctx context.Context, hospitalID, caseID uuid.UUID) ([]*CaseVersion, error)
}
