package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Service implements the business rules for reference entity management.
type Service struct {
	refs      RefRepository
	examProcs ExamProcedureRepository
}

func NewService(refs RefRepository, examProcs ExamProcedureRepository) *Service {
	return &Service{refs: refs, examProcs: examProcs}
}

type RefInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func (in *RefInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(in.Name) > 255 {
		return fmt.Errorf("name must be 255 characters or fewer")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, kind Kind, hospitalID uuid.UUID, in *RefInput) (*Ref, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	ref := &Ref{
		HospitalID:  hospitalID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
	}
	if err := s.refs.Create(ctx, kind, ref); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", kind, err)
	}
	log.Info().Str("kind", string(kind)).Str("id", ref.ID.String()).
		Str("hospital_id", hospitalID.String()).Msg("reference entity created")
	return ref, nil
}

func (s *Service) Get(ctx context.Context, kind Kind, hospitalID, id uuid.UUID) (*Ref, error) {
	return s.refs.GetByID(ctx, kind, hospitalID, id)
}

func (s *Service) Update(ctx context.Context, kind Kind, hospitalID, id uuid.UUID, in *RefInput) (*Ref, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	ref, err := s.refs.GetByID(ctx, kind, hospitalID, id)
	if err != nil {
		return nil, err
	}
	ref.Name = strings.TrimSpace(in.Name)
	ref.Description = in.Description
	if err := s.refs.Update(ctx, kind, ref); err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", kind, err)
	}
	return ref, nil
}

func (s *Service) Delete(ctx context.Context, kind Kind, hospitalID, id uuid.UUID) error {
	if err := s.refs.Delete(ctx, kind, hospitalID, id); err != nil {
		return err
	}
	log.Info().Str("kind", string(kind)).Str("id", id.String()).
		Str("hospital_id", hospitalID.String()).Msg("reference entity deleted")
	return nil
}

func (s *Service) List(ctx context.Context, kind Kind, hospitalID uuid.UUID, nameFilter string, limit, offset int) ([]*Ref, int, error) {
	return s.refs.List(ctx, kind, hospitalID, nameFilter, limit, offset)
}

type ExamProcedureInput struct {
	ExamID      uuid.UUID  `json:"exam_id"`
	ProcedureID uuid.UUID  `json:"procedure_id"`
	ModalityID  *uuid.UUID `json:"modality_id"`
	Name        string     `json:"name"`
}

// CreateExamProcedure validates that the referenced exam, procedure, and
// optional modality all exist under the same hospital before creating the
// join row. A missing reference in another hospital reads as missing.
func (s *Service) CreateExamProcedure(ctx context.Context, hospitalID uuid.UUID, in *ExamProcedureInput) (*ExamProcedure, error) {
	exam, err := s.refs.GetByID(ctx, KindExam, hospitalID, in.ExamID)
	if err != nil {
		return nil, fmt.Errorf("exam %s: %w", in.ExamID, err)
	}
	proc, err := s.refs.GetByID(ctx, KindProcedure, hospitalID, in.ProcedureID)
	if err != nil {
		return nil, fmt.Errorf("procedure %s: %w", in.ProcedureID, err)
	}
	if in.ModalityID != nil {
		if _, err := s.refs.GetByID(ctx, KindModality, hospitalID, *in.ModalityID); err != nil {
			return nil, fmt.Errorf("modality %s: %w", *in.ModalityID, err)
		}
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = exam.Name + " / " + proc.Name
	}
	ep := &ExamProcedure{
		HospitalID:  hospitalID,
		ExamID:      in.ExamID,
		ProcedureID: in.ProcedureID,
		ModalityID:  in.ModalityID,
		Name:        name,
	}
	if err := s.examProcs.Create(ctx, ep); err != nil {
		return nil, fmt.Errorf("failed to create exam procedure: %w", err)
	}
	return ep, nil
}

func (s *Service) GetExamProcedure(ctx context.Context, hospitalID, id uuid.UUID) (*ExamProcedure, error) {
	return s.examProcs.GetByID(ctx, hospitalID, id)
}

// ResolveExamProcedures loads the given ids and fails if any of them is
// missing under the hospital. Used by case intake to validate selections.
func (s *Service) ResolveExamProcedures(ctx context.Context, hospitalID uuid.UUID, ids []uuid.UUID) ([]*ExamProcedure, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("at least one exam procedure is required")
	}
	eps, err := s.examProcs.GetMany(ctx, hospitalID, ids)
	if err != nil {
		return nil, err
	}
	if len(eps) != len(ids) {
		found := make(map[uuid.UUID]bool, len(eps))
		for _, ep := range eps {
			found[ep.ID] = true
		}
		for _, id := range ids {
			if !found[id] {
				return nil, fmt.Errorf("exam procedure %s: %w", id, ErrNotFound)
			}
		}
	}
	return eps, nil
}

func (s *Service) DeleteExamProcedure(ctx context.Context, hospitalID, id uuid.UUID) error {
	return s.examProcs.Delete(ctx, hospitalID, id)
}

func (s *Service) ListExamProcedures(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*ExamProcedure, int, error) {
	return s.examProcs.List(ctx, hospitalID, limit, offset)
}
