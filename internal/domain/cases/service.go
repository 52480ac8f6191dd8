package cases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/careops/hms/internal/platform/db"
)

// RoleChecker answers whether a user carries a role type. Satisfied by
// the user service; kept narrow so this package does not depend on it.
type RoleChecker interface {
	HasRole(ctx context.Context, hospitalID, userID uuid.UUID, roleType string) (bool, error)
}

type Service struct {
	pool  *pgxpool.Pool
	repo  Repository
	roles RoleChecker
}

func NewService(pool *pgxpool.Pool, repo Repository, roles RoleChecker) *Service {
	return &Service{pool: pool, repo: repo, roles: roles}
}

// Detail bundles a case with its exam-procedure join rows.
type Detail struct {
	Case       *MedicalCase         `json:"case"`
	Procedures []*CaseExamProcedure `json:"procedures"`
}

// CreateWithProcedures inserts a case and one join row per exam-procedure
// id in a single transaction. A failure on any insert leaves no case row
// behind. The case arrives in draft status regardless of input.
func (s *Service) CreateWithProcedures(ctx context.Context, c *MedicalCase, examProcedureIDs []uuid.UUID) error {
	if !ValidPriority(c.Priority) {
		return fmt.Errorf("priority must be low, medium, high, or urgent")
	}
	if len(examProcedureIDs) == 0 {
		return fmt.Errorf("at least one exam procedure is required")
	}
	c.Status = StatusDraft

	err := db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, c); err != nil {
			return err
		}
		procs := make([]*CaseExamProcedure, 0, len(examProcedureIDs))
		for _, epID := range examProcedureIDs {
			procs = append(procs, &CaseExamProcedure{
				HospitalID:      c.HospitalID,
				CaseID:          c.ID,
				ExamProcedureID: epID,
				Status:          ProcStatusPending,
			})
		}
		return s.repo.AddProcedures(ctx, procs)
	})
	if err != nil {
		log.Error().Err(err).Str("hospital_id", c.HospitalID.String()).Msg("case creation rolled back")
		return fmt.Errorf("failed to create case")
	}
	log.Info().Str("id", c.ID.String()).Str("hospital_id", c.HospitalID.String()).
		Int("procedures", len(examProcedureIDs)).Msg("case created")
	return nil
}

func (s *Service) Get(ctx context.Context, hospitalID, id uuid.UUID) (*Detail, error) {
	c, err := s.repo.GetByID(ctx, hospitalID, id)
	if err != nil {
		return nil, err
	}
	procs, err := s.repo.ListProcedures(ctx, hospitalID, id)
	if err != nil {
		return nil, err
	}
	return &Detail{Case: c, Procedures: procs}, nil
}

// snapshot is the shape persisted into case_version rows.
type snapshot struct {
	Case             *MedicalCase `json:"case"`
	ExamProcedureIDs []uuid.UUID  `json:"exam_procedure_ids"`
}

// UpdateWithProcedures applies an edit: the case row is rewritten, the
// join rows are replaced by the new selection, and a version snapshot of
// the resulting state is appended, all in one transaction.
func (s *Service) UpdateWithProcedures(ctx context.Context, c *MedicalCase, examProcedureIDs []uuid.UUID, editorID uuid.UUID) error {
	if !ValidPriority(c.Priority) {
		return fmt.Errorf("priority must be low, medium, high, or urgent")
	}
	if len(examProcedureIDs) == 0 {
		return fmt.Errorf("at least one exam procedure is required")
	}

	err := db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, c); err != nil {
			return err
		}
		procs := make([]*CaseExamProcedure, 0, len(examProcedureIDs))
		for _, epID := range examProcedureIDs {
			procs = append(procs, &CaseExamProcedure{
				HospitalID:      c.HospitalID,
				CaseID:          c.ID,
				ExamProcedureID: epID,
				Status:          ProcStatusPending,
			})
		}
		if err := s.repo.ReplaceProcedures(ctx, c.HospitalID, c.ID, procs); err != nil {
			return err
		}

		snap, err := json.Marshal(snapshot{Case: c, ExamProcedureIDs: examProcedureIDs})
		if err != nil {
			return err
		}
		return s.repo.AddVersion(ctx, &CaseVersion{CaseID: c.ID, Snapshot: snap, CreatedBy: editorID})
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		log.Error().Err(err).Str("id", c.ID.String()).Msg("case edit rolled back")
		return fmt.Errorf("failed to update case")
	}
	return nil
}

// Assign moves a draft case to assigned and records the scientist as the
// current assignee. The assignee must be a scientist in the same hospital.
func (s *Service) Assign(ctx context.Context, hospitalID, caseID, scientistID uuid.UUID) (*MedicalCase, error) {
	c, err := s.repo.GetByID(ctx, hospitalID, caseID)
	if err != nil {
		return nil, err
	}
	if !canTransition(c.Status, StatusAssigned) {
		return nil, fmt.Errorf("case in status %s cannot be assigned", c.Status)
	}
	ok, err := s.roles.HasRole(ctx, hospitalID, scientistID, "scientist")
	if err != nil {
		return nil, fmt.Errorf("assignee %s: %w", scientistID, err)
	}
	if !ok {
		return nil, fmt.Errorf("assignee must be a scientist")
	}

	c.Status = StatusAssigned
	c.CurrentUserID = &scientistID
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	log.Info().Str("id", c.ID.String()).Str("assignee", scientistID.String()).Msg("case assigned")
	return c, nil
}

// UpdateStatus applies a lifecycle transition, rejecting moves the state
// machine does not allow.
func (s *Service) UpdateStatus(ctx context.Context, hospitalID, caseID uuid.UUID, to string) (*MedicalCase, error) {
	c, err := s.repo.GetByID(ctx, hospitalID, caseID)
	if err != nil {
		return nil, err
	}
	if !canTransition(c.Status, to) {
		return nil, fmt.Errorf("cannot move case from %s to %s", c.Status, to)
	}
	c.Status = to
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a case and, through the schema, its join rows, versions,
// documents and reports. Only cases that never entered the working
// lifecycle can go.
func (s *Service) Delete(ctx context.Context, hospitalID, caseID uuid.UUID) error {
	c, err := s.repo.GetByID(ctx, hospitalID, caseID)
	if err != nil {
		return err
	}
	if c.Status != StatusDraft && c.Status != StatusCancelled {
		return fmt.Errorf("only draft or cancelled cases can be deleted, case is %s", c.Status)
	}
	return s.repo.Delete(ctx, hospitalID, caseID)
}

func (s *Service) List(ctx context.Context, hospitalID uuid.UUID, f ListFilter, limit, offset int) ([]*MedicalCase, int, error) {
	return s.repo.List(ctx, hospitalID, f, limit, offset)
}

// Exists reports whether a case is visible under the hospital. Documents
// and reports use this before attaching anything.
func (s *Service) Exists(ctx context.Context, hospitalID, caseID uuid.UUID) (bool, error) {
	_, err := s.repo.GetByID(ctx, hospitalID, caseID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ProcedureBelongsTo reports whether the exam-procedure row is attached
// to the given case under the hospital.
func (s *Service) ProcedureBelongsTo(ctx context.Context, hospitalID, caseID, procID uuid.UUID) (bool, error) {
	procs, err := s.repo.ListProcedures(ctx, hospitalID, caseID)
	if err != nil {
		return false, err
	}
	for _, p := range procs {
		if p.ID == procID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) Versions(ctx context.Context, hospitalID, caseID uuid.UUID) ([]*CaseVersion, error) {
	if _, err := s.repo.GetByID(ctx, hospitalID, caseID); err != nil {
		return nil, err
	}
	return s.repo.ListVersions(ctx, hospitalID, caseID)
}
