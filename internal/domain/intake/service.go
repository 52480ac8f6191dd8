package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/careops/hms/internal/domain/cases"
	"github.com/careops/hms/internal/domain/catalog"
	"github.com/careops/hms/internal/domain/user"
	"github.com/careops/hms/internal/platform/db"
	"github.com/careops/hms/internal/platform/recommend"
)

// FieldErrors carries per-field validation messages back to the caller.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return strings.Join(parts, "; ")
}

// PatientDirectory looks up patient side records. Satisfied by the user
// service.
type PatientDirectory interface {
	PatientRecord(ctx context.Context, hospitalID, userID uuid.UUID) (*user.SpecializedRecord, error)
}

// Catalog resolves hospital-scoped reference data. Satisfied by the
// catalog service.
type Catalog interface {
	Get(ctx context.Context, kind catalog.Kind, hospitalID, id uuid.UUID) (*catalog.Ref, error)
	ResolveExamProcedures(ctx context.Context, hospitalID uuid.UUID, ids []uuid.UUID) ([]*catalog.ExamProcedure, error)
	ListExamProcedures(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*catalog.ExamProcedure, int, error)
}

// CaseWriter is the slice of the case service the wizard needs. Creation
// and edit both run atomically on the case side.
type CaseWriter interface {
	CreateWithProcedures(ctx context.Context, c *cases.MedicalCase, examProcedureIDs []uuid.UUID) error
	Get(ctx context.Context, hospitalID, id uuid.UUID) (*cases.Detail, error)
	UpdateWithProcedures(ctx context.Context, c *cases.MedicalCase, examProcedureIDs []uuid.UUID, editorID uuid.UUID) error
}

type Service struct {
	pool        *pgxpool.Pool
	drafts      DraftRepository
	patients    PatientDirectory
	catalog     Catalog
	caseWriter  CaseWriter
	recommender recommend.Recommender
	now         func() time.Time
}

func NewService(pool *pgxpool.Pool, drafts DraftRepository, patients PatientDirectory,
	cat Catalog, caseWriter CaseWriter, rec recommend.Recommender) *Service {
	if rec == nil {
		rec = recommend.Disabled()
	}
	return &Service{
		pool:        pool,
		drafts:      drafts,
		patients:    patients,
		catalog:     cat,
		caseWriter:  caseWriter,
		recommender: rec,
		now:         time.Now,
	}
}

// Start opens a fresh draft in step 1.
func (s *Service) Start(ctx context.Context, hospitalID, technicianID uuid.UUID) (*Draft, error) {
	d := &Draft{
		HospitalID:   hospitalID,
		TechnicianID: technicianID,
		State:        StateStep1Pending,
	}
	if err := s.drafts.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to start intake: %w", err)
	}
	return d, nil
}

// StartEdit opens a draft seeded from an existing case, so the same
// three-step flow edits it. The draft starts in step 1 with every field
// prefilled from the case.
func (s *Service) StartEdit(ctx context.Context, hospitalID, technicianID, caseID uuid.UUID) (*Draft, error) {
	detail, err := s.caseWriter.Get(ctx, hospitalID, caseID)
	if err != nil {
		return nil, err
	}
	c := detail.Case
	epIDs := make([]uuid.UUID, 0, len(detail.Procedures))
	for _, p := range detail.Procedures {
		epIDs = append(epIDs, p.ExamProcedureID)
	}
	priority := c.Priority
	d := &Draft{
		HospitalID:       hospitalID,
		TechnicianID:     technicianID,
		CaseID:           &caseID,
		State:            StateStep1Pending,
		PatientID:        &c.PatientID,
		Date:             &c.Date,
		Symptoms:         &c.Symptoms,
		DepartmentID:     &c.DepartmentID,
		SedationID:       c.SedationID,
		Priority:         &priority,
		ExamProcedureIDs: epIDs,
		TechnicianNotes:  c.Notes,
		AINotes:          c.AINotes,
	}
	if err := s.drafts.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to start edit: %w", err)
	}
	return d, nil
}

func (s *Service) Get(ctx context.Context, hospitalID, technicianID, draftID uuid.UUID) (*Draft, error) {
	return s.drafts.GetByID(ctx, hospitalID, technicianID, draftID)
}

func (s *Service) List(ctx context.Context, hospitalID, technicianID uuid.UUID) ([]*Draft, error) {
	return s.drafts.ListByTechnician(ctx, hospitalID, technicianID)
}

// Discard abandons a draft. Nothing else is touched: no case exists yet
// for creation drafts, and edit drafts never modified their case.
func (s *Service) Discard(ctx context.Context, hospitalID, technicianID, draftID uuid.UUID) error {
	return s.drafts.Delete(ctx, hospitalID, technicianID, draftID)
}

type Step1Input struct {
	PatientID uuid.UUID `json:"patient_id"`
	Date      string    `json:"date"`
	Symptoms  string    `json:"symptoms"`
}

// SaveStep1 validates the patient, date, and symptoms, then asks the
// recommendation adapter for defaults and caches them on the draft.
// Adapter failure is not a step failure. Re-saving step 1 later in the
// flow drops the draft back to step 2, since the cached recommendation
// and any selections may no longer fit the new symptoms.
func (s *Service) SaveStep1(ctx context.Context, hospitalID, technicianID, draftID uuid.UUID, in *Step1Input) (*Draft, error) {
	d, err := s.drafts.GetByID(ctx, hospitalID, technicianID, draftID)
	if err != nil {
		return nil, err
	}

	fieldErrs := FieldErrors{}
	var patientRec *user.SpecializedRecord
	if in.PatientID == uuid.Nil {
		fieldErrs["patient_id"] = "patient is required"
	} else {
		patientRec, err = s.patients.PatientRecord(ctx, hospitalID, in.PatientID)
		if err != nil {
			fieldErrs["patient_id"] = "patient not found"
		}
	}
	var date time.Time
	if in.Date == "" {
		fieldErrs["date"] = "date is required"
	} else {
		date, err = time.Parse("2006-01-02", in.Date)
		if err != nil {
			fieldErrs["date"] = "date must be YYYY-MM-DD"
		}
	}
	symptoms := strings.TrimSpace(in.Symptoms)
	if symptoms == "" {
		fieldErrs["symptoms"] = "symptoms are required"
	}
	if len(fieldErrs) > 0 {
		return nil, fieldErrs
	}

	d.PatientID = &in.PatientID
	d.Date = &date
	d.Symptoms = &symptoms
	d.State = StateStep2Pending
	s.recommendFor(ctx, d, patientRec)

	if err := s.drafts.Update(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to save step 1: %w", err)
	}
	return d, nil
}

// recommendFor calls the adapter with de-identified inputs and caches the
// result on the draft. Any failure degrades to no defaults.
func (s *Service) recommendFor(ctx context.Context, d *Draft, patientRec *user.SpecializedRecord) {
	d.Recommendation = nil
	d.AINotes = nil

	eps, _, err := s.catalog.ListExamProcedures(ctx, d.HospitalID, 200, 0)
	if err != nil {
		log.Warn().Err(err).Str("draft_id", d.ID.String()).Msg("skipping recommendation, catalog unavailable")
		return
	}
	available := make([]recommend.ExamProcedureRef, 0, len(eps))
	for _, ep := range eps {
		available = append(available, recommend.ExamProcedureRef{ID: ep.ID, Name: ep.Name})
	}

	in := recommend.Input{
		Symptoms:           *d.Symptoms,
		Gender:             patientRec.Gender,
		AvailableProcedure: available,
	}
	if patientRec.DOB != nil {
		in.AgeBracket = recommend.AgeBracket(*patientRec.DOB, s.now())
	}

	res, err := s.recommender.Recommend(ctx, in)
	if err != nil {
		log.Warn().Err(err).Str("draft_id", d.ID.String()).Msg("recommendation unavailable")
		return
	}
	cached, err := json.Marshal(res)
	if err != nil {
		log.Warn().Err(err).Str("draft_id", d.ID.String()).Msg("recommendation not cacheable")
		return
	}
	d.Recommendation = cached
	if res.Notes != "" {
		notes := res.Notes
		d.AINotes = &notes
	}
}

// cachedRecommendation decodes the recommendation stored at step 1, or
// returns nil when none was cached.
func (d *Draft) cachedRecommendation() *recommend.Result {
	if len(d.Recommendation) == 0 {
		return nil
	}
	res := &recommend.Result{}
	if err := json.Unmarshal(d.Recommendation, res); err != nil {
		return nil
	}
	return res
}

type Step2Input struct {
	DepartmentID     uuid.UUID   `json:"department_id"`
	SedationID       *uuid.UUID  `json:"sedation_id"`
	Priority         string      `json:"priority"`
	ExamProcedureIDs []uuid.UUID `json:"exam_procedures"`
}

// SaveStep2 validates the department, optional sedation, priority, and
// selected exam procedures. The submitted values are authoritative; the
// cached recommendation only fills a blank priority.
func (s *Service) SaveStep2(ctx context.Context, hospitalID, technicianID, draftID uuid.UUID, in *Step2Input) (*Draft, error) {
	d, err := s.drafts.GetByID(ctx, hospitalID, technicianID, draftID)
	if err != nil {
		return nil, err
	}
	if d.State == StateStep1Pending {
		return nil, fmt.Errorf("step 1 must be completed first")
	}

	fieldErrs := FieldErrors{}
	if in.DepartmentID == uuid.Nil {
		fieldErrs["department_id"] = "department is required"
	} else if _, err := s.catalog.Get(ctx, catalog.KindDepartment, hospitalID, in.DepartmentID); err != nil {
		fieldErrs["department_id"] = "department not found"
	}
	if in.SedationID != nil {
		if _, err := s.catalog.Get(ctx, catalog.KindSedation, hospitalID, *in.SedationID); err != nil {
			fieldErrs["sedation_id"] = "sedation not found"
		}
	}

	priority := in.Priority
	if priority == "" {
		if rec := d.cachedRecommendation(); rec != nil && rec.Priority != "" {
			priority = rec.Priority
		} else {
			priority = cases.PriorityMedium
		}
	}
	if !cases.ValidPriority(priority) {
		fieldErrs["priority"] = "priority must be low, medium, high, or urgent"
	}

	if len(in.ExamProcedureIDs) == 0 {
		fieldErrs["exam_procedures"] = "select at least one exam procedure"
	} else if _, err := s.catalog.ResolveExamProcedures(ctx, hospitalID, in.ExamProcedureIDs); err != nil {
		fieldErrs["exam_procedures"] = "one or more exam procedures not found"
	}
	if len(fieldErrs) > 0 {
		return nil, fieldErrs
	}

	d.DepartmentID = &in.DepartmentID
	d.SedationID = in.SedationID
	d.Priority = &priority
	d.ExamProcedureIDs = in.ExamProcedureIDs
	d.State = StateStep3Pending

	if err := s.drafts.Update(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to save step 2: %w", err)
	}
	return d, nil
}

type Step3Input struct {
	TechnicianNotes string `json:"technician_notes"`
}

// Submit finishes the wizard: in one transaction the case (and its join
// rows) is created or updated and the draft is deleted. Any failure rolls
// the whole thing back, leaving the draft intact at step 3.
func (s *Service) Submit(ctx context.Context, hospitalID, technicianID, draftID uuid.UUID, in *Step3Input) (uuid.UUID, error) {
	d, err := s.drafts.GetByID(ctx, hospitalID, technicianID, draftID)
	if err != nil {
		return uuid.Nil, err
	}
	if d.State != StateStep3Pending {
		return uuid.Nil, fmt.Errorf("steps 1 and 2 must be completed first")
	}

	var notes *string
	if t := strings.TrimSpace(in.TechnicianNotes); t != "" {
		notes = &t
	}

	var caseID uuid.UUID
	err = db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		if d.CaseID == nil {
			mc := &cases.MedicalCase{
				HospitalID:   hospitalID,
				PatientID:    *d.PatientID,
				DepartmentID: *d.DepartmentID,
				SedationID:   d.SedationID,
				Priority:     *d.Priority,
				Symptoms:     *d.Symptoms,
				Notes:        notes,
				AINotes:      d.AINotes,
				Date:         *d.Date,
				UserID:       technicianID,
			}
			if err := s.caseWriter.CreateWithProcedures(ctx, mc, d.ExamProcedureIDs); err != nil {
				return err
			}
			caseID = mc.ID
		} else {
			detail, err := s.caseWriter.Get(ctx, hospitalID, *d.CaseID)
			if err != nil {
				return err
			}
			mc := detail.Case
			mc.PatientID = *d.PatientID
			mc.DepartmentID = *d.DepartmentID
			mc.SedationID = d.SedationID
			mc.Priority = *d.Priority
			mc.Symptoms = *d.Symptoms
			mc.Notes = notes
			mc.AINotes = d.AINotes
			mc.Date = *d.Date
			if err := s.caseWriter.UpdateWithProcedures(ctx, mc, d.ExamProcedureIDs, technicianID); err != nil {
				return err
			}
			caseID = mc.ID
		}
		return s.drafts.Delete(ctx, hospitalID, technicianID, draftID)
	})
	if err != nil {
		log.Error().Err(err).Str("draft_id", draftID.String()).Msg("intake submission rolled back")
		return uuid.Nil, fmt.Errorf("failed to create case")
	}
	log.Info().Str("draft_id", draftID.String()).Str("case_id", caseID.String()).Msg("intake submitted")
	return caseID, nil
}
