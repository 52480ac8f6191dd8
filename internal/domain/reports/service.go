package reports

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/careops/hms/internal/domain/cases"
	"github.com/careops/hms/internal/domain/catalog"
	"github.com/careops/hms/internal/domain/user"
	"github.com/careops/hms/internal/platform/recommend"
	"github.com/careops/hms/internal/platform/storage"
)

// CaseSource loads the case graph. Satisfied by the case service.
type CaseSource interface {
	Get(ctx context.Context, hospitalID, id uuid.UUID) (*cases.Detail, error)
}

// UserSource resolves display names and patient records. Satisfied by
// the user service.
type UserSource interface {
	Get(ctx context.Context, hospitalID, id uuid.UUID) (*user.User, error)
	PatientRecord(ctx context.Context, hospitalID, userID uuid.UUID) (*user.SpecializedRecord, error)
}

// CatalogSource resolves reference names. Satisfied by the catalog
// service.
type CatalogSource interface {
	Get(ctx context.Context, kind catalog.Kind, hospitalID, id uuid.UUID) (*catalog.Ref, error)
	GetExamProcedure(ctx context.Context, hospitalID, id uuid.UUID) (*catalog.ExamProcedure, error)
}

type Service struct {
	repo     Repository
	caseSrc  CaseSource
	users    UserSource
	catalog  CatalogSource
	store    storage.DocStore
	narrator Narrator
	renderer Renderer
	deck     DeckWriter
	now      func() time.Time
}

func NewService(repo Repository, caseSrc CaseSource, users UserSource, cat CatalogSource,
	store storage.DocStore, narrator Narrator, renderer Renderer) *Service {
	if narrator == nil {
		narrator = NoNarrator()
	}
	if renderer == nil {
		renderer = NoRenderer()
	}
	return &Service{
		repo:     repo,
		caseSrc:  caseSrc,
		users:    users,
		catalog:  cat,
		store:    store,
		narrator: narrator,
		renderer: renderer,
		deck:     ZipDeckWriter{},
		now:      time.Now,
	}
}

// BuildContent flattens a case graph into the display content model.
// Lookups that fail for optional pieces degrade to blank fields rather
// than failing the report.
func (s *Service) BuildContent(ctx context.Context, hospitalID, caseID uuid.UUID) (*CaseContent, error) {
	detail, err := s.caseSrc.Get(ctx, hospitalID, caseID)
	if err != nil {
		return nil, err
	}
	c := detail.Case

	content := &CaseContent{
		Date:     c.Date.Format("2006-01-02"),
		Priority: c.Priority,
		Symptoms: c.Symptoms,
	}
	if c.Notes != nil {
		content.TechnicianNotes = *c.Notes
	}

	if patient, err := s.users.Get(ctx, hospitalID, c.PatientID); err == nil {
		content.PatientName = patient.Name
	}
	if rec, err := s.users.PatientRecord(ctx, hospitalID, c.PatientID); err == nil {
		content.PatientGender = rec.Gender
		if rec.DOB != nil {
			content.AgeBracket = recommend.AgeBracket(*rec.DOB, s.now())
		}
	}
	if creator, err := s.users.Get(ctx, hospitalID, c.UserID); err == nil {
		content.ReferringPhysician = creator.Name
	}
	if dept, err := s.catalog.Get(ctx, catalog.KindDepartment, hospitalID, c.DepartmentID); err == nil {
		content.Department = dept.Name
	}
	if c.SedationID != nil {
		if sed, err := s.catalog.Get(ctx, catalog.KindSedation, hospitalID, *c.SedationID); err == nil {
			content.Sedation = sed.Name
		}
	}
	for _, p := range detail.Procedures {
		if ep, err := s.catalog.GetExamProcedure(ctx, hospitalID, p.ExamProcedureID); err == nil {
			content.Procedures = append(content.Procedures, ep.Name)
		}
	}
	return content, nil
}

// Generate builds and persists a report for a case. With narrative
// enabled the adapter sees only the de-identified input; any adapter
// failure falls back to the deterministic template body.
func (s *Service) Generate(ctx context.Context, hospitalID, caseID, generatedBy uuid.UUID,
	title string, withNarrative bool) (*Report, error) {
	content, err := s.BuildContent(ctx, hospitalID, caseID)
	if err != nil {
		return nil, err
	}

	body := content.RenderTemplate()
	usedNarrative := false
	if withNarrative {
		narrative, err := s.narrator.Narrate(ctx, content.NarrativeInput())
		if err != nil {
			log.Warn().Err(err).Str("case_id", caseID.String()).Msg("narrative unavailable, using template")
		} else if strings.TrimSpace(narrative) != "" {
			body = "<h1>Case Report</h1>\n" + SectionMarker + "\n<p>" + narrative + "</p>"
			usedNarrative = true
		}
	}

	if strings.TrimSpace(title) == "" {
		title = fmt.Sprintf("Case report %s", s.now().Format("2006-01-02"))
	}
	rep := &Report{
		HospitalID:  hospitalID,
		CaseID:      caseID,
		Title:       title,
		Body:        body,
		Narrative:   usedNarrative,
		GeneratedBy: generatedBy,
	}
	if err := s.repo.Create(ctx, rep); err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}
	log.Info().Str("id", rep.ID.String()).Str("case_id", caseID.String()).
		Bool("narrative", usedNarrative).Msg("report generated")
	return rep, nil
}

func (s *Service) Get(ctx context.Context, hospitalID, id uuid.UUID) (*Report, error) {
	return s.repo.GetByID(ctx, hospitalID, id)
}

func (s *Service) ListByCase(ctx context.Context, hospitalID, caseID uuid.UUID) ([]*Report, error) {
	return s.repo.ListByCase(ctx, hospitalID, caseID)
}

func (s *Service) Delete(ctx context.Context, hospitalID, id uuid.UUID) error {
	return s.repo.Delete(ctx, hospitalID, id)
}

// Export renders the stored report in the requested format.
func (s *Service) Export(ctx context.Context, hospitalID, id uuid.UUID, format string) ([]byte, string, error) {
	if !ValidFormat(format) {
		return nil, "", fmt.Errorf("unsupported format %q", format)
	}
	rep, err := s.repo.GetByID(ctx, hospitalID, id)
	if err != nil {
		return nil, "", err
	}
	return Export(ctx, s.renderer, rep, format)
}

type SlideInput struct {
	Heading  string  `json:"heading"`
	Body     string  `json:"body"`
	ImageKey *string `json:"image_key"`
}

// AddSlides appends deck slides to a report in the given order. The
// repository assigns each slide the next free position.
func (s *Service) AddSlides(ctx context.Context, hospitalID, reportID uuid.UUID, inputs []SlideInput) ([]*Slide, error) {
	if _, err := s.repo.GetByID(ctx, hospitalID, reportID); err != nil {
		return nil, err
	}

	slides := make([]*Slide, 0, len(inputs))
	for i, in := range inputs {
		if strings.TrimSpace(in.Heading) == "" {
			return nil, fmt.Errorf("slide %d: heading is required", i+1)
		}
		slides = append(slides, &Slide{
			ReportID: reportID,
			Heading:  in.Heading,
			Body:     in.Body,
			ImageKey: in.ImageKey,
		})
	}
	if err := s.repo.AddSlides(ctx, slides); err != nil {
		return nil, fmt.Errorf("failed to save slides: %w", err)
	}
	return slides, nil
}

func (s *Service) Slides(ctx context.Context, hospitalID, reportID uuid.UUID) ([]*Slide, error) {
	if _, err := s.repo.GetByID(ctx, hospitalID, reportID); err != nil {
		return nil, err
	}
	return s.repo.ListSlides(ctx, hospitalID, reportID)
}

// WriteDeck assembles the report's deck into w.
func (s *Service) WriteDeck(ctx context.Context, hospitalID, reportID uuid.UUID, w io.Writer) error {
	slides, err := s.Slides(ctx, hospitalID, reportID)
	if err != nil {
		return err
	}
	if len(slides) == 0 {
		return fmt.Errorf("report has no slides")
	}
	return AssembleDeck(ctx, s.store, slides, w, s.deck)
}
