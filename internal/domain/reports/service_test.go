package reports

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/careops/hms/internal/domain/cases"
	"github.com/careops/hms/internal/domain/catalog"
	"github.com/careops/hms/internal/domain/user"
	"github.com/careops/hms/internal/platform/recommend"
	"github.com/careops/hms/internal/platform/storage"
)

type memRepo struct {
	reports map[uuid.UUID]*Report
	slides  map[uuid.UUID][]*Slide
}

func newMemRepo() *memRepo {
	return &memRepo{reports: make(map[uuid.UUID]*Report), slides: make(map[uuid.UUID][]*Slide)}
}

func (m *memRepo) Create(_ context.Context, r *Report) error {
	r.ID = uuid.New()
	cp := *r
	m.reports[r.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(_ context.Context, hospitalID, id uuid.UUID) (*Report, error) {
	r, ok := m.reports[id]
	if !ok || r.HospitalID != hospitalID {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRepo) ListByCase(_ context.Context, hospitalID, caseID uuid.UUID) ([]*Report, error) {
	var out []*Report
	for _, r := range m.reports {
		if r.HospitalID == hospitalID && r.CaseID == caseID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRepo) Delete(_ context.Context, hospitalID, id uuid.UUID) error {
	r, ok := m.reports[id]
	if !ok || r.HospitalID != hospitalID {
		return ErrNotFound
	}
	delete(m.reports, id)
	return nil
}

func (m *memRepo) AddSlides(_ context.Context, slides []*Slide) error {
	for _, s := range slides {
		s.ID = uuid.New()
		next := 0
		for _, existing := range m.slides[s.ReportID] {
			if existing.Position > next {
				next = existing.Position
			}
		}
		s.Position = next + 1
		cp := *s
		m.slides[s.ReportID] = append(m.slides[s.ReportID], &cp)
	}
	return nil
}

func (m *memRepo) ListSlides(_ context.Context, hospitalID, reportID uuid.UUID) ([]*Slide, error) {
	return m.slides[reportID], nil
}

type stubCaseSrc struct {
	detail *cases.Detail
}

func (s *stubCaseSrc) Get(_ context.Context, hospitalID, id uuid.UUID) (*cases.Detail, error) {
	if s.detail == nil || s.detail.Case.ID != id || s.detail.Case.HospitalID != hospitalID {
		return nil, cases.ErrNotFound
	}
	return s.detail, nil
}

type stubUsers struct {
	users map[uuid.UUID]*user.User
	rec   *user.SpecializedRecord
}

func (s *stubUsers) Get(_ context.Context, _, id uuid.UUID) (*user.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (s *stubUsers) PatientRecord(_ context.Context, _, userID uuid.UUID) (*user.SpecializedRecord, error) {
	if s.rec == nil || s.rec.UserID != userID {
		return nil, user.ErrNotFound
	}
	return s.rec, nil
}

type stubCatalogSrc struct {
	refs map[uuid.UUID]*catalog.Ref
	eps  map[uuid.UUID]*catalog.ExamProcedure
}

func (s *stubCatalogSrc) Get(_ context.Context, _ catalog.Kind, _, id uuid.UUID) (*catalog.Ref, error) {
	r, ok := s.refs[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return r, nil
}

func (s *stubCatalogSrc) GetExamProcedure(_ context.Context, _, id uuid.UUID) (*catalog.ExamProcedure, error) {
	ep, ok := s.eps[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return ep, nil
}

type capturingNarrator struct {
	got  *NarrativeInput
	out  string
	fail bool
}

func (n *capturingNarrator) Narrate(_ context.Context, in NarrativeInput) (string, error) {
	n.got = &in
	if n.fail {
		return "", errors.New("narrator down")
	}
	return n.out, nil
}

type testEnv struct {
	svc    *Service
	repo   *memRepo
	nar    *capturingNarrator
	hosp   uuid.UUID
	caseID uuid.UUID
	store  storage.DocStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	hosp := uuid.New()
	patientID := uuid.New()
	creatorID := uuid.New()
	deptID := uuid.New()
	epID := uuid.New()
	notes := "check prior imaging"

	mc := &cases.MedicalCase{
		ID:           uuid.New(),
		HospitalID:   hosp,
		PatientID:    patientID,
		DepartmentID: deptID,
		Priority:     cases.PriorityMedium,
		Status:       cases.StatusDraft,
		Symptoms:     "severe headache and nausea",
		Notes:        &notes,
		Date:         time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		UserID:       creatorID,
	}
	detail := &cases.Detail{
		Case: mc,
		Procedures: []*cases.CaseExamProcedure{
			{CaseID: mc.ID, ExamProcedureID: epID},
		},
	}

	dob := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	users := &stubUsers{
		users: map[uuid.UUID]*user.User{
			patientID: {ID: patientID, Name: "Pat Lang"},
			creatorID: {ID: creatorID, Name: "Dr. Osei"},
		},
		rec: &user.SpecializedRecord{UserID: patientID, HospitalID: hosp, Gender: "F", DOB: &dob},
	}
	cat := &stubCatalogSrc{
		refs: map[uuid.UUID]*catalog.Ref{
			deptID: {ID: deptID, Name: "Neurology"},
		},
		eps: map[uuid.UUID]*catalog.ExamProcedure{
			epID: {ID: epID, Name: "CT Head / Plain"},
		},
	}

	repo := newMemRepo()
	nar := &capturingNarrator{out: "The patient presented with headache symptoms."}
	store := storage.NewMemory()
	svc := NewService(repo, &stubCaseSrc{detail: detail}, users, cat, store, nar, nil)
	svc.now = func() time.Time { return time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC) }
	return &testEnv{svc: svc, repo: repo, nar: nar, hosp: hosp, caseID: mc.ID, store: store}
}

func TestBuildContent(t *testing.T) {
	env := newTestEnv(t)
	content, err := env.svc.BuildContent(context.Background(), env.hosp, env.caseID)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if content.PatientName != "Pat Lang" {
		t.Errorf("wrong patient name: %q", content.PatientName)
	}
	if content.AgeBracket != "adult" {
		t.Errorf("expected adult bracket, got %q", content.AgeBracket)
	}
	if content.Department != "Neurology" {
		t.Errorf("wrong department: %q", content.Department)
	}
	if len(content.Procedures) != 1 || content.Procedures[0] != "CT Head / Plain" {
		t.Errorf("wrong procedures: %v", content.Procedures)
	}
	if content.ReferringPhysician != "Dr. Osei" {
		t.Errorf("wrong referrer: %q", content.ReferringPhysician)
	}
}

func TestNarrativeInputIsDeIdentified(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.svc.Generate(context.Background(), env.hosp, env.caseID, uuid.New(), "", true); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	in := env.nar.got
	if in == nil {
		t.Fatal("narrator never called")
	}
	// Only the bracket, never the dob or an exact age.
	if in.AgeBracket != "adult" {
		t.Errorf("expected bracket, got %q", in.AgeBracket)
	}
	// Generic categories, never the technician's free text.
	foundHeadache := false
	for _, cat := range in.SymptomCategories {
		if cat == recommend.CategoryHeadache {
			foundHeadache = true
		}
		if strings.Contains(cat, "nausea") {
			t.Errorf("raw symptom text leaked into categories: %q", cat)
		}
	}
	if !foundHeadache {
		t.Errorf("expected headache category, got %v", in.SymptomCategories)
	}
}

func TestGenerateUsesNarrativeWhenAvailable(t *testing.T) {
	env := newTestEnv(t)
	rep, err := env.svc.Generate(context.Background(), env.hosp, env.caseID, uuid.New(), "January report", true)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if !rep.Narrative {
		t.Error("narrative flag not set")
	}
	if !strings.Contains(rep.Body, "headache symptoms") {
		t.Errorf("narrative body missing: %q", rep.Body)
	}
	if rep.Title != "January report" {
		t.Errorf("wrong title: %q", rep.Title)
	}
}

func TestGenerateFallsBackOnNarratorFailure(t *testing.T) {
	env := newTestEnv(t)
	env.nar.fail = true
	rep, err := env.svc.Generate(context.Background(), env.hosp, env.caseID, uuid.New(), "", true)
	if err != nil {
		t.Fatalf("generate must not fail on narrator error: %v", err)
	}
	if rep.Narrative {
		t.Error("narrative flag set after fallback")
	}
	if !strings.Contains(rep.Body, "Pat Lang") {
		t.Errorf("template body missing patient: %q", rep.Body)
	}
	if !strings.Contains(rep.Body, SectionMarker) {
		t.Error("template body missing section markers")
	}
}

func TestExportFormats(t *testing.T) {
	env := newTestEnv(t)
	rep, err := env.svc.Generate(context.Background(), env.hosp, env.caseID, uuid.New(), "", false)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	ctx := context.Background()

	html, ct, err := env.svc.Export(ctx, env.hosp, rep.ID, FormatHTML)
	if err != nil {
		t.Fatalf("html export failed: %v", err)
	}
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("wrong content type: %q", ct)
	}
	if strings.Contains(string(html), SectionMarker) {
		t.Error("section markers leaked into html export")
	}

	txt, _, err := env.svc.Export(ctx, env.hosp, rep.ID, FormatText)
	if err != nil {
		t.Fatalf("txt export failed: %v", err)
	}
	if strings.Contains(string(txt), "<h1>") {
		t.Error("tags leaked into text export")
	}
	if !strings.Contains(string(txt), "Pat Lang") {
		t.Error("text export missing content")
	}

	rtf, ct, err := env.svc.Export(ctx, env.hosp, rep.ID, FormatRTF)
	if err != nil {
		t.Fatalf("rtf export failed: %v", err)
	}
	if ct != "application/rtf" {
		t.Errorf("wrong rtf content type: %q", ct)
	}
	if !strings.HasPrefix(string(rtf), `{\rtf1`) {
		t.Errorf("rtf export missing header: %q", string(rtf)[:20])
	}
	if !strings.Contains(string(rtf), "Pat Lang") {
		t.Error("rtf export missing content")
	}

	// No renderer wired: binary formats are unavailable.
	if _, _, err := env.svc.Export(ctx, env.hosp, rep.ID, FormatPDF); err == nil {
		t.Error("expected pdf export to fail without a renderer")
	}
	if _, _, err := env.svc.Export(ctx, env.hosp, rep.ID, "xls"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestChunkHTMLSplitsAtSections(t *testing.T) {
	small := "<p>a</p>" + SectionMarker + "<p>b</p>"
	chunks := ChunkHTML(small)
	if len(chunks) != 1 {
		t.Errorf("small body should stay one chunk, got %d", len(chunks))
	}

	big := strings.Repeat("x", maxChunkBytes-10) + SectionMarker + strings.Repeat("y", maxChunkBytes-10)
	chunks = ChunkHTML(big)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if strings.Contains(chunks[0], "y") || strings.Contains(chunks[1], "x") {
		t.Error("chunk boundary not at the section marker")
	}

	// One giant section cannot be split and comes through whole.
	giant := strings.Repeat("z", maxChunkBytes*2)
	chunks = ChunkHTML(giant)
	if len(chunks) != 1 || len(chunks[0]) != maxChunkBytes*2 {
		t.Errorf("oversized single section mangled: %d chunks", len(chunks))
	}
}

func TestAddSlidesPositionsFollowHighestExisting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rep, err := env.svc.Generate(ctx, env.hosp, env.caseID, uuid.New(), "", false)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	first, err := env.svc.AddSlides(ctx, env.hosp, rep.ID, []SlideInput{
		{Heading: "Findings"},
		{Heading: "Imaging"},
	})
	if err != nil {
		t.Fatalf("add slides failed: %v", err)
	}
	if first[0].Position != 1 || first[1].Position != 2 {
		t.Fatalf("unexpected initial positions: %d, %d", first[0].Position, first[1].Position)
	}

	// A removed slide leaves a gap; the next append must follow the
	// highest surviving position, not the slide count.
	env.repo.slides[rep.ID] = env.repo.slides[rep.ID][1:]

	more, err := env.svc.AddSlides(ctx, env.hosp, rep.ID, []SlideInput{{Heading: "Plan"}})
	if err != nil {
		t.Fatalf("add slides failed: %v", err)
	}
	if more[0].Position != 3 {
		t.Errorf("expected position 3 after a gap, got %d", more[0].Position)
	}
}

func TestDeckAssemblyCleansTempFiles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rep, err := env.svc.Generate(ctx, env.hosp, env.caseID, uuid.New(), "", false)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	imageKey := "decks/brain.png"
	if err := env.store.Put(ctx, imageKey, strings.NewReader("png bytes"), "image/png"); err != nil {
		t.Fatalf("seed image failed: %v", err)
	}
	if _, err := env.svc.AddSlides(ctx, env.hosp, rep.ID, []SlideInput{
		{Heading: "Findings", Body: "Normal study."},
		{Heading: "Imaging", Body: "See attached.", ImageKey: &imageKey},
	}); err != nil {
		t.Fatalf("add slides failed: %v", err)
	}

	var buf bytes.Buffer
	if err := env.svc.WriteDeck(ctx, env.hosp, rep.ID, &buf); err != nil {
		t.Fatalf("deck failed: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("empty deck")
	}
	assertNoSlideTempFiles(t)
}

func TestDeckAssemblyCleansTempFilesOnWriterError(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	imageKey := "decks/brain.png"
	if err := env.store.Put(ctx, imageKey, strings.NewReader("png bytes"), "image/png"); err != nil {
		t.Fatalf("seed image failed: %v", err)
	}
	slides := []*Slide{{Position: 1, Heading: "Imaging", ImageKey: &imageKey}}

	err := AssembleDeck(ctx, env.store, slides, io.Discard, failingDeckWriter{})
	if err == nil {
		t.Fatal("expected writer failure")
	}
	assertNoSlideTempFiles(t)
}

type failingDeckWriter struct{}

func (failingDeckWriter) Write(io.Writer, []DeckSlide) error {
	return errors.New("serialize failed")
}

func assertNoSlideTempFiles(t *testing.T) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "slide-image-*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		for _, m := range matches {
			os.Remove(m)
		}
		t.Errorf("temp slide images left behind: %v", matches)
	}
}

func TestDeckRequiresSlides(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rep, _ := env.svc.Generate(ctx, env.hosp, env.caseID, uuid.New(), "", false)

	var buf bytes.Buffer
	if err := env.svc.WriteDeck(ctx, env.hosp, rep.ID, &buf); err == nil {
		t.Error("expected error for report without slides")
	}
}
