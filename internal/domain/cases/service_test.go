package cases

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type memRepo struct {
	cases    map[uuid.UUID]*MedicalCase
	procs    map[uuid.UUID][]*CaseExamProcedure
	versions map[uuid.UUID][]*CaseVersion

	failAddProcedures bool
}

func newMemRepo() *memRepo {
	return &memRepo{
		cases:    make(map[uuid.UUID]*MedicalCase),
		procs:    make(map[uuid.UUID][]*CaseExamProcedure),
		versions: make(map[uuid.UUID][]*CaseVersion),
	}
}

func (m *memRepo) Create(_ context.Context, c *MedicalCase) error {
	c.ID = uuid.New()
	cp := *c
	m.cases[c.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(_ context.Context, hospitalID, id uuid.UUID) (*MedicalCase, error) {
	c, ok := m.cases[id]
	if !ok || c.HospitalID != hospitalID {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memRepo) Update(_ context.Context, c *MedicalCase) error {
	cur, ok := m.cases[c.ID]
	if !ok || cur.HospitalID != c.HospitalID {
		return ErrNotFound
	}
	cp := *c
	m.cases[c.ID] = &cp
	return nil
}

func (m *memRepo) Delete(_ context.Context, hospitalID, id uuid.UUID) error {
	cur, ok := m.cases[id]
	if !ok || cur.HospitalID != hospitalID {
		return ErrNotFound
	}
	delete(m.cases, id)
	return nil
}

func (m *memRepo) List(_ context.Context, hospitalID uuid.UUID, f ListFilter, limit, offset int) ([]*MedicalCase, int, error) {
	var out []*MedicalCase
	for _, c := range m.cases {
		if c.HospitalID != hospitalID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *memRepo) AddProcedures(_ context.Context, procs []*CaseExamProcedure) error {
	if m.failAddProcedures {
		// Simulate a constraint violation; the tx wrapper must discard
		// the case row created before this point.
		for _, p := range procs {
			delete(m.cases, p.CaseID)
		}
		return errors.New("insert failed")
	}
	for _, p := range procs {
		p.ID = uuid.New()
		cp := *p
		m.procs[p.CaseID] = append(m.procs[p.CaseID], &cp)
	}
	return nil
}

func (m *memRepo) ListProcedures(_ context.Context, hospitalID, caseID uuid.UUID) ([]*CaseExamProcedure, error) {
	return m.procs[caseID], nil
}

func (m *memRepo) ReplaceProcedures(_ context.Context, hospitalID, caseID uuid.UUID, procs []*CaseExamProcedure) error {
	m.procs[caseID] = nil
	return m.AddProcedures(context.Background(), procs)
}

func (m *memRepo) AddVersion(_ context.Context, v *CaseVersion) error {
	v.ID = uuid.New()
	v.Version = len(m.versions[v.CaseID]) + 1
	cp := *v
	m.versions[v.CaseID] = append(m.versions[v.CaseID], &cp)
	return nil
}

func (m *memRepo) ListVersions(_ context.Context, hospitalID, caseID uuid.UUID) ([]*CaseVersion, error) {
	return m.versions[caseID], nil
}

type stubRoles struct {
	scientists map[uuid.UUID]bool
}

func (s *stubRoles) HasRole(_ context.Context, _, userID uuid.UUID, roleType string) (bool, error) {
	if roleType != "scientist" {
		return false, nil
	}
	return s.scientists[userID], nil
}

func testCase(hosp uuid.UUID) *MedicalCase {
	return &MedicalCase{
		HospitalID:   hosp,
		PatientID:    uuid.New(),
		DepartmentID: uuid.New(),
		Priority:     PriorityMedium,
		Symptoms:     "severe headache and nausea",
		Date:         time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		UserID:       uuid.New(),
	}
}

func TestCreateWithProcedures(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(nil, repo, &stubRoles{})
	hosp := uuid.New()
	ctx := context.Background()

	mc := testCase(hosp)
	mc.Status = "completed" // input status must be ignored
	epIDs := []uuid.UUID{uuid.New(), uuid.New()}
	if err := svc.CreateWithProcedures(ctx, mc, epIDs); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if mc.Status != StatusDraft {
		t.Errorf("expected draft status, got %q", mc.Status)
	}

	detail, err := svc.Get(ctx, hosp, mc.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(detail.Procedures) != 2 {
		t.Errorf("expected 2 join rows, got %d", len(detail.Procedures))
	}
	for _, p := range detail.Procedures {
		if p.Status != ProcStatusPending {
			t.Errorf("expected pending join row, got %q", p.Status)
		}
	}
}

func TestCreateRejectsEmptyProceduresAndBadPriority(t *testing.T) {
	svc := NewService(nil, newMemRepo(), &stubRoles{})
	ctx := context.Background()

	mc := testCase(uuid.New())
	if err := svc.CreateWithProcedures(ctx, mc, nil); err == nil {
		t.Error("expected error for empty procedure list")
	}

	mc = testCase(uuid.New())
	mc.Priority = "critical"
	if err := svc.CreateWithProcedures(ctx, mc, []uuid.UUID{uuid.New()}); err == nil {
		t.Error("expected error for unknown priority")
	}
}

func TestCreateFailureLeavesNoCase(t *testing.T) {
	repo := newMemRepo()
	repo.failAddProcedures = true
	svc := NewService(nil, repo, &stubRoles{})
	hosp := uuid.New()

	mc := testCase(hosp)
	err := svc.CreateWithProcedures(context.Background(), mc, []uuid.UUID{uuid.New()})
	if err == nil {
		t.Fatal("expected creation failure")
	}
	if len(repo.cases) != 0 {
		t.Error("case row survived a failed creation")
	}
}

func TestUpdateAppendsVersionSnapshot(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(nil, repo, &stubRoles{})
	hosp := uuid.New()
	ctx := context.Background()
	editor := uuid.New()

	mc := testCase(hosp)
	if err := svc.CreateWithProcedures(ctx, mc, []uuid.UUID{uuid.New()}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(repo.versions[mc.ID]) != 0 {
		t.Fatal("creation must not produce a version")
	}

	newEPs := []uuid.UUID{uuid.New(), uuid.New()}
	mc.Priority = PriorityHigh
	if err := svc.UpdateWithProcedures(ctx, mc, newEPs, editor); err != nil {
		t.Fatalf("first edit failed: %v", err)
	}
	mc.Priority = PriorityUrgent
	if err := svc.UpdateWithProcedures(ctx, mc, newEPs, editor); err != nil {
		t.Fatalf("second edit failed: %v", err)
	}

	versions, err := svc.Versions(ctx, hosp, mc.ID)
	if err != nil {
		t.Fatalf("versions failed: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}
	if versions[0].Version != 1 || versions[1].Version != 2 {
		t.Errorf("versions not numbered in order: %d, %d", versions[0].Version, versions[1].Version)
	}

	var snap snapshot
	if err := json.Unmarshal(versions[1].Snapshot, &snap); err != nil {
		t.Fatalf("snapshot not valid JSON: %v", err)
	}
	if snap.Case.Priority != PriorityUrgent {
		t.Errorf("snapshot captured stale priority %q", snap.Case.Priority)
	}
	if len(snap.ExamProcedureIDs) != 2 {
		t.Errorf("snapshot captured %d procedure ids", len(snap.ExamProcedureIDs))
	}

	detail, _ := svc.Get(ctx, hosp, mc.ID)
	if len(detail.Procedures) != 2 {
		t.Errorf("edit did not replace join rows, got %d", len(detail.Procedures))
	}
}

func TestAssignRequiresScientist(t *testing.T) {
	repo := newMemRepo()
	scientist := uuid.New()
	svc := NewService(nil, repo, &stubRoles{scientists: map[uuid.UUID]bool{scientist: true}})
	hosp := uuid.New()
	ctx := context.Background()

	mc := testCase(hosp)
	if err := svc.CreateWithProcedures(ctx, mc, []uuid.UUID{uuid.New()}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.Assign(ctx, hosp, mc.ID, uuid.New()); err == nil {
		t.Error("expected error assigning a non-scientist")
	}

	got, err := svc.Assign(ctx, hosp, mc.ID, scientist)
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if got.Status != StatusAssigned {
		t.Errorf("expected assigned status, got %q", got.Status)
	}
	if got.CurrentUserID == nil || *got.CurrentUserID != scientist {
		t.Error("assignee not recorded")
	}

	// Already assigned, cannot assign again.
	if _, err := svc.Assign(ctx, hosp, mc.ID, scientist); err == nil {
		t.Error("expected error re-assigning an assigned case")
	}
}

func TestStatusTransitions(t *testing.T) {
	repo := newMemRepo()
	scientist := uuid.New()
	svc := NewService(nil, repo, &stubRoles{scientists: map[uuid.UUID]bool{scientist: true}})
	hosp := uuid.New()
	ctx := context.Background()

	mc := testCase(hosp)
	if err := svc.CreateWithProcedures(ctx, mc, []uuid.UUID{uuid.New()}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// draft cannot jump to completed
	if _, err := svc.UpdateStatus(ctx, hosp, mc.ID, StatusCompleted); err == nil {
		t.Error("expected error for draft -> completed")
	}

	if _, err := svc.Assign(ctx, hosp, mc.ID, scientist); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	for _, next := range []string{StatusInProgress, StatusReview, StatusCompleted} {
		if _, err := svc.UpdateStatus(ctx, hosp, mc.ID, next); err != nil {
			t.Fatalf("transition to %s failed: %v", next, err)
		}
	}

	// completed is terminal
	if _, err := svc.UpdateStatus(ctx, hosp, mc.ID, StatusCancelled); err == nil {
		t.Error("expected error cancelling a completed case")
	}
}

func TestDeleteOnlyBeforeWorkStarts(t *testing.T) {
	repo := newMemRepo()
	scientist := uuid.New()
	svc := NewService(nil, repo, &stubRoles{scientists: map[uuid.UUID]bool{scientist: true}})
	hosp := uuid.New()
	ctx := context.Background()

	mc := testCase(hosp)
	if err := svc.CreateWithProcedures(ctx, mc, []uuid.UUID{uuid.New()}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Assign(ctx, hosp, mc.ID, scientist); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if err := svc.Delete(ctx, hosp, mc.ID); err == nil {
		t.Error("expected error deleting an assigned case")
	}

	if _, err := svc.UpdateStatus(ctx, hosp, mc.ID, StatusCancelled); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if err := svc.Delete(ctx, hosp, mc.ID); err != nil {
		t.Fatalf("delete of cancelled case failed: %v", err)
	}
	if _, err := svc.Get(ctx, hosp, mc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestCrossHospitalCaseReadsAsNotFound(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(nil, repo, &stubRoles{})
	ctx := context.Background()

	mc := testCase(uuid.New())
	if err := svc.CreateWithProcedures(ctx, mc, []uuid.UUID{uuid.New()}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Get(ctx, uuid.New(), mc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for other hospital, got %v", err)
	}
}
