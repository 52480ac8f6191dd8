package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"
)

type memRefRepo struct {
	refs map[Kind]map[uuid.UUID]*Ref
}

func newMemRefRepo() *memRefRepo {
	m := &memRefRepo{refs: make(map[Kind]map[uuid.UUID]*Ref)}
	for _, k := range Kinds {
		m.refs[k] = make(map[uuid.UUID]*Ref)
	}
	return m
}

func (m *memRefRepo) Create(_ context.Context, kind Kind, r *Ref) error {
	r.ID = uuid.New()
	cp := *r
	m.refs[kind][r.ID] = &cp
	return nil
}

func (m *memRefRepo) GetByID(_ context.Context, kind Kind, hospitalID, id uuid.UUID) (*Ref, error) {
	r, ok := m.refs[kind][id]
	if !ok || r.HospitalID != hospitalID {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRefRepo) Update(_ context.Context, kind Kind, r *Ref) error {
	cur, ok := m.refs[kind][r.ID]
	if !ok || cur.HospitalID != r.HospitalID {
		return ErrNotFound
	}
	cp := *r
	m.refs[kind][r.ID] = &cp
	return nil
}

func (m *memRefRepo) Delete(_ context.Context, kind Kind, hospitalID, id uuid.UUID) error {
	r, ok := m.refs[kind][id]
	if !ok || r.HospitalID != hospitalID {
		return ErrNotFound
	}
	delete(m.refs[kind], id)
	return nil
}

func (m *memRefRepo) List(_ context.Context, kind Kind, hospitalID uuid.UUID, nameFilter string, limit, offset int) ([]*Ref, int, error) {
	var out []*Ref
	for _, r := range m.refs[kind] {
		if r.HospitalID != hospitalID {
			continue
		}
		if nameFilter != "" && !strings.Contains(strings.ToLower(r.Name), strings.ToLower(nameFilter)) {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	total := len(out)
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

type memExamProcRepo struct {
	eps map[uuid.UUID]*ExamProcedure
}

func newMemExamProcRepo() *memExamProcRepo {
	return &memExamProcRepo{eps: make(map[uuid.UUID]*ExamProcedure)}
}

func (m *memExamProcRepo) Create(_ context.Context, ep *ExamProcedure) error {
	ep.ID = uuid.New()
	cp := *ep
	m.eps[ep.ID] = &cp
	return nil
}

func (m *memExamProcRepo) GetByID(_ context.Context, hospitalID, id uuid.UUID) (*ExamProcedure, error) {
	ep, ok := m.eps[id]
	if !ok || ep.HospitalID != hospitalID {
		return nil, ErrNotFound
	}
	cp := *ep
	return &cp, nil
}

func (m *memExamProcRepo) GetMany(_ context.Context, hospitalID uuid.UUID, ids []uuid.UUID) ([]*ExamProcedure, error) {
	var out []*ExamProcedure
	for _, id := range ids {
		if ep, ok := m.eps[id]; ok && ep.HospitalID == hospitalID {
			cp := *ep
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memExamProcRepo) Delete(_ context.Context, hospitalID, id uuid.UUID) error {
	ep, ok := m.eps[id]
	if !ok || ep.HospitalID != hospitalID {
		return ErrNotFound
	}
	delete(m.eps, id)
	return nil
}

func (m *memExamProcRepo) List(_ context.Context, hospitalID uuid.UUID, limit, offset int) ([]*ExamProcedure, int, error) {
	var out []*ExamProcedure
	for _, ep := range m.eps {
		if ep.HospitalID == hospitalID {
			cp := *ep
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func newTestService() (*Service, *memRefRepo, *memExamProcRepo) {
	refs := newMemRefRepo()
	eps := newMemExamProcRepo()
	return NewService(refs, eps), refs, eps
}

func TestCreateAndGetRef(t *testing.T) {
	svc, _, _ := newTestService()
	hosp := uuid.New()
	ctx := context.Background()

	desc := "neurology department"
	ref, err := svc.Create(ctx, KindDepartment, hosp, &RefInput{Name: "  Neurology ", Description: &desc})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if ref.Name != "Neurology" {
		t.Errorf("expected trimmed name, got %q", ref.Name)
	}

	got, err := svc.Get(ctx, KindDepartment, hosp, ref.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Name != "Neurology" {
		t.Errorf("expected Neurology, got %q", got.Name)
	}
}

func TestCreateRefRequiresName(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.Create(context.Background(), KindExam, uuid.New(), &RefInput{Name: "   "}); err == nil {
		t.Error("expected error for blank name")
	}
}

func TestCrossHospitalReadsAsNotFound(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	hospA := uuid.New()
	hospB := uuid.New()

	ref, err := svc.Create(ctx, KindModality, hospA, &RefInput{Name: "MRI"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.Get(ctx, KindModality, hospB, ref.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for other hospital, got %v", err)
	}
	if _, err := svc.Update(ctx, KindModality, hospB, ref.ID, &RefInput{Name: "CT"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on cross-hospital update, got %v", err)
	}
	if err := svc.Delete(ctx, KindModality, hospB, ref.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on cross-hospital delete, got %v", err)
	}

	// The row is untouched under its own hospital.
	got, err := svc.Get(ctx, KindModality, hospA, ref.ID)
	if err != nil {
		t.Fatalf("owner get failed: %v", err)
	}
	if got.Name != "MRI" {
		t.Errorf("expected MRI, got %q", got.Name)
	}
}

func TestListFiltersByName(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	hosp := uuid.New()

	for _, name := range []string{"EEG Routine", "EEG Sleep-Deprived", "MRI Brain"} {
		if _, err := svc.Create(ctx, KindExam, hosp, &RefInput{Name: name}); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	refs, total, err := svc.List(ctx, KindExam, hosp, "eeg", 20, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 2 || len(refs) != 2 {
		t.Errorf("expected 2 EEG exams, got total=%d len=%d", total, len(refs))
	}
}

func TestCreateExamProcedureValidatesReferences(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	hosp := uuid.New()

	exam, _ := svc.Create(ctx, KindExam, hosp, &RefInput{Name: "EEG"})
	proc, _ := svc.Create(ctx, KindProcedure, hosp, &RefInput{Name: "Routine Recording"})

	ep, err := svc.CreateExamProcedure(ctx, hosp, &ExamProcedureInput{
		ExamID:      exam.ID,
		ProcedureID: proc.ID,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if ep.Name != "EEG / Routine Recording" {
		t.Errorf("expected derived name, got %q", ep.Name)
	}

	// An exam id from another hospital reads as missing.
	otherExam, _ := svc.Create(ctx, KindExam, uuid.New(), &RefInput{Name: "MRI"})
	_, err = svc.CreateExamProcedure(ctx, hosp, &ExamProcedureInput{
		ExamID:      otherExam.ID,
		ProcedureID: proc.ID,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign exam, got %v", err)
	}
}

func TestResolveExamProcedures(t *testing.T) {
	svc, _, eps := newTestService()
	ctx := context.Background()
	hosp := uuid.New()

	ep := &ExamProcedure{HospitalID: hosp, ExamID: uuid.New(), ProcedureID: uuid.New(), Name: "EEG / Routine"}
	if err := eps.Create(ctx, ep); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	got, err := svc.ResolveExamProcedures(ctx, hosp, []uuid.UUID{ep.ID})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 exam procedure, got %d", len(got))
	}

	if _, err := svc.ResolveExamProcedures(ctx, hosp, nil); err == nil {
		t.Error("expected error for empty id list")
	}
	if _, err := svc.ResolveExamProcedures(ctx, hosp, []uuid.UUID{ep.ID, uuid.New()}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown id, got %v", err)
	}
	if _, err := svc.ResolveExamProcedures(ctx, uuid.New(), []uuid.UUID{ep.ID}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for other hospital, got %v", err)
	}
}

func TestKindRoutes(t *testing.T) {
	if got := KindModality.Route(); got != "modalities" {
		t.Errorf("expected modalities, got %q", got)
	}
	if got := KindDepartment.Route(); got != "departments" {
		t.Errorf("expected departments, got %q", got)
	}
	if Kind("ward").Valid() {
		t.Error("unknown kind reported valid")
	}
}
