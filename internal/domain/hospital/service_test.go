package hospital

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	hospitals map[uuid.UUID]*Hospital
}

func newMockRepo() *mockRepo {
	return &mockRepo{hospitals: make(map[uuid.UUID]*Hospital)}
}

func (m *mockRepo) Create(_ context.Context, h *Hospital) error {
	h.ID = uuid.New()
	h.CreatedAt = time.Now()
	h.UpdatedAt = time.Now()
	m.hospitals[h.ID] = h
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Hospital, error) {
	h, ok := m.hospitals[id]
	if !ok {
		return nil, ErrNotFound
	}
	return h, nil
}

func (m *mockRepo) Update(_ context.Context, h *Hospital) error {
	if _, ok := m.hospitals[h.ID]; !ok {
		return ErrNotFound
	}
	m.hospitals[h.ID] = h
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.hospitals, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Hospital, int, error) {
	var result []*Hospital
	for _, h := range m.hospitals {
		result = append(result, h)
	}
	return result, len(result), nil
}

func (m *mockRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	h, ok := m.hospitals[id]
	return ok && h.Active, nil
}

func TestCreate_RequiresName(t *testing.T) {
	svc := NewService(newMockRepo())
	if err := svc.Create(context.Background(), &Hospital{}); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestCreate_SetsActive(t *testing.T) {
	svc := NewService(newMockRepo())
	h := &Hospital{Name: "General Hospital"}
	if err := svc.Create(context.Background(), h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !h.Active {
		t.Error("expected new hospital to be active")
	}
	if h.ID == uuid.Nil {
		t.Error("expected id to be assigned")
	}
}

func TestDeactivate_StopsResolving(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	h := &Hospital{Name: "General Hospital"}
	if err := svc.Create(ctx, h); err != nil {
		t.Fatalf("create: %v", err)
	}

	ok, _ := svc.Exists(ctx, h.ID)
	if !ok {
		t.Fatal("expected active hospital to resolve")
	}

	if err := svc.Deactivate(ctx, h.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	ok, _ = svc.Exists(ctx, h.ID)
	if ok {
		t.Error("expected deactivated hospital to stop resolving")
	}
}

func TestExists_UnknownID(t *testing.T) {
	svc := NewService(newMockRepo())
	ok, err := svc.Exists(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected unknown hospital to not exist")
	}
}
