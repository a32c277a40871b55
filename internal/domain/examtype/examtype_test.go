package examtype

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
)

// ── Mock Repository ──

type mockRepo struct {
	data map[uuid.UUID]*ExamType
}

func newMockRepo() *mockRepo {
	return &mockRepo{data: make(map[uuid.UUID]*ExamType)}
}

func (m *mockRepo) Create(_ context.Context, t *ExamType) error {
	for _, existing := range m.data {
		if existing.Name == t.Name {
			return ErrDuplicateName
		}
	}
	t.ID = uuid.New()
	t.CreatedAt = time.Now().UTC()
	m.data[t.ID] = t
	return nil
}
func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*ExamType, error) {
	if t, ok := m.data[id]; ok {
		return t, nil
	}
	return nil, ErrTypeNotFound
}
func (m *mockRepo) List(_ context.Context, activeOnly bool) ([]*ExamType, error) {
	var out []*ExamType
	for _, t := range m.data {
		if activeOnly && !t.Active {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
func (m *mockRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	t, ok := m.data[id]
	if !ok {
		return ErrTypeNotFound
	}
	t.Active = active
	return nil
}
func (m *mockRepo) Rename(_ context.Context, id uuid.UUID, name string) error {
	t, ok := m.data[id]
	if !ok {
		return ErrTypeNotFound
	}
	t.Name = name
	return nil
}

// ── Tests ──

func TestCreateAndList(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()

	for _, name := range []string{"blood-test", "x-ray", "ultrasound"} {
		if _, err := svc.Create(ctx, name, nil); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	items, err := svc.List(ctx, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("len = %d", len(items))
	}
	if items[0].Name != "blood-test" {
		t.Errorf("expected sorted order, first = %q", items[0].Name)
	}

	if _, err := svc.Create(ctx, "x-ray", nil); err != ErrDuplicateName {
		t.Errorf("expected ErrDuplicateName, got %v", err)
	}
	if _, err := svc.Create(ctx, "", nil); err == nil {
		t.Error("empty name should be rejected")
	}
}

func TestActiveFilter(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, "mri", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !created.Active {
		t.Error("new types should start active")
	}
	if _, err := svc.Create(ctx, "ct-scan", nil); err != nil {
		t.Fatal(err)
	}

	if err := svc.SetActive(ctx, created.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	active, err := svc.List(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].Name != "ct-scan" {
		t.Errorf("active list = %+v", active)
	}

	if err := svc.SetActive(ctx, uuid.New(), true); err != ErrTypeNotFound {
		t.Errorf("expected ErrTypeNotFound, got %v", err)
	}
}

func TestRename(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, "ekg", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Rename(ctx, created.ID, "ecg"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if repo.data[created.ID].Name != "ecg" {
		t.Error("rename not applied")
	}
	if err := svc.Rename(ctx, created.ID, ""); err == nil {
		t.Error("empty name should be rejected")
	}
}
