package patient

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Iv3rn/exam-access-flow/internal/platform/auth"
)

// ── Mock Repositories ──

type mockPatientRepo struct {
	data       map[uuid.UUID]*Patient
	failCreate bool
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{data: make(map[uuid.UUID]*Patient)}
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	if m.failCreate {
		return fmt.Errorf("insert failed")
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now().UTC()
	m.data[p.ID] = p
	return nil
}
func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	if p, ok := m.data[id]; ok {
		return p, nil
	}
	return nil, ErrPatientNotFound
}
func (m *mockPatientRepo) FindByIdentifier(_ context.Context, candidates ...string) (*Patient, int, error) {
	var matches []*Patient
	for _, p := range m.data {
		for _, c := range candidates {
			if p.NationalID == c {
				matches = append(matches, p)
				break
			}
		}
	}
	if len(matches) == 0 {
		return nil, 0, ErrPatientNotFound
	}
	oldest := matches[0]
	for _, p := range matches[1:] {
		if p.CreatedAt.Before(oldest.CreatedAt) {
			oldest = p
		}
	}
	return oldest, len(matches), nil
}
func (m *mockPatientRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.data[p.ID]; !ok {
		return ErrPatientNotFound
	}
	m.data[p.ID] = p
	return nil
}
func (m *mockPatientRepo) UpdatePasswords(_ context.Context, id uuid.UUID, temporary, fixed *string) error {
	p, ok := m.data[id]
	if !ok {
		return ErrPatientNotFound
	}
	p.TemporaryPassword = temporary
	p.FixedPassword = fixed
	return nil
}
func (m *mockPatientRepo) LinkAccount(_ context.Context, id, accountID uuid.UUID) error {
	p, ok := m.data[id]
	if !ok {
		return ErrPatientNotFound
	}
	p.LinkedAccountID = &accountID
	return nil
}
func (m *mockPatientRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.data[id]; !ok {
		return ErrPatientNotFound
	}
	delete(m.data, id)
	return nil
}
func (m *mockPatientRepo) List(_ context.Context, limit, offset int) ([]*Patient, int, error) {
	var out []*Patient
	for _, p := range m.data {
		out = append(out, p)
	}
	return out, len(out), nil
}
func (m *mockPatientRepo) Search(_ context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	return m.List(nil, limit, offset)
}

type mockRoles struct {
	assigned map[uuid.UUID][]string
}

func (m *mockRoles) Upsert(_ context.Context, accountID uuid.UUID, role string) error {
	if m.assigned == nil {
		m.assigned = make(map[uuid.UUID][]string)
	}
	m.assigned[accountID] = append(m.assigned[accountID], role)
	return nil
}

type mockActivity struct {
	actions []string
}

func (m *mockActivity) Record(_ context.Context, _ *uuid.UUID, action, _ string, _ *uuid.UUID, _ map[string]interface{}) error {
	m.actions = append(m.actions, action)
	return nil
}

// ── Helpers ──

func newTestService(repo Repository, dir auth.Directory, roles RoleAssigner, act ActivityRecorder) *Service {
	return NewService(repo, dir, roles, act, "patients.local", zerolog.Nop())
}

func testDirectory() *auth.MemoryDirectory {
	return auth.NewMemoryDirectory(auth.NewTokenIssuer([]byte("test-secret"), "clinic-test", time.Hour))
}

// ── Tests ──

func TestRegister(t *testing.T) {
	repo := newMockPatientRepo()
	dir := testDirectory()
	roles := &mockRoles{}
	act := &mockActivity{}
	svc := newTestService(repo, dir, roles, act)
	ctx := context.Background()

	p, err := svc.Register(ctx, RegistrationInput{
		NationalID:        "123.456.789-01",
		FullName:          "Maria Silva",
		TemporaryPassword: "abc123",
	}, nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if p.NationalID != "12345678901" {
		t.Errorf("national id not normalized: %q", p.NationalID)
	}
	if p.LinkedAccountID == nil {
		t.Fatal("expected linked account id")
	}
	if p.TemporaryPassword == nil || *p.TemporaryPassword == "abc123" {
		t.Error("temporary password should be stored hashed")
	}

	acct, err := dir.FindAccountByEmail(ctx, "patient+12345678901@patients.local")
	if err != nil {
		t.Fatalf("account lookup: %v", err)
	}
	if acct.ID != *p.LinkedAccountID {
		t.Error("linked account id does not match directory account")
	}

	if got := roles.assigned[acct.ID]; len(got) != 1 || got[0] != "patient" {
		t.Errorf("role assignments = %v", got)
	}
	if len(act.actions) != 1 || act.actions[0] != "patient.registered" {
		t.Errorf("activity actions = %v", act.actions)
	}
}

func TestRegister_InvalidNationalID(t *testing.T) {
	svc := newTestService(newMockPatientRepo(), testDirectory(), &mockRoles{}, &mockActivity{})

	_, err := svc.Register(context.Background(), RegistrationInput{
		NationalID:        "1234",
		FullName:          "X",
		TemporaryPassword: "pw",
	}, nil)
	if err != ErrInvalidNationalID {
		t.Errorf("expected ErrInvalidNationalID, got %v", err)
	}
}

func TestRegister_Duplicate(t *testing.T) {
	repo := newMockPatientRepo()
	svc := newTestService(repo, testDirectory(), &mockRoles{}, &mockActivity{})
	ctx := context.Background()

	in := RegistrationInput{NationalID: "12345678901", FullName: "Maria", TemporaryPassword: "pw"}
	if _, err := svc.Register(ctx, in, nil); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(ctx, in, nil); err != ErrDuplicateNationalID {
		t.Errorf("expected ErrDuplicateNationalID, got %v", err)
	}
}

func TestRegister_RollsBackAccountOnInsertFailure(t *testing.T) {
	repo := newMockPatientRepo()
	repo.failCreate = true
	dir := testDirectory()
	svc := newTestService(repo, dir, &mockRoles{}, &mockActivity{})
	ctx := context.Background()

	_, err := svc.Register(ctx, RegistrationInput{
		NationalID:        "12345678901",
		FullName:          "Maria",
		TemporaryPassword: "pw",
	}, nil)
	if err == nil {
		t.Fatal("expected registration to fail")
	}

	// The account created before the failed insert must be gone again.
	if _, err := dir.FindAccountByEmail(ctx, "patient+12345678901@patients.local"); err != auth.ErrAccountNotFound {
		t.Errorf("expected rolled-back account, got %v", err)
	}
}

func TestRegister_ReusesLeftoverAccount(t *testing.T) {
	repo := newMockPatientRepo()
	dir := testDirectory()
	svc := newTestService(repo, dir, &mockRoles{}, &mockActivity{})
	ctx := context.Background()

	// Simulate a previous half-finished registration.
	res, err := dir.CreateAccount(ctx, "patient+12345678901@patients.local", "old-pw", auth.Metadata{})
	if err != nil {
		t.Fatal(err)
	}

	p, err := svc.Register(ctx, RegistrationInput{
		NationalID:        "12345678901",
		FullName:          "Maria",
		TemporaryPassword: "new-pw",
	}, nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if p.LinkedAccountID == nil || *p.LinkedAccountID != res.Account.ID {
		t.Error("expected the leftover account to be reused")
	}
	if _, err := dir.SignIn(ctx, "patient+12345678901@patients.local", "new-pw"); err != nil {
		t.Errorf("new temporary password should sign in: %v", err)
	}
}

func TestSetFixedPassword(t *testing.T) {
	repo := newMockPatientRepo()
	dir := testDirectory()
	svc := newTestService(repo, dir, &mockRoles{}, &mockActivity{})
	ctx := context.Background()

	p, err := svc.Register(ctx, RegistrationInput{
		NationalID:        "12345678901",
		FullName:          "Maria",
		TemporaryPassword: "temp-pw",
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.SetFixedPassword(ctx, p.ID, "chosen-pw"); err != nil {
		t.Fatalf("set fixed password: %v", err)
	}

	stored := repo.data[p.ID]
	if stored.FixedPassword == nil || *stored.FixedPassword == "chosen-pw" {
		t.Error("fixed password should be stored hashed")
	}
	if _, err := dir.SignIn(ctx, "patient+12345678901@patients.local", "chosen-pw"); err != nil {
		t.Errorf("directory should accept the new password: %v", err)
	}

	if err := svc.SetFixedPassword(ctx, p.ID, "short"); err == nil {
		t.Error("expected rejection of short password")
	}
}

func TestDelete_RemovesDirectoryAccount(t *testing.T) {
	repo := newMockPatientRepo()
	dir := testDirectory()
	svc := newTestService(repo, dir, &mockRoles{}, &mockActivity{})
	ctx := context.Background()

	p, err := svc.Register(ctx, RegistrationInput{
		NationalID:        "12345678901",
		FullName:          "Maria",
		TemporaryPassword: "pw",
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, p.ID); err != ErrPatientNotFound {
		t.Error("patient row should be gone")
	}
	if _, err := dir.FindAccountByEmail(ctx, "patient+12345678901@patients.local"); err != auth.ErrAccountNotFound {
		t.Error("directory account should be gone")
	}
}
