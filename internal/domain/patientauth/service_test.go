package patientauth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Iv3rn/exam-access-flow/internal/domain/patient"
	"github.com/Iv3rn/exam-access-flow/internal/platform/auth"
)

// ── Mock Collaborators ──

type mockRecordStore struct {
	mu       sync.Mutex
	patients []*patient.Patient
	failLink bool
}

func (m *mockRecordStore) FindByIdentifier(_ context.Context, candidates ...string) (*patient.Patient, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matches []*patient.Patient
	for _, p := range m.patients {
		for _, c := range candidates {
			if p.NationalID == c {
				matches = append(matches, p)
				break
			}
		}
	}
	if len(matches) == 0 {
		return nil, 0, patient.ErrPatientNotFound
	}
	oldest := matches[0]
	for _, p := range matches[1:] {
		if p.CreatedAt.Before(oldest.CreatedAt) {
			oldest = p
		}
	}
	cp := *oldest
	return &cp, len(matches), nil
}

func (m *mockRecordStore) LinkAccount(_ context.Context, id, accountID uuid.UUID) error {
	if m.failLink {
		return fmt.Errorf("link failed")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.patients {
		if p.ID == id {
			aid := accountID
			p.LinkedAccountID = &aid
			return nil
		}
	}
	return patient.ErrPatientNotFound
}

type mockRoleAssigner struct {
	mu       sync.Mutex
	assigned map[string]int // "<accountID>/<role>" -> upsert count
	fail     bool
}

func (m *mockRoleAssigner) Upsert(_ context.Context, accountID uuid.UUID, role string) error {
	if m.fail {
		return fmt.Errorf("role upsert failed")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.assigned == nil {
		m.assigned = make(map[string]int)
	}
	m.assigned[accountID.String()+"/"+role]++
	return nil
}

// ── Helpers ──

const (
	testIdentifierDigits    = "12345678901"
	testIdentifierFormatted = "123.456.789-01"
	testEmail               = "patient+12345678901@patients.local"
)

func fixedOnlyRecord(nationalID, password string) *patient.Patient {
	pw := password
	return &patient.Patient{
		ID:            uuid.New(),
		NationalID:    nationalID,
		FullName:      "Maria Silva",
		FixedPassword: &pw,
		CreatedAt:     time.Now().UTC(),
	}
}

type bridge struct {
	svc     *Service
	records *mockRecordStore
	dir     *auth.MemoryDirectory
	roles   *mockRoleAssigner
}

func newBridge(patients ...*patient.Patient) *bridge {
	records := &mockRecordStore{patients: patients}
	dir := auth.NewMemoryDirectory(auth.NewTokenIssuer([]byte("test-secret"), "clinic-test", time.Hour))
	roles := &mockRoleAssigner{}
	svc := NewService(records, dir, roles, auth.PlaintextVerifier{}, "patients.local", zerolog.Nop())
	return &bridge{svc: svc, records: records, dir: dir, roles: roles}
}

// ── Tests ──

func TestAuthenticate_FirstLogin(t *testing.T) {
	b := newBridge(fixedOnlyRecord(testIdentifierDigits, "abc123"))
	ctx := context.Background()

	email, session, err := b.svc.Authenticate(ctx, testIdentifierFormatted, "abc123")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if email != testEmail {
		t.Errorf("email = %q, want %q", email, testEmail)
	}
	if session == nil || session.AccessToken == "" {
		t.Fatal("expected an established session")
	}

	acct, err := b.dir.FindAccountByEmail(ctx, testEmail)
	if err != nil {
		t.Fatalf("account should exist: %v", err)
	}
	if session.AccountID != acct.ID {
		t.Error("session not bound to the provisioned account")
	}
	if got := b.roles.assigned[acct.ID.String()+"/patient"]; got != 1 {
		t.Errorf("patient role upserts = %d, want 1", got)
	}
	if lid := b.records.patients[0].LinkedAccountID; lid == nil || *lid != acct.ID {
		t.Error("record not linked back to the account")
	}
}

func TestAuthenticate_BothIdentifierForms(t *testing.T) {
	for _, input := range []string{testIdentifierDigits, testIdentifierFormatted} {
		t.Run(input, func(t *testing.T) {
			b := newBridge(fixedOnlyRecord(testIdentifierDigits, "abc123"))
			if _, _, err := b.svc.Authenticate(context.Background(), input, "abc123"); err != nil {
				t.Errorf("authenticate(%q): %v", input, err)
			}
		})
	}
}

func TestAuthenticate_RecordStoredFormatted(t *testing.T) {
	// Legacy rows keep the punctuated form; digit input must still match.
	b := newBridge(fixedOnlyRecord(testIdentifierFormatted, "abc123"))

	email, _, err := b.svc.Authenticate(context.Background(), testIdentifierDigits, "abc123")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	// The derived email uses the normalized digits, not the stored form.
	if email != testEmail {
		t.Errorf("email = %q, want %q", email, testEmail)
	}
}

func TestAuthenticate_TemporaryOrFixedPassword(t *testing.T) {
	temp, fixed := "temp-pw", "fixed-pw"
	rec := &patient.Patient{
		ID:                uuid.New(),
		NationalID:        testIdentifierDigits,
		FullName:          "Maria Silva",
		TemporaryPassword: &temp,
		FixedPassword:     &fixed,
		CreatedAt:         time.Now().UTC(),
	}

	for _, pw := range []string{"temp-pw", "fixed-pw"} {
		b := newBridge(rec)
		if _, _, err := b.svc.Authenticate(context.Background(), testIdentifierDigits, pw); err != nil {
			t.Errorf("authenticate with %q: %v", pw, err)
		}
	}

	b := newBridge(rec)
	if _, _, err := b.svc.Authenticate(context.Background(), testIdentifierDigits, "neither"); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestAuthenticate_MissingIdentifier(t *testing.T) {
	b := newBridge()
	if _, _, err := b.svc.Authenticate(context.Background(), "   ", "pw"); !errors.Is(err, ErrMissingIdentifier) {
		t.Errorf("expected ErrMissingIdentifier, got %v", err)
	}
}

func TestAuthenticate_NotFound(t *testing.T) {
	b := newBridge(fixedOnlyRecord(testIdentifierDigits, "abc123"))
	if _, _, err := b.svc.Authenticate(context.Background(), "999.999.999-99", "abc123"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAuthenticate_NoAccountOnBadPassword(t *testing.T) {
	b := newBridge(fixedOnlyRecord(testIdentifierDigits, "abc123"))

	_, _, err := b.svc.Authenticate(context.Background(), testIdentifierDigits, "wrong")
	if !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
	// Credential failure happens before provisioning; nothing may be created.
	if _, err := b.dir.FindAccountByEmail(context.Background(), testEmail); !errors.Is(err, auth.ErrAccountNotFound) {
		t.Error("no account may be provisioned for a failed credential")
	}
}

func TestAuthenticate_Idempotent(t *testing.T) {
	b := newBridge(fixedOnlyRecord(testIdentifierDigits, "abc123"))
	ctx := context.Background()

	var accountIDs []uuid.UUID
	for i := 0; i < 3; i++ {
		email, session, err := b.svc.Authenticate(ctx, testIdentifierDigits, "abc123")
		if err != nil {
			t.Fatalf("authenticate #%d: %v", i+1, err)
		}
		if email != testEmail {
			t.Errorf("authenticate #%d: email = %q", i+1, email)
		}
		accountIDs = append(accountIDs, session.AccountID)
	}

	if accountIDs[0] != accountIDs[1] || accountIDs[1] != accountIDs[2] {
		t.Errorf("repeated logins resolved to different accounts: %v", accountIDs)
	}
	if len(b.roles.assigned) != 1 {
		t.Errorf("expected a single (account, role) pair, got %v", b.roles.assigned)
	}
}

func TestAuthenticate_ExistingAccountPasswordReset(t *testing.T) {
	b := newBridge(fixedOnlyRecord(testIdentifierDigits, "abc123"))
	ctx := context.Background()

	// An account already exists with a stale password.
	if _, err := b.dir.CreateAccount(ctx, testEmail, "stale-pw", auth.Metadata{}); err != nil {
		t.Fatal(err)
	}

	_, session, err := b.svc.Authenticate(ctx, testIdentifierDigits, "abc123")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if session == nil {
		t.Fatal("expected session")
	}
	// The directory credential now matches the clinic one.
	if _, err := b.dir.SignIn(ctx, testEmail, "abc123"); err != nil {
		t.Errorf("direct sign-in after reset: %v", err)
	}
}

func TestAuthenticate_DuplicateRecordsUseOldest(t *testing.T) {
	old := fixedOnlyRecord(testIdentifierDigits, "abc123")
	old.CreatedAt = time.Now().Add(-time.Hour)
	newer := fixedOnlyRecord(testIdentifierDigits, "abc123")

	b := newBridge(newer, old)
	if _, _, err := b.svc.Authenticate(context.Background(), testIdentifierDigits, "abc123"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	if old.LinkedAccountID == nil {
		t.Error("oldest record should have been linked")
	}
	if newer.LinkedAccountID != nil {
		t.Error("newer duplicate must stay untouched")
	}
}

func TestAuthenticate_RoleUpsertFailure(t *testing.T) {
	b := newBridge(fixedOnlyRecord(testIdentifierDigits, "abc123"))
	b.roles.fail = true

	_, _, err := b.svc.Authenticate(context.Background(), testIdentifierDigits, "abc123")
	if !errors.Is(err, ErrAccountProvisioning) {
		t.Errorf("expected ErrAccountProvisioning, got %v", err)
	}
}

func TestAuthenticate_LinkBackFailure(t *testing.T) {
	b := newBridge(fixedOnlyRecord(testIdentifierDigits, "abc123"))
	b.records.failLink = true

	_, _, err := b.svc.Authenticate(context.Background(), testIdentifierDigits, "abc123")
	if !errors.Is(err, ErrAccountProvisioning) {
		t.Errorf("expected ErrAccountProvisioning, got %v", err)
	}
}

func TestAuthenticate_ConcurrentFirstLogins(t *testing.T) {
	b := newBridge(fixedOnlyRecord(testIdentifierDigits, "abc123"))
	ctx := context.Background()

	const callers = 8
	var wg sync.WaitGroup
	sessions := make([]*auth.Session, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, sessions[i], errs[i] = b.svc.Authenticate(ctx, testIdentifierDigits, "abc123")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	for i := 1; i < callers; i++ {
		if sessions[i].AccountID != sessions[0].AccountID {
			t.Fatalf("caller %d resolved to a different account", i)
		}
	}
	if len(b.roles.assigned) != 1 {
		t.Errorf("expected a single (account, role) pair, got %v", b.roles.assigned)
	}
}
