package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Iv3rn/exam-access-flow/internal/config"
	"github.com/Iv3rn/exam-access-flow/internal/platform/auth"
	"github.com/Iv3rn/exam-access-flow/internal/platform/objectstore"
)

func TestResolveSessionSecret_UsesConfiguredValue(t *testing.T) {
	cfg := &config.Config{SessionSecret: "super-secret"}
	secret, err := resolveSessionSecret(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(secret) != "super-secret" {
		t.Errorf("expected configured secret, got %q", secret)
	}
}

func TestResolveSessionSecret_GeneratesEphemeralKey(t *testing.T) {
	cfg := &config.Config{}
	first, err := resolveSessionSecret(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != 32 {
		t.Fatalf("expected 32-byte key, got %d", len(first))
	}
	second, err := resolveSessionSecret(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(first) == string(second) {
		t.Error("expected a fresh random key on each call")
	}
}

func TestBuildObjectStore_DefaultsToMemory(t *testing.T) {
	cfg := &config.Config{Port: "8000"}
	store, err := buildObjectStore(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mem, ok := store.(*objectstore.MemoryStore)
	if !ok {
		t.Fatalf("expected MemoryStore, got %T", store)
	}
	if !strings.Contains(mem.BaseURL, ":8000") {
		t.Errorf("expected BaseURL to carry the configured port, got %q", mem.BaseURL)
	}
}

type mockRoleAssigner struct {
	upserts map[string]int
}

func (m *mockRoleAssigner) Upsert(_ context.Context, accountID uuid.UUID, role string) error {
	if m.upserts == nil {
		m.upserts = make(map[string]int)
	}
	m.upserts[accountID.String()+"/"+role]++
	return nil
}

func TestEnsureAdminAccount_RerunGrantsRoleToExistingAccount(t *testing.T) {
	issuer := auth.NewTokenIssuer([]byte("test-secret"), "exam-server", time.Hour)
	directory := auth.NewMemoryDirectory(issuer)
	roles := &mockRoleAssigner{}
	ctx := context.Background()

	first, err := ensureAdminAccount(ctx, directory, roles, "admin@clinic.test", "pw-one", "Admin")
	if err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Rerunning against the existing account must resolve it by email and
	// grant the role again, not fail.
	second, err := ensureAdminAccount(ctx, directory, roles, "admin@clinic.test", "pw-two", "Admin")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected the same account, got %s then %s", first.ID, second.ID)
	}
	if got := roles.upserts[first.ID.String()+"/admin"]; got != 2 {
		t.Errorf("expected 2 admin upserts for the account, got %d", got)
	}
}
