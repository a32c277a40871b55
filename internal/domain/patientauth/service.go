// Package patientauth reconciles the clinic's patient records with the
// email-keyed account directory. Patients log in with their national ID and
// a clinic-managed password; the directory only knows emails, so every login
// derives the deterministic patient address, provisions or repairs the
// account behind it, and signs in through the directory.
package patientauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Iv3rn/exam-access-flow/internal/domain/patient"
	"github.com/Iv3rn/exam-access-flow/internal/platform/auth"
	"github.com/Iv3rn/exam-access-flow/pkg/natid"
)

var (
	ErrMissingIdentifier    = errors.New("identifier is required")
	ErrNotFound             = errors.New("no patient record matches the identifier")
	ErrInvalidCredential    = errors.New("credential does not match the patient record")
	ErrAccountProvisioning  = errors.New("account provisioning failed")
	ErrSessionEstablishment = errors.New("session establishment failed")
)

// RecordStore is the slice of the patient repository the bridge needs.
type RecordStore interface {
	FindByIdentifier(ctx context.Context, candidates ...string) (*patient.Patient, int, error)
	LinkAccount(ctx context.Context, id, accountID uuid.UUID) error
}

// RoleAssigner grants the patient role, creating or reactivating the
// assignment. Running it on every login keeps the row self-healing.
type RoleAssigner interface {
	Upsert(ctx context.Context, accountID uuid.UUID, role string) error
}

type Service struct {
	records     RecordStore
	directory   auth.Directory
	roles       RoleAssigner
	verifier    auth.CredentialVerifier
	emailDomain string
	log         zerolog.Logger
}

func NewService(records RecordStore, directory auth.Directory, roles RoleAssigner, verifier auth.CredentialVerifier, emailDomain string, log zerolog.Logger) *Service {
	return &Service{
		records:     records,
		directory:   directory,
		roles:       roles,
		verifier:    verifier,
		emailDomain: emailDomain,
		log:         log,
	}
}

// Authenticate resolves a national-ID login against the account directory
// and returns the derived login email plus an established session.
//
// The flow is convergent: any number of repeated calls with the same valid
// inputs ends in the same state (one account, one active patient role, a
// linked record) and every step tolerates finding its work already done.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (string, *auth.Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "", nil, ErrMissingIdentifier
	}

	digits, formatted := natid.Candidates(identifier)
	rec, matches, err := s.records.FindByIdentifier(ctx, digits, formatted)
	if err != nil {
		if errors.Is(err, patient.ErrPatientNotFound) {
			return "", nil, ErrNotFound
		}
		return "", nil, fmt.Errorf("patient lookup: %w", err)
	}
	if matches > 1 {
		s.log.Warn().Int("matches", matches).Str("patient_id", rec.ID.String()).
			Msg("multiple patient records share one national id; using oldest")
	}

	if !s.verifier.Verify(password, rec.TemporaryPassword, rec.FixedPassword) {
		return "", nil, ErrInvalidCredential
	}

	email := natid.LoginEmail(natid.Normalize(rec.NationalID), s.emailDomain)

	accountID, err := s.ensureAccount(ctx, email, password, rec)
	if err != nil {
		return "", nil, err
	}

	if err := s.roles.Upsert(ctx, accountID, "patient"); err != nil {
		return "", nil, fmt.Errorf("%w: patient role upsert: %v", ErrAccountProvisioning, err)
	}

	if rec.LinkedAccountID == nil || *rec.LinkedAccountID != accountID {
		if err := s.records.LinkAccount(ctx, rec.ID, accountID); err != nil {
			return "", nil, fmt.Errorf("%w: record link-back: %v", ErrAccountProvisioning, err)
		}
	}

	session, err := s.directory.SignIn(ctx, email, password)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrSessionEstablishment, err)
	}
	return email, session, nil
}

// ensureAccount creates the directory account or, when it already exists,
// resets its password to the credential the patient just proved. Two
// concurrent first logins race on the insert; the loser takes the
// already-exists branch and converges on the winner's account.
func (s *Service) ensureAccount(ctx context.Context, email, password string, rec *patient.Patient) (uuid.UUID, error) {
	res, err := s.directory.CreateAccount(ctx, email, password, auth.Metadata{
		FullName:   rec.FullName,
		NationalID: rec.NationalID,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: create account: %v", ErrAccountProvisioning, err)
	}

	if res.Outcome == auth.OutcomeCreated {
		return res.Account.ID, nil
	}

	acct, err := s.directory.FindAccountByEmail(ctx, email)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: existing account lookup: %v", ErrAccountProvisioning, err)
	}
	if err := s.directory.UpdateAccountPassword(ctx, acct.ID, password); err != nil {
		return uuid.Nil, fmt.Errorf("%w: password reset: %v", ErrAccountProvisioning, err)
	}
	return acct.ID, nil
}
