package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Iv3rn/exam-access-flow/internal/platform/auth"
	"github.com/Iv3rn/exam-access-flow/pkg/natid"
)

var (
	ErrInvalidNationalID   = errors.New("national id must have 11 digits")
	ErrDuplicateNationalID = errors.New("a patient with this national id already exists")
)

// RoleAssigner grants a role to a directory account, creating or reactivating
// the assignment. Satisfied by the staff role repository.
type RoleAssigner interface {
	Upsert(ctx context.Context, accountID uuid.UUID, role string) error
}

// ActivityRecorder appends an entry to the clinic activity log. Satisfied by
// the staff activity repository.
type ActivityRecorder interface {
	Record(ctx context.Context, actor *uuid.UUID, action, entityType string, entityID *uuid.UUID, details map[string]interface{}) error
}

type Service struct {
	repo        Repository
	directory   auth.Directory
	roles       RoleAssigner
	activity    ActivityRecorder
	emailDomain string
	log         zerolog.Logger
}

func NewService(repo Repository, directory auth.Directory, roles RoleAssigner, activity ActivityRecorder, emailDomain string, log zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		directory:   directory,
		roles:       roles,
		activity:    activity,
		emailDomain: emailDomain,
		log:         log,
	}
}

// Register creates a patient record together with its directory account.
// The account is created first; if the patient insert then fails, the account
// is deleted again so a retry does not trip over a half-provisioned login.
func (s *Service) Register(ctx context.Context, in RegistrationInput, createdBy *uuid.UUID) (*Patient, error) {
	digits := natid.Normalize(in.NationalID)
	if len(digits) != natid.CanonicalLength {
		return nil, ErrInvalidNationalID
	}
	if in.FullName == "" {
		return nil, fmt.Errorf("full_name is required")
	}
	if in.TemporaryPassword == "" {
		return nil, fmt.Errorf("temporary_password is required")
	}

	if _, _, err := s.repo.FindByIdentifier(ctx, digits, natid.Format(digits)); err == nil {
		return nil, ErrDuplicateNationalID
	} else if !errors.Is(err, ErrPatientNotFound) {
		return nil, err
	}

	email := natid.LoginEmail(digits, s.emailDomain)
	res, err := s.directory.CreateAccount(ctx, email, in.TemporaryPassword, auth.Metadata{
		FullName:   in.FullName,
		NationalID: digits,
	})
	if err != nil {
		return nil, fmt.Errorf("create directory account: %w", err)
	}

	var accountID uuid.UUID
	createdHere := res.Outcome == auth.OutcomeCreated
	if createdHere {
		accountID = res.Account.ID
	} else {
		// A previous registration attempt may have left the account behind.
		// Reuse it and reset its password to the new temporary one.
		acct, err := s.directory.FindAccountByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("reconcile existing account: %w", err)
		}
		if err := s.directory.UpdateAccountPassword(ctx, acct.ID, in.TemporaryPassword); err != nil {
			return nil, fmt.Errorf("reset existing account password: %w", err)
		}
		accountID = acct.ID
	}

	tempHash, err := auth.HashPassword(in.TemporaryPassword)
	if err != nil {
		return nil, err
	}

	p := &Patient{
		NationalID:        digits,
		FullName:          in.FullName,
		Email:             in.Email,
		Phone:             in.Phone,
		BirthDate:         in.BirthDate,
		TemporaryPassword: &tempHash,
		LinkedAccountID:   &accountID,
		CreatedBy:         createdBy,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if createdHere {
			if delErr := s.directory.DeleteAccount(ctx, accountID); delErr != nil {
				s.log.Error().Err(delErr).Str("email", email).
					Msg("rollback of directory account failed after patient insert error")
			}
		}
		return nil, fmt.Errorf("insert patient: %w", err)
	}

	if err := s.roles.Upsert(ctx, accountID, "patient"); err != nil {
		s.log.Error().Err(err).Str("patient_id", p.ID.String()).
			Msg("patient role assignment failed during registration")
	}

	if s.activity != nil {
		_ = s.activity.Record(ctx, createdBy, "patient.registered", "patient", &p.ID,
			map[string]interface{}{"national_id": digits})
	}

	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	if p.FullName == "" {
		return fmt.Errorf("full_name is required")
	}
	return s.repo.Update(ctx, p)
}

// SetFixedPassword lets a signed-in patient replace the staff-issued
// temporary password with one of their own. Both the record hash and the
// directory credential change so the next login works with the new password
// only alongside the (still valid) temporary one.
func (s *Service) SetFixedPassword(ctx context.Context, id uuid.UUID, password string) error {
	if len(password) < 6 {
		return fmt.Errorf("password must have at least 6 characters")
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePasswords(ctx, id, p.TemporaryPassword, &hash); err != nil {
		return err
	}

	if p.LinkedAccountID != nil {
		if err := s.directory.UpdateAccountPassword(ctx, *p.LinkedAccountID, password); err != nil {
			return fmt.Errorf("update directory password: %w", err)
		}
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if p.LinkedAccountID != nil {
		if err := s.directory.DeleteAccount(ctx, *p.LinkedAccountID); err != nil &&
			!errors.Is(err, auth.ErrAccountNotFound) {
			s.log.Error().Err(err).Str("patient_id", id.String()).
				Msg("directory account removal failed after patient delete")
		}
	}
	return nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	return s.repo.Search(ctx, query, limit, offset)
}
