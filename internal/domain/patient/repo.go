package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrPatientNotFound = errors.New("patient not found")

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	// FindByIdentifier looks a patient up by either stored representation of
	// the national ID. With multiple matches the oldest row wins; the second
	// return value reports the total match count so callers can log
	// data-hygiene problems.
	FindByIdentifier(ctx context.Context, candidates ...string) (*Patient, int, error)
	Update(ctx context.Context, p *Patient) error
	UpdatePasswords(ctx context.Context, id uuid.UUID, temporary, fixed *string) error
	LinkAccount(ctx context.Context, id, accountID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error)
}
