package staff

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrAssignmentNotFound = errors.New("role assignment not found")

type RoleRepository interface {
	// Upsert creates the assignment or reactivates an inactive one. It is
	// the write behind every patient login, so it must stay idempotent.
	Upsert(ctx context.Context, accountID uuid.UUID, role string) error
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*RoleAssignment, error)
	SetActive(ctx context.Context, accountID uuid.UUID, role string, active bool) error
	Remove(ctx context.Context, accountID uuid.UUID, role string) error
	ListMembers(ctx context.Context, role string, limit, offset int) ([]*StaffMember, int, error)
}

type ActivityRepository interface {
	Record(ctx context.Context, actor *uuid.UUID, action, entityType string, entityID *uuid.UUID, details map[string]interface{}) error
	List(ctx context.Context, limit, offset int) ([]*ActivityEntry, int, error)
	ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit, offset int) ([]*ActivityEntry, int, error)
}
