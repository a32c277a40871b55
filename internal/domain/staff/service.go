package staff

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Iv3rn/exam-access-flow/internal/platform/auth"
)

type Service struct {
	roles     RoleRepository
	activity  ActivityRepository
	directory auth.Directory
}

func NewService(roles RoleRepository, activity ActivityRepository, directory auth.Directory) *Service {
	return &Service{roles: roles, activity: activity, directory: directory}
}

// CreateStaffAccount provisions a directory account with the staff role.
func (s *Service) CreateStaffAccount(ctx context.Context, email, password, fullName string, actor *uuid.UUID) (*auth.Account, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required")
	}

	res, err := s.directory.CreateAccount(ctx, email, password, auth.Metadata{FullName: fullName})
	if err != nil {
		return nil, err
	}
	if res.Outcome == auth.OutcomeAlreadyExists {
		return nil, fmt.Errorf("an account with this email already exists")
	}

	if err := s.roles.Upsert(ctx, res.Account.ID, RoleStaff); err != nil {
		return nil, fmt.Errorf("assign staff role: %w", err)
	}

	_ = s.activity.Record(ctx, actor, "staff.created", "account", &res.Account.ID, nil)
	return res.Account, nil
}

func (s *Service) AssignRole(ctx context.Context, accountID uuid.UUID, role string, actor *uuid.UUID) error {
	if !ValidRoles[role] {
		return fmt.Errorf("invalid role: %s", role)
	}
	if err := s.roles.Upsert(ctx, accountID, role); err != nil {
		return err
	}
	_ = s.activity.Record(ctx, actor, "role.assigned", "account", &accountID,
		map[string]interface{}{"role": role})
	return nil
}

func (s *Service) SetRoleActive(ctx context.Context, accountID uuid.UUID, role string, active bool, actor *uuid.UUID) error {
	if !ValidRoles[role] {
		return fmt.Errorf("invalid role: %s", role)
	}
	if err := s.roles.SetActive(ctx, accountID, role, active); err != nil {
		return err
	}
	action := "role.deactivated"
	if active {
		action = "role.activated"
	}
	_ = s.activity.Record(ctx, actor, action, "account", &accountID,
		map[string]interface{}{"role": role})
	return nil
}

func (s *Service) RemoveRole(ctx context.Context, accountID uuid.UUID, role string, actor *uuid.UUID) error {
	if err := s.roles.Remove(ctx, accountID, role); err != nil {
		return err
	}
	_ = s.activity.Record(ctx, actor, "role.removed", "account", &accountID,
		map[string]interface{}{"role": role})
	return nil
}

func (s *Service) RolesForAccount(ctx context.Context, accountID uuid.UUID) ([]*RoleAssignment, error) {
	return s.roles.ListByAccount(ctx, accountID)
}

func (s *Service) ListMembers(ctx context.Context, role string, limit, offset int) ([]*StaffMember, int, error) {
	if role == "" {
		role = RoleStaff
	}
	if !ValidRoles[role] {
		return nil, 0, fmt.Errorf("invalid role: %s", role)
	}
	return s.roles.ListMembers(ctx, role, limit, offset)
}

func (s *Service) ListActivity(ctx context.Context, limit, offset int) ([]*ActivityEntry, int, error) {
	return s.activity.List(ctx, limit, offset)
}

func (s *Service) ListActivityByEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit, offset int) ([]*ActivityEntry, int, error) {
	return s.activity.ListByEntity(ctx, entityType, entityID, limit, offset)
}
