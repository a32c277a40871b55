package staff

import (
	"time"

	"github.com/google/uuid"
)

// Roles recognized by the service. Admin passes every role check.
const (
	RoleAdmin   = "admin"
	RoleStaff   = "staff"
	RolePatient = "patient"
)

// ValidRoles guards role writes from the admin API.
var ValidRoles = map[string]bool{
	RoleAdmin:   true,
	RoleStaff:   true,
	RolePatient: true,
}

// RoleAssignment maps to the role_assignment table, unique on
// (account_id, role).
type RoleAssignment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	AccountID uuid.UUID `db:"account_id" json:"account_id"`
	Role      string    `db:"role" json:"role"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StaffMember is the admin-dashboard view of an account with its roles.
type StaffMember struct {
	AccountID uuid.UUID `json:"account_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

// ActivityEntry maps to the activity_log table.
type ActivityEntry struct {
	ID         uuid.UUID              `db:"id" json:"id"`
	Actor      *uuid.UUID             `db:"actor" json:"actor,omitempty"`
	Action     string                 `db:"action" json:"action"`
	EntityType string                 `db:"entity_type" json:"entity_type"`
	EntityID   *uuid.UUID             `db:"entity_id" json:"entity_id,omitempty"`
	Details    map[string]interface{} `db:"details" json:"details,omitempty"`
	CreatedAt  time.Time              `db:"created_at" json:"created_at"`
}
