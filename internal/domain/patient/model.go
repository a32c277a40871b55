package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patient table. The national ID is stored normalized
// (digits only); lookups accept the punctuated form too. The two password
// columns hold bcrypt hashes: staff issue a temporary password at
// registration and the patient may later set a fixed one. Either credential
// signs the patient in.
type Patient struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	NationalID        string     `db:"national_id" json:"national_id"`
	FullName          string     `db:"full_name" json:"full_name"`
	Email             *string    `db:"email" json:"email,omitempty"`
	Phone             *string    `db:"phone" json:"phone,omitempty"`
	BirthDate         *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	TemporaryPassword *string    `db:"temporary_password" json:"-"`
	FixedPassword     *string    `db:"fixed_password" json:"-"`
	LinkedAccountID   *uuid.UUID `db:"linked_account_id" json:"linked_account_id,omitempty"`
	CreatedBy         *uuid.UUID `db:"created_by" json:"created_by,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// RegistrationInput is the staff-facing payload for registering a patient.
// The temporary password is returned to the member of staff exactly once so
// it can be handed to the patient; only its hash is stored.
type RegistrationInput struct {
	NationalID        string     `json:"national_id"`
	FullName          string     `json:"full_name"`
	Email             *string    `json:"email,omitempty"`
	Phone             *string    `json:"phone,omitempty"`
	BirthDate         *time.Time `json:"birth_date,omitempty"`
	TemporaryPassword string     `json:"temporary_password"`
}
