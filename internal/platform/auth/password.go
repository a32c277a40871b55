package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// CredentialVerifier checks a supplied password against the clinic-stored
// credential fields of a patient record. Patients carry up to two valid
// credentials at a time: a staff-issued temporary password and an optional
// fixed one the patient chose. Either matching counts as success; an unset
// field never matches.
type CredentialVerifier interface {
	Verify(password string, temporary, fixed *string) bool
}

// BcryptVerifier verifies against bcrypt-hashed credential fields. This is
// the production verifier; HashPassword produces compatible hashes.
type BcryptVerifier struct{}

func (BcryptVerifier) Verify(password string, temporary, fixed *string) bool {
	if password == "" {
		return false
	}
	if temporary != nil && bcrypt.CompareHashAndPassword([]byte(*temporary), []byte(password)) == nil {
		return true
	}
	if fixed != nil && bcrypt.CompareHashAndPassword([]byte(*fixed), []byte(password)) == nil {
		return true
	}
	return false
}

// PlaintextVerifier performs direct equality comparison. It exists for
// records migrated from the legacy system, which stored both credential
// fields in the clear.
type PlaintextVerifier struct{}

func (PlaintextVerifier) Verify(password string, temporary, fixed *string) bool {
	if password == "" {
		return false
	}
	if temporary != nil && *temporary == password {
		return true
	}
	if fixed != nil && *fixed == password {
		return true
	}
	return false
}

// HashPassword returns a bcrypt hash of the given password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
