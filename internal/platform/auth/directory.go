package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrSignInFailed    = errors.New("sign-in failed")
)

// Account is a login-capable credential entity owned by the directory.
type Account struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is an established authenticated session.
type Session struct {
	AccountID   uuid.UUID `json:"account_id"`
	Email       string    `json:"email"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// CreateOutcome discriminates the result of a CreateAccount call. "Already
// exists" is an expected branch for callers provisioning idempotently, so it
// is a typed outcome rather than an error to string-match on.
type CreateOutcome int

const (
	OutcomeCreated CreateOutcome = iota
	OutcomeAlreadyExists
)

// CreateResult is the typed result of CreateAccount. Account is set when
// Outcome is OutcomeCreated.
type CreateResult struct {
	Outcome CreateOutcome
	Account *Account
}

// Metadata carries descriptive attributes attached to an account on
// creation.
type Metadata struct {
	FullName   string
	NationalID string
}

// Directory is the account/session provider consumed by the identity bridge
// and the staff login flow. Implementations: Postgres (production) and
// in-memory (tests, development without a database).
type Directory interface {
	CreateAccount(ctx context.Context, email, password string, meta Metadata) (CreateResult, error)
	FindAccountByEmail(ctx context.Context, email string) (*Account, error)
	UpdateAccountPassword(ctx context.Context, accountID uuid.UUID, password string) error
	DeleteAccount(ctx context.Context, accountID uuid.UUID) error
	SignIn(ctx context.Context, email, password string) (*Session, error)
	RolesForAccount(ctx context.Context, accountID uuid.UUID) ([]string, error)
}

// ---------------------------------------------------------------------------
// In-memory implementation
// ---------------------------------------------------------------------------

// MemoryDirectory is a thread-safe in-memory Directory for tests and
// development.
type MemoryDirectory struct {
	mu       sync.Mutex
	accounts map[string]*Account // keyed by email
	roles    map[uuid.UUID][]string
	issuer   *TokenIssuer
}

func NewMemoryDirectory(issuer *TokenIssuer) *MemoryDirectory {
	return &MemoryDirectory{
		accounts: make(map[string]*Account),
		roles:    make(map[uuid.UUID][]string),
		issuer:   issuer,
	}
}

func (d *MemoryDirectory) CreateAccount(_ context.Context, email, password string, meta Metadata) (CreateResult, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return CreateResult{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.accounts[email]; ok {
		return CreateResult{Outcome: OutcomeAlreadyExists}, nil
	}

	acct := &Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FullName:     meta.FullName,
		CreatedAt:    time.Now().UTC(),
	}
	d.accounts[email] = acct

	out := *acct
	return CreateResult{Outcome: OutcomeCreated, Account: &out}, nil
}

func (d *MemoryDirectory) FindAccountByEmail(_ context.Context, email string) (*Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	acct, ok := d.accounts[email]
	if !ok {
		return nil, ErrAccountNotFound
	}
	out := *acct
	return &out, nil
}

func (d *MemoryDirectory) UpdateAccountPassword(_ context.Context, accountID uuid.UUID, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, acct := range d.accounts {
		if acct.ID == accountID {
			acct.PasswordHash = hash
			return nil
		}
	}
	return ErrAccountNotFound
}

func (d *MemoryDirectory) DeleteAccount(_ context.Context, accountID uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for email, acct := range d.accounts {
		if acct.ID == accountID {
			delete(d.accounts, email)
			delete(d.roles, accountID)
			return nil
		}
	}
	return ErrAccountNotFound
}

func (d *MemoryDirectory) SignIn(ctx context.Context, email, password string) (*Session, error) {
	d.mu.Lock()
	acct, ok := d.accounts[email]
	var roles []string
	if ok {
		roles = append(roles, d.roles[acct.ID]...)
	}
	d.mu.Unlock()

	if !ok {
		return nil, ErrSignInFailed
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return nil, ErrSignInFailed
	}

	return d.issuer.Issue(acct.ID, acct.Email, roles, "")
}

func (d *MemoryDirectory) RolesForAccount(_ context.Context, accountID uuid.UUID) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.roles[accountID]...), nil
}

// SetRoles assigns roles for testing.
func (d *MemoryDirectory) SetRoles(accountID uuid.UUID, roles ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.roles[accountID] = roles
}
