package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// uniqueViolation is the Postgres error code for unique constraint violations.
const uniqueViolation = "23505"

// PGDirectory is the Postgres-backed Directory over the account and
// role_assignment tables.
type PGDirectory struct {
	pool   *pgxpool.Pool
	issuer *TokenIssuer
}

func NewPGDirectory(pool *pgxpool.Pool, issuer *TokenIssuer) *PGDirectory {
	return &PGDirectory{pool: pool, issuer: issuer}
}

func (d *PGDirectory) CreateAccount(ctx context.Context, email, password string, meta Metadata) (CreateResult, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return CreateResult{}, err
	}

	acct := &Account{ID: uuid.New(), Email: email, PasswordHash: hash, FullName: meta.FullName}
	err = d.pool.QueryRow(ctx, `
		INSERT INTO account (id, email, password_hash, full_name, national_id)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		RETURNING created_at`,
		acct.ID, acct.Email, acct.PasswordHash, acct.FullName, meta.NationalID,
	).Scan(&acct.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return CreateResult{Outcome: OutcomeAlreadyExists}, nil
		}
		return CreateResult{}, fmt.Errorf("insert account: %w", err)
	}

	return CreateResult{Outcome: OutcomeCreated, Account: acct}, nil
}

func (d *PGDirectory) FindAccountByEmail(ctx context.Context, email string) (*Account, error) {
	acct := &Account{}
	err := d.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, COALESCE(full_name, ''), created_at
		FROM account WHERE email = $1`, email,
	).Scan(&acct.ID, &acct.Email, &acct.PasswordHash, &acct.FullName, &acct.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("query account by email: %w", err)
	}
	return acct, nil
}

func (d *PGDirectory) UpdateAccountPassword(ctx context.Context, accountID uuid.UUID, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	tag, err := d.pool.Exec(ctx,
		`UPDATE account SET password_hash = $2, updated_at = NOW() WHERE id = $1`,
		accountID, hash)
	if err != nil {
		return fmt.Errorf("update account password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (d *PGDirectory) DeleteAccount(ctx context.Context, accountID uuid.UUID) error {
	tag, err := d.pool.Exec(ctx, `DELETE FROM account WHERE id = $1`, accountID)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// SignIn verifies the password against the stored hash and issues a session
// token. Patient sessions carry the linked patient id so that patient-scoped
// routes can enforce self-access.
func (d *PGDirectory) SignIn(ctx context.Context, email, password string) (*Session, error) {
	acct, err := d.FindAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrSignInFailed
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return nil, ErrSignInFailed
	}

	roles, err := d.RolesForAccount(ctx, acct.ID)
	if err != nil {
		return nil, err
	}

	var patientID string
	err = d.pool.QueryRow(ctx,
		`SELECT id::text FROM patient WHERE linked_account_id = $1`, acct.ID,
	).Scan(&patientID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("query linked patient: %w", err)
	}

	return d.issuer.Issue(acct.ID, acct.Email, roles, patientID)
}

func (d *PGDirectory) RolesForAccount(ctx context.Context, accountID uuid.UUID) ([]string, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT role FROM role_assignment WHERE account_id = $1 AND active`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}
