package settings

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Iv3rn/exam-access-flow/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

// Get returns the singleton row, inserting defaults on first read so
// callers never see a missing-row error.
func (r *repoPG) Get(ctx context.Context) (*Settings, error) {
	var s Settings
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT clinic_name, logo_path, updated_by, updated_at
		FROM clinic_settings WHERE singleton`,
	).Scan(&s.ClinicName, &s.LogoPath, &s.UpdatedBy, &s.UpdatedAt)
	if err == pgx.ErrNoRows {
		_, err = r.conn(ctx).Exec(ctx, `
			INSERT INTO clinic_settings (singleton, clinic_name)
			VALUES (TRUE, 'Clinic') ON CONFLICT (singleton) DO NOTHING`)
		if err != nil {
			return nil, err
		}
		return r.Get(ctx)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) Update(ctx context.Context, s *Settings) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE clinic_settings
		SET clinic_name = $1, logo_path = $2, updated_by = $3, updated_at = NOW()
		WHERE singleton`,
		s.ClinicName, s.LogoPath, s.UpdatedBy)
	return err
}
