package staff

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
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

// =========== Role Repository ===========

type roleRepoPG struct{ pool *pgxpool.Pool }

func NewRoleRepoPG(pool *pgxpool.Pool) RoleRepository {
	return &roleRepoPG{pool: pool}
}

func (r *roleRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *roleRepoPG) Upsert(ctx context.Context, accountID uuid.UUID, role string) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO role_assignment (id, account_id, role, active)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (account_id, role)
		DO UPDATE SET active = TRUE, updated_at = NOW()`,
		uuid.New(), accountID, role)
	return err
}

func (r *roleRepoPG) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*RoleAssignment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, account_id, role, active, created_at, updated_at
		FROM role_assignment WHERE account_id = $1 ORDER BY role`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*RoleAssignment
	for rows.Next() {
		var a RoleAssignment
		if err := rows.Scan(&a.ID, &a.AccountID, &a.Role, &a.Active, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}

func (r *roleRepoPG) SetActive(ctx context.Context, accountID uuid.UUID, role string, active bool) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE role_assignment SET active = $3, updated_at = NOW()
		WHERE account_id = $1 AND role = $2`,
		accountID, role, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}

func (r *roleRepoPG) Remove(ctx context.Context, accountID uuid.UUID, role string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM role_assignment WHERE account_id = $1 AND role = $2`,
		accountID, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}

func (r *roleRepoPG) ListMembers(ctx context.Context, role string, limit, offset int) ([]*StaffMember, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(DISTINCT a.id)
		FROM account a JOIN role_assignment ra ON ra.account_id = a.id
		WHERE ra.role = $1 AND ra.active`, role).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT a.id, a.email, COALESCE(a.full_name, ''), a.created_at,
			ARRAY(SELECT role FROM role_assignment WHERE account_id = a.id AND active ORDER BY role)
		FROM account a JOIN role_assignment ra ON ra.account_id = a.id
		WHERE ra.role = $1 AND ra.active
		ORDER BY a.created_at DESC LIMIT $2 OFFSET $3`,
		role, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*StaffMember
	for rows.Next() {
		var m StaffMember
		if err := rows.Scan(&m.AccountID, &m.Email, &m.FullName, &m.CreatedAt, &m.Roles); err != nil {
			return nil, 0, err
		}
		items = append(items, &m)
	}
	return items, total, rows.Err()
}

// =========== Activity Repository ===========

type activityRepoPG struct{ pool *pgxpool.Pool }

func NewActivityRepoPG(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepoPG{pool: pool}
}

func (r *activityRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *activityRepoPG) Record(ctx context.Context, actor *uuid.UUID, action, entityType string, entityID *uuid.UUID, details map[string]interface{}) error {
	var payload []byte
	if details != nil {
		var err error
		if payload, err = json.Marshal(details); err != nil {
			return err
		}
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO activity_log (id, actor, action, entity_type, entity_id, details)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), actor, action, entityType, entityID, payload)
	return err
}

const activityCols = `id, actor, action, entity_type, entity_id, details, created_at`

func scanActivity(row pgx.Row) (*ActivityEntry, error) {
	var e ActivityEntry
	var payload []byte
	if err := row.Scan(&e.ID, &e.Actor, &e.Action, &e.EntityType, &e.EntityID, &payload, &e.CreatedAt); err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &e.Details); err != nil {
			return nil, err
		}
	}
	return &e, nil
}

func (r *activityRepoPG) List(ctx context.Context, limit, offset int) ([]*ActivityEntry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM activity_log`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+activityCols+` FROM activity_log ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectActivity(rows, total)
}

func (r *activityRepoPG) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit, offset int) ([]*ActivityEntry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM activity_log WHERE entity_type = $1 AND entity_id = $2`,
		entityType, entityID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+activityCols+` FROM activity_log
		 WHERE entity_type = $1 AND entity_id = $2
		 ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		entityType, entityID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectActivity(rows, total)
}

func collectActivity(rows pgx.Rows, total int) ([]*ActivityEntry, int, error) {
	var items []*ActivityEntry
	for rows.Next() {
		e, err := scanActivity(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}
