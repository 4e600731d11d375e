package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGPolicyRepository persists role default sets in role_policies. One row
// per role; the upsert is a single statement, so a policy write is
// all-or-nothing and concurrent readers never observe a torn set.
type PGPolicyRepository struct {
	pool *pgxpool.Pool
}

// NewPolicyRepository constructs a PostgreSQL policy repository.
func NewPolicyRepository(pool *pgxpool.Pool) *PGPolicyRepository {
	return &PGPolicyRepository{pool: pool}
}

// GetDefaults returns the stored permission set for a role. A role without
// a row has an empty set; roles are a closed enum, so this is not an error.
func (r *PGPolicyRepository) GetDefaults(ctx context.Context, role Role) ([]Permission, error) {
	var raw []string
	err := r.pool.QueryRow(ctx, `SELECT permissions FROM role_policies WHERE role = $1`, string(role)).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	perms := make([]Permission, len(raw))
	for i, token := range raw {
		perms[i] = Permission(token)
	}
	return perms, nil
}

// SetDefaults replaces the role's permission set.
func (r *PGPolicyRepository) SetDefaults(ctx context.Context, role Role, permissions []Permission) error {
	raw := make([]string, len(permissions))
	for i, p := range permissions {
		raw[i] = string(p)
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO role_policies (role, permissions, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (role) DO UPDATE SET permissions = EXCLUDED.permissions, updated_at = NOW()`,
		string(role), raw)
	return err
}

var _ PolicyRepository = (*PGPolicyRepository)(nil)

// PGOverrideRepository persists user overrides in user_overrides with a
// (user_id, permission) primary key, so the upsert serializes writers on the
// affected record and disjoint keys never block each other.
type PGOverrideRepository struct {
	pool *pgxpool.Pool
}

// NewOverrideRepository constructs a PostgreSQL override repository.
func NewOverrideRepository(pool *pgxpool.Pool) *PGOverrideRepository {
	return &PGOverrideRepository{pool: pool}
}

// Upsert replaces any prior record for the same (user, permission).
func (r *PGOverrideRepository) Upsert(ctx context.Context, override UserOverride) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_overrides (user_id, permission, granted, reason, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, permission) DO UPDATE
		 SET granted = EXCLUDED.granted, reason = EXCLUDED.reason,
		     created_by = EXCLUDED.created_by, created_at = EXCLUDED.created_at`,
		override.UserID, string(override.Permission), override.Granted,
		override.Reason, override.CreatedBy, override.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return fmt.Errorf("%w: user %d", ErrNotFound, override.UserID)
		}
		return err
	}
	return nil
}

// Delete removes the record and reports whether one existed.
func (r *PGOverrideRepository) Delete(ctx context.Context, userID int64, permission Permission) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM user_overrides WHERE user_id = $1 AND permission = $2`,
		userID, string(permission))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListForUser returns the user's overrides ordered by permission name for
// stable display.
func (r *PGOverrideRepository) ListForUser(ctx context.Context, userID int64) ([]UserOverride, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, permission, granted, reason, created_by, created_at
		 FROM user_overrides WHERE user_id = $1 ORDER BY permission`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overrides []UserOverride
	for rows.Next() {
		var (
			ov    UserOverride
			token string
		)
		if err := rows.Scan(&ov.UserID, &token, &ov.Granted, &ov.Reason, &ov.CreatedBy, &ov.CreatedAt); err != nil {
			return nil, err
		}
		ov.Permission = Permission(token)
		overrides = append(overrides, ov)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return overrides, nil
}

var _ OverrideRepository = (*PGOverrideRepository)(nil)
