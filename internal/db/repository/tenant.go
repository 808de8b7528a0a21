package repository

import (
	"context"
	"database/sql"

	"placedir/internal/domain"
)

var (
	_ domain.TenantRepository = (*TenantRepo)(nil)
	_ domain.TenantDirectory  = (*TenantRepo)(nil)
)

// TenantRepo implements domain.TenantRepository and domain.TenantDirectory
// using SQLite. Membership lives in tenant_members so the set stays a set.
type TenantRepo struct {
	db *sql.DB
}

// NewTenantRepo creates a new TenantRepo.
func NewTenantRepo(db *sql.DB) *TenantRepo {
	return &TenantRepo{db: db}
}

func (r *TenantRepo) Create(ctx context.Context, t *domain.BusinessTenant) error {
	q := conn(ctx, r.db)
	_, err := q.ExecContext(ctx,
		`INSERT INTO tenants (id, name, owner_uid) VALUES (?, ?, ?)`,
		t.ID, t.Name, t.OwnerUID)
	if err != nil {
		return mapDBError(err)
	}
	for _, uid := range t.AssociatedUserIDs {
		if _, err := q.ExecContext(ctx,
			`INSERT OR IGNORE INTO tenant_members (tenant_id, member_uid) VALUES (?, ?)`,
			t.ID, uid); err != nil {
			return mapDBError(err)
		}
	}
	return nil
}

func (r *TenantRepo) Get(ctx context.Context, id string) (*domain.BusinessTenant, error) {
	q := conn(ctx, r.db)

	var t domain.BusinessTenant
	err := q.QueryRowContext(ctx,
		`SELECT id, name, owner_uid, created_at, updated_at FROM tenants WHERE id = ?`, id).
		Scan(&t.ID, &t.Name, &t.OwnerUID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}

	members, err := r.members(ctx, q, id)
	if err != nil {
		return nil, err
	}
	t.AssociatedUserIDs = members
	return &t, nil
}

// Resolve implements domain.TenantDirectory.
func (r *TenantRepo) Resolve(ctx context.Context, tenantID string) (*domain.BusinessTenant, error) {
	return r.Get(ctx, tenantID)
}

func (r *TenantRepo) List(ctx context.Context, page domain.PageRequest) ([]domain.BusinessTenant, int64, error) {
	q := conn(ctx, r.db)

	var total int64
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM tenants`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.QueryContext(ctx,
		`SELECT id, name, owner_uid, created_at, updated_at FROM tenants ORDER BY id LIMIT ? OFFSET ?`,
		page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tenants []domain.BusinessTenant
	for rows.Next() {
		var t domain.BusinessTenant
		if err := rows.Scan(&t.ID, &t.Name, &t.OwnerUID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, err
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range tenants {
		members, err := r.members(ctx, q, tenants[i].ID)
		if err != nil {
			return nil, 0, err
		}
		tenants[i].AssociatedUserIDs = members
	}
	return tenants, total, nil
}

func (r *TenantRepo) Update(ctx context.Context, t *domain.BusinessTenant) error {
	q := conn(ctx, r.db)

	res, err := q.ExecContext(ctx,
		`UPDATE tenants SET name = ?, owner_uid = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		t.Name, t.OwnerUID, t.ID)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("tenant %s not found", t.ID)
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM tenant_members WHERE tenant_id = ?`, t.ID); err != nil {
		return mapDBError(err)
	}
	for _, uid := range t.AssociatedUserIDs {
		if _, err := q.ExecContext(ctx,
			`INSERT OR IGNORE INTO tenant_members (tenant_id, member_uid) VALUES (?, ?)`,
			t.ID, uid); err != nil {
			return mapDBError(err)
		}
	}
	return nil
}

// Delete removes the tenant and, via cascade, its membership rows. Deleting
// an absent tenant is not an error.
func (r *TenantRepo) Delete(ctx context.Context, id string) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM tenants WHERE id = ?`, id)
	return mapDBError(err)
}

func (r *TenantRepo) members(ctx context.Context, q querier, tenantID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT member_uid FROM tenant_members WHERE tenant_id = ? ORDER BY member_uid`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		members = append(members, uid)
	}
	return members, rows.Err()
}
