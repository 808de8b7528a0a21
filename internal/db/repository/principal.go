package repository

import (
	"context"
	"database/sql"

	"placedir/internal/domain"
)

var _ domain.PrincipalRepository = (*PrincipalRepo)(nil)

// PrincipalRepo implements domain.PrincipalRepository using SQLite.
type PrincipalRepo struct {
	db *sql.DB
}

// NewPrincipalRepo creates a new PrincipalRepo.
func NewPrincipalRepo(db *sql.DB) *PrincipalRepo {
	return &PrincipalRepo{db: db}
}

func (r *PrincipalRepo) Create(ctx context.Context, p *domain.Principal) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO principals (uid, role, email, tenant_id, blocked) VALUES (?, ?, ?, ?, ?)`,
		p.UID, string(p.Role), p.Email, nullStr(p.TenantID), boolToInt(p.Blocked))
	return mapDBError(err)
}

func (r *PrincipalRepo) Upsert(ctx context.Context, p *domain.Principal) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO principals (uid, role, email, tenant_id, blocked) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(uid) DO UPDATE SET
		   role = excluded.role,
		   email = excluded.email,
		   tenant_id = excluded.tenant_id,
		   blocked = excluded.blocked,
		   updated_at = CURRENT_TIMESTAMP`,
		p.UID, string(p.Role), p.Email, nullStr(p.TenantID), boolToInt(p.Blocked))
	return mapDBError(err)
}

func (r *PrincipalRepo) Get(ctx context.Context, uid string) (*domain.Principal, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT uid, role, email, tenant_id, blocked, created_at, updated_at
		 FROM principals WHERE uid = ?`, uid)
	return scanPrincipal(row)
}

func (r *PrincipalRepo) List(ctx context.Context, page domain.PageRequest) ([]domain.Principal, int64, error) {
	q := conn(ctx, r.db)

	var total int64
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM principals`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.QueryContext(ctx,
		`SELECT uid, role, email, tenant_id, blocked, created_at, updated_at
		 FROM principals ORDER BY uid LIMIT ? OFFSET ?`,
		page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var principals []domain.Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, 0, err
		}
		principals = append(principals, *p)
	}
	return principals, total, rows.Err()
}

func (r *PrincipalRepo) SetRole(ctx context.Context, uid string, role domain.Role) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE principals SET role = ?, updated_at = CURRENT_TIMESTAMP WHERE uid = ?`,
		string(role), uid)
	if err != nil {
		return mapDBError(err)
	}
	return requireRowChanged(res, uid)
}

func (r *PrincipalRepo) SetBlocked(ctx context.Context, uid string, blocked bool) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE principals SET blocked = ?, updated_at = CURRENT_TIMESTAMP WHERE uid = ?`,
		boolToInt(blocked), uid)
	if err != nil {
		return mapDBError(err)
	}
	return requireRowChanged(res, uid)
}

// Delete removes the document if present. Deleting an absent principal is
// not an error; lifecycle deletes must converge.
func (r *PrincipalRepo) Delete(ctx context.Context, uid string) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM principals WHERE uid = ?`, uid)
	return mapDBError(err)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPrincipal(row rowScanner) (*domain.Principal, error) {
	var p domain.Principal
	var role string
	var tenantID sql.NullString
	var blocked int64
	if err := row.Scan(&p.UID, &role, &p.Email, &tenantID, &blocked, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, mapDBError(err)
	}
	p.Role = domain.Role(role)
	p.TenantID = tenantID.String
	p.Blocked = blocked != 0
	return &p, nil
}

func requireRowChanged(res sql.Result, uid string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("principal %s not found", uid)
	}
	return nil
}
