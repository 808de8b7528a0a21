package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"placedir/internal/domain"
)

var _ domain.ResourceRepository = (*ResourceRepo)(nil)

// ResourceRepo implements domain.ResourceRepository using SQLite. The open
// content field set is stored as a JSON column next to the typed columns the
// policy engine cares about.
type ResourceRepo struct {
	db *sql.DB
}

// NewResourceRepo creates a new ResourceRepo.
func NewResourceRepo(db *sql.DB) *ResourceRepo {
	return &ResourceRepo{db: db}
}

func (r *ResourceRepo) Create(ctx context.Context, res *domain.ManagedResource) error {
	content, err := marshalContent(res.Content)
	if err != nil {
		return err
	}
	_, err = conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO managed_resources (id, owner_tenant_id, active, content) VALUES (?, ?, ?, ?)`,
		res.ID, nullStr(res.OwnerTenant), boolToInt(res.Active), content)
	return mapDBError(err)
}

func (r *ResourceRepo) Get(ctx context.Context, id string) (*domain.ManagedResource, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, owner_tenant_id, active, content, created_at, updated_at
		 FROM managed_resources WHERE id = ?`, id)
	return scanResource(row)
}

func (r *ResourceRepo) List(ctx context.Context, page domain.PageRequest) ([]domain.ManagedResource, int64, error) {
	q := conn(ctx, r.db)

	var total int64
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM managed_resources`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.QueryContext(ctx,
		`SELECT id, owner_tenant_id, active, content, created_at, updated_at
		 FROM managed_resources ORDER BY id LIMIT ? OFFSET ?`,
		page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var resources []domain.ManagedResource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, 0, err
		}
		resources = append(resources, *res)
	}
	return resources, total, rows.Err()
}

func (r *ResourceRepo) Update(ctx context.Context, res *domain.ManagedResource) error {
	content, err := marshalContent(res.Content)
	if err != nil {
		return err
	}
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE managed_resources
		 SET owner_tenant_id = ?, active = ?, content = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		nullStr(res.OwnerTenant), boolToInt(res.Active), content, res.ID)
	if err != nil {
		return mapDBError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("resource %s not found", res.ID)
	}
	return nil
}

func (r *ResourceRepo) Delete(ctx context.Context, id string) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM managed_resources WHERE id = ?`, id)
	return mapDBError(err)
}

func scanResource(row rowScanner) (*domain.ManagedResource, error) {
	var res domain.ManagedResource
	var owner sql.NullString
	var active int64
	var content []byte
	if err := row.Scan(&res.ID, &owner, &active, &content, &res.CreatedAt, &res.UpdatedAt); err != nil {
		return nil, mapDBError(err)
	}
	res.OwnerTenant = owner.String
	res.Active = active != 0
	if err := json.Unmarshal(content, &res.Content); err != nil {
		return nil, fmt.Errorf("decode resource content: %w", err)
	}
	return &res, nil
}

func marshalContent(content map[string]interface{}) ([]byte, error) {
	if content == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}
	return b, nil
}
