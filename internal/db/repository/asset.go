package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"placedir/internal/domain"
)

var _ domain.AssetRepository = (*AssetRepo)(nil)

// AssetRepo implements domain.AssetRepository using SQLite.
type AssetRepo struct {
	db *sql.DB
}

// NewAssetRepo creates a new AssetRepo.
func NewAssetRepo(db *sql.DB) *AssetRepo {
	return &AssetRepo{db: db}
}

func (r *AssetRepo) Create(ctx context.Context, a *domain.Asset) error {
	content, err := marshalContent(a.Content)
	if err != nil {
		return err
	}
	_, err = conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO assets (id, content) VALUES (?, ?)`, a.ID, content)
	return mapDBError(err)
}

func (r *AssetRepo) Get(ctx context.Context, id string) (*domain.Asset, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, content, created_at, updated_at FROM assets WHERE id = ?`, id)
	return scanAsset(row)
}

func (r *AssetRepo) List(ctx context.Context, page domain.PageRequest) ([]domain.Asset, int64, error) {
	q := conn(ctx, r.db)

	var total int64
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM assets`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.QueryContext(ctx,
		`SELECT id, content, created_at, updated_at FROM assets ORDER BY id LIMIT ? OFFSET ?`,
		page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, 0, err
		}
		assets = append(assets, *a)
	}
	return assets, total, rows.Err()
}

func (r *AssetRepo) Update(ctx context.Context, a *domain.Asset) error {
	content, err := marshalContent(a.Content)
	if err != nil {
		return err
	}
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE assets SET content = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		content, a.ID)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("asset %s not found", a.ID)
	}
	return nil
}

func (r *AssetRepo) Delete(ctx context.Context, id string) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM assets WHERE id = ?`, id)
	return mapDBError(err)
}

func scanAsset(row rowScanner) (*domain.Asset, error) {
	var a domain.Asset
	var content []byte
	if err := row.Scan(&a.ID, &content, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, mapDBError(err)
	}
	if err := json.Unmarshal(content, &a.Content); err != nil {
		return nil, fmt.Errorf("decode asset content: %w", err)
	}
	return &a, nil
}
