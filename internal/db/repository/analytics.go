package repository

import (
	"context"
	"database/sql"

	"placedir/internal/domain"
)

var _ domain.AnalyticsRepository = (*AnalyticsRepo)(nil)

// AnalyticsRepo implements domain.AnalyticsRepository using SQLite. The table
// mirrors the closed schema; there is no open content column.
type AnalyticsRepo struct {
	db *sql.DB
}

// NewAnalyticsRepo creates a new AnalyticsRepo.
func NewAnalyticsRepo(db *sql.DB) *AnalyticsRepo {
	return &AnalyticsRepo{db: db}
}

func (r *AnalyticsRepo) Insert(ctx context.Context, e *domain.AnalyticsEvent) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO analytics_events (id, poi_id, category_id, ts) VALUES (?, ?, ?, ?)`,
		e.ID, e.POIID, e.CategoryID, e.Timestamp)
	return mapDBError(err)
}

func (r *AnalyticsRepo) Get(ctx context.Context, id string) (*domain.AnalyticsEvent, error) {
	var e domain.AnalyticsEvent
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, poi_id, category_id, ts, created_at FROM analytics_events WHERE id = ?`, id).
		Scan(&e.ID, &e.POIID, &e.CategoryID, &e.Timestamp, &e.CreatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &e, nil
}

func (r *AnalyticsRepo) List(ctx context.Context, page domain.PageRequest) ([]domain.AnalyticsEvent, int64, error) {
	q := conn(ctx, r.db)

	var total int64
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM analytics_events`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.QueryContext(ctx,
		`SELECT id, poi_id, category_id, ts, created_at
		 FROM analytics_events ORDER BY created_at, id LIMIT ? OFFSET ?`,
		page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var events []domain.AnalyticsEvent
	for rows.Next() {
		var e domain.AnalyticsEvent
		if err := rows.Scan(&e.ID, &e.POIID, &e.CategoryID, &e.Timestamp, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		events = append(events, e)
	}
	return events, total, rows.Err()
}

func (r *AnalyticsRepo) Delete(ctx context.Context, id string) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM analytics_events WHERE id = ?`, id)
	return mapDBError(err)
}
