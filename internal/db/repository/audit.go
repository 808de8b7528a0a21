package repository

import (
	"context"
	"database/sql"

	"placedir/internal/domain"
)

var _ domain.AuditRepository = (*AuditRepo)(nil)

// AuditRepo implements domain.AuditRepository using SQLite.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Insert(ctx context.Context, e *domain.AuditEntry) error {
	id := e.ID
	if id == "" {
		id = domain.NewID()
	}
	var errMsg sql.NullString
	if e.ErrorMessage != nil {
		errMsg = sql.NullString{String: *e.ErrorMessage, Valid: true}
	}
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO audit_log (id, actor_uid, action, target_uid, collection, status, error_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, e.ActorUID, e.Action, e.TargetUID, e.Collection, e.Status, errMsg)
	return mapDBError(err)
}

func (r *AuditRepo) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, int64, error) {
	q := conn(ctx, r.db)

	where := ` WHERE (? IS NULL OR actor_uid = ?) AND (? IS NULL OR action = ?) AND (? IS NULL OR status = ?)`
	args := []interface{}{
		optArg(filter.ActorUID), optArg(filter.ActorUID),
		optArg(filter.Action), optArg(filter.Action),
		optArg(filter.Status), optArg(filter.Status),
	}

	var total int64
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listArgs := append(args, filter.Page.Limit(), filter.Page.Offset())
	rows, err := q.QueryContext(ctx,
		`SELECT id, actor_uid, action, target_uid, collection, status, error_message, created_at
		 FROM audit_log`+where+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var errMsg sql.NullString
		if err := rows.Scan(&e.ID, &e.ActorUID, &e.Action, &e.TargetUID, &e.Collection,
			&e.Status, &errMsg, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		if errMsg.Valid {
			e.ErrorMessage = &errMsg.String
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func optArg(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
