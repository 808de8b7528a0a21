package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"placedir/internal/domain"
)

// ProviderAccountRepo stores the embedded identity provider's accounts. It is
// deliberately separate from the principals table: the provider and the
// document store are distinct systems that only converge through the
// lifecycle service and the bootstrap handler.
type ProviderAccountRepo struct {
	db *sql.DB
}

// NewProviderAccountRepo creates a new ProviderAccountRepo.
func NewProviderAccountRepo(db *sql.DB) *ProviderAccountRepo {
	return &ProviderAccountRepo{db: db}
}

// ProviderAccountRow is the stored account plus credential material.
type ProviderAccountRow struct {
	Account      domain.ProviderAccount
	PasswordHash string
	Claims       *domain.ClaimBundle
}

func (r *ProviderAccountRepo) Insert(ctx context.Context, row *ProviderAccountRow) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO provider_accounts (uid, email, password_hash, display_name, disabled)
		 VALUES (?, ?, ?, ?, ?)`,
		row.Account.UID, row.Account.Email, row.PasswordHash,
		row.Account.DisplayName, boolToInt(row.Account.Disabled))
	return mapDBError(err)
}

func (r *ProviderAccountRepo) Get(ctx context.Context, uid string) (*ProviderAccountRow, error) {
	return r.getBy(ctx, `uid = ?`, uid)
}

func (r *ProviderAccountRepo) GetByEmail(ctx context.Context, email string) (*ProviderAccountRow, error) {
	return r.getBy(ctx, `email = ?`, email)
}

func (r *ProviderAccountRepo) getBy(ctx context.Context, where string, arg interface{}) (*ProviderAccountRow, error) {
	var row ProviderAccountRow
	var disabled int64
	var claims sql.NullString
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT uid, email, password_hash, display_name, disabled, claims, created_at
		 FROM provider_accounts WHERE `+where, arg).
		Scan(&row.Account.UID, &row.Account.Email, &row.PasswordHash,
			&row.Account.DisplayName, &disabled, &claims, &row.Account.CreatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	row.Account.Disabled = disabled != 0
	if claims.Valid {
		var bundle domain.ClaimBundle
		if err := json.Unmarshal([]byte(claims.String), &bundle); err != nil {
			return nil, fmt.Errorf("decode claim bundle: %w", err)
		}
		row.Claims = &bundle
	}
	return &row, nil
}

func (r *ProviderAccountRepo) Delete(ctx context.Context, uid string) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM provider_accounts WHERE uid = ?`, uid)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("account %s not found", uid)
	}
	return nil
}

func (r *ProviderAccountRepo) SetDisabled(ctx context.Context, uid string, disabled bool) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE provider_accounts SET disabled = ? WHERE uid = ?`, boolToInt(disabled), uid)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("account %s not found", uid)
	}
	return nil
}

func (r *ProviderAccountRepo) SetClaims(ctx context.Context, uid string, bundle domain.ClaimBundle) error {
	encoded, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("encode claim bundle: %w", err)
	}
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE provider_accounts SET claims = ? WHERE uid = ?`, string(encoded), uid)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("account %s not found", uid)
	}
	return nil
}

func (r *ProviderAccountRepo) ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]domain.ProviderAccount, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT uid, email, display_name, disabled, created_at
		 FROM provider_accounts WHERE created_at < ? ORDER BY created_at`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.ProviderAccount
	for rows.Next() {
		var a domain.ProviderAccount
		var disabled int64
		if err := rows.Scan(&a.UID, &a.Email, &a.DisplayName, &disabled, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Disabled = disabled != 0
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
