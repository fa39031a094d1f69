// Package otpcodes stores one-time verification codes.
package otpcodes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/xrayportal/internal/common"
	"github.com/dmitrijs2005/xrayportal/internal/dbx"
	"github.com/dmitrijs2005/xrayportal/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, code *models.OTPCode) (*models.OTPCode, error) {
	query :=
		`INSERT INTO otp_codes (user_id, email, otp_code, purpose, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		code.UserID, code.Email, code.Code, string(code.Purpose), code.ExpiresAt).Scan(&code.ID, &code.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	code.IsUsed = false
	return code, nil
}

// Consume marks the newest unused, unexpired code matching email, code and
// purpose as used and returns its user id. The row lock plus the is_used
// guard make concurrent consumers race for one winner; the losers get
// common.ErrorNotFound, same as a wrong or expired code.
func (r *PostgresRepository) Consume(ctx context.Context, email, code string, purpose models.OTPPurpose, now time.Time) (int64, error) {
	query :=
		`UPDATE otp_codes SET is_used = TRUE
		 WHERE id = (
		     SELECT id FROM otp_codes
		     WHERE email = $1 AND otp_code = $2 AND purpose = $3
		       AND is_used = FALSE AND expires_at > $4
		     ORDER BY created_at DESC
		     LIMIT 1
		     FOR UPDATE SKIP LOCKED
		 ) AND is_used = FALSE
		 RETURNING user_id
		 `

	var userID int64
	err := r.db.QueryRowContext(ctx, query, email, code, string(purpose), now).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}

	return userID, nil
}

// DeleteExpiredBefore removes codes that expired before the cutoff, used
// or not, and reports how many rows went.
func (r *PostgresRepository) DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error) {
	query :=
		`DELETE FROM otp_codes
		 WHERE expires_at < $1
		 `
	res, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
