// Package authlogs persists the append-only authentication audit trail.
package authlogs

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/xrayportal/internal/dbx"
	"github.com/dmitrijs2005/xrayportal/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, entry *models.AuthLog) error {
	query :=
		`INSERT INTO auth_logs (user_id, action, status, ip_address, user_agent)
		 VALUES ($1, $2, $3, $4, $5)
		 `

	var userID sql.NullInt64
	if entry.UserID != nil {
		userID = sql.NullInt64{Int64: *entry.UserID, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		userID, string(entry.Action), string(entry.Status), orUnknown(entry.IPAddress), orUnknown(entry.UserAgent))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
