package otpcodes

import (
	"context"
	"time"

	"github.com/dmitrijs2005/xrayportal/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, code *models.OTPCode) (*models.OTPCode, error)
	Consume(ctx context.Context, email, code string, purpose models.OTPPurpose, now time.Time) (int64, error)
	DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error)
}
