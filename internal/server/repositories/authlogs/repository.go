package authlogs

import (
	"context"

	"github.com/dmitrijs2005/xrayportal/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, entry *models.AuthLog) error
}
