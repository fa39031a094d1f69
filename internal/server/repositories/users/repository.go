package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/xrayportal/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	GetActiveByEmail(ctx context.Context, email string) (*models.User, error)
	GetPublicByID(ctx context.Context, id int64) (*models.PublicUser, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	Activate(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}
