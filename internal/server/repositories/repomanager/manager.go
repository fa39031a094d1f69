package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/xrayportal/internal/dbx"
	"github.com/dmitrijs2005/xrayportal/internal/server/repositories/authlogs"
	"github.com/dmitrijs2005/xrayportal/internal/server/repositories/otpcodes"
	"github.com/dmitrijs2005/xrayportal/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to either the pool or a
// transaction, so services can compose several writes atomically.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	OTPCodes(db dbx.DBTX) otpcodes.Repository
	AuthLogs(db dbx.DBTX) authlogs.Repository
}
