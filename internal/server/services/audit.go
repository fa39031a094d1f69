package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/xrayportal/internal/logging"
	"github.com/dmitrijs2005/xrayportal/internal/server/audit"
	"github.com/dmitrijs2005/xrayportal/internal/server/models"
	"github.com/dmitrijs2005/xrayportal/internal/server/repositories/repomanager"
)

// RequestMeta identifies the client behind an audited request.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// AuditService appends auth events to auth_logs and the audit stream.
// Failures are logged and swallowed.
type AuditService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	publisher   audit.Publisher
	logger      logging.Logger
	now         func() time.Time
}

func NewAuditService(db *sql.DB, m repomanager.RepositoryManager, publisher audit.Publisher, logger logging.Logger) *AuditService {
	if publisher == nil {
		publisher = audit.Nop{}
	}
	return &AuditService{db: db, repomanager: m, publisher: publisher, logger: logger, now: time.Now}
}

func (s *AuditService) Record(ctx context.Context, userID *int64, action models.AuthAction, status models.AuthStatus, meta RequestMeta) {
	entry := &models.AuthLog{
		UserID:    userID,
		Action:    action,
		Status:    status,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		CreatedAt: s.now().UTC(),
	}

	if err := s.repomanager.AuthLogs(s.db).Create(ctx, entry); err != nil {
		s.logger.Warn(ctx, "auth log write failed", "action", string(action), "error", err.Error())
	}
	if err := s.publisher.Publish(ctx, entry); err != nil {
		s.logger.Warn(ctx, "audit publish failed", "action", string(action), "error", err.Error())
	}
}
