package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/dmitrijs2005/xrayportal/internal/common"
	"github.com/dmitrijs2005/xrayportal/internal/dbx"
	"github.com/dmitrijs2005/xrayportal/internal/logging"
	"github.com/dmitrijs2005/xrayportal/internal/server/mailer"
	"github.com/dmitrijs2005/xrayportal/internal/server/models"
	"github.com/dmitrijs2005/xrayportal/internal/server/repositories/repomanager"
)

const (
	otpMin   = 100000
	otpRange = 900000
)

// GenerateCode returns a uniformly random six digit code.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpRange))
	if err != nil {
		return "", fmt.Errorf("otp random: %w", err)
	}
	return strconv.FormatInt(otpMin+n.Int64(), 10), nil
}

// OTPService issues and consumes registration codes. Store and Verify take
// the caller's transaction handle.
type OTPService struct {
	repomanager repomanager.RepositoryManager
	mailer      mailer.Mailer
	validity    time.Duration
	generate    func() (string, error)
	now         func() time.Time
}

func NewOTPService(m repomanager.RepositoryManager, ml mailer.Mailer, validity time.Duration) *OTPService {
	return &OTPService{repomanager: m, mailer: ml, validity: validity, generate: GenerateCode, now: time.Now}
}

// Store generates a fresh code and persists it on tx. The caller sends it
// with Send once the transaction has committed.
func (s *OTPService) Store(ctx context.Context, tx dbx.DBTX, userID int64, email string) (string, error) {
	code, err := s.generate()
	if err != nil {
		return "", err
	}

	_, err = s.repomanager.OTPCodes(tx).Create(ctx, &models.OTPCode{
		UserID:    userID,
		Email:     email,
		Code:      code,
		Purpose:   models.OTPPurposeRegistration,
		ExpiresAt: s.now().Add(s.validity),
	})
	if err != nil {
		return "", fmt.Errorf("error creating otp: %w", err)
	}
	return code, nil
}

// Send emails a stored code. Any mailer failure is reported as
// common.ErrDeliveryFailed.
func (s *OTPService) Send(ctx context.Context, email, code string) error {
	if err := s.mailer.SendOTP(ctx, email, code, s.validity); err != nil {
		return fmt.Errorf("%w: %v", common.ErrDeliveryFailed, err)
	}
	return nil
}

// Verify consumes the newest usable code for email and returns its user id.
func (s *OTPService) Verify(ctx context.Context, tx dbx.DBTX, email, code string) (int64, error) {
	userID, err := s.repomanager.OTPCodes(tx).Consume(ctx, email, code, models.OTPPurposeRegistration, s.now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return 0, common.ErrInvalidOrExpired
		}
		return 0, err
	}
	return userID, nil
}

// Purge deletes codes that expired more than retention ago.
func (s *OTPService) Purge(ctx context.Context, db dbx.DBTX, retention time.Duration) (int64, error) {
	n, err := s.repomanager.OTPCodes(db).DeleteExpiredBefore(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("error purging otp codes: %w", err)
	}
	return n, nil
}

// RunPurger calls Purge every interval until ctx is done. Failed rounds are
// logged and retried on the next tick.
func (s *OTPService) RunPurger(ctx context.Context, db dbx.DBTX, interval, retention time.Duration, logger logging.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := s.Purge(ctx, db, retention)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Warn(ctx, "otp purge failed", "error", err.Error())
				continue
			}
			if n > 0 {
				logger.Info(ctx, "otp codes purged", "count", n)
			}
		}
	}
}
