// Package services contains server-side business logic. This file implements
// UserService, which drives registration with email verification, login,
// logout and session lookup.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/xrayportal/internal/common"
	"github.com/dmitrijs2005/xrayportal/internal/dbx"
	"github.com/dmitrijs2005/xrayportal/internal/logging"
	"github.com/dmitrijs2005/xrayportal/internal/server/auth"
	"github.com/dmitrijs2005/xrayportal/internal/server/models"
	"github.com/dmitrijs2005/xrayportal/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// Session is a freshly issued session token for a user.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      models.PublicUser
}

// RegisterInput carries the registration form.
type RegisterInput struct {
	Email    string
	Password string
	UserName string
}

// UserService provides the account lifecycle:
// - Register: create an inactive user and email a code
// - VerifyOTP: consume the code, activate and sign in
// - Login / Logout / CurrentUser / Authenticate
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	otp         *OTPService
	sessions    *auth.Sessions
	audit       *AuditService
	logger      logging.Logger
	bcryptCost  int
	now         func() time.Time
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, otp *OTPService, sessions *auth.Sessions, audit *AuditService, logger logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		otp:         otp,
		sessions:    sessions,
		audit:       audit,
		logger:      logger,
		bcryptCost:  bcrypt.DefaultCost,
		now:         time.Now,
	}
}

// Register validates the form, then inserts the inactive user and stores the
// code in one transaction. The code is mailed after commit; if delivery
// fails the user row (and its code) is deleted and common.ErrDeliveryFailed
// is returned.
func (s *UserService) Register(ctx context.Context, in RegisterInput, meta RequestMeta) error {
	in.Email = strings.TrimSpace(in.Email)
	in.UserName = strings.TrimSpace(in.UserName)
	if err := validateRegistration(in); err != nil {
		return err
	}

	exists, err := s.repomanager.Users(s.db).ExistsByEmailOrUsername(ctx, in.Email, in.UserName)
	if err != nil {
		return fmt.Errorf("error checking user: %w", err)
	}
	if exists {
		return common.ErrDuplicateIdentity
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	type pending struct {
		user *models.User
		code string
	}
	reg, err := dbx.WithTxResult(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (pending, error) {
		u, err := s.repomanager.Users(tx).Create(ctx, &models.User{
			Email:        in.Email,
			UserName:     in.UserName,
			PasswordHash: string(hash),
		})
		if err != nil {
			return pending{}, err
		}
		code, err := s.otp.Store(ctx, tx, u.ID, u.Email)
		if err != nil {
			return pending{}, err
		}
		return pending{user: u, code: code}, nil
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateIdentity) {
			s.logger.Warn(ctx, "registration rejected", "email", in.Email, "error", err.Error())
			return err
		}
		return fmt.Errorf("error creating user: %w", err)
	}

	user := reg.user
	if err := s.otp.Send(ctx, user.Email, reg.code); err != nil {
		if derr := s.repomanager.Users(s.db).Delete(ctx, user.ID); derr != nil {
			s.logger.Error(ctx, "error removing undeliverable registration", "user_id", user.ID, "error", derr.Error())
		}
		s.logger.Warn(ctx, "registration rejected", "email", in.Email, "error", err.Error())
		return err
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	s.audit.Record(ctx, &user.ID, models.AuthActionRegister, models.AuthStatusSuccess, meta)
	return nil
}

func validateRegistration(in RegisterInput) error {
	if in.Email == "" || in.Password == "" || in.UserName == "" {
		return fmt.Errorf("%w: email, password and username are required", common.ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(in.Email)
	if err != nil || addr.Address != in.Email {
		return fmt.Errorf("%w: invalid email address", common.ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrInvalidInput, minPasswordLength)
	}
	return nil
}

// VerifyOTP consumes the code and activates the account atomically, then
// issues a session. A wrong, used or expired code yields
// common.ErrInvalidOrExpired and changes nothing.
func (s *UserService) VerifyOTP(ctx context.Context, email, code string, meta RequestMeta) (*Session, error) {
	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, fmt.Errorf("%w: email and verification code are required", common.ErrInvalidInput)
	}

	user, err := dbx.WithTxResult(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.PublicUser, error) {
		userID, err := s.otp.Verify(ctx, tx, email, code)
		if err != nil {
			return nil, err
		}
		repo := s.repomanager.Users(tx)
		if err := repo.Activate(ctx, userID); err != nil {
			return nil, fmt.Errorf("error activating user: %w", err)
		}
		return repo.GetPublicByID(ctx, userID)
	})
	if err != nil {
		if errors.Is(err, common.ErrInvalidOrExpired) {
			s.audit.Record(ctx, nil, models.AuthActionOTPVerify, models.AuthStatusFailure, meta)
			return nil, err
		}
		return nil, fmt.Errorf("error verifying otp: %w", err)
	}

	session, err := s.issue(*user)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "email verified", "user_id", user.ID)
	s.audit.Record(ctx, &user.ID, models.AuthActionOTPVerify, models.AuthStatusSuccess, meta)
	return session, nil
}

// dummyHash keeps the cost of a failed lookup close to a failed password check.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("x-ray-portal-dummy"), bcrypt.DefaultCost)

// Login checks the password of an active account. Unknown, inactive and
// wrong-password attempts all return common.ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, email, password string, meta RequestMeta) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrInvalidInput)
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			s.audit.Record(ctx, nil, models.AuthActionLogin, models.AuthStatusFailure, meta)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.audit.Record(ctx, &user.ID, models.AuthActionLogin, models.AuthStatusFailure, meta)
		return nil, common.ErrInvalidCredentials
	}

	session, err := s.issue(user.Public())
	if err != nil {
		return nil, err
	}

	if err := repo.UpdateLastLogin(ctx, user.ID, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("error updating last login: %w", err)
	}

	s.audit.Record(ctx, &user.ID, models.AuthActionLogin, models.AuthStatusSuccess, meta)
	return session, nil
}

// Logout revokes the presented token if it is still valid. Audit is best
// effort; the only error is a failed revocation.
func (s *UserService) Logout(ctx context.Context, token string, meta RequestMeta) error {
	if token == "" {
		s.audit.Record(ctx, nil, models.AuthActionLogout, models.AuthStatusSuccess, meta)
		return nil
	}

	claims, err := s.sessions.Revoke(ctx, token)
	var userID *int64
	if claims != nil {
		userID = &claims.UserID
	}
	if err != nil {
		s.audit.Record(ctx, userID, models.AuthActionLogout, models.AuthStatusFailure, meta)
		return fmt.Errorf("error revoking session: %w", err)
	}

	s.audit.Record(ctx, userID, models.AuthActionLogout, models.AuthStatusSuccess, meta)
	return nil
}

// Authenticate verifies a session token, revocation included.
func (s *UserService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	return s.sessions.Verify(ctx, token)
}

// CurrentUser returns the public projection of userID or common.ErrorNotFound.
func (s *UserService) CurrentUser(ctx context.Context, userID int64) (*models.PublicUser, error) {
	u, err := s.repomanager.Users(s.db).GetPublicByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return u, nil
}

// SessionValidity is the lifetime of issued tokens, used for cookie Max-Age.
func (s *UserService) SessionValidity() time.Duration {
	return s.sessions.Validity()
}

func (s *UserService) issue(user models.PublicUser) (*Session, error) {
	token, err := s.sessions.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("error issuing session: %w", err)
	}
	return &Session{Token: token, ExpiresAt: s.now().Add(s.sessions.Validity()), User: user}, nil
}
