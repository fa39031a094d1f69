package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/xrayportal/internal/common"
)

// Sessions issues, verifies and revokes session tokens.
type Sessions struct {
	secret   []byte
	validity time.Duration
	revoker  Revoker
}

func NewSessions(secret string, validity time.Duration, revoker Revoker) *Sessions {
	if revoker == nil {
		revoker = NewMemoryRevoker()
	}
	return &Sessions{secret: []byte(secret), validity: validity, revoker: revoker}
}

// Validity is the lifetime given to every issued token.
func (s *Sessions) Validity() time.Duration {
	return s.validity
}

func (s *Sessions) Issue(userID int64, email string) (string, error) {
	return GenerateToken(userID, email, s.secret, s.validity)
}

// Verify parses the token and rejects revoked ones with
// common.ErrInvalidSession.
func (s *Sessions) Verify(ctx context.Context, token string) (*Claims, error) {
	claims, err := ParseToken(token, s.secret)
	if err != nil {
		return nil, err
	}

	if claims.ID != "" {
		revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("revocation lookup: %w", err)
		}
		if revoked {
			return nil, common.ErrInvalidSession
		}
	}

	return claims, nil
}

// Revoke invalidates a still-valid token until it would expire anyway.
// Tokens that are already invalid are ignored.
func (s *Sessions) Revoke(ctx context.Context, token string) (*Claims, error) {
	claims, err := ParseToken(token, s.secret)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) || errors.Is(err, common.ErrInvalidToken) {
			return nil, nil
		}
		return nil, err
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return claims, nil
	}
	if err := s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return claims, err
	}
	return claims, nil
}
