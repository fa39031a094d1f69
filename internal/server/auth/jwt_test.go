package auth

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/xrayportal/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse_Success(t *testing.T) {
	secret := []byte("super-secret")

	tok, err := GenerateToken(42, "alice@example.com", secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(tok, secret)
	require.NoError(t, err)
	require.Equal(t, int64(42), claims.UserID)
	require.Equal(t, "alice@example.com", claims.Email)
	require.NotEmpty(t, claims.ID)
	require.NotNil(t, claims.IssuedAt)
	require.WithinDuration(t, claims.IssuedAt.Add(time.Hour), claims.ExpiresAt.Time, time.Second)
}

func TestGenerateToken_UniqueJTI(t *testing.T) {
	secret := []byte("k")
	a, err := GenerateToken(1, "a@b.c", secret, time.Hour)
	require.NoError(t, err)
	b, err := GenerateToken(1, "a@b.c", secret, time.Hour)
	require.NoError(t, err)

	ca, err := ParseToken(a, secret)
	require.NoError(t, err)
	cb, err := ParseToken(b, secret)
	require.NoError(t, err)
	require.NotEqual(t, ca.ID, cb.ID)
}

func TestGenerateToken_EmptySecret(t *testing.T) {
	_, err := GenerateToken(1, "a@b.c", nil, time.Hour)
	require.ErrorIs(t, err, common.ErrConfiguration)
}

func TestParseToken_Expired(t *testing.T) {
	secret := []byte("secret")

	tok, err := GenerateToken(1, "a@b.c", secret, -time.Second)
	require.NoError(t, err)

	_, err = ParseToken(tok, secret)
	require.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestParseToken_ExpiresExactlyAtBoundary(t *testing.T) {
	secret := []byte("secret")
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	orig := now
	t.Cleanup(func() { now = orig })

	now = func() time.Time { return base }
	tok, err := GenerateToken(1, "a@b.c", secret, 24*time.Hour)
	require.NoError(t, err)

	now = func() time.Time { return base.Add(24*time.Hour - time.Second) }
	_, err = ParseToken(tok, secret)
	require.NoError(t, err)

	now = func() time.Time { return base.Add(24*time.Hour + time.Second) }
	_, err = ParseToken(tok, secret)
	require.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestParseToken_WrongSecret(t *testing.T) {
	tok, err := GenerateToken(2, "a@b.c", []byte("right-secret"), time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(tok, []byte("wrong-secret"))
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParseToken_Malformed(t *testing.T) {
	for _, in := range []string{"", "not.a.jwt", "garbage"} {
		_, err := ParseToken(in, []byte("k"))
		require.ErrorIs(t, err, common.ErrInvalidToken, "input %q", in)
	}
}

func TestParseToken_TamperedPayload(t *testing.T) {
	secret := []byte("k")
	tok, err := GenerateToken(3, "a@b.c", secret, time.Hour)
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(`{"userId":999,"email":"evil@x","exp":4102444800}`))

	_, err = ParseToken(strings.Join(parts, "."), secret)
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	secret := []byte("k")
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	s, err := tok.SignedString(secret)
	require.NoError(t, err)

	_, err = ParseToken(s, secret)
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParseToken_MissingExpiry(t *testing.T) {
	secret := []byte("k")
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: 1})
	s, err := tok.SignedString(secret)
	require.NoError(t, err)

	_, err = ParseToken(s, secret)
	require.ErrorIs(t, err, common.ErrInvalidToken)
}
