package core

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T, now *time.Time) *TokenCodec {
	t.Helper()
	c, err := NewTokenCodec("test-secret", "HS256")
	require.NoError(t, err)
	if now != nil {
		c.now = func() time.Time { return *now }
	}
	return c
}

func requireInvalidToken(t *testing.T, err error) {
	t.Helper()
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, CodeInvalidToken, appErr.Code)
	assert.Equal(t, CategoryAuthentication, appErr.Category)
}

func TestTokenRoundTrip(t *testing.T) {
	c := newTestCodec(t, nil)
	tok, err := c.Encode("RA0001", time.Hour)
	require.NoError(t, err)
	sub, err := c.Decode(tok)
	require.NoError(t, err)
	assert.Equal(t, "RA0001", sub)
}

func TestTokenExpires(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCodec(t, &now)
	tok, err := c.Encode("RA0001", 10*time.Minute)
	require.NoError(t, err)

	now = now.Add(9 * time.Minute)
	_, err = c.Decode(tok)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = c.Decode(tok)
	requireInvalidToken(t, err)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestTokenFallbackLifetime(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCodec(t, &now)
	tok, err := c.Encode("RA0001", 0)
	require.NoError(t, err)

	var claims jwt.RegisteredClaims
	_, _, err = jwt.NewParser().ParseUnverified(tok, &claims)
	require.NoError(t, err)
	assert.Equal(t, now.Add(15*time.Minute).Unix(), claims.ExpiresAt.Unix())
	assert.Equal(t, now.Unix(), claims.IssuedAt.Unix())
}

func TestTokenRejectsTamperingAndForeignKeys(t *testing.T) {
	c := newTestCodec(t, nil)
	tok, err := c.Encode("RA0001", time.Hour)
	require.NoError(t, err)

	_, err = c.Decode(tok + "x")
	requireInvalidToken(t, err)

	_, err = c.Decode("not.a.token")
	requireInvalidToken(t, err)

	other, err := NewTokenCodec("another-secret", "HS256")
	require.NoError(t, err)
	_, err = other.Decode(tok)
	requireInvalidToken(t, err)

	strict, err := NewTokenCodec("test-secret", "HS512")
	require.NoError(t, err)
	_, err = strict.Decode(tok)
	requireInvalidToken(t, err)
}

func TestTokenWithoutSubjectOrExpiry(t *testing.T) {
	c := newTestCodec(t, nil)
	noSub := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	s, err := noSub.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = c.Decode(s)
	requireInvalidToken(t, err)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "RA0001"})
	s, err = noExp.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = c.Decode(s)
	requireInvalidToken(t, err)
}

func TestNewTokenCodecRejectsNonHMAC(t *testing.T) {
	_, err := NewTokenCodec("secret", "RS256")
	assert.Error(t, err)
	_, err = NewTokenCodec("secret", "none")
	assert.Error(t, err)
	_, err = NewTokenCodec("", "HS256")
	assert.Error(t, err)
	_, err = NewTokenCodec("secret", "hs384")
	assert.NoError(t, err)
}
