package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// fallbackTokenLifetime applies when IssueToken is called without a lifetime.
const fallbackTokenLifetime = 15 * time.Minute

// TokenCodec signs and verifies HMAC access tokens carrying the student's
// academic id as subject. A codec is immutable once built.
type TokenCodec struct {
	secret []byte
	method jwt.SigningMethod
	now    func() time.Time
}

// NewTokenCodec builds a codec for one of HS256, HS384 or HS512.
func NewTokenCodec(secret, algorithm string) (*TokenCodec, error) {
	if secret == "" {
		return nil, errors.New("token secret is empty")
	}
	method := jwt.GetSigningMethod(strings.ToUpper(algorithm))
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
	return &TokenCodec{secret: []byte(secret), method: method, now: time.Now}, nil
}

// Encode returns a signed token for subject expiring after lifetime.
// A non-positive lifetime falls back to 15 minutes.
func (c *TokenCodec) Encode(subject string, lifetime time.Duration) (string, error) {
	if lifetime <= 0 {
		lifetime = fallbackTokenLifetime
	}
	now := c.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
	}
	token := jwt.NewWithClaims(c.method, claims)
	return token.SignedString(c.secret)
}

// Decode verifies signature, algorithm and expiry and returns the subject.
// Every failure, including a missing subject, is reported as InvalidToken;
// the underlying reason is returned wrapped for logging.
func (c *TokenCodec) Decode(tokenStr string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	var claims jwt.RegisteredClaims
	token, err := parser.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return "", invalidTokenCause(err)
	}
	if !token.Valid {
		return "", invalidTokenCause(jwt.ErrTokenInvalidClaims)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", invalidTokenCause(errors.New("token has no subject"))
	}
	return claims.Subject, nil
}

func invalidTokenCause(cause error) *AppError {
	e := InvalidToken()
	e.cause = cause
	return e
}
