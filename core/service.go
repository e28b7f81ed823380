package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Authenticator verifies credentials against the student store and turns
// tokens back into principals. It holds no per-request state.
type Authenticator struct {
	store    CredentialStore
	codec    *TokenCodec
	lifetime time.Duration
}

// NewAuthenticator wires a store and codec with the default token lifetime.
func NewAuthenticator(store CredentialStore, codec *TokenCodec, lifetime time.Duration) *Authenticator {
	return &Authenticator{store: store, codec: codec, lifetime: lifetime}
}

// TokenLifetime is the configured default lifetime used at login.
func (a *Authenticator) TokenLifetime() time.Duration { return a.lifetime }

// Authenticate returns the principal for valid credentials. Unknown ids,
// students without a password and wrong passwords all yield the same
// InvalidCredentials failure.
func (a *Authenticator) Authenticate(ctx context.Context, registroAcademico, password string) (Principal, error) {
	if strings.TrimSpace(registroAcademico) == "" || password == "" {
		return Principal{}, InvalidCredentials()
	}

	s, err := a.store.FindByAcademicID(ctx, registroAcademico)
	if err != nil {
		return Principal{}, err
	}
	if s == nil {
		return Principal{}, InvalidCredentials()
	}
	if s.PasswordHash == "" {
		logrus.WithField("registro_academico", registroAcademico).Warn("student has no password configured")
		return Principal{}, InvalidCredentials()
	}
	if !VerifyPassword(password, s.PasswordHash) {
		return Principal{}, InvalidCredentials()
	}
	return principalFromStudent(*s), nil
}

// IssueToken signs a token for registroAcademico. A non-positive lifetime
// falls back to 15 minutes.
func (a *Authenticator) IssueToken(registroAcademico string, lifetime time.Duration) (string, error) {
	token, err := a.codec.Encode(registroAcademico, lifetime)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return token, nil
}

// ResolvePrincipal decodes token and loads its subject fresh from the store.
// A bad token and a subject with no matching student are indistinguishable.
func (a *Authenticator) ResolvePrincipal(ctx context.Context, token string) (Principal, error) {
	subject, err := a.codec.Decode(token)
	if err != nil {
		return Principal{}, err
	}
	s, err := a.store.FindByAcademicID(ctx, subject)
	if err != nil {
		return Principal{}, err
	}
	if s == nil {
		return Principal{}, invalidTokenCause(fmt.Errorf("subject %s not found", subject))
	}
	return principalFromStudent(*s), nil
}
