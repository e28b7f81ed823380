package core

import (
	"context"
	"time"
)

// CredentialStore is the lookup the authentication core needs from the
// student store. A missing student is (nil, nil).
type CredentialStore interface {
	FindByAcademicID(ctx context.Context, registroAcademico string) (*Student, error)
}

// AuthService defines authentication behaviour used by the HTTP layer.
type AuthService interface {
	Authenticate(ctx context.Context, registroAcademico, password string) (Principal, error)
	IssueToken(registroAcademico string, lifetime time.Duration) (string, error)
	ResolvePrincipal(ctx context.Context, token string) (Principal, error)
	TokenLifetime() time.Duration
}

// TokenResponse is the body returned by both login endpoints.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login authenticates and issues a bearer token with the configured lifetime.
func Login(ctx context.Context, auth AuthService, registroAcademico, password string) (TokenResponse, error) {
	p, err := auth.Authenticate(ctx, registroAcademico, password)
	if err != nil {
		return TokenResponse{}, err
	}
	token, err := auth.IssueToken(p.AcademicID, auth.TokenLifetime())
	if err != nil {
		return TokenResponse{}, err
	}
	return TokenResponse{AccessToken: token, TokenType: "bearer"}, nil
}
