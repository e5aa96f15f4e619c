// Package provider abstracts the identity provider behind the two
// capabilities the core consumes: credential sign-in and token
// verification. The default implementation is local; a hosted provider
// can be swapped in without touching the HTTP layer.
package provider

import (
	"context"

	"referral_backend/platform/httpkit"
)

// TokenEnvelope is the credential exchange result returned to clients.
type TokenEnvelope struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// Provider issues and verifies access tokens.
type Provider interface {
	httpkit.TokenVerifier
	SignIn(ctx context.Context, email, password string) (TokenEnvelope, error)
}
