package provider

import (
	"context"
	"errors"
	"time"

	"referral_backend/internal/auth/repository"
	"referral_backend/platform/config"
	"referral_backend/platform/httpkit"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrTokenInvalid = errors.New("token invalid")

const accessTokenType = "access"

// Local is the built-in identity provider: users table credentials with
// bcrypt hashes, HS256 access tokens.
type Local struct {
	users repository.UserReader
	cfg   config.AuthServiceConfig
}

// NewLocal creates the local identity provider.
func NewLocal(users repository.UserReader, cfg config.AuthServiceConfig) *Local {
	return &Local{users: users, cfg: cfg}
}

var _ Provider = (*Local)(nil)

// SignIn exchanges credentials for an access token envelope.
func (p *Local) SignIn(ctx context.Context, email, password string) (TokenEnvelope, error) {
	user, err := p.users.GetUserByEmail(ctx, email)
	if err != nil {
		return TokenEnvelope{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return TokenEnvelope{}, ErrInvalidCredentials
	}

	ttl := p.cfg.GetAccessTokenTTL()
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"type":  accessTokenType,
		"exp":   time.Now().Add(ttl).Unix(),
		"iat":   time.Now().Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(p.cfg.GetJWTAccessSecret()))
	if err != nil {
		return TokenEnvelope{}, err
	}

	return TokenEnvelope{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(ttl.Seconds()),
	}, nil
}

// Verify validates an access token and returns its principal.
func (p *Local) Verify(_ context.Context, rawToken string) (httpkit.Principal, error) {
	parsed, err := jwt.Parse(rawToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(p.cfg.GetJWTAccessSecret()), nil
	})
	if err != nil || !parsed.Valid {
		return httpkit.Principal{}, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return httpkit.Principal{}, ErrTokenInvalid
	}

	if tokenType, _ := claims["type"].(string); tokenType != accessTokenType {
		return httpkit.Principal{}, ErrTokenInvalid
	}

	subject, _ := claims["sub"].(string)
	uid, err := uuid.Parse(subject)
	if err != nil {
		return httpkit.Principal{}, ErrTokenInvalid
	}

	email, _ := claims["email"].(string)
	return httpkit.Principal{UID: uid, Email: email}, nil
}
