// Package service implements the auth gate: credential login via the
// identity provider and role resolution for authenticated subjects.
package service

import (
	"context"
	"errors"
	"time"

	"referral_backend/internal/auth/provider"
	"referral_backend/internal/auth/repository"
	"referral_backend/platform/apperr"
	"referral_backend/platform/httpkit"
	"referral_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Service is the auth domain service. It implements httpkit.RoleLookup;
// token verification stays with the injected provider.
type Service struct {
	provider provider.Provider
	roles    repository.RoleReader
	cache    *redis.Client
	cacheTTL time.Duration
	log      *logger.Logger
}

// New creates a new auth service. cache may be nil, in which case every
// role lookup hits the users store.
func New(p provider.Provider, roles repository.RoleReader, cache *redis.Client, cacheTTL time.Duration, log *logger.Logger) *Service {
	return &Service{
		provider: p,
		roles:    roles,
		cache:    cache,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

var _ httpkit.RoleLookup = (*Service)(nil)

// Login exchanges credentials for a token envelope.
func (s *Service) Login(ctx context.Context, email, password string) (provider.TokenEnvelope, error) {
	envelope, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		s.log.AuthEvent("login", email, false, "invalid credentials")
		return provider.TokenEnvelope{}, apperr.Unauthorized("invalid credentials")
	}

	s.log.AuthEvent("login", email, true, "")
	return envelope, nil
}

// Verifier exposes the token-verification capability for the middleware.
func (s *Service) Verifier() httpkit.TokenVerifier {
	return s.provider
}

// RoleFor resolves the subject's role, consulting the cache first when
// configured. Subjects with no stored role default to viewer.
func (s *Service) RoleFor(ctx context.Context, uid uuid.UUID) (string, error) {
	cacheKey := "role:" + uid.String()

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
			return cached, nil
		}
	}

	role, err := s.roles.GetRole(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return httpkit.RoleViewer, nil
	}
	if err != nil {
		return "", err
	}
	if role == "" {
		role = httpkit.RoleViewer
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, cacheKey, role, s.cacheTTL).Err()
	}
	return role, nil
}
