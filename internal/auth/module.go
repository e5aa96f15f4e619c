// Package auth is the authentication bounded context module. It wires the
// identity provider, the role lookup and the login endpoints, and hands
// the verification capabilities to the HTTP layer.
package auth

import (
	"referral_backend/internal/auth/handler"
	"referral_backend/internal/auth/provider"
	"referral_backend/internal/auth/repository"
	"referral_backend/internal/auth/service"
	"referral_backend/internal/http"
	"referral_backend/platform/config"
	"referral_backend/platform/httpkit"
	"referral_backend/platform/logger"
	"referral_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Config combines the settings consumed by the auth module.
type Config interface {
	config.AuthServiceConfig
	config.RedisConfig
}

// Module is the auth bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the auth module. cache may be nil.
func NewModule(pool *pgxpool.Pool, cfg Config, cache *redis.Client, log *logger.Logger, val *validator.Validator) *Module {
	repo := repository.New(pool)
	local := provider.NewLocal(repo, cfg)
	svc := service.New(local, repo, cache, cfg.GetRoleCacheTTL(), log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "auth"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the users repository.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// Verifier exposes the token-verification capability.
func (m *Module) Verifier() httpkit.TokenVerifier {
	return m.service.Verifier()
}

// RoleLookup exposes the role-resolution capability.
func (m *Module) RoleLookup() httpkit.RoleLookup {
	return m.service
}

// RegisterRoutes mounts auth routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *http.RouterContext) {
	ctx.Public.POST("/auth/login", ctx.AuthRateLimiter.RateLimit(), m.handler.Login)
	ctx.Protected.GET("/auth/me", m.handler.Me)
}

// Compile-time check that Module implements http.Module
var _ http.Module = (*Module)(nil)
