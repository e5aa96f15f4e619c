// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"context"

	"referral_backend/platform/config"
	"referral_backend/platform/httpkit"
	"referral_backend/platform/logger"
)

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App holds the fully initialized application dependencies.
// This is populated by main.go (the composition root) and passed to the router.
type App struct {
	// Config holds the HTTP server configuration.
	Config config.HTTPConfig
	// Logger is the structured logger.
	Logger *logger.Logger
	// Health is used for readiness/health checks (e.g., DB ping).
	Health HealthChecker
	// Verifier authenticates bearer tokens on protected routes.
	Verifier httpkit.TokenVerifier
	// Roles resolves the role of authenticated subjects.
	Roles httpkit.RoleLookup
	// Modules contains all HTTP-facing domain modules.
	Modules []Module
}
