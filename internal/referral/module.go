// Package referral is the referral reconciliation bounded context module.
// It owns event ingest, the reconciled read-models and the derived metrics
// snapshots.
package referral

import (
	"referral_backend/internal/http"
	"referral_backend/internal/referral/handler"
	"referral_backend/internal/referral/repository"
	"referral_backend/internal/referral/service"
	"referral_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the referral bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	store   repository.Store
}

// NewModule creates and initializes the referral module with all its dependencies.
func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	return NewModuleWithStore(repository.New(pool), log)
}

// NewModuleWithStore wires the module around an explicit document store.
func NewModuleWithStore(store repository.Store, log *logger.Logger) *Module {
	svc := service.New(store, log)
	h := handler.New(svc)

	return &Module{
		handler: h,
		service: svc,
		store:   store,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "referral"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts referral routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *http.RouterContext) {
	ctx.Admin.POST("/uploads", m.handler.Upload)

	ctx.Protected.GET("/referrals", m.handler.List)
	ctx.Protected.GET("/referrals/:id", m.handler.Get)
	ctx.Protected.GET("/metrics/latest", m.handler.LatestMetrics)
}

// Compile-time check that Module implements http.Module
var _ http.Module = (*Module)(nil)
