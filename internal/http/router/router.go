// Package router assembles the Gin engine: middleware chain, health
// endpoint and module route registration.
package router

import (
	nethttp "net/http"
	"strings"

	apphttp "referral_backend/internal/http"
	"referral_backend/platform/httpkit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// New builds the HTTP engine from the composed application.
func New(app *apphttp.App) *gin.Engine {
	if !strings.EqualFold(app.Config.GetEnv(), "development") {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(corsMiddleware(app))

	limiter := httpkit.NewIPRateLimiter(rate.Limit(50), 100, app.Logger)
	engine.Use(limiter.RateLimit())

	engine.GET("/health", func(c *gin.Context) {
		status := "ok"
		code := nethttp.StatusOK
		if app.Health != nil {
			if err := app.Health.Ping(c.Request.Context()); err != nil {
				status = "degraded"
				code = nethttp.StatusServiceUnavailable
			}
		}
		c.JSON(code, gin.H{"status": status, "mode": app.Config.GetEnv()})
	})

	authMiddleware := httpkit.AuthRequired(app.Verifier, app.Roles)

	public := engine.Group("")
	protected := engine.Group("", authMiddleware)
	admin := engine.Group("", authMiddleware, httpkit.RequireRole(httpkit.RoleAdmin))

	ctx := &apphttp.RouterContext{
		Engine:          engine,
		Public:          public,
		Protected:       protected,
		Admin:           admin,
		AuthMiddleware:  authMiddleware,
		AuthRateLimiter: httpkit.NewAuthRateLimiter(app.Logger),
	}

	for _, module := range app.Modules {
		module.RegisterRoutes(ctx)
		app.Logger.Debug("routes registered", "module", module.Name())
	}

	return engine
}

func corsMiddleware(app *apphttp.App) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	if app.Config.GetCORSAllowAll() {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = app.Config.GetCORSOrigins()
		corsConfig.AllowCredentials = app.Config.GetCORSAllowCreds()
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	return cors.New(corsConfig)
}
