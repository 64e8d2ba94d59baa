package router

import (
	"whatsapp-intake/backend/internal/api"
	"whatsapp-intake/backend/pkg/config"
	"whatsapp-intake/backend/pkg/di"
	"whatsapp-intake/backend/pkg/errors"
	"whatsapp-intake/backend/pkg/jwt"
	"whatsapp-intake/backend/pkg/logger"
	"whatsapp-intake/backend/pkg/middleware"
	"whatsapp-intake/backend/pkg/validator"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Version is reported by the health endpoint
var Version = "dev"

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
	validator *validator.OpenAPIValidator
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	logger.SetGlobal(container.Logger)

	cfg := container.Config
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	engine.Use(middleware.RequestIDMiddleware())

	// Use the logger middleware first to capture all requests
	engine.Use(logger.Middleware(container.Logger))

	engine.Use(errors.ErrorHandler())

	engine.Use(errors.RecoveryWithLogger())

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	if r.validator != nil {
		r.Engine.Use(r.validator.Middleware())
	}

	webhookController := api.NewWebhookController(r.Container.IntakeService)
	messageController := api.NewMessageController(r.Container.InboxService)
	healthController := api.NewHealthController(r.Container.HealthChecker, Version)

	healthController.RegisterHealthRoutes(r.Engine)
	webhookController.RegisterRoutes(r.Engine)

	if r.Container.MetricsHandler != nil {
		r.Engine.GET("/metrics", gin.WrapH(r.Container.MetricsHandler))
	}

	rateLimiter := middleware.NewRateLimiter(r.Logger, middleware.RateLimiterOptions{
		Limit:          rate.Limit(r.Config.API.RateLimit),
		Burst:          r.Config.API.RateLimitBurst,
		ExpiryDuration: middleware.DefaultRateLimiterOptions().ExpiryDuration,
	})

	messages := r.Engine.Group("/messages")
	messages.Use(rateLimiter.Middleware())

	readScope, writeScope := noop, noop
	if r.Container.JWTService != nil {
		messages.Use(middleware.JWTAuthMiddleware(r.Container.JWTService, r.Logger))
		readScope = middleware.RequireScope(jwt.ScopeMessagesRead)
		writeScope = middleware.RequireScope(jwt.ScopeMessagesWrite)
	} else {
		r.Logger.Warn("API_JWT_SECRET not set, query API is unauthenticated")
	}

	{
		messages.GET("/unseen", readScope, messageController.ListUnseen)
		messages.POST("/:id/seen", writeScope, messageController.MarkSeen)
	}
}

func noop(c *gin.Context) {
	c.Next()
}
