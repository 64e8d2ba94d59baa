package di

import (
	"context"
	"errors"
	"net/http"

	"whatsapp-intake/backend/internal/messaging"
	"whatsapp-intake/backend/internal/onboarding"
	"whatsapp-intake/backend/internal/repository"
	"whatsapp-intake/backend/internal/service"
	"whatsapp-intake/backend/pkg/cache"
	"whatsapp-intake/backend/pkg/config"
	"whatsapp-intake/backend/pkg/health"
	"whatsapp-intake/backend/pkg/jwt"
	"whatsapp-intake/backend/pkg/logger"
	"whatsapp-intake/backend/shared/observability"

	"gorm.io/gorm"
)

// Container holds all the dependencies for the application
type Container struct {
	DB                *gorm.DB
	Config            *config.Config
	Logger            *logger.Logger
	JWTService        *jwt.Service
	MessageRepository repository.MessageRepository
	UserRepository    repository.UserRepository
	IntakeService     *service.IntakeService
	InboxService      *service.InboxService
	HealthChecker     *health.Checker
	Metrics           *observability.Metrics
	MetricsHandler    http.Handler
}

// Config holds the collaborators built outside the container
type Config struct {
	App            *config.Config
	Logger         *logger.Logger
	Sender         messaging.Sender
	Cache          cache.Store
	CachePing      func(ctx context.Context) error
	JWTSecret      string
	Metrics        *observability.Metrics
	MetricsHandler http.Handler
}

// New creates a new dependency injection container
func New(db *gorm.DB, cfg *Config) (*Container, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	if cfg == nil || cfg.App == nil {
		return nil, errors.New("application config is required")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Discard()
	}

	sender := cfg.Sender
	if sender == nil {
		sender = messaging.NewLogSender(log)
	}

	var jwtService *jwt.Service
	if cfg.JWTSecret != "" {
		svc, err := jwt.NewService(cfg.JWTSecret, 0)
		if err != nil {
			return nil, err
		}
		jwtService = svc
	}

	messages := repository.NewGormMessageRepository(db)
	users := repository.NewGormUserRepository(db)

	machine := onboarding.New(onboarding.Messages{
		Welcome:      cfg.App.Onboarding.WelcomeMessage,
		Confirmation: cfg.App.Onboarding.ConfirmationMessage,
	})

	intake := service.NewIntakeService(service.IntakeConfig{
		Messages:    messages,
		Users:       users,
		Machine:     machine,
		Sender:      sender,
		Cache:       cfg.Cache,
		CacheTTL:    cfg.App.Cache.TTL,
		SendTimeout: cfg.App.Twilio.SendTimeout,
		Metrics:     cfg.Metrics,
		Logger:      log,
	})
	inbox := service.NewInboxService(messages, cfg.App.API.UnseenLimit, cfg.Metrics, log)

	checker := health.NewChecker(log, 0)
	checker.RegisterDatabaseCheck(func(ctx context.Context) error {
		return config.TestConnection(ctx, db)
	})
	if cfg.CachePing != nil {
		checker.RegisterCacheCheck(cfg.CachePing)
	}

	return &Container{
		DB:                db,
		Config:            cfg.App,
		Logger:            log,
		JWTService:        jwtService,
		MessageRepository: messages,
		UserRepository:    users,
		IntakeService:     intake,
		InboxService:      inbox,
		HealthChecker:     checker,
		Metrics:           cfg.Metrics,
		MetricsHandler:    cfg.MetricsHandler,
	}, nil
}

// Close releases the database pool
func (c *Container) Close() error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
