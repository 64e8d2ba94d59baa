package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"whatsapp-intake/backend/internal/messaging"
	"whatsapp-intake/backend/internal/models"
	"whatsapp-intake/backend/internal/onboarding"
	"whatsapp-intake/backend/internal/repository"
	"whatsapp-intake/backend/pkg/cache"
	"whatsapp-intake/backend/pkg/logger"
	"whatsapp-intake/backend/shared/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrStoreMessage wraps a failed message insert; the callback must be retried
var ErrStoreMessage = errors.New("failed to store message")

const registeredCachePrefix = "registered:"

// IntakeResult describes what happened to one callback after it was stored
type IntakeResult struct {
	MessageID uint
	Action    onboarding.Action
	Replied   bool
}

// IntakeConfig carries the collaborators of IntakeService. Cache and
// Metrics are optional.
type IntakeConfig struct {
	Messages    repository.MessageRepository
	Users       repository.UserRepository
	Machine     *onboarding.Machine
	Sender      messaging.Sender
	Cache       cache.Store
	CacheTTL    time.Duration
	SendTimeout time.Duration
	Metrics     *observability.Metrics
	Logger      *logger.Logger
}

// IntakeService stores inbound messages and drives sender onboarding
type IntakeService struct {
	messages    repository.MessageRepository
	users       repository.UserRepository
	machine     *onboarding.Machine
	sender      messaging.Sender
	cache       cache.Store
	cacheTTL    time.Duration
	sendTimeout time.Duration
	metrics     *observability.Metrics
	tracer      trace.Tracer
	log         *logger.Logger
}

func NewIntakeService(cfg IntakeConfig) *IntakeService {
	if cfg.Machine == nil {
		cfg.Machine = onboarding.New(onboarding.DefaultMessages())
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	return &IntakeService{
		messages:    cfg.Messages,
		users:       cfg.Users,
		machine:     cfg.Machine,
		sender:      cfg.Sender,
		cache:       cfg.Cache,
		cacheTTL:    cfg.CacheTTL,
		sendTimeout: cfg.SendTimeout,
		metrics:     cfg.Metrics,
		tracer:      otel.Tracer("whatsapp-intake/service"),
		log:         cfg.Logger.WithComponent("intake"),
	}
}

// Handle stores the message, then reconciles the sender's onboarding state.
// Only a failed insert is returned as an error; everything after the insert
// is logged and absorbed so the gateway does not redeliver.
func (s *IntakeService) Handle(ctx context.Context, in *InboundMessage) (*IntakeResult, error) {
	ctx, span := s.tracer.Start(ctx, "intake.handle",
		trace.WithAttributes(attribute.Int("intake.num_media", in.NumMedia)))
	defer span.End()

	log := s.log.WithFields("from", in.From)

	message := &models.Message{
		FromNumber: in.From,
		ToNumber:   in.To,
		Body:       in.Body,
		MediaURL:   in.MediaURL,
		RawPayload: in.Raw,
	}
	if err := s.messages.Create(ctx, message); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store message")
		s.metrics.WebhookReceived(ctx, "store_error")
		log.ErrorContext(ctx, "Failed to store inbound message", "error", err.Error())
		return nil, fmt.Errorf("%w: %v", ErrStoreMessage, err)
	}
	s.metrics.WebhookReceived(ctx, "stored")

	result := &IntakeResult{MessageID: message.ID}
	span.SetAttributes(attribute.Int64("intake.message_id", int64(message.ID)))
	log = log.WithFields("message_id", message.ID)
	log.InfoContext(ctx, "Inbound message stored",
		"body_preview", logger.Preview(in.Body, 40),
		"has_media", in.MediaURL != nil,
	)

	if s.isCachedRegistered(ctx, in.From) {
		result.Action = onboarding.ActionPassThrough
		s.metrics.OnboardingAction(ctx, string(result.Action))
		return result, nil
	}

	user, err := s.users.GetByPhone(ctx, in.From)
	if err != nil {
		span.RecordError(err)
		log.ErrorContext(ctx, "Failed to read user registry", "error", err.Error())
		return result, nil
	}

	decision := s.machine.Decide(user, in.Body)
	result.Action = decision.Action
	span.SetAttributes(attribute.String("intake.action", string(decision.Action)))
	s.metrics.OnboardingAction(ctx, string(decision.Action))

	reply := decision.Reply
	switch decision.Action {
	case onboarding.ActionWelcome:
		created, err := s.users.EnsureUser(ctx, in.From)
		if err != nil {
			log.ErrorContext(ctx, "Failed to create user", "error", err.Error())
			reply = ""
		} else if !created {
			log.InfoContext(ctx, "User created concurrently by another request")
		}

	case onboarding.ActionRegister:
		err := s.users.SetPreferences(ctx, in.From, decision.Preferences.Language, decision.Preferences.State)
		switch {
		case errors.Is(err, repository.ErrPreferencesNotApplied):
			log.InfoContext(ctx, "Preferences already recorded, skipping")
			reply = ""
		case err != nil:
			log.ErrorContext(ctx, "Failed to save preferences", "error", err.Error())
			reply = ""
		default:
			log.InfoContext(ctx, "User registered",
				"language", decision.Preferences.Language,
				"state", decision.Preferences.State,
			)
			s.rememberRegistered(ctx, in.From)
		}

	case onboarding.ActionInvalidPreferences:
		log.WarnContext(ctx, "Could not extract preferences",
			"error", decision.Err.Error(),
			"body_preview", logger.Preview(in.Body, 40),
		)

	case onboarding.ActionPassThrough:
		s.rememberRegistered(ctx, in.From)

	case onboarding.ActionNone:
		log.DebugContext(ctx, "Pending user sent a message without preferences")
	}

	if reply != "" {
		result.Replied = s.send(ctx, log, in.From, reply)
	}

	return result, nil
}

func (s *IntakeService) send(ctx context.Context, log *logger.Logger, to, body string) bool {
	if s.sender == nil {
		return false
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	if err := s.sender.Send(sendCtx, to, body); err != nil {
		s.metrics.OutboundSend(ctx, "failed")
		trace.SpanFromContext(ctx).RecordError(err)
		log.ErrorContext(ctx, "Failed to send reply", "error", err.Error())
		return false
	}

	s.metrics.OutboundSend(ctx, "sent")
	return true
}

// isCachedRegistered consults the registered-sender cache. Only the
// terminal registered state is ever cached.
func (s *IntakeService) isCachedRegistered(ctx context.Context, phone string) bool {
	if s.cache == nil {
		return false
	}
	_, ok, err := s.cache.Get(ctx, registeredCachePrefix+phone)
	if err != nil {
		s.log.WarnContext(ctx, "Registered-sender cache lookup failed", "error", err.Error())
		return false
	}
	return ok
}

func (s *IntakeService) rememberRegistered(ctx context.Context, phone string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, registeredCachePrefix+phone, "1", s.cacheTTL); err != nil {
		s.log.WarnContext(ctx, "Registered-sender cache write failed", "error", err.Error())
	}
}
