package di

import (
	"context"
	"fmt"

	"whatsapp-intake/backend/internal/messaging"
	"whatsapp-intake/backend/pkg/cache"
	"whatsapp-intake/backend/pkg/config"
	"whatsapp-intake/backend/pkg/logger"
	"whatsapp-intake/backend/pkg/resilience"
	"whatsapp-intake/backend/pkg/secrets"
	"whatsapp-intake/backend/shared/redis"
)

// NewSender builds the outbound sender. The Twilio auth token is resolved
// through the secrets manager so it can live in Vault.
func NewSender(ctx context.Context, cfg config.TwilioConfig, sm secrets.Manager, log *logger.Logger) (messaging.Sender, error) {
	if !cfg.Enabled {
		log.Warn("Twilio disabled, replies will only be logged")
		return messaging.NewLogSender(log), nil
	}

	token := cfg.AuthToken
	if sm != nil {
		token = sm.GetSecretWithDefault(ctx, secrets.KeyTwilioAuthToken, cfg.AuthToken)
	}

	twilioSender, err := messaging.NewTwilioSender(messaging.TwilioConfig{
		AccountSID: cfg.AccountSID,
		AuthToken:  token,
		From:       cfg.WhatsAppNumber,
		Timeout:    cfg.SendTimeout,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("twilio sender: %w", err)
	}

	breakerCfg := resilience.DefaultCircuitBreakerConfig("twilio")
	breakerCfg.Timeout = cfg.SendTimeout
	return messaging.NewBreakerSender(twilioSender, resilience.NewCircuitBreaker(breakerCfg, log)), nil
}

// NewCache builds the registered-sender cache. It returns a nil store when
// caching is disabled, and a ping func only for remote backends.
func NewCache(cfg config.CacheConfig) (cache.Store, func(context.Context) error, func() error, error) {
	noop := func() error { return nil }

	if !cfg.Enabled {
		return nil, nil, noop, nil
	}

	switch cfg.Backend {
	case "redis":
		client, err := redis.NewRedisClient(cfg.RedisURL, "whatsapp-intake:")
		if err != nil {
			return nil, nil, noop, err
		}
		return client, client.Ping, client.Close, nil
	default:
		return cache.NewCache(cache.Options{
			DefaultExpiration: cfg.TTL,
			PurgeWindow:       cfg.PurgeWindow,
			MaxItems:          cfg.MaxSize,
		}), nil, noop, nil
	}
}
