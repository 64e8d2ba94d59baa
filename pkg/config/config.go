package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Twilio        TwilioConfig
	Onboarding    OnboardingConfig
	API           APIConfig
	Cache         CacheConfig
	Vault         VaultConfig
	Logging       LoggingConfig
	Observability ObservabilityConfig
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Port            string        `validate:"required,numeric"`
	Env             string        `validate:"required"`
	Timeout         time.Duration `validate:"gt=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
}

// DatabaseConfig configures the message store connection
type DatabaseConfig struct {
	Driver          string `validate:"oneof=postgres sqlite"`
	URL             string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxConns        int           `validate:"gt=0"`
	MaxIdleConns    int           `validate:"gte=0"`
	ConnMaxLifetime time.Duration `validate:"gte=0"`
	ConnMaxIdleTime time.Duration `validate:"gte=0"`
	ConnectRetries  int           `validate:"gt=0"`
	RetryDelay      time.Duration `validate:"gte=0"`
	LogQueries      bool
}

// DSN returns the connection string for the configured driver
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	if d.Driver == "sqlite" {
		return "intake.db"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// TwilioConfig configures the outbound WhatsApp sender
type TwilioConfig struct {
	Enabled        bool
	AccountSID     string `validate:"required_if=Enabled true"`
	AuthToken      string
	WhatsAppNumber string        `validate:"required_if=Enabled true"`
	SendTimeout    time.Duration `validate:"gt=0"`
}

// OnboardingConfig holds the reply texts used during onboarding
type OnboardingConfig struct {
	WelcomeMessage      string `validate:"required"`
	ConfirmationMessage string `validate:"required,twoverbs"`
}

// APIConfig configures the query API
type APIConfig struct {
	UnseenLimit    int `validate:"gt=0"`
	JWTSecret      string
	RateLimit      float64 `validate:"gt=0"`
	RateLimitBurst int     `validate:"gt=0"`
}

// CacheConfig configures the registered-sender cache
type CacheConfig struct {
	Enabled     bool
	Backend     string        `validate:"oneof=memory redis"`
	TTL         time.Duration `validate:"gt=0"`
	MaxSize     int           `validate:"gt=0"`
	PurgeWindow time.Duration
	RedisURL    string `validate:"required_if=Backend redis"`
}

// VaultConfig configures secret resolution
type VaultConfig struct {
	Enabled     bool
	Address     string `validate:"required_if=Enabled true"`
	Token       string
	Namespace   string
	SecretsPath string
}

// LoggingConfig configures the structured logger
type LoggingConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json text"`
}

// ObservabilityConfig toggles tracing, metrics and auxiliary endpoints
type ObservabilityConfig struct {
	TracingEnabled    bool
	MetricsEnabled    bool
	GRPCHealthPort    string
	OpenAPISchemaPath string
}

// IsDevelopment reports whether the service runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// Default welcome and confirmation texts
const (
	DefaultWelcomeMessage = "Welcome! Before we begin, please reply with your preferred language and state in this format:\n" +
		"Language: <your language>\nState: <your state>"
	DefaultConfirmationMessage = "Thanks! Your preferences have been saved.\nLanguage: %s\nState: %s"
)

// Load reads configuration from the environment (and .env when present)
// and validates it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// Server config
	cfg.Server.Port = getEnvString("PORT", "8080")
	cfg.Server.Env = getEnvString("APP_ENV", "development")
	cfg.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 30*time.Second)
	cfg.Server.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)

	// Database config
	cfg.Database.Driver = getEnvString("DB_DRIVER", "postgres")
	cfg.Database.URL = getEnvString("DATABASE_URL", "")
	cfg.Database.Host = getEnvString("DB_HOST", "localhost")
	cfg.Database.Port = getEnvString("DB_PORT", "5432")
	cfg.Database.User = getEnvString("DB_USER", "postgres")
	cfg.Database.Password = getEnvString("DB_PASSWORD", "postgres")
	cfg.Database.Name = getEnvString("DB_NAME", "whatsapp_intake")
	cfg.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)
	cfg.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 10)
	cfg.Database.ConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", time.Hour)
	cfg.Database.ConnMaxIdleTime = getEnvDuration("DB_CONN_MAX_IDLE_TIME", 10*time.Minute)
	cfg.Database.ConnectRetries = getEnvInt("DB_CONNECT_RETRIES", 5)
	cfg.Database.RetryDelay = getEnvDuration("DB_CONNECT_RETRY_DELAY", 5*time.Second)

	// Twilio config
	cfg.Twilio.Enabled = getEnvBool("TWILIO_ENABLED", true)
	cfg.Twilio.AccountSID = getEnvString("TWILIO_ACCOUNT_SID", "")
	cfg.Twilio.AuthToken = getEnvString("TWILIO_AUTH_TOKEN", "")
	cfg.Twilio.WhatsAppNumber = getEnvString("TWILIO_WHATSAPP_NUMBER", "")
	cfg.Twilio.SendTimeout = getEnvDuration("TWILIO_SEND_TIMEOUT", 10*time.Second)

	// Onboarding texts
	cfg.Onboarding.WelcomeMessage = getEnvString("ONBOARDING_WELCOME_MESSAGE", DefaultWelcomeMessage)
	cfg.Onboarding.ConfirmationMessage = getEnvString("ONBOARDING_CONFIRMATION_MESSAGE", DefaultConfirmationMessage)

	// Query API
	cfg.API.UnseenLimit = getEnvInt("UNSEEN_LIMIT", 20)
	cfg.API.JWTSecret = getEnvString("API_JWT_SECRET", "")
	cfg.API.RateLimit = getEnvFloat("RATE_LIMIT", 5)
	cfg.API.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 10)

	// Cache settings
	cfg.Cache.Enabled = getEnvBool("CACHE_ENABLED", true)
	cfg.Cache.Backend = getEnvString("CACHE_BACKEND", "memory")
	cfg.Cache.TTL = getEnvDuration("CACHE_TTL", time.Hour)
	cfg.Cache.MaxSize = getEnvInt("CACHE_MAX_SIZE", 10000)
	cfg.Cache.PurgeWindow = getEnvDuration("CACHE_PURGE_WINDOW", 10*time.Minute)
	cfg.Cache.RedisURL = getEnvString("REDIS_URL", "")

	// Vault
	cfg.Vault.Enabled = getEnvBool("VAULT_ENABLED", false)
	cfg.Vault.Address = getEnvString("VAULT_ADDR", "")
	cfg.Vault.Token = getEnvString("VAULT_TOKEN", "")
	cfg.Vault.Namespace = getEnvString("VAULT_NAMESPACE", "")
	cfg.Vault.SecretsPath = getEnvString("VAULT_SECRETS_PATH", "secret/data/whatsapp-intake")

	// Logging config
	cfg.Logging.Level = strings.ToLower(getEnvString("LOG_LEVEL", "info"))
	cfg.Logging.Format = strings.ToLower(getEnvString("LOG_FORMAT", "json"))

	// Observability
	cfg.Observability.TracingEnabled = getEnvBool("OTEL_TRACING_ENABLED", false)
	cfg.Observability.MetricsEnabled = getEnvBool("METRICS_ENABLED", true)
	cfg.Observability.GRPCHealthPort = getEnvString("GRPC_HEALTH_PORT", "")
	cfg.Observability.OpenAPISchemaPath = getEnvString("OPENAPI_SCHEMA_PATH", "")

	cfg.Database.LogQueries = cfg.IsDevelopment() && cfg.Logging.Level == "debug"

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags on every section
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.RegisterValidation("twoverbs", func(fl validator.FieldLevel) bool {
		return strings.Count(fl.Field().String(), "%s") == 2
	}); err != nil {
		return err
	}
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
