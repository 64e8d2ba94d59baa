package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"whatsapp-intake/backend/pkg/logger"

	vault "github.com/hashicorp/vault/api"
)

// Common errors
var (
	ErrSecretNotFound = NewError("secret not found")
	ErrNoVaultToken   = NewError("no vault token provided")
	ErrNoVaultAddress = NewError("no vault address provided")
)

// VaultConfig holds configuration for Vault client
type VaultConfig struct {
	Address     string
	Token       string
	Namespace   string
	Timeout     time.Duration
	MaxRetries  int
	SecretsPath string
	Enabled     bool
	CacheTTL    time.Duration
}

// kvReader is the subset of *vault.KVv2 used here
type kvReader interface {
	Get(ctx context.Context, secretPath string) (*vault.KVSecret, error)
}

type cachedSecret struct {
	value   string
	fetched time.Time
}

// VaultManager reads secrets from a Vault KV v2 mount, falling back to
// environment variables when Vault is disabled or the key is absent
type VaultManager struct {
	kv         kvReader
	mount      string
	secretPath string
	config     VaultConfig
	cache      map[string]cachedSecret
	mu         sync.RWMutex
	log        *logger.Logger
	getenv     func(string) string
	now        func() time.Time
}

// NewVaultManager creates a new Vault manager instance
func NewVaultManager(config VaultConfig, log *logger.Logger) (*VaultManager, error) {
	if log == nil {
		log = logger.Discard()
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = 5 * time.Minute
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}

	manager := &VaultManager{
		config: config,
		cache:  make(map[string]cachedSecret),
		log:    log.WithComponent("secrets"),
		getenv: os.Getenv,
		now:    time.Now,
	}

	if !config.Enabled {
		return manager, nil
	}

	if config.Address == "" {
		return nil, ErrNoVaultAddress
	}
	if config.Token == "" {
		return nil, ErrNoVaultToken
	}

	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = config.Address
	vaultConfig.Timeout = config.Timeout
	vaultConfig.MaxRetries = config.MaxRetries

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	client.SetToken(config.Token)
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}

	manager.mount, manager.secretPath = splitKVPath(config.SecretsPath)
	manager.kv = client.KVv2(manager.mount)

	return manager, nil
}

// GetSecret retrieves a secret from Vault, with fallback to environment variable
func (m *VaultManager) GetSecret(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	cached, found := m.cache[key]
	m.mu.RUnlock()

	if found && m.now().Sub(cached.fetched) < m.config.CacheTTL {
		return cached.value, nil
	}

	if m.kv == nil {
		return m.getFromEnvironment(key)
	}

	value, err := m.getFromVault(ctx, key)
	if err != nil {
		if errors.Is(err, ErrSecretNotFound) {
			m.log.Warn("Secret not found in Vault, falling back to environment", "key", key)
			return m.getFromEnvironment(key)
		}
		return "", err
	}

	m.cacheSecret(key, value)
	return value, nil
}

// GetSecretWithDefault retrieves a secret with a default value if not found
func (m *VaultManager) GetSecretWithDefault(ctx context.Context, key, defaultValue string) string {
	value, err := m.GetSecret(ctx, key)
	if err != nil {
		m.log.Debug("Secret unavailable, using default value",
			"key", key,
			"error", err.Error(),
		)
		return defaultValue
	}
	return value
}

// getFromVault reads key from the configured KV v2 secret
func (m *VaultManager) getFromVault(ctx context.Context, key string) (string, error) {
	secret, err := m.kv.Get(ctx, m.secretPath)
	if err != nil {
		if errors.Is(err, vault.ErrSecretNotFound) {
			return "", ErrSecretNotFound
		}
		m.log.LogError(err, "Failed to read secret from Vault", "path", m.secretPath)
		return "", fmt.Errorf("failed to read secret: %w", err)
	}

	if secret == nil || secret.Data == nil {
		return "", ErrSecretNotFound
	}

	value, ok := secret.Data[key].(string)
	if !ok || value == "" {
		return "", ErrSecretNotFound
	}

	return value, nil
}

// getFromEnvironment maps twilio_auth_token / twilio-auth-token to TWILIO_AUTH_TOKEN
func (m *VaultManager) getFromEnvironment(key string) (string, error) {
	envKey := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))

	value := m.getenv(envKey)
	if value == "" {
		return "", ErrSecretNotFound
	}

	m.cacheSecret(key, value)
	return value, nil
}

func (m *VaultManager) cacheSecret(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[key] = cachedSecret{value: value, fetched: m.now()}
}

// splitKVPath turns "secret/data/whatsapp-intake" into ("secret", "whatsapp-intake")
func splitKVPath(p string) (mount, path string) {
	p = strings.Trim(p, "/")
	if p == "" {
		return "secret", "whatsapp-intake"
	}
	parts := strings.SplitN(p, "/", 2)
	if len(parts) == 1 {
		return "secret", parts[0]
	}
	mount, path = parts[0], strings.TrimPrefix(parts[1], "data/")
	return mount, path
}
