package jwt

import (
	"errors"
	"time"
)

// ErrMissingSecret is returned when a service is built without a signing key
var ErrMissingSecret = errors.New("jwt secret is required")

// Service is a wrapper for JWT operations
type Service struct {
	secretKey string
	expiry    time.Duration
	now       func() time.Time
}

// NewService creates a new JWT service
func NewService(secretKey string, expiry time.Duration) (*Service, error) {
	if secretKey == "" {
		return nil, ErrMissingSecret
	}

	if expiry == 0 {
		expiry = 24 * time.Hour
	}

	return &Service{
		secretKey: secretKey,
		expiry:    expiry,
		now:       time.Now,
	}, nil
}

// GenerateToken generates a token for an API consumer
func (s *Service) GenerateToken(consumer string, scopes ...Scope) (string, error) {
	return generateToken(s.secretKey, s.expiry, s.now(), consumer, scopes)
}

// ValidateToken validates a token and returns the claims
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return validateToken(s.secretKey, tokenString)
}
