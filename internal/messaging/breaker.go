package messaging

import (
	"context"

	"whatsapp-intake/backend/pkg/resilience"
)

// BreakerSender stops calling a failing provider until it recovers
type BreakerSender struct {
	next    Sender
	breaker *resilience.CircuitBreaker
}

func NewBreakerSender(next Sender, breaker *resilience.CircuitBreaker) *BreakerSender {
	return &BreakerSender{next: next, breaker: breaker}
}

func (s *BreakerSender) Send(ctx context.Context, to, body string) error {
	return s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.next.Send(ctx, to, body)
	})
}
