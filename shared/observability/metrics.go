package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope for service counters
const MeterName = "whatsapp-intake"

// Metrics holds the service counters. A nil *Metrics records nothing.
type Metrics struct {
	webhooks   metric.Int64Counter
	onboarding metric.Int64Counter
	sends      metric.Int64Counter
	markedSeen metric.Int64Counter
}

// NewMetrics registers the service counters on provider
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(MeterName)

	webhooks, err := meter.Int64Counter("intake_webhooks",
		metric.WithDescription("Inbound webhook callbacks by result"))
	if err != nil {
		return nil, err
	}
	onboarding, err := meter.Int64Counter("intake_onboarding_actions",
		metric.WithDescription("Onboarding decisions by action"))
	if err != nil {
		return nil, err
	}
	sends, err := meter.Int64Counter("intake_outbound_sends",
		metric.WithDescription("Outbound replies by result"))
	if err != nil {
		return nil, err
	}
	markedSeen, err := meter.Int64Counter("inbox_marked_seen",
		metric.WithDescription("Mark-seen requests"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		webhooks:   webhooks,
		onboarding: onboarding,
		sends:      sends,
		markedSeen: markedSeen,
	}, nil
}

// WebhookReceived counts a callback with its result (stored, invalid, store_error)
func (m *Metrics) WebhookReceived(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.webhooks.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// OnboardingAction counts a state machine decision
func (m *Metrics) OnboardingAction(ctx context.Context, action string) {
	if m == nil {
		return
	}
	m.onboarding.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
}

// OutboundSend counts a reply attempt with its result (sent, failed)
func (m *Metrics) OutboundSend(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.sends.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// MarkedSeen counts a mark-seen request
func (m *Metrics) MarkedSeen(ctx context.Context) {
	if m == nil {
		return
	}
	m.markedSeen.Add(ctx, 1)
}
