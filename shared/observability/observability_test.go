package observability

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestResourceMergesWithSDKDefaults(t *testing.T) {
	res, err := newResource("whatsapp-intake")
	require.NoError(t, err)

	assert.Equal(t, resource.Default().SchemaURL(), res.SchemaURL())
	name, ok := res.Set().Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, "whatsapp-intake", name.AsString())
}

func TestMetricsAreExported(t *testing.T) {
	provider, handler, err := SetupMetrics("observability-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewMetrics(provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.WebhookReceived(ctx, "stored")
	m.OnboardingAction(ctx, "welcome")
	m.OutboundSend(ctx, "failed")
	m.MarkedSeen(ctx)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "intake_webhooks_total")
	assert.Contains(t, body, `result="stored"`)
	assert.Contains(t, body, "intake_onboarding_actions_total")
	assert.Contains(t, body, "intake_outbound_sends_total")
	assert.Contains(t, body, "inbox_marked_seen_total")
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.WebhookReceived(ctx, "stored")
		m.OnboardingAction(ctx, "none")
		m.OutboundSend(ctx, "sent")
		m.MarkedSeen(ctx)
	})
}

func TestTracingDisabledIsNoop(t *testing.T) {
	shutdown, err := SetupTracing("observability-test", false, nil)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestTracingWritesSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	shutdown, err := SetupTracing("observability-test", true, &buf)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "intake.handle")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "intake.handle")
}
