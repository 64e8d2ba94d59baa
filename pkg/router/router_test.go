package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	apispec "whatsapp-intake/backend/api"
	"whatsapp-intake/backend/internal/api"
	"whatsapp-intake/backend/internal/testutil"
	"whatsapp-intake/backend/pkg/cache"
	"whatsapp-intake/backend/pkg/config"
	"whatsapp-intake/backend/pkg/di"
	"whatsapp-intake/backend/pkg/jwt"
	"whatsapp-intake/backend/pkg/logger"
	"whatsapp-intake/backend/pkg/validator"
	"whatsapp-intake/backend/shared/observability"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *recordingSender) Send(_ context.Context, _, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, body)
	return nil
}

func (s *recordingSender) Bodies() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.Env = "test"
	cfg.Twilio.SendTimeout = time.Second
	cfg.Onboarding.WelcomeMessage = config.DefaultWelcomeMessage
	cfg.Onboarding.ConfirmationMessage = config.DefaultConfirmationMessage
	cfg.API.UnseenLimit = 20
	cfg.API.RateLimit = 1000
	cfg.API.RateLimitBurst = 1000
	cfg.Cache.TTL = time.Minute
	return cfg
}

type testServer struct {
	router *Router
	sender *recordingSender
}

type serverOption func(*config.Config, *di.Config)

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	sender := &recordingSender{}
	diCfg := &di.Config{
		App:    cfg,
		Logger: logger.Discard(),
		Sender: sender,
		Cache:  cache.NewCache(cache.Options{DefaultExpiration: time.Minute}),
	}
	for _, opt := range opts {
		opt(cfg, diCfg)
	}

	container, err := di.New(testutil.NewSQLiteDB(t), diCfg)
	require.NoError(t, err)

	return &testServer{router: New(container), sender: sender}
}

func (s *testServer) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.Engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) postWebhook(t *testing.T, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.serve(req)
}

func (s *testServer) listUnseen(t *testing.T, token string) []api.MessageResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/messages/unseen", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := s.serve(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out []api.MessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func inbound(from, body string) url.Values {
	return url.Values{
		"From":     {from},
		"To":       {"whatsapp:+14155238886"},
		"Body":     {body},
		"NumMedia": {"0"},
	}
}

func TestOnboardingFlow(t *testing.T) {
	s := newTestServer(t)
	s.router.SetupRoutes()
	from := "whatsapp:+919876543210"

	// first contact
	w := s.postWebhook(t, inbound(from, "Hi"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	require.Len(t, s.sender.Bodies(), 1)
	assert.Equal(t, config.DefaultWelcomeMessage, s.sender.Bodies()[0])

	msgs := s.listUnseen(t, "")
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hi", msgs[0].Body)
	assert.Nil(t, msgs[0].Language)
	assert.Nil(t, msgs[0].State)

	// preferences
	w = s.postWebhook(t, inbound(from, "Language: Hindi\nState: Bihar"))
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, s.sender.Bodies(), 2)
	assert.Contains(t, s.sender.Bodies()[1], "Language: Hindi")
	assert.Contains(t, s.sender.Bodies()[1], "State: Bihar")

	// registered sender
	w = s.postWebhook(t, inbound(from, "What is the weather?"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, s.sender.Bodies(), 2)

	msgs = s.listUnseen(t, "")
	require.Len(t, msgs, 3)
	assert.Equal(t, "What is the weather?", msgs[0].Body)
	require.NotNil(t, msgs[0].Language)
	assert.Equal(t, "Hindi", *msgs[0].Language)
	require.NotNil(t, msgs[0].State)
	assert.Equal(t, "Bihar", *msgs[0].State)
	assert.False(t, msgs[0].Seen)
	_, err := time.Parse(time.RFC3339, msgs[0].CreatedAt)
	assert.NoError(t, err)
}

func TestMarkSeen(t *testing.T) {
	s := newTestServer(t)
	s.router.SetupRoutes()

	require.Equal(t, http.StatusOK, s.postWebhook(t, inbound("whatsapp:+1555", "one")).Code)
	msgs := s.listUnseen(t, "")
	require.Len(t, msgs, 1)

	req := httptest.NewRequest(http.MethodPost, "/messages/"+jsonNumber(msgs[0].ID)+"/seen", nil)
	w := s.serve(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success","message_id":`+jsonNumber(msgs[0].ID)+`}`, w.Body.String())

	assert.Empty(t, s.listUnseen(t, ""))

	// unknown and repeated ids are still acknowledged
	w = s.serve(httptest.NewRequest(http.MethodPost, "/messages/999/seen", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.serve(httptest.NewRequest(http.MethodPost, "/messages/"+jsonNumber(msgs[0].ID)+"/seen", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func jsonNumber(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestEmptyListIsArray(t *testing.T) {
	s := newTestServer(t)
	s.router.SetupRoutes()

	w := s.serve(httptest.NewRequest(http.MethodGet, "/messages/unseen", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestRejectedRequests(t *testing.T) {
	s := newTestServer(t)
	s.router.SetupRoutes()

	tests := []struct {
		name string
		req  *http.Request
		code int
		err  string
	}{
		{
			name: "non integer NumMedia",
			req:  formRequest(url.Values{"From": {"whatsapp:+1"}, "Body": {"x"}, "NumMedia": {"two"}}),
			code: http.StatusBadRequest,
			err:  "INVALID_NUM_MEDIA",
		},
		{
			name: "missing sender",
			req:  formRequest(url.Values{"Body": {"x"}}),
			code: http.StatusBadRequest,
			err:  "MISSING_SENDER",
		},
		{
			name: "non numeric id",
			req:  httptest.NewRequest(http.MethodPost, "/messages/abc/seen", nil),
			code: http.StatusBadRequest,
			err:  "INVALID_MESSAGE_ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.serve(tt.req)
			assert.Equal(t, tt.code, w.Code)
			assert.Contains(t, w.Body.String(), tt.err)
		})
	}

	assert.Empty(t, s.listUnseen(t, ""))
	assert.Empty(t, s.sender.Bodies())
}

func formRequest(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestJWTProtectsQueryAPI(t *testing.T) {
	const secret = "router-test-secret"
	s := newTestServer(t, func(_ *config.Config, d *di.Config) {
		d.JWTSecret = secret
	})
	s.router.SetupRoutes()

	svc, err := jwt.NewService(secret, time.Hour)
	require.NoError(t, err)
	reader, err := svc.GenerateToken("dashboard", jwt.ScopeMessagesRead)
	require.NoError(t, err)

	w := s.serve(httptest.NewRequest(http.MethodGet, "/messages/unseen", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/messages/unseen", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, s.serve(req).Code)

	assert.Empty(t, s.listUnseen(t, reader))

	req = httptest.NewRequest(http.MethodPost, "/messages/1/seen", nil)
	req.Header.Set("Authorization", "Bearer "+reader)
	w = s.serve(req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "INSUFFICIENT_SCOPE")

	// the webhook stays open
	assert.Equal(t, http.StatusOK, s.postWebhook(t, inbound("whatsapp:+1", "hi")).Code)
}

func TestQueryAPIRateLimit(t *testing.T) {
	s := newTestServer(t, func(c *config.Config, _ *di.Config) {
		c.API.RateLimit = 0.001
		c.API.RateLimitBurst = 2
	})
	s.router.SetupRoutes()

	for i := 0; i < 2; i++ {
		w := s.serve(httptest.NewRequest(http.MethodGet, "/messages/unseen", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := s.serve(httptest.NewRequest(http.MethodGet, "/messages/unseen", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")

	// the webhook is not limited
	assert.Equal(t, http.StatusOK, s.postWebhook(t, inbound("whatsapp:+1", "hi")).Code)
}

func TestOpenAPIValidation(t *testing.T) {
	s := newTestServer(t)
	v, err := validator.NewOpenAPIValidatorFromData(apispec.OpenAPI)
	require.NoError(t, err)
	s.router.UseOpenAPIValidator(v)
	s.router.SetupRoutes()

	w := s.serve(httptest.NewRequest(http.MethodPost, "/messages/abc/seen", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "REQUEST_VALIDATION_FAILED")

	assert.Equal(t, http.StatusOK, s.postWebhook(t, inbound("whatsapp:+1", "hi")).Code)
	assert.Len(t, s.listUnseen(t, ""), 1)
}

func twilioCallback(from, body string, media ...string) url.Values {
	form := url.Values{
		"SmsMessageSid": {"SM0123456789abcdef0123456789abcdef"},
		"SmsSid":        {"SM0123456789abcdef0123456789abcdef"},
		"MessageSid":    {"SM0123456789abcdef0123456789abcdef"},
		"AccountSid":    {"AC0123456789abcdef0123456789abcdef"},
		"SmsStatus":     {"received"},
		"NumSegments":   {"1"},
		"ProfileName":   {"Asha"},
		"WaId":          {strings.TrimPrefix(from, "whatsapp:+")},
		"From":          {from},
		"To":            {"whatsapp:+14155238886"},
		"Body":          {body},
		"NumMedia":      {"0"},
		"ApiVersion":    {"2010-04-01"},
	}
	if len(media) > 0 {
		form.Set("NumMedia", "1")
		form.Set("MediaUrl0", media[0])
		form.Set("MediaContentType0", "image/jpeg")
	}
	return form
}

func TestValidatedTwilioCallbacks(t *testing.T) {
	s := newTestServer(t)
	v, err := validator.NewOpenAPIValidatorFromData(apispec.OpenAPI)
	require.NoError(t, err)
	s.router.UseOpenAPIValidator(v)
	s.router.SetupRoutes()

	from := "whatsapp:+919812345678"
	mediaURL := "https://api.twilio.com/2010-04-01/Accounts/AC01/Messages/MM01/Media/ME01"

	w := s.postWebhook(t, twilioCallback(from, "Hello"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.postWebhook(t, twilioCallback(from, "language: Tamil\nstate: Tamil Nadu"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.postWebhook(t, twilioCallback(from, "photo of my field", mediaURL))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	button := url.Values{
		"From":          {from},
		"To":            {"whatsapp:+14155238886"},
		"Body":          {""},
		"ButtonText":    {"Yes"},
		"ButtonPayload": {"confirm_yes"},
	}
	w = s.postWebhook(t, button)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	msgs := s.listUnseen(t, "")
	require.Len(t, msgs, 4)
	assert.Equal(t, "Yes", msgs[0].Body)
	assert.Nil(t, msgs[0].MediaURL)

	withMedia := msgs[1]
	assert.Equal(t, "photo of my field", withMedia.Body)
	require.NotNil(t, withMedia.MediaURL)
	assert.Equal(t, mediaURL, *withMedia.MediaURL)
	require.NotNil(t, withMedia.Language)
	assert.Equal(t, "Tamil", *withMedia.Language)
	require.NotNil(t, withMedia.State)
	assert.Equal(t, "Tamil Nadu", *withMedia.State)

	// welcome and confirmation only; the registered sender gets no reply
	assert.Len(t, s.sender.Bodies(), 2)

	req := httptest.NewRequest(http.MethodPost, "/messages/"+jsonNumber(withMedia.ID)+"/seen", nil)
	require.Equal(t, http.StatusOK, s.serve(req).Code)
	for _, m := range s.listUnseen(t, "") {
		assert.NotEqual(t, withMedia.ID, m.ID)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	provider, handler, err := observability.SetupMetrics("router-test")
	require.NoError(t, err)
	metrics, err := observability.NewMetrics(provider)
	require.NoError(t, err)

	s := newTestServer(t, func(_ *config.Config, d *di.Config) {
		d.Metrics = metrics
		d.MetricsHandler = handler
	})
	s.router.SetupRoutes()

	w := s.serve(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var health api.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Contains(t, health.Components, "database")

	require.Equal(t, http.StatusOK, s.postWebhook(t, inbound("whatsapp:+1", "hi")).Code)

	w = s.serve(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "intake_webhooks_total")
	assert.Contains(t, w.Body.String(), `action="welcome"`)
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t)
	s.router.SetupRoutes()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := s.serve(req)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
}
