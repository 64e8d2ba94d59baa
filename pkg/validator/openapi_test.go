package validator

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apispec "whatsapp-intake/backend/api"
	"whatsapp-intake/backend/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, v *OpenAPIValidator) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(errors.ErrorHandler())
	r.Use(v.Middleware())
	r.POST("/webhook", func(c *gin.Context) { c.String(http.StatusOK, "OK") })
	r.POST("/messages/:id/seen", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/unlisted", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestMiddleware(t *testing.T) {
	v, err := NewOpenAPIValidatorFromData(apispec.OpenAPI)
	require.NoError(t, err)
	r := newEngine(t, v)

	form := url.Values{"From": {"whatsapp:+1"}, "Body": {"hi"}, "SmsSid": {"SM1"}}
	media := url.Values{
		"From":              {"whatsapp:+1"},
		"To":                {"whatsapp:+14155238886"},
		"Body":              {""},
		"NumMedia":          {"1"},
		"MediaUrl0":         {"https://api.twilio.com/2010-04-01/Accounts/AC1/Messages/MM1/Media/ME1"},
		"MediaContentType0": {"image/jpeg"},
		"AccountSid":        {"AC1"},
	}
	button := url.Values{"From": {"whatsapp:+1"}, "ButtonText": {"Yes"}, "ButtonPayload": {"yes"}}
	formRequest := func(v url.Values) func() *http.Request {
		return func() *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(v.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			return req
		}
	}
	tests := []struct {
		name string
		req  func() *http.Request
		code int
	}{
		{
			name: "minimal webhook",
			req:  formRequest(form),
			code: http.StatusOK,
		},
		{
			name: "webhook with media",
			req:  formRequest(media),
			code: http.StatusOK,
		},
		{
			name: "button reply",
			req:  formRequest(button),
			code: http.StatusOK,
		},
		{
			name: "integer id",
			req:  func() *http.Request { return httptest.NewRequest(http.MethodPost, "/messages/12/seen", nil) },
			code: http.StatusOK,
		},
		{
			name: "non integer id",
			req:  func() *http.Request { return httptest.NewRequest(http.MethodPost, "/messages/abc/seen", nil) },
			code: http.StatusBadRequest,
		},
		{
			name: "route outside the document",
			req:  func() *http.Request { return httptest.NewRequest(http.MethodGet, "/unlisted", nil) },
			code: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, tt.req())
			assert.Equal(t, tt.code, w.Code)
			if tt.code == http.StatusBadRequest {
				assert.Contains(t, w.Body.String(), "REQUEST_VALIDATION_FAILED")
			}
		})
	}
}

func TestNewOpenAPIValidatorFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openapi.yaml")
	require.NoError(t, os.WriteFile(path, apispec.OpenAPI, 0o600))

	_, err := NewOpenAPIValidator(path)
	require.NoError(t, err)

	_, err = NewOpenAPIValidator(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestInvalidDocument(t *testing.T) {
	_, err := NewOpenAPIValidatorFromData([]byte("openapi: 3.0.3\npaths: [oops"))
	assert.Error(t, err)
}
