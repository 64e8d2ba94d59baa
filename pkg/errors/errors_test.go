package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromError(t *testing.T) {
	appErr := NewBadRequestError("INVALID_NUM_MEDIA", "NumMedia must be an integer")
	wrapped := fmt.Errorf("parse: %w", appErr)

	assert.Same(t, appErr, FromError(wrapped))
	assert.Equal(t, http.StatusBadRequest, GetStatusCode(wrapped))
	assert.Equal(t, "INVALID_NUM_MEDIA", GetErrorCode(wrapped))

	cause := stderrors.New("pq: relation does not exist")
	internal := FromError(cause)
	assert.Equal(t, http.StatusInternalServerError, internal.StatusCode)
	assert.Equal(t, "INTERNAL_ERROR", internal.Code)
	assert.NotContains(t, internal.Message, "pq:")
	assert.ErrorIs(t, internal, cause)

	assert.Nil(t, FromError(nil))
	assert.Equal(t, "UNKNOWN_ERROR", GetErrorCode(cause))
}

func TestErrorHandlerRendersEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/app", func(c *gin.Context) {
		c.Error(NewBadRequestError("INVALID_MESSAGE_ID", "bad id").WithDetails("abc"))
	})
	r.GET("/internal", func(c *gin.Context) {
		c.Error(stderrors.New("sql: database is closed"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/app", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Details any    `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INVALID_MESSAGE_ID", body.Error.Code)
	assert.Equal(t, "abc", body.Error.Details)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/internal", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "database is closed")
}

func TestRecoveryWithLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RecoveryWithLogger())
	r.GET("/", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "SERVER_ERROR")
}
