package api

import (
	"errors"
	"net/http"

	"whatsapp-intake/backend/internal/service"
	apperrors "whatsapp-intake/backend/pkg/errors"
	"whatsapp-intake/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// WebhookController receives gateway callbacks
type WebhookController struct {
	intake *service.IntakeService
}

// NewWebhookController creates a new webhook controller
func NewWebhookController(intake *service.IntakeService) *WebhookController {
	return &WebhookController{intake: intake}
}

// RegisterRoutes registers the webhook route
func (w *WebhookController) RegisterRoutes(router gin.IRouter) {
	router.POST("/webhook", w.Receive)
}

// Receive stores one callback and answers 200 "OK" once it is committed
func (w *WebhookController) Receive(c *gin.Context) {
	log := logger.FromContext(c)

	if err := c.Request.ParseForm(); err != nil {
		log.Warn("Unreadable webhook payload", "error", err.Error())
		c.Error(apperrors.NewBadRequestError("INVALID_PAYLOAD", "Payload must be form encoded").WithCause(err))
		return
	}

	in, err := service.ParseInbound(c.Request.PostForm)
	if err != nil {
		log.Warn("Rejected webhook payload", "error", err.Error())
		switch {
		case errors.Is(err, service.ErrInvalidNumMedia):
			c.Error(apperrors.NewBadRequestError("INVALID_NUM_MEDIA", "NumMedia must be an integer").WithCause(err))
		case errors.Is(err, service.ErrMissingSender):
			c.Error(apperrors.NewBadRequestError("MISSING_SENDER", "From is required").WithCause(err))
		default:
			c.Error(apperrors.NewBadRequestError("INVALID_PAYLOAD", "Invalid webhook payload").WithCause(err))
		}
		return
	}

	if _, err := w.intake.Handle(c.Request.Context(), in); err != nil {
		c.Error(apperrors.NewInternalServerError("STORE_FAILED", "Message could not be stored").WithCause(err))
		return
	}

	c.String(http.StatusOK, "OK")
}
