package api

import (
	"net/http"
	"strconv"
	"time"

	"whatsapp-intake/backend/internal/models"
	"whatsapp-intake/backend/internal/service"
	apperrors "whatsapp-intake/backend/pkg/errors"

	"github.com/gin-gonic/gin"
)

// MessageController serves the unseen-message query API
type MessageController struct {
	inbox *service.InboxService
}

// NewMessageController creates a new message controller
func NewMessageController(inbox *service.InboxService) *MessageController {
	return &MessageController{inbox: inbox}
}

// MessageResponse is one element of the unseen listing
type MessageResponse struct {
	ID         uint    `json:"id"`
	FromNumber string  `json:"from_number"`
	ToNumber   string  `json:"to_number"`
	Body       string  `json:"body"`
	MediaURL   *string `json:"media_url"`
	CreatedAt  string  `json:"created_at"`
	Seen       bool    `json:"seen"`
	Language   *string `json:"language"`
	State      *string `json:"state"`
}

// MarkSeenResponse acknowledges a mark-seen request
type MarkSeenResponse struct {
	Status    string `json:"status"`
	MessageID uint   `json:"message_id"`
}

func toMessageResponse(m models.InboxMessage) MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		FromNumber: m.FromNumber,
		ToNumber:   m.ToNumber,
		Body:       m.Body,
		MediaURL:   m.MediaURL,
		CreatedAt:  m.CreatedAt.UTC().Format(time.RFC3339),
		Seen:       m.Seen,
		Language:   m.Language,
		State:      m.State,
	}
}

// ListUnseen returns the newest unseen messages
func (m *MessageController) ListUnseen(c *gin.Context) {
	messages, err := m.inbox.ListUnseen(c.Request.Context())
	if err != nil {
		c.Error(apperrors.NewInternalServerError("LIST_FAILED", "Could not list messages").WithCause(err))
		return
	}

	response := make([]MessageResponse, 0, len(messages))
	for _, msg := range messages {
		response = append(response, toMessageResponse(msg))
	}
	c.JSON(http.StatusOK, response)
}

// MarkSeen flags a message as processed
func (m *MessageController) MarkSeen(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(apperrors.NewBadRequestError("INVALID_MESSAGE_ID", "Message id must be a positive integer").WithCause(err))
		return
	}

	if err := m.inbox.MarkSeen(c.Request.Context(), uint(id)); err != nil {
		c.Error(apperrors.NewInternalServerError("MARK_SEEN_FAILED", "Could not update message").WithCause(err))
		return
	}

	c.JSON(http.StatusOK, MarkSeenResponse{Status: "success", MessageID: uint(id)})
}
