package service

import (
	"context"

	"whatsapp-intake/backend/internal/models"
	"whatsapp-intake/backend/internal/repository"
	"whatsapp-intake/backend/pkg/logger"
	"whatsapp-intake/backend/shared/observability"
)

// DefaultUnseenLimit caps the unseen listing
const DefaultUnseenLimit = 20

// InboxService serves the downstream consumer's view of stored messages
type InboxService struct {
	messages repository.MessageRepository
	limit    int
	metrics  *observability.Metrics
	log      *logger.Logger
}

func NewInboxService(messages repository.MessageRepository, limit int, metrics *observability.Metrics, log *logger.Logger) *InboxService {
	if limit <= 0 {
		limit = DefaultUnseenLimit
	}
	if log == nil {
		log = logger.Discard()
	}
	return &InboxService{
		messages: messages,
		limit:    limit,
		metrics:  metrics,
		log:      log.WithComponent("inbox"),
	}
}

// ListUnseen returns the newest unseen messages; never nil
func (s *InboxService) ListUnseen(ctx context.Context) ([]models.InboxMessage, error) {
	messages, err := s.messages.ListUnseen(ctx, s.limit)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []models.InboxMessage{}
	}
	return messages, nil
}

// MarkSeen flags a message as processed. Unknown ids succeed silently.
func (s *InboxService) MarkSeen(ctx context.Context, id uint) error {
	if err := s.messages.MarkSeen(ctx, id); err != nil {
		return err
	}
	s.metrics.MarkedSeen(ctx)
	s.log.DebugContext(ctx, "Message marked seen", "message_id", id)
	return nil
}
