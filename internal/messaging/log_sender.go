package messaging

import (
	"context"

	"whatsapp-intake/backend/pkg/logger"
)

// LogSender records replies in the log instead of delivering them.
// Used when outbound delivery is switched off.
type LogSender struct {
	log *logger.Logger
}

func NewLogSender(log *logger.Logger) *LogSender {
	if log == nil {
		log = logger.Discard()
	}
	return &LogSender{log: log.WithComponent("log_sender")}
}

func (s *LogSender) Send(ctx context.Context, to, body string) error {
	if to == "" {
		return ErrEmptyRecipient
	}
	s.log.InfoContext(ctx, "Outbound delivery disabled, reply not sent",
		"to", to,
		"body_preview", logger.Preview(body, 60),
	)
	return nil
}
