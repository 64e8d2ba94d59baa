package messaging

import (
	"context"
	"fmt"
	"time"

	"whatsapp-intake/backend/pkg/logger"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// messageCreator is the part of the Twilio v2010 API used for replies
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioConfig holds the credentials and sender number for outbound replies
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	Timeout    time.Duration
}

// TwilioSender sends WhatsApp replies through the Twilio REST API
type TwilioSender struct {
	api  messageCreator
	from string
	log  *logger.Logger
}

// NewTwilioSender creates a sender backed by a Twilio REST client
func NewTwilioSender(cfg TwilioConfig, log *logger.Logger) (*TwilioSender, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("twilio credentials are required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("twilio sender number is required")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return newTwilioSender(client.Api, cfg.From, log), nil
}

func newTwilioSender(api messageCreator, from string, log *logger.Logger) *TwilioSender {
	if log == nil {
		log = logger.Discard()
	}
	return &TwilioSender{
		api:  api,
		from: WhatsAppAddress(from),
		log:  log.WithComponent("twilio_sender"),
	}
}

// Send posts body to the given chat address
func (s *TwilioSender) Send(ctx context.Context, to, body string) error {
	if to == "" {
		return ErrEmptyRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(WhatsAppAddress(to))
	params.SetFrom(s.from)
	params.SetBody(body)

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio create message: %w", err)
	}

	sid := ""
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	s.log.Debug("Reply sent", "to", to, "sid", sid)
	return nil
}
