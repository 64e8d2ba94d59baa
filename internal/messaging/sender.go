package messaging

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyRecipient is returned when Send is called without a destination
var ErrEmptyRecipient = errors.New("recipient is required")

// Sender delivers a text reply to a chat address
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

const whatsappPrefix = "whatsapp:"

// WhatsAppAddress prefixes a bare number with the whatsapp: channel
func WhatsAppAddress(number string) string {
	number = strings.TrimSpace(number)
	if number == "" || strings.HasPrefix(number, whatsappPrefix) {
		return number
	}
	return whatsappPrefix + number
}
