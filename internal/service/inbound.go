package service

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"gorm.io/datatypes"
)

var (
	ErrMissingSender   = errors.New("missing sender")
	ErrInvalidNumMedia = errors.New("NumMedia is not an integer")
)

// InboundMessage is the parsed form of one gateway callback
type InboundMessage struct {
	From     string
	To       string
	Body     string
	NumMedia int
	MediaURL *string
	Raw      datatypes.JSONMap
}

// ParseInbound reads a Twilio-style form payload. Only the first media
// attachment is kept. A button reply with no Body uses its label as the body.
func ParseInbound(form url.Values) (*InboundMessage, error) {
	in := &InboundMessage{
		From: strings.TrimSpace(form.Get("From")),
		To:   strings.TrimSpace(form.Get("To")),
		Body: form.Get("Body"),
		Raw:  make(datatypes.JSONMap, len(form)),
	}

	for key, values := range form {
		if len(values) > 0 {
			in.Raw[key] = values[0]
		}
	}

	if in.From == "" {
		return nil, ErrMissingSender
	}

	if raw := strings.TrimSpace(form.Get("NumMedia")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, ErrInvalidNumMedia
		}
		in.NumMedia = n
	}

	if in.NumMedia > 0 {
		if media := form.Get("MediaUrl0"); media != "" {
			in.MediaURL = &media
		}
	}

	if in.Body == "" {
		in.Body = form.Get("ButtonText")
	}

	return in, nil
}
