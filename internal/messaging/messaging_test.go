package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"whatsapp-intake/backend/pkg/resilience"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeCreator struct {
	calls []*twilioApi.CreateMessageParams
	err   error
}

func (f *fakeCreator) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

type countingSender struct {
	calls int
	err   error
}

func (s *countingSender) Send(context.Context, string, string) error {
	s.calls++
	return s.err
}

func TestWhatsAppAddress(t *testing.T) {
	assert.Equal(t, "whatsapp:+15551234", WhatsAppAddress("+15551234"))
	assert.Equal(t, "whatsapp:+15551234", WhatsAppAddress("whatsapp:+15551234"))
	assert.Equal(t, "whatsapp:+15551234", WhatsAppAddress("  +15551234 "))
	assert.Equal(t, "", WhatsAppAddress(""))
}

func TestTwilioSenderSend(t *testing.T) {
	api := &fakeCreator{}
	s := newTwilioSender(api, "+15550000", nil)

	require.NoError(t, s.Send(context.Background(), "whatsapp:+15551111", "hello"))
	require.Len(t, api.calls, 1)

	params := api.calls[0]
	require.NotNil(t, params.To)
	require.NotNil(t, params.From)
	require.NotNil(t, params.Body)
	assert.Equal(t, "whatsapp:+15551111", *params.To)
	assert.Equal(t, "whatsapp:+15550000", *params.From)
	assert.Equal(t, "hello", *params.Body)
}

func TestTwilioSenderErrors(t *testing.T) {
	api := &fakeCreator{err: errors.New("20003 authenticate")}
	s := newTwilioSender(api, "whatsapp:+15550000", nil)

	err := s.Send(context.Background(), "whatsapp:+15551111", "hello")
	assert.ErrorContains(t, err, "20003")

	assert.ErrorIs(t, s.Send(context.Background(), "", "hello"), ErrEmptyRecipient)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, "whatsapp:+1", "hello"), context.Canceled)
	assert.Len(t, api.calls, 1)
}

func TestNewTwilioSenderRequiresCredentials(t *testing.T) {
	_, err := NewTwilioSender(TwilioConfig{From: "+1"}, nil)
	assert.Error(t, err)

	_, err = NewTwilioSender(TwilioConfig{AccountSID: "AC1", AuthToken: "tok"}, nil)
	assert.Error(t, err)

	s, err := NewTwilioSender(TwilioConfig{AccountSID: "AC1", AuthToken: "tok", From: "+1", Timeout: time.Second}, nil)
	require.NoError(t, err)
	assert.Equal(t, "whatsapp:+1", s.from)
}

func TestLogSender(t *testing.T) {
	s := NewLogSender(nil)
	assert.NoError(t, s.Send(context.Background(), "whatsapp:+1", "hi"))
	assert.ErrorIs(t, s.Send(context.Background(), "", "hi"), ErrEmptyRecipient)
}

func TestBreakerSenderShortCircuits(t *testing.T) {
	next := &countingSender{err: errors.New("provider down")}
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:             "twilio",
		FailureThreshold: 2,
		SuccessThreshold: 1,
		RetryTimeout:     time.Hour,
	}, nil)
	s := NewBreakerSender(next, cb)

	ctx := context.Background()
	assert.Error(t, s.Send(ctx, "a", "b"))
	assert.Error(t, s.Send(ctx, "a", "b"))
	assert.ErrorIs(t, s.Send(ctx, "a", "b"), resilience.ErrCircuitOpen)
	assert.Equal(t, 2, next.calls)
}
