package notify

import (
	"context"
	"fmt"

	"core/internal/config"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioNotifier sends SMS through the Twilio REST API.
type TwilioNotifier struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioNotifier creates a notifier using the configured Twilio
// credentials and sender number.
func NewTwilioNotifier(cfg *config.TwilioConfig) *TwilioNotifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioNotifier{
		client: client,
		from:   cfg.FromNumber,
	}
}

// Send delivers an SMS to the caller's number.
func (n *TwilioNotifier) Send(_ context.Context, to, body string) error {
	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(n.from)
	params.SetBody(body)

	if _, err := n.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send SMS to %s: %w", to, err)
	}
	return nil
}

// Ensure TwilioNotifier implements Notifier
var _ Notifier = (*TwilioNotifier)(nil)
