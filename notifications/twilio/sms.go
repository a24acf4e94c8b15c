// Package twilio delivers SMS notifications through Twilio.
package twilio

import (
	"context"
	"fmt"

	t "github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/tutorhub/webfront/notifications"
)

// maxBody keeps alerts within a couple of SMS segments.
const maxBody = 300

// TwilioConfig contains the account credentials and the sender number.
type TwilioConfig struct {
	AccountSid string
	AuthToken  string
	FromNumber string
}

// TwilioSMS is the Twilio NotificationService.
type TwilioSMS struct {
	config *TwilioConfig
	client *t.RestClient
}

// New initializes the Twilio REST client with the configured credentials.
// Read more here: https://www.twilio.com/docs/messaging/quickstart/go
func (tsms *TwilioSMS) New(rawConfig any) error {
	config, ok := rawConfig.(*TwilioConfig)
	if !ok {
		return fmt.Errorf("invalid Twilio configuration")
	}
	if config.AccountSid == "" || config.AuthToken == "" || config.FromNumber == "" {
		return fmt.Errorf("twilio account sid, auth token and from number are required")
	}
	tsms.config = config
	tsms.client = t.NewRestClientWithParams(t.ClientParams{
		Username: config.AccountSid,
		Password: config.AuthToken,
	})
	return nil
}

// Params builds the message of a notification.
func (tsms *TwilioSMS) Params(n *notifications.Notification) *api.CreateMessageParams {
	body := n.PlainBody
	if body == "" {
		body = n.Subject
	}
	if len(body) > maxBody {
		body = body[:maxBody]
	}
	params := &api.CreateMessageParams{}
	params.SetTo(n.ToNumber)
	params.SetFrom(tsms.config.FromNumber)
	params.SetBody(body)
	return params
}

// SendNotification sends an SMS, giving up when the context is done.
func (tsms *TwilioSMS) SendNotification(ctx context.Context, n *notifications.Notification) error {
	params := tsms.Params(n)
	errCh := make(chan error, 1)
	go func() {
		_, err := tsms.client.Api.CreateMessage(params)
		errCh <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
