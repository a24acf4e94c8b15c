// Package sendgrid delivers email notifications through the SendGrid API.
package sendgrid

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/tutorhub/webfront/notifications"
)

// SendGridConfig holds the sender identity and the API key.
type SendGridConfig struct {
	FromName    string
	FromAddress string
	APIKey      string
}

// SendGridEmail is the SendGrid NotificationService.
type SendGridEmail struct {
	config *SendGridConfig
	client *sendgrid.Client
}

// New initializes the SendGrid client.
func (sg *SendGridEmail) New(rawConfig any) error {
	config, ok := rawConfig.(*SendGridConfig)
	if !ok {
		return fmt.Errorf("invalid SendGrid configuration")
	}
	if config.APIKey == "" || config.FromAddress == "" {
		return fmt.Errorf("sendgrid api key and from address are required")
	}
	sg.config = config
	sg.client = sendgrid.NewSendClient(config.APIKey)
	return nil
}

// Message builds the SendGrid message of a notification.
func (sg *SendGridEmail) Message(n *notifications.Notification) *mail.SGMailV3 {
	from := mail.NewEmail(sg.config.FromName, sg.config.FromAddress)
	html := n.Body
	if html == "" {
		html = n.PlainBody
	}
	return mail.NewSingleEmail(from, n.Subject, mail.NewEmail(n.ToName, n.ToAddress), n.PlainBody, html)
}

// SendNotification sends the email. A non-2xx answer of SendGrid is an error.
func (sg *SendGridEmail) SendNotification(ctx context.Context, n *notifications.Notification) error {
	resp, err := sg.client.SendWithContext(ctx, sg.Message(n))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid answered %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
