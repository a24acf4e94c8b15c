// Package smtp provides an SMTP-based implementation of the NotificationService interface
// for sending email notifications.
package smtp

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strings"

	"github.com/tutorhub/webfront/notifications"
)

// Config of the SMTP email service. TestAPIPort is the port of the API of a
// local mail catcher (MailHog) used by tests to read delivered messages.
type Config struct {
	FromName     string
	FromAddress  string
	SMTPUsername string
	SMTPPassword string
	SMTPServer   string
	SMTPPort     int
	TestAPIPort  int
}

// Email sends notifications through an SMTP server.
type Email struct {
	config *Config
	auth   smtp.Auth
}

// New initializes the SMTP email service with the configuration. Auth is
// only used when both username and password are set.
func (se *Email) New(rawConfig any) error {
	config, ok := rawConfig.(*Config)
	if !ok {
		return fmt.Errorf("invalid SMTP configuration")
	}
	if _, err := mail.ParseAddress(config.FromAddress); err != nil {
		return fmt.Errorf("could not parse from email: %v", err)
	}
	se.config = config
	if config.SMTPUsername != "" && config.SMTPPassword != "" {
		se.auth = smtp.PlainAuth("", config.SMTPUsername, config.SMTPPassword, config.SMTPServer)
	}
	return nil
}

// SendNotification sends an email to the notification recipient, giving up
// when the context is done.
func (se *Email) SendNotification(ctx context.Context, notification *notifications.Notification) error {
	msg, err := se.compose(notification)
	if err != nil {
		return fmt.Errorf("could not compose email: %v", err)
	}
	server := fmt.Sprintf("%s:%d", se.config.SMTPServer, se.config.SMTPPort)
	errCh := make(chan error, 1)
	go func() {
		errCh <- smtp.SendMail(server, se.auth, se.config.FromAddress, []string{notification.ToAddress}, msg)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// compose builds the message. Without an HTML body it is a plain text
// email, otherwise a multipart/alternative one.
func (se *Email) compose(n *notifications.Notification) ([]byte, error) {
	to, err := mail.ParseAddress(n.ToAddress)
	if err != nil {
		return nil, fmt.Errorf("could not parse to email: %v", err)
	}
	if n.ToName != "" {
		to.Name = n.ToName
	}
	from := mail.Address{Name: se.config.FromName, Address: se.config.FromAddress}
	subject := strings.NewReplacer("\r", " ", "\n", " ").Replace(n.Subject)

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from.String())
	fmt.Fprintf(&msg, "To: %s\r\n", to.String())
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")

	if n.Body == "" {
		msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
		msg.WriteString(n.PlainBody)
		return msg.Bytes(), nil
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n\r\n", writer.Boundary())
	parts := []struct{ contentType, content string }{
		{"text/plain; charset=\"UTF-8\"", n.PlainBody},
		{"text/html; charset=\"UTF-8\"", n.Body},
	}
	for _, p := range parts {
		w, err := writer.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.contentType},
			"Content-Transfer-Encoding": {"8bit"},
		})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(p.content)); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("could not close writer: %v", err)
	}
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}
