package sendgrid

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/tutorhub/webfront/notifications"
)

func TestNewValidatesConfig(t *testing.T) {
	c := qt.New(t)
	sg := &SendGridEmail{}
	c.Assert(sg.New("nope"), qt.ErrorMatches, "invalid SendGrid configuration")
	c.Assert(sg.New(&SendGridConfig{}), qt.IsNotNil)
	c.Assert(sg.New(&SendGridConfig{APIKey: "SG.key", FromAddress: "alerts@tutorhub.test"}), qt.IsNil)
}

func TestMessage(t *testing.T) {
	c := qt.New(t)
	sg := &SendGridEmail{}
	c.Assert(sg.New(&SendGridConfig{APIKey: "SG.key", FromName: "Alerts", FromAddress: "alerts@tutorhub.test"}), qt.IsNil)

	msg := sg.Message(&notifications.Notification{
		ToAddress: "oncall@tutorhub.test",
		Subject:   "Unexpected payment status",
		PlainBody: "status=weird_status",
	})
	c.Assert(msg.From.Address, qt.Equals, "alerts@tutorhub.test")
	c.Assert(msg.Subject, qt.Equals, "Unexpected payment status")
	c.Assert(msg.Personalizations, qt.HasLen, 1)
	c.Assert(msg.Personalizations[0].To[0].Address, qt.Equals, "oncall@tutorhub.test")
	c.Assert(msg.Content, qt.HasLen, 2)
	c.Assert(msg.Content[1].Value, qt.Equals, "status=weird_status")
}
