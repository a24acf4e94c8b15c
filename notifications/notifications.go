// Package notifications delivers developer alerts by email or SMS.
package notifications

import "context"

// Notification is a message for one recipient. Email channels use ToAddress,
// Subject and the bodies; SMS channels use ToNumber and PlainBody.
type Notification struct {
	ToName    string
	ToAddress string
	ToNumber  string
	Subject   string
	Body      string
	PlainBody string
}

// NotificationService is implemented by every delivery channel.
type NotificationService interface {
	New(conf any) error
	SendNotification(context.Context, *Notification) error
}
