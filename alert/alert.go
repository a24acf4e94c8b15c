// Package alert reports contract drifts of the payment flow to developers:
// a Sentry event for every occurrence and, rate limited, an email and an SMS.
package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/tutorhub/webfront/checkout"
	"github.com/tutorhub/webfront/internal/log"
	"github.com/tutorhub/webfront/notifications"
)

const (
	// DefaultCooldown between two email/SMS alerts for the same status.
	DefaultCooldown = 15 * time.Minute
	sendTimeout     = 10 * time.Second
)

// Config of the alerter. Every channel is optional.
type Config struct {
	SentryDSN   string
	Environment string
	Release     string
	// Transport replaces the Sentry HTTP transport, used by tests.
	Transport sentry.Transport

	Email   notifications.NotificationService
	EmailTo string
	SMS     notifications.NotificationService
	SMSTo   string

	Cooldown time.Duration
}

type channel struct {
	name    string
	service notifications.NotificationService
	to      func(n *notifications.Notification)
}

// Alerter implements checkout.Alerter.
type Alerter struct {
	hub      *sentry.Hub
	channels []channel
	cooldown time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time
	wg       sync.WaitGroup
}

var _ checkout.Alerter = (*Alerter)(nil)

// New creates the alerter. Without DSN nor transport Sentry is disabled.
func New(conf *Config) (*Alerter, error) {
	a := &Alerter{
		cooldown: conf.Cooldown,
		lastSent: make(map[string]time.Time),
	}
	if a.cooldown == 0 {
		a.cooldown = DefaultCooldown
	}
	if conf.SentryDSN != "" || conf.Transport != nil {
		client, err := sentry.NewClient(sentry.ClientOptions{
			Dsn:         conf.SentryDSN,
			Environment: conf.Environment,
			Release:     conf.Release,
			Transport:   conf.Transport,
		})
		if err != nil {
			return nil, fmt.Errorf("cannot init sentry: %w", err)
		}
		a.hub = sentry.NewHub(client, sentry.NewScope())
	}
	if conf.Email != nil && conf.EmailTo != "" {
		to := conf.EmailTo
		a.channels = append(a.channels, channel{name: "email", service: conf.Email,
			to: func(n *notifications.Notification) { n.ToAddress = to }})
	}
	if conf.SMS != nil && conf.SMSTo != "" {
		to := conf.SMSTo
		a.channels = append(a.channels, channel{name: "sms", service: conf.SMS,
			to: func(n *notifications.Notification) { n.ToNumber = to }})
	}
	return a, nil
}

// UnexpectedState reports ev. It never blocks on the notification channels.
func (a *Alerter) UnexpectedState(ctx context.Context, ev *checkout.UnexpectedState) {
	summary := fmt.Sprintf("unexpected %s status %q during %s", ev.Flow, ev.Status, ev.Operation)
	if a.hub != nil {
		a.hub.WithScope(func(scope *sentry.Scope) {
			scope.SetLevel(sentry.LevelError)
			scope.SetTag("flow", string(ev.Flow))
			scope.SetTag("operation", ev.Operation)
			scope.SetTag("status", ev.Status)
			scope.SetContext("payment", sentry.Context{
				"setupIntentId": ev.SetupIntentID,
				"resultId":      ev.ResultID,
			})
			scope.SetFingerprint([]string{"unexpected-status", string(ev.Flow), ev.Status})
			a.hub.CaptureMessage(summary)
		})
	}
	if len(a.channels) == 0 || !a.allow(string(ev.Flow)+"/"+ev.Status) {
		return
	}
	body := fmt.Sprintf("%s\nsetup intent: %s\nresult: %s\nat: %s",
		summary, ev.SetupIntentID, ev.ResultID, time.Now().UTC().Format(time.RFC3339))
	for _, ch := range a.channels {
		n := &notifications.Notification{
			Subject:   "[tutor payments] " + summary,
			PlainBody: body,
		}
		ch.to(n)
		a.wg.Add(1)
		go func(ch channel) {
			defer a.wg.Done()
			sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
			defer cancel()
			if err := ch.service.SendNotification(sendCtx, n); err != nil {
				log.Warnw("could not deliver alert", "channel", ch.name, "error", err.Error())
			}
		}(ch)
	}
}

// allow reports whether key may be notified now, recording the send.
func (a *Alerter) allow(key string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if last, ok := a.lastSent[key]; ok && time.Since(last) < a.cooldown {
		return false
	}
	a.lastSent[key] = time.Now()
	return true
}

// Close waits for pending notifications and flushes Sentry.
func (a *Alerter) Close(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		log.Warnw("alert notifications still pending at shutdown")
	}
	if a.hub != nil {
		a.hub.Flush(timeout)
	}
}
