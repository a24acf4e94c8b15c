// Package checkout implements the payment reconciliation flow of the web
// front: checkout initialization, direct confirmation, post-confirmation
// branching and the resumption of a flow after a vendor redirect.
package checkout

import (
	"context"

	"github.com/tutorhub/webfront/backend"
	"github.com/tutorhub/webfront/stripe"
)

// Kind identifies which of the two checkout flows is running.
type Kind string

const (
	KindSubscription Kind = "subscription"
	KindBooking      Kind = "booking"
)

// Statuses the flow branches on. Any other value is an unexpected state.
const (
	StatusActive               = "active"
	StatusIncomplete           = "incomplete"
	StatusSucceeded            = "succeeded"
	StatusRequiresAction       = "requires_action"
	StatusRequiresConfirmation = "requires_confirmation"
)

// Phase of a flow as seen by the browser.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseReady      Phase = "ready"
	PhaseProcessing Phase = "processing"
	PhaseRedirect   Phase = "redirect"
	PhaseSucceeded  Phase = "succeeded"
	PhaseFailed     Phase = "failed"
)

// Booking is the checkout target of a lesson booking.
type Booking struct {
	BookingID    string `json:"bookingId"`
	ClientSecret string `json:"clientSecret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// State is the flow-local state. ClientSecret is only ever handed to the
// browser payment form and must not be logged. An operation whose context
// was cancelled leaves the state as it was during the call, Loading or
// IsProcessing included.
type State struct {
	Phase         Phase  `json:"phase"`
	Loading       bool   `json:"loading"`
	IsProcessing  bool   `json:"isProcessing"`
	Error         string `json:"error,omitempty"`
	ClientSecret  string `json:"clientSecret,omitempty"`
	SetupIntentID string `json:"setupIntentId,omitempty"`
}

// Outcome is the result of a flow operation. Failure is set when the
// operation resolved with an error, already surfaced through OnError.
type Outcome struct {
	Phase    Phase  `json:"phase"`
	ResultID string `json:"resultId,omitempty"`
	Status   string `json:"status,omitempty"`
	Redirect string `json:"redirect,omitempty"`
	CleanURL string `json:"cleanUrl,omitempty"`
	Error    string `json:"error,omitempty"`
	Failure  *Error `json:"-"`
}

// Callbacks receive the terminal result of a flow. Both are optional.
type Callbacks struct {
	// OnSuccess gets the subscription id or the payment intent id.
	OnSuccess func(id string)
	OnError   func(message string)
}

// Backend is the subset of the REST backend the flow calls.
type Backend interface {
	CreateSetupIntent(ctx context.Context, token string, req *backend.SetupIntentRequest) (*backend.SetupIntent, error)
	CreatePaymentIntent(ctx context.Context, token string, req *backend.PaymentIntentRequest) (*backend.PaymentIntent, error)
	CreateSubscription(ctx context.Context, token string, req *backend.SubscriptionRequest) (*backend.Subscription, error)
	SubscriptionStatus(ctx context.Context, token string) (*backend.SubscriptionStatus, error)
}

// Vendor is the payment SDK surface the flow calls.
type Vendor interface {
	ConfirmSetupIntent(ctx context.Context, p *stripe.ConfirmSetupParams) (*stripe.ConfirmResult, error)
	ConfirmCardPayment(ctx context.Context, clientSecret, paymentMethodID, returnURL string) (*stripe.ConfirmResult, error)
}

// Translator renders user facing messages.
type Translator interface {
	T(lang, id string, data map[string]any) string
}

// UnexpectedState describes a status outside the known enumeration.
type UnexpectedState struct {
	Flow          Kind
	Operation     string
	Status        string
	SetupIntentID string
	ResultID      string
}

// Alerter is notified of contract drifts between the front, the backend and
// the vendor.
type Alerter interface {
	UnexpectedState(ctx context.Context, ev *UnexpectedState)
}

// Metrics records flow outcomes.
type Metrics interface {
	ObserveOutcome(flow Kind, operation string, phase Phase, errKind string)
	ObserveUnexpectedStatus(flow Kind, status string)
}
