package api

import "github.com/tutorhub/webfront/checkout"

// SubscriptionStartRequest starts a subscription checkout on the page at URL.
type SubscriptionStartRequest struct {
	Interval string `json:"interval" validate:"required,interval"`
	URL      string `json:"url" validate:"required,http_url"`
}

// BookingStartRequest starts a booking checkout on the page at URL.
type BookingStartRequest struct {
	BookingID string `json:"bookingId" validate:"required,max=64"`
	URL       string `json:"url" validate:"required,http_url"`
}

// ConfirmRequest submits the payment form. ClientSecret and SetupIntentID
// are the ones returned by the start call.
type ConfirmRequest struct {
	Interval        string `json:"interval,omitempty" validate:"omitempty,interval"`
	BookingID       string `json:"bookingId,omitempty" validate:"omitempty,max=64"`
	PaymentMethodID string `json:"paymentMethodId" validate:"required,stripeid=pm"`
	ClientSecret    string `json:"clientSecret" validate:"required,clientsecret"`
	SetupIntentID   string `json:"setupIntentId" validate:"omitempty,stripeid=seti"`
	URL             string `json:"url" validate:"required,http_url"`
}

// ReconcileRequest carries the page URL the browser landed on.
type ReconcileRequest struct {
	URL string `json:"url" validate:"required,http_url"`
}

// CheckoutResponse is the outcome of a checkout call together with what the
// payment form needs to render.
type CheckoutResponse struct {
	Phase          checkout.Phase `json:"phase"`
	ClientSecret   string         `json:"clientSecret,omitempty"`
	SetupIntentID  string         `json:"setupIntentId,omitempty"`
	PublishableKey string         `json:"publishableKey,omitempty"`
	ResultID       string         `json:"resultId,omitempty"`
	Status         string         `json:"status,omitempty"`
	Redirect       string         `json:"redirect,omitempty"`
	CleanURL       string         `json:"cleanUrl,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// AddPaymentMethodRequest adds a payment method. Either PaymentMethodID is
// already tokenized by the browser SDK, or Type and the raw details are
// tokenized here.
type AddPaymentMethodRequest struct {
	PaymentMethodID string `json:"paymentMethodId,omitempty" validate:"omitempty,stripeid=pm"`
	Type            string `json:"type,omitempty" validate:"required_without=PaymentMethodID,omitempty,oneof=card paypal"`
	CardToken       string `json:"cardToken,omitempty" validate:"required_if=Type card,omitempty,stripeid=tok"`
	Name            string `json:"name,omitempty" validate:"max=128"`
	Email           string `json:"email,omitempty" validate:"omitempty,email"`
	SetDefault      bool   `json:"setDefault,omitempty"`
}
