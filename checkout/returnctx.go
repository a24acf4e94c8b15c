package checkout

import (
	"net/url"
)

// Query parameters carrying a flow across the vendor redirect.
const (
	ParamPayment                 = "payment"
	ParamSubscription            = "subscription"
	ParamSetupIntent             = "setup_intent"
	ParamSetupIntentClientSecret = "setup_intent_client_secret"
	ParamBookingID               = "booking_id"
	ParamInterval                = "interval"
	ParamRedirectStatus          = "redirect_status"

	// set by the vendor after a card payment authentication
	ParamPaymentIntent             = "payment_intent"
	ParamPaymentIntentClientSecret = "payment_intent_client_secret"

	// carried across the card payment authentication of a subscription
	ParamSubscriptionID = "subscription_id"

	MarkerPending = "pending"
	MarkerSuccess = "success"
)

// reconciliationParams are stripped once a return has been consumed.
var reconciliationParams = []string{
	ParamPayment,
	ParamSubscription,
	ParamSetupIntent,
	ParamSetupIntentClientSecret,
	ParamBookingID,
	ParamInterval,
	ParamRedirectStatus,
	ParamPaymentIntent,
	ParamPaymentIntentClientSecret,
	ParamSubscriptionID,
}

// ReturnContext is the typed view of the correlation parameters found in the
// page URL. It is built once per page load and passed explicitly.
type ReturnContext struct {
	url *url.URL

	Kind           Kind
	Marker         string
	SetupIntent    string
	BookingID      string
	Interval       string
	RedirectStatus string
	PaymentIntent  string
	SubscriptionID string
}

// ParseReturnContext reads the correlation parameters of u. A nil URL yields
// an idle context.
func ParseReturnContext(u *url.URL) ReturnContext {
	if u == nil {
		return ReturnContext{url: &url.URL{}}
	}
	cp := *u
	q := cp.Query()
	rc := ReturnContext{
		url:            &cp,
		SetupIntent:    q.Get(ParamSetupIntent),
		BookingID:      q.Get(ParamBookingID),
		Interval:       q.Get(ParamInterval),
		RedirectStatus: q.Get(ParamRedirectStatus),
		PaymentIntent:  q.Get(ParamPaymentIntent),
		SubscriptionID: q.Get(ParamSubscriptionID),
	}
	switch {
	case q.Has(ParamSubscription):
		rc.Kind, rc.Marker = KindSubscription, q.Get(ParamSubscription)
	case q.Has(ParamPayment):
		rc.Kind, rc.Marker = KindBooking, q.Get(ParamPayment)
	}
	return rc
}

// Pending reports whether the URL carries a pending marker.
func (rc ReturnContext) Pending() bool {
	return rc.Kind != "" && rc.Marker == MarkerPending
}

// Idle reports whether there is nothing to reconcile.
func (rc ReturnContext) Idle() bool {
	return !rc.Pending()
}

// URL returns a copy of the page URL the context was parsed from.
func (rc ReturnContext) URL() *url.URL {
	if rc.url == nil {
		return &url.URL{}
	}
	cp := *rc.url
	return &cp
}

// CleanURL returns the page URL without any reconciliation parameter. The
// browser replaces its current history entry with it; parsing it again
// always yields an idle context.
func (rc ReturnContext) CleanURL() string {
	u := rc.URL()
	q := u.Query()
	for _, p := range reconciliationParams {
		q.Del(p)
	}
	u.RawQuery = q.Encode()
	u.ForceQuery = false
	return u.String()
}

// BuildReturnURL is the return_url given to the vendor before a redirect:
// the current origin and path plus the pending marker and the identifier of
// the purchase. The vendor appends setup_intent and redirect_status.
func BuildReturnURL(page *url.URL, kind Kind, interval, bookingID string) string {
	u := url.URL{Scheme: page.Scheme, Host: page.Host, Path: page.Path}
	q := url.Values{}
	switch kind {
	case KindSubscription:
		q.Set(ParamSubscription, MarkerPending)
		q.Set(ParamInterval, interval)
	case KindBooking:
		q.Set(ParamPayment, MarkerPending)
		q.Set(ParamBookingID, bookingID)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// cardPaymentReturnURL extends the return URL of a subscription with its id,
// for the authentication of the first invoice payment. The vendor appends
// payment_intent and redirect_status.
func cardPaymentReturnURL(returnURL, subscriptionID string) string {
	if returnURL == "" || subscriptionID == "" {
		return returnURL
	}
	u, err := url.Parse(returnURL)
	if err != nil {
		return returnURL
	}
	q := u.Query()
	q.Set(ParamSubscriptionID, subscriptionID)
	u.RawQuery = q.Encode()
	return u.String()
}
