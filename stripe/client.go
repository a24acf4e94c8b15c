package stripe

import (
	"context"
	"strings"

	"github.com/google/uuid"
	stripeapi "github.com/stripe/stripe-go/v81"
	stripeclient "github.com/stripe/stripe-go/v81/client"
	"github.com/tutorhub/webfront/internal/log"
)

// Intent statuses the web front acts upon.
const (
	StatusSucceeded             = "succeeded"
	StatusProcessing            = "processing"
	StatusRequiresAction        = "requires_action"
	StatusRequiresConfirmation  = "requires_confirmation"
	StatusRequiresPaymentMethod = "requires_payment_method"
	StatusRequiresCapture       = "requires_capture"
	StatusCanceled              = "canceled"
)

// Payment method types accepted by CreatePaymentMethod.
const (
	PaymentMethodCard   = "card"
	PaymentMethodPayPal = "paypal"
)

// ConfirmSetupParams are the inputs of a setup intent confirmation.
type ConfirmSetupParams struct {
	ClientSecret    string
	PaymentMethodID string
	// ReturnURL is where the vendor sends the browser back after an
	// off-site authorization (PayPal, 3-D Secure).
	ReturnURL string
}

// ConfirmResult is the outcome of a confirmation that did not fail. When
// RedirectURL is set the browser must be sent there and nothing else should
// happen.
type ConfirmResult struct {
	IntentID        string
	Status          string
	RedirectURL     string
	PaymentMethodID string
}

// PaymentMethodParams tokenizes a payment method. Card payment methods are
// created from a card token; PayPal needs no extra data.
type PaymentMethodParams struct {
	Type      string
	CardToken string
	Name      string
	Email     string
}

// Client wraps the Stripe API client with the calls of the checkout flow.
type Client struct {
	config *Config
	api    *stripeclient.API
}

// NewClient creates a new Stripe client with the given configuration.
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	backendConf := &stripeapi.BackendConfig{
		MaxNetworkRetries: stripeapi.Int64(config.MaxNetworkRetries),
		LeveledLogger:     leveledLogger{},
	}
	if config.APIURL != "" {
		backendConf.URL = stripeapi.String(strings.TrimSuffix(config.APIURL, "/"))
	}
	apiBackend := stripeapi.GetBackendWithConfig(stripeapi.APIBackend, backendConf)
	api := stripeclient.New(config.SecretKey, &stripeapi.Backends{
		API:     apiBackend,
		Connect: apiBackend,
		Uploads: stripeapi.GetBackendWithConfig(stripeapi.UploadsBackend, &stripeapi.BackendConfig{
			LeveledLogger: leveledLogger{},
		}),
	})
	return &Client{config: config, api: api}, nil
}

// PublishableKey returns the key the browser mounts Elements with.
func (c *Client) PublishableKey() string {
	return c.config.PublishableKey
}

// ConfirmSetupIntent confirms a setup intent with the given payment method,
// redirecting only when the payment method requires it.
func (c *Client) ConfirmSetupIntent(ctx context.Context, p *ConfirmSetupParams) (*ConfirmResult, error) {
	id, err := intentIDFromSecret(p.ClientSecret)
	if err != nil {
		return nil, err
	}
	if p.PaymentMethodID == "" {
		return nil, ErrMissingPaymentMethod
	}
	params := &stripeapi.SetupIntentConfirmParams{
		PaymentMethod: stripeapi.String(p.PaymentMethodID),
	}
	if p.ReturnURL != "" {
		params.ReturnURL = stripeapi.String(p.ReturnURL)
	}
	params.Context = ctx
	params.SetIdempotencyKey(uuid.NewString())

	si, err := c.api.SetupIntents.Confirm(id, params)
	if err != nil {
		return nil, fromAPIError("failed to confirm setup intent", err)
	}
	log.Debugw("setup intent confirmed", "setupIntent", si.ID, "status", si.Status)

	res := &ConfirmResult{IntentID: si.ID, Status: string(si.Status)}
	if si.PaymentMethod != nil {
		res.PaymentMethodID = si.PaymentMethod.ID
	}
	if si.NextAction != nil && si.NextAction.RedirectToURL != nil && si.NextAction.RedirectToURL.URL != "" {
		res.RedirectURL = si.NextAction.RedirectToURL.URL
		return res, nil
	}
	if err := statusError(res.Status, si.LastSetupError); err != nil {
		return nil, err
	}
	return res, nil
}

// ConfirmCardPayment confirms the payment intent identified by its client
// secret, the server side counterpart of confirmCardPayment. The payment
// method is optional when the intent already has one attached.
func (c *Client) ConfirmCardPayment(ctx context.Context, clientSecret, paymentMethodID, returnURL string) (*ConfirmResult, error) {
	id, err := intentIDFromSecret(clientSecret)
	if err != nil {
		return nil, err
	}
	params := &stripeapi.PaymentIntentConfirmParams{}
	if paymentMethodID != "" {
		params.PaymentMethod = stripeapi.String(paymentMethodID)
	}
	if returnURL != "" {
		params.ReturnURL = stripeapi.String(returnURL)
	}
	params.Context = ctx
	params.SetIdempotencyKey(uuid.NewString())

	pi, err := c.api.PaymentIntents.Confirm(id, params)
	if err != nil {
		return nil, fromAPIError("failed to confirm payment intent", err)
	}
	log.Debugw("payment intent confirmed", "paymentIntent", pi.ID, "status", pi.Status)

	res := &ConfirmResult{IntentID: pi.ID, Status: string(pi.Status)}
	if pi.PaymentMethod != nil {
		res.PaymentMethodID = pi.PaymentMethod.ID
	}
	if pi.NextAction != nil && pi.NextAction.RedirectToURL != nil && pi.NextAction.RedirectToURL.URL != "" {
		res.RedirectURL = pi.NextAction.RedirectToURL.URL
		return res, nil
	}
	if err := statusError(res.Status, pi.LastPaymentError); err != nil {
		return nil, err
	}
	return res, nil
}

// CreatePaymentMethod tokenizes a payment method and returns its id.
func (c *Client) CreatePaymentMethod(ctx context.Context, p *PaymentMethodParams) (string, error) {
	params := &stripeapi.PaymentMethodParams{}
	switch p.Type {
	case PaymentMethodCard:
		if p.CardToken == "" {
			return "", NewStripeError("missing_payment_method", "card token is required", nil)
		}
		params.Type = stripeapi.String(string(stripeapi.PaymentMethodTypeCard))
		params.Card = &stripeapi.PaymentMethodCardParams{Token: stripeapi.String(p.CardToken)}
	case PaymentMethodPayPal:
		params.Type = stripeapi.String(string(stripeapi.PaymentMethodTypePaypal))
		params.Paypal = &stripeapi.PaymentMethodPaypalParams{}
	default:
		return "", NewStripeError("invalid_payment_method_type", "unsupported payment method type "+p.Type, nil)
	}
	if p.Name != "" || p.Email != "" {
		params.BillingDetails = &stripeapi.PaymentMethodBillingDetailsParams{}
		if p.Name != "" {
			params.BillingDetails.Name = stripeapi.String(p.Name)
		}
		if p.Email != "" {
			params.BillingDetails.Email = stripeapi.String(p.Email)
		}
	}
	params.Context = ctx
	params.SetIdempotencyKey(uuid.NewString())

	pm, err := c.api.PaymentMethods.New(params)
	if err != nil {
		return "", fromAPIError("failed to create payment method", err)
	}
	return pm.ID, nil
}

// statusError turns a terminal non-success status without redirect into an
// error. Succeeded and in-flight statuses return nil.
func statusError(status string, last *stripeapi.Error) error {
	switch status {
	case StatusSucceeded, StatusProcessing, StatusRequiresCapture:
		return nil
	case StatusCanceled:
		return NewStripeError("canceled", "intent was canceled", nil)
	}
	if last != nil {
		return fromLastError(last)
	}
	switch status {
	case StatusRequiresPaymentMethod:
		return NewStripeError("missing_payment_method", "intent requires a payment method", nil)
	case StatusRequiresAction:
		return NewStripeError("authentication_required", "intent requires an action that cannot be handled by redirect", nil)
	}
	return nil
}

// intentIDFromSecret extracts the intent id from its client secret
// (seti_XXX_secret_YYY, pi_XXX_secret_YYY).
func intentIDFromSecret(secret string) (string, error) {
	id, _, ok := strings.Cut(secret, "_secret_")
	if !ok || id == "" {
		return "", ErrMissingClientSecret
	}
	return id, nil
}

// leveledLogger routes the SDK logs through the service logger.
type leveledLogger struct{}

func (leveledLogger) Debugf(format string, v ...any) { log.Debugf(format, v...) }
func (leveledLogger) Infof(format string, v ...any)  { log.Debugf(format, v...) }
func (leveledLogger) Warnf(format string, v ...any)  { log.Warnf(format, v...) }
func (leveledLogger) Errorf(format string, v ...any) {
	// declines and validation failures surface as errors to callers already
	log.Infof(format, v...)
}
