// Package backend is the client of the marketplace REST backend. Every call
// is authenticated with the user's bearer token and exchanges JSON bodies.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tutorhub/webfront/internal/log"
)

// DefaultTimeout bounds every backend request when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

const (
	setupIntentPath         = "/setup-intent"
	paymentIntentsPath      = "/payment-intents"
	subscriptionPath        = "/teachers/subscription"
	subscriptionStatusPath  = "/teachers/subscription/status"
	subscriptionCancelPath  = "/teachers/subscription/cancel"
	paymentMethodsPath      = "/payment-methods"
	paymentMethodPath       = "/payment-methods/%s"
	paymentMethodDefaultFmt = "/payment-methods/%s/default"
	storiesPath             = "/stories"
	storyPath               = "/stories/%s"
)

// Config holds the backend connection settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient replaces the default transport, mostly for tests.
	HTTPClient *http.Client
}

// Client wraps authenticated calls to the backend API.
type Client struct {
	rest *resty.Client
}

// New creates a backend client for the given configuration.
func New(conf *Config) (*Client, error) {
	if conf == nil || conf.BaseURL == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	if _, err := url.ParseRequestURI(conf.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid backend base URL: %w", err)
	}
	timeout := conf.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	var rc *resty.Client
	if conf.HTTPClient != nil {
		rc = resty.NewWithClient(conf.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(strings.TrimRight(conf.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	return &Client{rest: rc}, nil
}

// do sends an authenticated request and decodes a JSON response into target
// when provided. Non-2xx answers become *Error.
func (c *Client) do(ctx context.Context, token, method, path string, query url.Values, body, target any) error {
	req := c.rest.R().SetContext(ctx)
	if token != "" {
		req.SetAuthToken(token)
	}
	if body != nil {
		req.SetBody(body)
	}
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	log.Debugw("backend request", "method", method, "path", path,
		"status", resp.StatusCode(), "elapsed", time.Since(start).String())
	if resp.IsError() || resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return newError(resp.StatusCode(), resp.Body())
	}
	if target == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), target); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrMalformedResponse, method, path, err)
	}
	return nil
}

// CreateSetupIntent obtains a fresh SetupIntent for a subscription interval
// or a booking.
func (c *Client) CreateSetupIntent(ctx context.Context, token string, req *SetupIntentRequest) (*SetupIntent, error) {
	si := &SetupIntent{}
	if err := c.do(ctx, token, http.MethodPost, setupIntentPath, nil, req, si); err != nil {
		return nil, err
	}
	if si.SetupIntentID == "" || si.ClientSecret == "" {
		return nil, fmt.Errorf("%w: setup intent without id or client secret", ErrMalformedResponse)
	}
	return si, nil
}

// CreatePaymentIntent charges a booking using an authorized SetupIntent.
func (c *Client) CreatePaymentIntent(ctx context.Context, token string, req *PaymentIntentRequest) (*PaymentIntent, error) {
	pi := &PaymentIntent{}
	if err := c.do(ctx, token, http.MethodPost, paymentIntentsPath, nil, req, pi); err != nil {
		return nil, err
	}
	return pi, nil
}

// CreateSubscription creates the teacher subscription.
func (c *Client) CreateSubscription(ctx context.Context, token string, req *SubscriptionRequest) (*Subscription, error) {
	sub := &Subscription{}
	if err := c.do(ctx, token, http.MethodPost, subscriptionPath, nil, req, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// SubscriptionStatus returns the current subscription of the user.
func (c *Client) SubscriptionStatus(ctx context.Context, token string) (*SubscriptionStatus, error) {
	st := &SubscriptionStatus{}
	if err := c.do(ctx, token, http.MethodGet, subscriptionStatusPath, nil, nil, st); err != nil {
		return nil, err
	}
	return st, nil
}

// CancelSubscription cancels the current subscription and returns its new status.
func (c *Client) CancelSubscription(ctx context.Context, token string) (*SubscriptionStatus, error) {
	st := &SubscriptionStatus{}
	if err := c.do(ctx, token, http.MethodPost, subscriptionCancelPath, nil, struct{}{}, st); err != nil {
		return nil, err
	}
	return st, nil
}

// PaymentMethods lists the stored payment methods.
func (c *Client) PaymentMethods(ctx context.Context, token string) ([]PaymentMethod, error) {
	var pms []PaymentMethod
	if err := c.do(ctx, token, http.MethodGet, paymentMethodsPath, nil, nil, &pms); err != nil {
		return nil, err
	}
	return pms, nil
}

// AddPaymentMethod persists a payment method already tokenized by the vendor.
func (c *Client) AddPaymentMethod(ctx context.Context, token string, req *AddPaymentMethodRequest) (*PaymentMethod, error) {
	pm := &PaymentMethod{}
	if err := c.do(ctx, token, http.MethodPost, paymentMethodsPath, nil, req, pm); err != nil {
		return nil, err
	}
	return pm, nil
}

// DeletePaymentMethod removes a stored payment method.
func (c *Client) DeletePaymentMethod(ctx context.Context, token, id string) error {
	return c.do(ctx, token, http.MethodDelete, fmt.Sprintf(paymentMethodPath, url.PathEscape(id)), nil, nil, nil)
}

// SetDefaultPaymentMethod marks a stored payment method as default.
func (c *Client) SetDefaultPaymentMethod(ctx context.Context, token, id string) error {
	return c.do(ctx, token, http.MethodPost, fmt.Sprintf(paymentMethodDefaultFmt, url.PathEscape(id)), nil, struct{}{}, nil)
}

// Stories returns a page of the video feed.
func (c *Client) Stories(ctx context.Context, token string, q StoriesQuery) (*StoryPage, error) {
	query := url.Values{}
	if q.Cursor != "" {
		query.Set("cursor", q.Cursor)
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}
	page := &StoryPage{}
	if err := c.do(ctx, token, http.MethodGet, storiesPath, query, nil, page); err != nil {
		return nil, err
	}
	return page, nil
}

// Story returns a single story.
func (c *Client) Story(ctx context.Context, token, id string) (*Story, error) {
	s := &Story{}
	if err := c.do(ctx, token, http.MethodGet, fmt.Sprintf(storyPath, url.PathEscape(id)), nil, nil, s); err != nil {
		return nil, err
	}
	return s, nil
}
