package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/tutorhub/webfront/translate"
)

type fakeRequest struct {
	Method         string
	Path           string
	Form           url.Values
	IdempotencyKey string
}

type fakeStripe struct {
	mu       sync.Mutex
	requests []fakeRequest
	status   int
	body     string
}

func (f *fakeStripe) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	form, _ := url.ParseQuery(string(raw))
	f.mu.Lock()
	f.requests = append(f.requests, fakeRequest{
		Method:         r.Method,
		Path:           r.URL.Path,
		Form:           form,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	status, body := f.status, f.body
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Request-Id", "req_test")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (f *fakeStripe) all() []fakeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeRequest(nil), f.requests...)
}

func newTestClient(c *qt.C, status int, body string) (*Client, *fakeStripe) {
	fake := &fakeStripe{status: status, body: body}
	srv := httptest.NewServer(fake)
	c.Cleanup(srv.Close)
	client, err := NewClient(&Config{
		SecretKey:      "sk_test_123",
		PublishableKey: "pk_test_123",
		APIURL:         srv.URL,
	})
	c.Assert(err, qt.IsNil)
	return client, fake
}

func TestConfirmSetupIntentSucceeded(t *testing.T) {
	c := qt.New(t)
	client, fake := newTestClient(c, http.StatusOK,
		`{"id":"seti_123","object":"setup_intent","status":"succeeded","payment_method":"pm_1"}`)

	res, err := client.ConfirmSetupIntent(context.Background(), &ConfirmSetupParams{
		ClientSecret:    "seti_123_secret_abc",
		PaymentMethodID: "pm_1",
		ReturnURL:       "https://app.test/checkout?subscription=pending",
	})
	c.Assert(err, qt.IsNil)
	c.Assert(res.IntentID, qt.Equals, "seti_123")
	c.Assert(res.Status, qt.Equals, StatusSucceeded)
	c.Assert(res.RedirectURL, qt.Equals, "")
	c.Assert(res.PaymentMethodID, qt.Equals, "pm_1")

	reqs := fake.all()
	c.Assert(reqs, qt.HasLen, 1)
	c.Assert(reqs[0].Method, qt.Equals, http.MethodPost)
	c.Assert(reqs[0].Path, qt.Equals, "/v1/setup_intents/seti_123/confirm")
	c.Assert(reqs[0].Form.Get("payment_method"), qt.Equals, "pm_1")
	c.Assert(reqs[0].Form.Get("return_url"), qt.Equals, "https://app.test/checkout?subscription=pending")
	c.Assert(reqs[0].IdempotencyKey, qt.Not(qt.Equals), "")
}

func TestConfirmSetupIntentRedirect(t *testing.T) {
	c := qt.New(t)
	client, _ := newTestClient(c, http.StatusOK, `{
		"id":"seti_123","object":"setup_intent","status":"requires_action",
		"next_action":{"type":"redirect_to_url","redirect_to_url":{"url":"https://paypal.test/authorize","return_url":"https://app.test"}}
	}`)

	res, err := client.ConfirmSetupIntent(context.Background(), &ConfirmSetupParams{
		ClientSecret:    "seti_123_secret_abc",
		PaymentMethodID: "pm_paypal",
	})
	c.Assert(err, qt.IsNil)
	c.Assert(res.RedirectURL, qt.Equals, "https://paypal.test/authorize")
}

func TestConfirmSetupIntentLastError(t *testing.T) {
	c := qt.New(t)
	client, _ := newTestClient(c, http.StatusOK, `{
		"id":"seti_123","object":"setup_intent","status":"requires_payment_method",
		"last_setup_error":{"code":"setup_intent_authentication_failure","message":"auth failed","type":"invalid_request_error"}
	}`)

	_, err := client.ConfirmSetupIntent(context.Background(), &ConfirmSetupParams{
		ClientSecret:    "seti_123_secret_abc",
		PaymentMethodID: "pm_1",
	})
	se, ok := AsStripeError(err)
	c.Assert(ok, qt.IsTrue)
	c.Assert(se.Code, qt.Equals, "setup_intent_authentication_failure")
	c.Assert(se.MessageID(), qt.Equals, translate.ErrAuthenticationFailed)
}

func TestConfirmSetupIntentDeclined(t *testing.T) {
	c := qt.New(t)
	client, _ := newTestClient(c, http.StatusPaymentRequired, `{"error":{
		"type":"card_error","code":"card_declined","decline_code":"insufficient_funds",
		"message":"Your card has insufficient funds."}}`)

	_, err := client.ConfirmSetupIntent(context.Background(), &ConfirmSetupParams{
		ClientSecret:    "seti_123_secret_abc",
		PaymentMethodID: "pm_1",
	})
	se, ok := AsStripeError(err)
	c.Assert(ok, qt.IsTrue)
	c.Assert(se.Code, qt.Equals, "card_declined")
	c.Assert(se.DeclineCode, qt.Equals, "insufficient_funds")
	c.Assert(se.MessageID(), qt.Equals, translate.ErrInsufficientFunds)
}

func TestConfirmSetupIntentPreconditions(t *testing.T) {
	c := qt.New(t)
	client, fake := newTestClient(c, http.StatusOK, `{}`)

	_, err := client.ConfirmSetupIntent(context.Background(), &ConfirmSetupParams{
		ClientSecret:    "not-a-secret",
		PaymentMethodID: "pm_1",
	})
	c.Assert(err, qt.ErrorIs, ErrMissingClientSecret)

	_, err = client.ConfirmSetupIntent(context.Background(), &ConfirmSetupParams{
		ClientSecret: "seti_123_secret_abc",
	})
	c.Assert(err, qt.ErrorIs, ErrMissingPaymentMethod)
	c.Assert(fake.all(), qt.HasLen, 0)
}

func TestConfirmCardPayment(t *testing.T) {
	c := qt.New(t)
	client, fake := newTestClient(c, http.StatusOK,
		`{"id":"pi_9","object":"payment_intent","status":"succeeded"}`)

	res, err := client.ConfirmCardPayment(context.Background(), "pi_9_secret_zz", "", "")
	c.Assert(err, qt.IsNil)
	c.Assert(res.IntentID, qt.Equals, "pi_9")
	c.Assert(res.Status, qt.Equals, StatusSucceeded)

	reqs := fake.all()
	c.Assert(reqs, qt.HasLen, 1)
	c.Assert(reqs[0].Path, qt.Equals, "/v1/payment_intents/pi_9/confirm")
	c.Assert(reqs[0].Form.Has("payment_method"), qt.IsFalse)
}

func TestConfirmCardPaymentCanceled(t *testing.T) {
	c := qt.New(t)
	client, _ := newTestClient(c, http.StatusOK,
		`{"id":"pi_9","object":"payment_intent","status":"canceled"}`)

	_, err := client.ConfirmCardPayment(context.Background(), "pi_9_secret_zz", "pm_1", "")
	se, ok := AsStripeError(err)
	c.Assert(ok, qt.IsTrue)
	c.Assert(se.MessageID(), qt.Equals, translate.ErrPaymentCanceled)
}

func TestCreatePaymentMethod(t *testing.T) {
	c := qt.New(t)
	client, fake := newTestClient(c, http.StatusOK, `{"id":"pm_new","object":"payment_method","type":"card"}`)

	id, err := client.CreatePaymentMethod(context.Background(), &PaymentMethodParams{
		Type:      PaymentMethodCard,
		CardToken: "tok_visa",
		Name:      "Ada",
	})
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.Equals, "pm_new")
	reqs := fake.all()
	c.Assert(reqs, qt.HasLen, 1)
	c.Assert(reqs[0].Path, qt.Equals, "/v1/payment_methods")
	c.Assert(reqs[0].Form.Get("type"), qt.Equals, "card")
	c.Assert(reqs[0].Form.Get("card[token]"), qt.Equals, "tok_visa")
	c.Assert(reqs[0].Form.Get("billing_details[name]"), qt.Equals, "Ada")

	_, err = client.CreatePaymentMethod(context.Background(), &PaymentMethodParams{Type: PaymentMethodCard})
	c.Assert(err, qt.ErrorMatches, ".*card token is required.*")

	_, err = client.CreatePaymentMethod(context.Background(), &PaymentMethodParams{Type: "iban"})
	c.Assert(err, qt.ErrorMatches, ".*unsupported payment method type iban.*")
	c.Assert(fake.all(), qt.HasLen, 1)
}

func TestMessageID(t *testing.T) {
	c := qt.New(t)
	tests := []struct {
		code, decline, want string
	}{
		{"card_declined", "", translate.ErrCardDeclined},
		{"card_declined", "insufficient_funds", translate.ErrInsufficientFunds},
		{"expired_card", "", translate.ErrExpiredCard},
		{"incorrect_cvc", "", translate.ErrIncorrectCVC},
		{"processing_error", "", translate.ErrProcessingError},
		{"payment_method_provider_decline", "", translate.ErrProviderDeclined},
		{"something_new", "", translate.ErrGeneric},
	}
	for _, tt := range tests {
		c.Run(fmt.Sprintf("%s/%s", tt.code, tt.decline), func(c *qt.C) {
			e := &StripeError{Code: tt.code, DeclineCode: tt.decline, Message: "raw vendor text"}
			c.Assert(e.MessageID(), qt.Equals, tt.want)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	c := qt.New(t)
	c.Assert((&Config{SecretKey: "sk_test_1"}).Validate(), qt.IsNil)
	c.Assert((&Config{}).Validate(), qt.IsNotNil)
	c.Assert((&Config{SecretKey: "pk_test_1"}).Validate(), qt.IsNotNil)
	c.Assert((&Config{SecretKey: "sk_test_1", PublishableKey: "sk_oops"}).Validate(), qt.IsNotNil)
	var nilConf *Config
	c.Assert(nilConf.Validate(), qt.ErrorIs, ErrInvalidConfiguration)
}

// the raw error must survive for logs
func TestStripeErrorUnwrap(t *testing.T) {
	c := qt.New(t)
	inner := json.Unmarshal([]byte("{"), &struct{}{})
	err := NewStripeError("api_call_failed", "boom", inner)
	c.Assert(err, qt.ErrorIs, inner)
}
