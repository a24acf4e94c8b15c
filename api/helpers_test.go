package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/jwtauth/v5"
	"github.com/tutorhub/webfront/backend"
	"github.com/tutorhub/webfront/checkout"
	"github.com/tutorhub/webfront/metrics"
	"github.com/tutorhub/webfront/stripe"
	"github.com/tutorhub/webfront/translate"
)

const (
	testSecret    = "super-secret"
	testWebAppURL = "https://app.test"
	testServerURL = "https://api.test"
	testUserID    = "user-1"
)

type backendCall struct {
	Method string
	Path   string
	Auth   string
	Body   string
	Query  url.Values
}

type fakeResponse struct {
	status int
	body   string
}

// fakeBackend is the REST backend, answering from a route table.
type fakeBackend struct {
	mu        sync.Mutex
	calls     []backendCall
	responses map[string]fakeResponse
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{responses: map[string]fakeResponse{
		"POST /setup-intent": {http.StatusOK, `{"clientSecret":"seti_1_secret_abc","setupIntentId":"seti_1"}`},
	}}
}

func (f *fakeBackend) set(route string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[route] = fakeResponse{status, body}
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	route := r.Method + " " + r.URL.Path
	f.mu.Lock()
	f.calls = append(f.calls, backendCall{
		Method: r.Method,
		Path:   r.URL.Path,
		Auth:   r.Header.Get("Authorization"),
		Body:   string(body),
		Query:  r.URL.Query(),
	})
	resp, ok := f.responses[route]
	f.mu.Unlock()
	if !ok {
		resp = fakeResponse{http.StatusNotFound, `{"error":"not found"}`}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	_, _ = io.WriteString(w, resp.body)
}

func (f *fakeBackend) count(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Method+" "+c.Path == route {
			n++
		}
	}
	return n
}

func (f *fakeBackend) last(route string) backendCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if c := f.calls[i]; c.Method+" "+c.Path == route {
			return c
		}
	}
	return backendCall{}
}

// fakeVendor stands for the payment SDK.
type fakeVendor struct {
	mu           sync.Mutex
	confirmRes   *stripe.ConfirmResult
	confirmErr   error
	setupParams  []stripe.ConfirmSetupParams
	paymentID    string
	paymentErr   error
	methodParams []stripe.PaymentMethodParams
}

func (v *fakeVendor) ConfirmSetupIntent(_ context.Context, p *stripe.ConfirmSetupParams) (*stripe.ConfirmResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setupParams = append(v.setupParams, *p)
	if v.confirmErr != nil {
		return nil, v.confirmErr
	}
	if v.confirmRes != nil {
		return v.confirmRes, nil
	}
	return &stripe.ConfirmResult{IntentID: "seti_1", Status: stripe.StatusSucceeded, PaymentMethodID: p.PaymentMethodID}, nil
}

func (v *fakeVendor) ConfirmCardPayment(_ context.Context, _, _, _ string) (*stripe.ConfirmResult, error) {
	return &stripe.ConfirmResult{IntentID: "pi_invoice", Status: stripe.StatusSucceeded}, nil
}

func (v *fakeVendor) CreatePaymentMethod(_ context.Context, p *stripe.PaymentMethodParams) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.methodParams = append(v.methodParams, *p)
	return v.paymentID, v.paymentErr
}

func (*fakeVendor) PublishableKey() string {
	return "pk_test_123"
}

type testEnv struct {
	e       *httpexpect.Expect
	backend *fakeBackend
	vendor  *fakeVendor
	metrics *metrics.Metrics
	token   string
}

// newTestEnv serves the API router against a fake backend and vendor. The
// client does not follow redirects.
func newTestEnv(t *testing.T) *testEnv {
	c := qt.New(t)
	fb := newFakeBackend()
	backendSrv := httptest.NewServer(fb)
	t.Cleanup(backendSrv.Close)
	bc, err := backend.New(&backend.Config{BaseURL: backendSrv.URL})
	c.Assert(err, qt.IsNil)

	vendor := &fakeVendor{paymentID: "pm_new"}
	tr := translate.MustNew()
	m := metrics.New()
	svc, err := checkout.NewService(&checkout.Config{
		Backend:    bc,
		Vendor:     vendor,
		Translator: tr,
		Metrics:    m,
	})
	c.Assert(err, qt.IsNil)
	a, err := New(&Config{
		Secret:     testSecret,
		WebAppURL:  testWebAppURL,
		ServerURL:  testServerURL,
		Backend:    bc,
		Checkout:   svc,
		Tokenizer:  vendor,
		Translator: tr,
		Metrics:    m,
	})
	c.Assert(err, qt.IsNil)
	srv := httptest.NewServer(a.Router())
	t.Cleanup(srv.Close)

	e := httpexpect.WithConfig(httpexpect.Config{
		BaseURL:  srv.URL,
		Reporter: httpexpect.NewAssertReporter(t),
		Client: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	})
	return &testEnv{e: e, backend: fb, vendor: vendor, metrics: m, token: testToken(c, testUserID)}
}

func testToken(c *qt.C, userID string) string {
	_, token, err := jwtAuthForTest().Encode(map[string]any{userIDClaim: userID})
	c.Assert(err, qt.IsNil)
	return token
}

// request builds an authenticated request.
func (env *testEnv) request(method, path string) *httpexpect.Request {
	return env.e.Request(method, path).WithHeader("Authorization", "Bearer "+env.token)
}

func jwtAuthForTest() *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(testSecret), nil)
}

func translatorForTest() *translate.Translator {
	return translate.MustNew()
}
