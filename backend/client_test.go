package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"
)

const testToken = "test-token"

type recorded struct {
	method string
	path   string
	query  string
	auth   string
	body   map[string]any
}

type recorder struct {
	mu    sync.Mutex
	calls []recorded
}

func (r *recorder) all() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded(nil), r.calls...)
}

// testServer answers every request with status and body, recording what it got.
func testServer(t *testing.T, status int, body string) (*Client, *recorder) {
	t.Helper()
	rc := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, auth: r.Header.Get("Authorization")}
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			_ = json.Unmarshal(raw, &rec.body)
		}
		rc.mu.Lock()
		rc.calls = append(rc.calls, rec)
		rc.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	c, err := New(&Config{BaseURL: srv.URL + "/"})
	if err != nil {
		t.Fatal(err)
	}
	return c, rc
}

func TestCreateSetupIntent(t *testing.T) {
	c := qt.New(t)
	cli, calls := testServer(t, http.StatusOK, `{"clientSecret":"seti_1_secret_x","setupIntentId":"seti_1"}`)

	si, err := cli.CreateSetupIntent(context.Background(), testToken, &SetupIntentRequest{Interval: "month"})
	c.Assert(err, qt.IsNil)
	c.Assert(si.SetupIntentID, qt.Equals, "seti_1")
	c.Assert(si.ClientSecret, qt.Equals, "seti_1_secret_x")
	c.Assert(calls.all(), qt.HasLen, 1)
	got := calls.all()[0]
	c.Assert(got.method, qt.Equals, http.MethodPost)
	c.Assert(got.path, qt.Equals, "/setup-intent")
	c.Assert(got.auth, qt.Equals, "Bearer "+testToken)
	c.Assert(got.body, qt.DeepEquals, map[string]any{"interval": "month"})
}

func TestCreateSetupIntentIncomplete(t *testing.T) {
	c := qt.New(t)
	cli, _ := testServer(t, http.StatusOK, `{"setupIntentId":"seti_1"}`)
	_, err := cli.CreateSetupIntent(context.Background(), testToken, &SetupIntentRequest{BookingID: "bk_1"})
	c.Assert(errors.Is(err, ErrMalformedResponse), qt.IsTrue)
}

func TestCreateSubscription(t *testing.T) {
	c := qt.New(t)
	cli, calls := testServer(t, http.StatusCreated,
		`{"subscriptionId":"sub_1","status":"incomplete","clientSecret":"pi_1_secret","requiresPaymentMethod":false}`)

	sub, err := cli.CreateSubscription(context.Background(), testToken,
		&SubscriptionRequest{Interval: "year", SetupIntentID: "seti_1"})
	c.Assert(err, qt.IsNil)
	c.Assert(sub.Status, qt.Equals, "incomplete")
	c.Assert(sub.ClientSecret, qt.IsNotNil)
	c.Assert(*sub.ClientSecret, qt.Equals, "pi_1_secret")
	c.Assert(calls.all()[0].path, qt.Equals, "/teachers/subscription")
	c.Assert(calls.all()[0].body, qt.DeepEquals, map[string]any{"interval": "year", "setup_intent_id": "seti_1"})
}

func TestErrorExtraction(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		message  string
		fallback bool
	}{
		{"error field", http.StatusBadRequest, `{"error":"booking already paid"}`, "booking already paid", false},
		{"message field", http.StatusConflict, `{"message":"interval not allowed"}`, "interval not allowed", false},
		{"error wins over message", http.StatusBadRequest, `{"error":"first","message":"second"}`, "first", false},
		{"empty body", http.StatusInternalServerError, ``, "request failed with status 500", true},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`, "request failed with status 502", true},
		{"non string error", http.StatusBadRequest, `{"error":{"code":1}}`, "request failed with status 400", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := qt.New(t)
			cli, _ := testServer(t, tc.status, tc.body)
			_, err := cli.CreatePaymentIntent(context.Background(), testToken,
				&PaymentIntentRequest{BookingID: "bk_1", SetupIntentID: "seti_1"})
			be, ok := AsError(err)
			c.Assert(ok, qt.IsTrue, qt.Commentf("error: %v", err))
			c.Assert(be.StatusCode, qt.Equals, tc.status)
			c.Assert(be.Message, qt.Equals, tc.message)
			c.Assert(be.Fallback, qt.Equals, tc.fallback)
		})
	}
}

func TestMalformedSuccessBody(t *testing.T) {
	c := qt.New(t)
	cli, _ := testServer(t, http.StatusOK, `{"status":`)
	_, err := cli.CreatePaymentIntent(context.Background(), testToken, &PaymentIntentRequest{})
	c.Assert(errors.Is(err, ErrMalformedResponse), qt.IsTrue)
	_, isBackend := AsError(err)
	c.Assert(isBackend, qt.IsFalse)
}

func TestPaymentMethodsAndStories(t *testing.T) {
	c := qt.New(t)
	cli, calls := testServer(t, http.StatusOK, `{}`)
	ctx := context.Background()

	c.Assert(cli.DeletePaymentMethod(ctx, testToken, "pm_1"), qt.IsNil)
	c.Assert(cli.SetDefaultPaymentMethod(ctx, testToken, "pm 2"), qt.IsNil)
	_, err := cli.Stories(ctx, testToken, StoriesQuery{Cursor: "abc", Limit: 10})
	c.Assert(err, qt.IsNil)
	_, err = cli.Story(ctx, testToken, "st_1")
	c.Assert(err, qt.IsNil)

	c.Assert(calls.all(), qt.HasLen, 4)
	c.Assert(calls.all()[0].method, qt.Equals, http.MethodDelete)
	c.Assert(calls.all()[0].path, qt.Equals, "/payment-methods/pm_1")
	c.Assert(calls.all()[1].path, qt.Equals, "/payment-methods/pm 2/default")
	c.Assert(calls.all()[2].query, qt.Equals, "cursor=abc&limit=10")
	c.Assert(calls.all()[3].path, qt.Equals, "/stories/st_1")
}

func TestNewValidatesBaseURL(t *testing.T) {
	c := qt.New(t)
	_, err := New(&Config{})
	c.Assert(err, qt.IsNotNil)
	_, err = New(&Config{BaseURL: "not a url"})
	c.Assert(err, qt.IsNotNil)
}
