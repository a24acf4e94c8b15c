package checkout

import (
	"context"
	"sync"

	"github.com/tutorhub/webfront/backend"
	"github.com/tutorhub/webfront/stripe"
	"github.com/tutorhub/webfront/translate"
)

const (
	opSetupIntent   = "setup-intent"
	opSubscription  = "subscription"
	opPaymentIntent = "payment-intent"
	opStatus        = "subscription-status"
	opConfirmSetup  = "confirm-setup"
	opConfirmCard   = "confirm-card"
)

type fakeBackend struct {
	mu    sync.Mutex
	calls map[string]int

	setupIntent   *backend.SetupIntent
	setupErr      error
	subscription  *backend.Subscription
	subErr        error
	paymentIntent *backend.PaymentIntent
	piErr         error
	status        *backend.SubscriptionStatus
	statusErr     error

	// rejected tokens get a 403, as the backend answers another user's intent
	rejected map[string]bool
	tokens   []string

	lastSubscription  *backend.SubscriptionRequest
	lastPaymentIntent *backend.PaymentIntentRequest

	// block, when set, holds every call until it is closed
	block  chan struct{}
	onCall func(op string)
}

func (b *fakeBackend) record(op, token string) error {
	b.mu.Lock()
	if b.calls == nil {
		b.calls = map[string]int{}
	}
	b.calls[op]++
	b.tokens = append(b.tokens, token)
	hook, block, rejected := b.onCall, b.block, b.rejected[token]
	b.mu.Unlock()
	if hook != nil {
		hook(op)
	}
	if block != nil {
		<-block
	}
	if rejected {
		return &backend.Error{StatusCode: 403, Message: "Forbidden"}
	}
	return nil
}

func (b *fakeBackend) seenTokens() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.tokens...)
}

func (b *fakeBackend) count(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

func (b *fakeBackend) total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

func (b *fakeBackend) CreateSetupIntent(_ context.Context, token string, _ *backend.SetupIntentRequest) (*backend.SetupIntent, error) {
	if err := b.record(opSetupIntent, token); err != nil {
		return nil, err
	}
	return b.setupIntent, b.setupErr
}

func (b *fakeBackend) CreatePaymentIntent(_ context.Context, token string, req *backend.PaymentIntentRequest) (*backend.PaymentIntent, error) {
	b.mu.Lock()
	b.lastPaymentIntent = req
	b.mu.Unlock()
	if err := b.record(opPaymentIntent, token); err != nil {
		return nil, err
	}
	return b.paymentIntent, b.piErr
}

func (b *fakeBackend) CreateSubscription(_ context.Context, token string, req *backend.SubscriptionRequest) (*backend.Subscription, error) {
	b.mu.Lock()
	b.lastSubscription = req
	b.mu.Unlock()
	if err := b.record(opSubscription, token); err != nil {
		return nil, err
	}
	return b.subscription, b.subErr
}

func (b *fakeBackend) SubscriptionStatus(_ context.Context, token string) (*backend.SubscriptionStatus, error) {
	if err := b.record(opStatus, token); err != nil {
		return nil, err
	}
	return b.status, b.statusErr
}

type fakeVendor struct {
	mu    sync.Mutex
	calls map[string]int

	setupResult *stripe.ConfirmResult
	setupErr    error
	cardResult  *stripe.ConfirmResult
	cardErr     error

	lastSetup     *stripe.ConfirmSetupParams
	lastSecret    string
	lastReturnURL string
}

func (v *fakeVendor) record(op string) {
	if v.calls == nil {
		v.calls = map[string]int{}
	}
	v.calls[op]++
}

func (v *fakeVendor) count(op string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls[op]
}

func (v *fakeVendor) ConfirmSetupIntent(_ context.Context, p *stripe.ConfirmSetupParams) (*stripe.ConfirmResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.record(opConfirmSetup)
	v.lastSetup = p
	return v.setupResult, v.setupErr
}

func (v *fakeVendor) ConfirmCardPayment(_ context.Context, clientSecret, _, returnURL string) (*stripe.ConfirmResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.record(opConfirmCard)
	v.lastSecret = clientSecret
	v.lastReturnURL = returnURL
	return v.cardResult, v.cardErr
}

type fakeAlerter struct {
	mu     sync.Mutex
	events []UnexpectedState
}

func (a *fakeAlerter) UnexpectedState(_ context.Context, ev *UnexpectedState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, *ev)
}

func (a *fakeAlerter) all() []UnexpectedState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]UnexpectedState(nil), a.events...)
}

type callbackRecorder struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (r *callbackRecorder) callbacks() Callbacks {
	return Callbacks{
		OnSuccess: func(id string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.successes = append(r.successes, id)
		},
		OnError: func(msg string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errors = append(r.errors, msg)
		},
	}
}

func (r *callbackRecorder) got() (successes, errors []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.successes...), append([]string(nil), r.errors...)
}

type testEnv struct {
	backend *fakeBackend
	vendor  *fakeVendor
	alerter *fakeAlerter
	ledger  *MemoryLedger
	svc     *Service
}

var testTranslator = translate.MustNew()

func newTestEnv() *testEnv {
	env := &testEnv{
		backend: &fakeBackend{},
		vendor:  &fakeVendor{},
		alerter: &fakeAlerter{},
		ledger:  NewMemoryLedger(0),
	}
	svc, err := NewService(&Config{
		Backend:    env.backend,
		Vendor:     env.vendor,
		Translator: testTranslator,
		Ledger:     env.ledger,
		Alerter:    env.alerter,
	})
	if err != nil {
		panic(err)
	}
	env.svc = svc
	return env
}

func (env *testEnv) subscriptionFlow(rec *callbackRecorder) *Flow {
	return env.svc.NewFlow(&FlowParams{
		Kind:      KindSubscription,
		Token:     "tok",
		Lang:      "en",
		Interval:  "month",
		Callbacks: rec.callbacks(),
	})
}

func (env *testEnv) bookingFlow(rec *callbackRecorder) *Flow {
	return env.svc.NewFlow(&FlowParams{
		Kind:      KindBooking,
		Token:     "tok",
		Lang:      "en",
		BookingID: "bk_1",
		Callbacks: rec.callbacks(),
	})
}

func (env *testEnv) flowFor(kind Kind, token string, rec *callbackRecorder) *Flow {
	return env.svc.NewFlow(&FlowParams{
		Kind:      kind,
		Token:     token,
		Lang:      "en",
		Interval:  "month",
		BookingID: "bk_1",
		Callbacks: rec.callbacks(),
	})
}

func strPtr(s string) *string { return &s }
