package checkout

import (
	"context"
	"net/url"
	"sync"

	"github.com/tutorhub/webfront/backend"
	"github.com/tutorhub/webfront/internal/log"
	"github.com/tutorhub/webfront/stripe"
	"github.com/tutorhub/webfront/translate"
)

// Operation names used in logs and metrics.
const (
	OpInit      = "init"
	OpConfirm   = "confirm"
	OpReconcile = "reconcile"
)

// Flow is one checkout instance, the equivalent of a mounted payment form.
// Its methods are safe for concurrent use.
type Flow struct {
	svc       *Service
	kind      Kind
	owner     string
	token     string
	lang      string
	interval  string
	bookingID string
	callbacks Callbacks

	mu    sync.Mutex
	state State
}

// ConfirmRequest submits the payment form.
type ConfirmRequest struct {
	PaymentMethodID string
	// PageURL is the page the form lives on; the redirect return URL is built
	// from its origin and path.
	PageURL *url.URL
	// ClientSecret of the setup intent, when it was not obtained by Init on
	// this same flow.
	ClientSecret string
}

// Kind returns the flow kind.
func (f *Flow) Kind() Kind {
	return f.kind
}

// State returns a copy of the flow state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// SetSetupIntent restores the setup intent obtained by a previous Init.
func (f *Flow) SetSetupIntent(clientSecret, setupIntentID string) {
	f.update(func(s *State) {
		s.ClientSecret = clientSecret
		s.SetupIntentID = setupIntentID
		if clientSecret != "" {
			s.Phase = PhaseReady
		}
	})
}

func (f *Flow) update(fn func(s *State)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.state)
}

// Start runs reconciliation for the page URL and, only when there is nothing
// to reconcile, initializes a fresh checkout.
func (f *Flow) Start(ctx context.Context, page *url.URL) (*Outcome, error) {
	out, err := f.Reconcile(ctx, ParseReturnContext(page))
	if err != nil || out.Phase != PhaseIdle {
		return out, err
	}
	return f.Init(ctx)
}

// Init obtains a setup intent from the backend. Failures are terminal for
// this flow; there is no retry.
func (f *Flow) Init(ctx context.Context) (*Outcome, error) {
	req := &backend.SetupIntentRequest{}
	switch f.kind {
	case KindSubscription:
		req.Interval = f.interval
	case KindBooking:
		req.BookingID = f.bookingID
	}
	if req.Interval == "" && req.BookingID == "" {
		return f.failed(ctx, &Outcome{}, OpInit, ErrMissingTarget), nil
	}

	f.update(func(s *State) {
		s.Loading = true
		s.Error = ""
	})
	si, err := f.svc.backend.CreateSetupIntent(ctx, f.token, req)
	if f.discarded(ctx, OpInit) {
		return nil, ctx.Err()
	}
	if err != nil {
		return f.failed(ctx, &Outcome{}, OpInit, classify(err, translate.ErrSetupIntentFailed)), nil
	}
	f.update(func(s *State) {
		s.Loading = false
		s.Phase = PhaseReady
		s.ClientSecret = si.ClientSecret
		s.SetupIntentID = si.SetupIntentID
	})
	log.Infow("checkout initialized", "flow", f.kind, "setupIntent", si.SetupIntentID)
	f.svc.metrics.ObserveOutcome(f.kind, OpInit, PhaseReady, "")
	return &Outcome{Phase: PhaseReady}, nil
}

// Confirm submits the payment method to the vendor. When the payment method
// needs an off-site authorization the outcome carries the redirect URL and
// nothing else happens; otherwise exactly one backend create call follows.
func (f *Flow) Confirm(ctx context.Context, req *ConfirmRequest) (*Outcome, error) {
	st := f.State()
	secret := req.ClientSecret
	if secret == "" {
		secret = st.ClientSecret
	}
	switch {
	case secret == "":
		return f.failed(ctx, &Outcome{}, OpConfirm, ErrNotInitialized), nil
	case req.PaymentMethodID == "":
		return f.failed(ctx, &Outcome{}, OpConfirm, ErrMissingPaymentMethod), nil
	case f.interval == "" && f.bookingID == "":
		return f.failed(ctx, &Outcome{}, OpConfirm, ErrMissingTarget), nil
	}
	returnURL := ""
	if req.PageURL != nil {
		returnURL = BuildReturnURL(req.PageURL, f.kind, f.interval, f.bookingID)
	}

	f.update(func(s *State) {
		s.Loading = true
		s.Error = ""
	})
	res, err := f.svc.vendor.ConfirmSetupIntent(ctx, &stripe.ConfirmSetupParams{
		ClientSecret:    secret,
		PaymentMethodID: req.PaymentMethodID,
		ReturnURL:       returnURL,
	})
	if f.discarded(ctx, OpConfirm) {
		return nil, ctx.Err()
	}
	if err != nil {
		return f.failed(ctx, &Outcome{}, OpConfirm, classify(err, translate.ErrGeneric)), nil
	}
	if res.RedirectURL != "" {
		return f.redirect(OpConfirm, res.RedirectURL), nil
	}

	setupIntentID := res.IntentID
	if setupIntentID == "" {
		setupIntentID = st.SetupIntentID
	}
	f.update(func(s *State) { s.SetupIntentID = setupIntentID })
	if f.kind == KindSubscription {
		return f.createSubscription(ctx, setupIntentID, req.PaymentMethodID, returnURL)
	}
	return f.createBookingPayment(ctx, setupIntentID)
}

func (f *Flow) createSubscription(ctx context.Context, setupIntentID, paymentMethodID, returnURL string) (*Outcome, error) {
	sub, err := f.svc.backend.CreateSubscription(ctx, f.token, &backend.SubscriptionRequest{
		Interval:      f.interval,
		SetupIntentID: setupIntentID,
	})
	if f.discarded(ctx, OpConfirm) {
		return nil, ctx.Err()
	}
	if err != nil {
		return f.failed(ctx, &Outcome{}, OpConfirm, classify(err, translate.ErrBackendGeneric)), nil
	}

	switch {
	case sub.Status == StatusActive:
		return f.succeeded(&Outcome{}, OpConfirm, sub.SubscriptionID, sub.Status), nil
	case sub.Status == StatusIncomplete && sub.ClientSecret != nil && *sub.ClientSecret != "":
		// the first invoice needs strong customer authentication
		res, err := f.svc.vendor.ConfirmCardPayment(ctx, *sub.ClientSecret, paymentMethodID,
			cardPaymentReturnURL(returnURL, sub.SubscriptionID))
		if f.discarded(ctx, OpConfirm) {
			return nil, ctx.Err()
		}
		if err != nil {
			return f.failed(ctx, &Outcome{}, OpConfirm, classify(err, translate.ErrGeneric)), nil
		}
		if res.RedirectURL != "" {
			return f.redirect(OpConfirm, res.RedirectURL), nil
		}
		return f.succeeded(&Outcome{}, OpConfirm, sub.SubscriptionID, res.Status), nil
	case sub.RequiresPaymentMethod:
		return f.failed(ctx, &Outcome{}, OpConfirm, &Error{
			Kind:      KindVendor,
			MessageID: translate.ErrRequiresDifferentPaymentMethod,
			Status:    sub.Status,
		}), nil
	default:
		return f.failed(ctx, &Outcome{ResultID: sub.SubscriptionID}, OpConfirm, unexpectedStatus(sub.Status)), nil
	}
}

func (f *Flow) createBookingPayment(ctx context.Context, setupIntentID string) (*Outcome, error) {
	pi, err := f.svc.backend.CreatePaymentIntent(ctx, f.token, &backend.PaymentIntentRequest{
		BookingID:     f.bookingID,
		SetupIntentID: setupIntentID,
	})
	if f.discarded(ctx, OpConfirm) {
		return nil, ctx.Err()
	}
	if err != nil {
		return f.failed(ctx, &Outcome{}, OpConfirm, classify(err, translate.ErrBackendGeneric)), nil
	}

	switch pi.Status {
	case StatusSucceeded:
		return f.succeeded(&Outcome{}, OpConfirm, pi.PaymentIntentID, pi.Status), nil
	case StatusRequiresAction, StatusRequiresConfirmation:
		// redirect-resolved payments never need a second action
		return f.failed(ctx, &Outcome{ResultID: pi.PaymentIntentID}, OpConfirm, &Error{
			Kind:      KindVendor,
			MessageID: translate.ErrPaymentRequiresAction,
			Status:    pi.Status,
		}), nil
	default:
		return f.failed(ctx, &Outcome{ResultID: pi.PaymentIntentID}, OpConfirm, unexpectedStatus(pi.Status)), nil
	}
}

// Reconcile resumes the flow after a vendor redirect. An idle context, a
// context of the other flow kind or one missing correlation data returns an
// idle outcome without any network call. Both resolutions carry the cleaned
// page URL.
func (f *Flow) Reconcile(ctx context.Context, rc ReturnContext) (*Outcome, error) {
	spec := returnSpecFor(rc)
	if spec == nil || rc.Kind != f.kind || !spec.pending(rc) {
		return &Outcome{Phase: PhaseIdle}, nil
	}

	f.update(func(s *State) {
		s.Phase = PhaseProcessing
		s.IsProcessing = true
		s.Error = ""
		if rc.SetupIntent != "" {
			s.SetupIntentID = rc.SetupIntent
		}
	})
	log.Infow("reconciling redirect return", "flow", f.kind, "setupIntent", rc.SetupIntent, "paymentIntent", rc.PaymentIntent)
	res, err := f.svc.resolveReturn(ctx, spec, f.owner, f.token, rc)
	if f.discarded(ctx, OpReconcile) {
		return nil, ctx.Err()
	}

	out := &Outcome{CleanURL: rc.CleanURL()}
	if err != nil {
		return f.failed(ctx, out, OpReconcile, classify(err, translate.ErrBackendGeneric)), nil
	}
	if !spec.Accept(res.Status) {
		out.ResultID = res.ResultID
		return f.failed(ctx, out, OpReconcile, unexpectedStatus(res.Status)), nil
	}
	if res.Replayed {
		log.Infow("redirect return already reconciled", "flow", f.kind, "setupIntent", rc.SetupIntent, "paymentIntent", rc.PaymentIntent)
	}
	return f.succeeded(out, OpReconcile, res.ResultID, res.Status), nil
}

// discarded reports whether the caller went away while a call was in
// flight. The result is then dropped without touching state or callbacks.
func (f *Flow) discarded(ctx context.Context, op string) bool {
	if ctx.Err() == nil {
		return false
	}
	log.Debugw("discarding result of cancelled operation", "flow", f.kind, "op", op)
	return true
}

func (f *Flow) redirect(op, redirectURL string) *Outcome {
	f.update(func(s *State) {
		s.Loading = false
		s.Phase = PhaseRedirect
	})
	log.Infow("payment method requires redirect", "flow", f.kind, "op", op)
	f.svc.metrics.ObserveOutcome(f.kind, op, PhaseRedirect, "")
	return &Outcome{Phase: PhaseRedirect, Redirect: redirectURL}
}

func (f *Flow) succeeded(out *Outcome, op, resultID, status string) *Outcome {
	f.update(func(s *State) {
		s.Loading = false
		s.IsProcessing = false
		s.Phase = PhaseSucceeded
		s.Error = ""
	})
	log.Infow("checkout succeeded", "flow", f.kind, "op", op, "result", resultID, "status", status)
	f.svc.metrics.ObserveOutcome(f.kind, op, PhaseSucceeded, "")
	if f.callbacks.OnSuccess != nil {
		f.callbacks.OnSuccess(resultID)
	}
	out.Phase = PhaseSucceeded
	out.ResultID = resultID
	out.Status = status
	return out
}

// failed surfaces e: translated into the state, delivered once to OnError
// and, for unexpected states, reported to developers.
func (f *Flow) failed(ctx context.Context, out *Outcome, op string, e *Error) *Outcome {
	msg := f.message(e)
	var setupIntentID string
	f.update(func(s *State) {
		s.Loading = false
		s.IsProcessing = false
		s.Phase = PhaseFailed
		s.Error = msg
		setupIntentID = s.SetupIntentID
	})

	switch e.Kind {
	case KindUnexpectedState:
		log.Errorw(e, "unexpected payment status", "flow", f.kind, "op", op, "status", e.Status, "setupIntent", setupIntentID)
		f.svc.metrics.ObserveUnexpectedStatus(f.kind, e.Status)
		f.svc.alerter.UnexpectedState(context.WithoutCancel(ctx), &UnexpectedState{
			Flow:          f.kind,
			Operation:     op,
			Status:        e.Status,
			SetupIntentID: setupIntentID,
			ResultID:      out.ResultID,
		})
	case KindBackend:
		log.Warnw("checkout backend failure", "flow", f.kind, "op", op, "error", e.Error())
	default:
		log.Infow("checkout failed", "flow", f.kind, "op", op, "kind", e.Kind, "error", e.Error())
	}
	f.svc.metrics.ObserveOutcome(f.kind, op, PhaseFailed, string(e.Kind))

	if f.callbacks.OnError != nil {
		f.callbacks.OnError(msg)
	}
	out.Phase = PhaseFailed
	out.Error = msg
	out.Status = e.Status
	out.Failure = e
	return out
}

func (f *Flow) message(e *Error) string {
	if e.Message != "" {
		return e.Message
	}
	if msg := f.svc.translator.T(f.lang, e.MessageID, e.Data); msg != "" {
		return msg
	}
	return e.MessageID
}
