package checkout

import (
	"context"
	"strings"

	"github.com/tutorhub/webfront/backend"
	"github.com/tutorhub/webfront/internal/log"
)

// RedirectPolicy tells how a return handles the vendor's redirect_status.
type RedirectPolicy int

const (
	// RequireSucceeded treats a return as pending only when redirect_status
	// is "succeeded".
	RequireSucceeded RedirectPolicy = iota
	// WarnOnly ignores redirect_status; a value other than "succeeded" is
	// logged and the return is reconciled anyway.
	WarnOnly
)

const redirectSucceeded = "succeeded"

type reconcileResult struct {
	ResultID string
	Status   string
	Replayed bool
}

// ReturnSpec parameterizes the reconciliation of a redirect return. The
// subscription and booking flows are two instances of it.
type ReturnSpec struct {
	Kind Kind
	// Marker is the query parameter that must equal "pending".
	Marker string
	// Intent is the parameter holding the vendor intent the return resumes.
	Intent string
	// Required lists the correlation parameters that must be present.
	Required       []string
	RedirectPolicy RedirectPolicy
	// Call issues the backend request proving the authorized payment method.
	Call func(ctx context.Context, b Backend, token string, rc ReturnContext) (*reconcileResult, error)
	// Accept reports whether the returned status resolves the flow
	// successfully.
	Accept func(status string) bool
}

// SubscriptionReturn resumes a subscription checkout after a redirect.
var SubscriptionReturn = ReturnSpec{
	Kind:           KindSubscription,
	Marker:         ParamSubscription,
	Intent:         ParamSetupIntent,
	Required:       []string{ParamSetupIntent, ParamInterval},
	RedirectPolicy: RequireSucceeded,
	Call: func(ctx context.Context, b Backend, token string, rc ReturnContext) (*reconcileResult, error) {
		sub, err := b.CreateSubscription(ctx, token, &backend.SubscriptionRequest{
			Interval:      rc.Interval,
			SetupIntentID: rc.SetupIntent,
		})
		if err != nil {
			return nil, err
		}
		return &reconcileResult{ResultID: sub.SubscriptionID, Status: sub.Status}, nil
	},
	Accept: func(status string) bool {
		return status == StatusActive || status == StatusIncomplete
	},
}

// BookingReturn resumes a booking checkout after a redirect.
var BookingReturn = ReturnSpec{
	Kind:           KindBooking,
	Marker:         ParamPayment,
	Intent:         ParamSetupIntent,
	Required:       []string{ParamSetupIntent, ParamBookingID},
	RedirectPolicy: WarnOnly,
	Call: func(ctx context.Context, b Backend, token string, rc ReturnContext) (*reconcileResult, error) {
		pi, err := b.CreatePaymentIntent(ctx, token, &backend.PaymentIntentRequest{
			BookingID:     rc.BookingID,
			SetupIntentID: rc.SetupIntent,
		})
		if err != nil {
			return nil, err
		}
		return &reconcileResult{ResultID: pi.PaymentIntentID, Status: pi.Status}, nil
	},
	Accept: func(status string) bool {
		return status == StatusSucceeded
	},
}

// SubscriptionPaymentReturn resumes a subscription whose first invoice
// payment needed a card authentication. The subscription already exists, so
// the backend is only asked for its current status.
var SubscriptionPaymentReturn = ReturnSpec{
	Kind:           KindSubscription,
	Marker:         ParamSubscription,
	Intent:         ParamPaymentIntent,
	Required:       []string{ParamPaymentIntent, ParamInterval},
	RedirectPolicy: RequireSucceeded,
	Call: func(ctx context.Context, b Backend, token string, rc ReturnContext) (*reconcileResult, error) {
		st, err := b.SubscriptionStatus(ctx, token)
		if err != nil {
			return nil, err
		}
		id := rc.SubscriptionID
		if id == "" {
			id = rc.PaymentIntent
		}
		return &reconcileResult{ResultID: id, Status: st.Status}, nil
	},
	Accept: func(status string) bool {
		return status == StatusActive || status == StatusIncomplete
	},
}

// returnSpecFor selects how rc is reconciled, or nil for a context no flow
// handles.
func returnSpecFor(rc ReturnContext) *ReturnSpec {
	switch rc.Kind {
	case KindSubscription:
		if rc.PaymentIntent != "" {
			return &SubscriptionPaymentReturn
		}
		return &SubscriptionReturn
	case KindBooking:
		return &BookingReturn
	}
	return nil
}

// Key identifies the return of owner described by rc: the flow, the owner and
// every correlation parameter, so that neither another user nor another
// purchase made with the same intent shares its outcome.
func (s *ReturnSpec) Key(owner string, rc ReturnContext) string {
	q := rc.URL().Query()
	parts := []string{string(s.Kind), owner}
	for _, p := range s.Required {
		parts = append(parts, q.Get(p))
	}
	return strings.Join(parts, ":")
}

// pending reports whether rc is a return this spec must reconcile.
func (s *ReturnSpec) pending(rc ReturnContext) bool {
	if rc.Kind != s.Kind || !rc.Pending() {
		return false
	}
	q := rc.URL().Query()
	for _, p := range s.Required {
		if q.Get(p) == "" {
			log.Debugw("pending return without correlation parameter", "flow", s.Kind, "param", p)
			return false
		}
	}
	if rc.RedirectStatus == redirectSucceeded {
		return true
	}
	switch s.RedirectPolicy {
	case RequireSucceeded:
		log.Warnw("pending return ignored, redirect not succeeded",
			"flow", s.Kind, "intent", q.Get(s.Intent), "redirectStatus", rc.RedirectStatus)
		return false
	default:
		if rc.RedirectStatus != "" {
			log.Warnw("reconciling return with redirect not succeeded",
				"flow", s.Kind, "intent", q.Get(s.Intent), "redirectStatus", rc.RedirectStatus)
		}
		return true
	}
}

// resolveReturn performs the backend call of a pending return once per key:
// concurrent returns share the call and completed successes are replayed
// from the ledger. The shared call is detached from the caller's context; a
// caller that goes away stops waiting but does not abort it.
func (s *Service) resolveReturn(ctx context.Context, spec *ReturnSpec, owner, token string, rc ReturnContext) (*reconcileResult, error) {
	key := spec.Key(owner, rc)
	intent := rc.URL().Query().Get(spec.Intent)
	if res := s.replay(ctx, key); res != nil {
		return res, nil
	}
	ch := s.group.DoChan(key, func() (any, error) {
		callCtx := context.WithoutCancel(ctx)
		if res := s.replay(callCtx, key); res != nil {
			return res, nil
		}
		res, err := spec.Call(callCtx, s.backend, token, rc)
		if err != nil {
			return nil, err
		}
		if spec.Accept(res.Status) {
			if err := s.ledger.Put(callCtx, &LedgerEntry{
				Key:      key,
				Flow:     spec.Kind,
				Owner:    owner,
				IntentID: intent,
				ResultID: res.ResultID,
				Status:   res.Status,
			}); err != nil {
				log.Errorw(err, "could not record reconciled return", "flow", spec.Kind, "intent", intent)
			}
		}
		return res, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		if r.Shared {
			log.Debugw("return reconciliation shared", "flow", spec.Kind, "intent", intent)
		}
		return r.Val.(*reconcileResult), nil
	}
}

func (s *Service) replay(ctx context.Context, key string) *reconcileResult {
	e, err := s.ledger.Get(ctx, key)
	if err != nil {
		log.Warnw("reconciliation ledger unavailable", "key", key, "error", err.Error())
		return nil
	}
	if e == nil {
		return nil
	}
	return &reconcileResult{ResultID: e.ResultID, Status: e.Status, Replayed: true}
}
