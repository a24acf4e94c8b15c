package checkout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/sync/singleflight"
)

// Config holds the collaborators of the checkout service. Ledger, Alerter and
// Metrics are optional.
type Config struct {
	Backend    Backend
	Vendor     Vendor
	Translator Translator
	Ledger     Ledger
	Alerter    Alerter
	Metrics    Metrics
}

// Service holds what flows share: collaborators, the reconciliation ledger
// and the coalescing of concurrent returns.
type Service struct {
	backend    Backend
	vendor     Vendor
	translator Translator
	ledger     Ledger
	alerter    Alerter
	metrics    Metrics
	group      singleflight.Group
}

// NewService creates the checkout service.
func NewService(conf *Config) (*Service, error) {
	if conf == nil || conf.Backend == nil || conf.Vendor == nil || conf.Translator == nil {
		return nil, fmt.Errorf("checkout: backend, vendor and translator are required")
	}
	s := &Service{
		backend:    conf.Backend,
		vendor:     conf.Vendor,
		translator: conf.Translator,
		ledger:     conf.Ledger,
		alerter:    conf.Alerter,
		metrics:    conf.Metrics,
	}
	if s.ledger == nil {
		s.ledger = NewMemoryLedger(DefaultLedgerTTL)
	}
	if s.alerter == nil {
		s.alerter = nopAlerter{}
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	return s, nil
}

// Ledger returns the reconciliation ledger in use.
func (s *Service) Ledger() Ledger {
	return s.ledger
}

// FlowParams are the inputs of one flow instance: the access token, the
// language of the messages, the purchase and the callbacks.
type FlowParams struct {
	Kind Kind
	// Owner identifies the user the flow acts for. Reconciled returns are
	// only shared between flows of the same owner. When empty it is derived
	// from the token.
	Owner     string
	Token     string
	Lang      string
	Interval  string
	BookingID string
	Callbacks Callbacks
}

// NewFlow creates a flow instance. A flow lives as long as the page that
// drives it; cancelling the context of an operation discards its result.
func (s *Service) NewFlow(p *FlowParams) *Flow {
	return &Flow{
		svc:       s,
		kind:      p.Kind,
		owner:     ownerOf(p.Owner, p.Token),
		token:     p.Token,
		lang:      p.Lang,
		interval:  p.Interval,
		bookingID: p.BookingID,
		callbacks: p.Callbacks,
		state:     State{Phase: PhaseIdle},
	}
}

func ownerOf(owner, token string) string {
	if owner != "" || token == "" {
		return owner
	}
	sum := sha256.Sum256([]byte(token))
	return "token-" + hex.EncodeToString(sum[:16])
}

type nopAlerter struct{}

func (nopAlerter) UnexpectedState(context.Context, *UnexpectedState) {}

type nopMetrics struct{}

func (nopMetrics) ObserveOutcome(Kind, string, Phase, string) {}
func (nopMetrics) ObserveUnexpectedStatus(Kind, string)       {}
