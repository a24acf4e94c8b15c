package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/tutorhub/webfront/backend"
	"github.com/tutorhub/webfront/stripe"
	"github.com/tutorhub/webfront/translate"
)

// ErrorKind classifies flow failures.
type ErrorKind string

const (
	// KindVendor is a payment SDK failure such as a declined card.
	KindVendor ErrorKind = "vendor"
	// KindBackend is a non-2xx or malformed backend answer.
	KindBackend ErrorKind = "backend"
	// KindUnexpectedState is a status outside the known enumeration.
	KindUnexpectedState ErrorKind = "unexpected_state"
	// KindPrecondition short-circuits before any network call.
	KindPrecondition ErrorKind = "precondition"
)

// Error is a flow failure. Message, when set, is shown as is (the backend's
// own message); otherwise MessageID is translated with Data.
type Error struct {
	Kind      ErrorKind
	MessageID string
	Message   string
	Data      map[string]any
	Status    string
	Err       error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("checkout %s error: %s", e.Kind, e.MessageID)
	if e.Status != "" {
		s += " (status " + e.Status + ")"
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Precondition failures.
var (
	ErrNotInitialized       = &Error{Kind: KindPrecondition, MessageID: translate.ErrCheckoutNotReady}
	ErrMissingPaymentMethod = &Error{Kind: KindPrecondition, MessageID: translate.ErrMissingPaymentMethod}
	ErrMissingTarget        = &Error{Kind: KindPrecondition, MessageID: translate.ErrSetupIntentFailed}
)

func unexpectedStatus(status string) *Error {
	return &Error{
		Kind:      KindUnexpectedState,
		MessageID: translate.ErrUnexpectedStatus,
		Data:      map[string]any{"Status": status},
		Status:    status,
	}
}

// classify converts any error returned by a collaborator into an *Error.
func classify(err error, fallbackID string) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	if se, ok := stripe.AsStripeError(err); ok {
		return &Error{Kind: KindVendor, MessageID: se.MessageID(), Err: err}
	}
	if be, ok := backend.AsError(err); ok {
		e := &Error{Kind: KindBackend, MessageID: fallbackID, Err: err}
		if !be.Fallback {
			e.Message = be.Message
		}
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindBackend, MessageID: translate.ErrBackendGeneric, Err: err}
	}
	return &Error{Kind: KindBackend, MessageID: fallbackID, Err: err}
}

// AsError unwraps err into a flow *Error.
func AsError(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
