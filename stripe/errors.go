package stripe

import (
	"errors"
	"fmt"

	stripeapi "github.com/stripe/stripe-go/v81"
	"github.com/tutorhub/webfront/translate"
)

// StripeError represents a Stripe-specific error. Message is the vendor's
// own text and is meant for logs only; users get the translation selected
// by MessageID.
type StripeError struct {
	Code        string
	DeclineCode string
	Message     string
	Type        string
	Err         error
}

func (e *StripeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("stripe error [%s]: %s - %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("stripe error [%s]: %s", e.Code, e.Message)
}

func (e *StripeError) Unwrap() error {
	return e.Err
}

// Common Stripe errors
var (
	ErrInvalidConfiguration = &StripeError{Code: "invalid_configuration", Message: "invalid stripe configuration"}
	ErrAPICallFailed        = &StripeError{Code: "api_call_failed", Message: "stripe API call failed"}
	ErrMissingClientSecret  = &StripeError{Code: "missing_client_secret", Message: "intent client secret is required"}
	ErrMissingPaymentMethod = &StripeError{Code: "missing_payment_method", Message: "payment method is required"}
)

// NewStripeError creates a new StripeError with the given code, message, and underlying error
func NewStripeError(code, message string, err error) *StripeError {
	return &StripeError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// fromAPIError converts an error returned by stripe-go into a StripeError,
// keeping the vendor code and decline code.
func fromAPIError(op string, err error) *StripeError {
	var apiErr *stripeapi.Error
	if errors.As(err, &apiErr) {
		code := string(apiErr.Code)
		if code == "" {
			code = string(apiErr.Type)
		}
		return &StripeError{
			Code:        code,
			DeclineCode: string(apiErr.DeclineCode),
			Message:     apiErr.Msg,
			Type:        string(apiErr.Type),
			Err:         err,
		}
	}
	return NewStripeError("api_call_failed", op, err)
}

// fromLastError converts the last_setup_error / last_payment_error of an intent.
func fromLastError(e *stripeapi.Error) *StripeError {
	return &StripeError{
		Code:        string(e.Code),
		DeclineCode: string(e.DeclineCode),
		Message:     e.Msg,
		Type:        string(e.Type),
	}
}

// declineMessages maps decline codes that deserve a specific message.
var declineMessages = map[string]string{
	"insufficient_funds": translate.ErrInsufficientFunds,
	"expired_card":       translate.ErrExpiredCard,
	"incorrect_cvc":      translate.ErrIncorrectCVC,
	"incorrect_number":   translate.ErrIncorrectNumber,
}

// codeMessages maps Stripe error codes to translation identifiers.
var codeMessages = map[string]string{
	"card_declined":                        translate.ErrCardDeclined,
	"expired_card":                         translate.ErrExpiredCard,
	"incorrect_cvc":                        translate.ErrIncorrectCVC,
	"invalid_cvc":                          translate.ErrIncorrectCVC,
	"incorrect_number":                     translate.ErrIncorrectNumber,
	"invalid_number":                       translate.ErrIncorrectNumber,
	"processing_error":                     translate.ErrProcessingError,
	"payment_intent_authentication_failure": translate.ErrAuthenticationFailed,
	"setup_intent_authentication_failure":  translate.ErrAuthenticationFailed,
	"authentication_required":              translate.ErrAuthenticationFailed,
	"payment_method_provider_decline":      translate.ErrProviderDeclined,
	"payment_intent_payment_attempt_failed": translate.ErrProviderDeclined,
	"missing_client_secret":                translate.ErrCheckoutNotReady,
	"missing_payment_method":               translate.ErrMissingPaymentMethod,
	"canceled":                             translate.ErrPaymentCanceled,
}

// MessageID returns the translation identifier for the error. The raw vendor
// message is never used for users.
func (e *StripeError) MessageID() string {
	if id, ok := declineMessages[e.DeclineCode]; ok {
		return id
	}
	if id, ok := codeMessages[e.Code]; ok {
		return id
	}
	return translate.ErrGeneric
}

// AsStripeError unwraps err into a *StripeError.
func AsStripeError(err error) (*StripeError, bool) {
	var se *StripeError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
