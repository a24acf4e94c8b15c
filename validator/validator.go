package validator

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// stripeIDRegex matches vendor object ids such as pm_1Nv0 or seti_1Nv0.
	stripeIDRegex = regexp.MustCompile(`^[a-z]{2,5}_[A-Za-z0-9]+$`)

	// clientSecretRegex matches setup and payment intent client secrets.
	clientSecretRegex = regexp.MustCompile(`^(seti|pi)_[A-Za-z0-9]+_secret_[A-Za-z0-9]+$`)

	// intervals are the billing intervals of a teacher subscription.
	intervals = map[string]bool{"month": true, "year": true}
)

// Validator is a wrapper around the go-playground/validator package.
type Validator struct {
	validator *validator.Validate
}

// New creates a new Validator instance.
func New() *Validator {
	v := validator.New()

	// Register custom validation functions
	_ = v.RegisterValidation("interval", validateInterval)
	_ = v.RegisterValidation("stripeid", validateStripeID)
	_ = v.RegisterValidation("clientsecret", validateClientSecret)

	return &Validator{
		validator: v,
	}
}

// Validate validates a struct using the validator package.
func (v *Validator) Validate(s any) error {
	return v.validator.Struct(s)
}

// Var validates a single value against a tag, e.g. "required,stripeid=pm".
func (v *Validator) Var(field any, tag string) error {
	return v.validator.Var(field, tag)
}

// validateInterval accepts the billing intervals.
func validateInterval(fl validator.FieldLevel) bool {
	if fl.Field().String() == "" {
		return true
	}
	return intervals[fl.Field().String()]
}

// validateStripeID validates a vendor object id. The optional parameter is
// the required prefix without underscore, e.g. stripeid=pm.
func validateStripeID(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	if id == "" {
		return true
	}
	if !stripeIDRegex.MatchString(id) {
		return false
	}
	if prefix := fl.Param(); prefix != "" {
		return strings.HasPrefix(id, prefix+"_")
	}
	return true
}

// validateClientSecret validates an intent client secret.
func validateClientSecret(fl validator.FieldLevel) bool {
	if fl.Field().String() == "" {
		return true
	}
	return clientSecretRegex.MatchString(fl.Field().String())
}
