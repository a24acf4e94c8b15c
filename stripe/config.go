package stripe

import (
	"fmt"
	"strings"
)

// Config holds the Stripe credentials of the web front.
type Config struct {
	// SecretKey authenticates server side calls (sk_live_..., sk_test_...).
	SecretKey string `yaml:"secret_key" json:"-"`
	// PublishableKey is handed to the browser to mount Elements.
	PublishableKey string `yaml:"publishable_key" json:"publishable_key"`
	// APIURL overrides the Stripe API endpoint, used by tests.
	APIURL string `yaml:"api_url" json:"-"`
	// MaxNetworkRetries for idempotent retries inside the SDK.
	MaxNetworkRetries int64 `yaml:"max_network_retries" json:"-"`
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c == nil {
		return ErrInvalidConfiguration
	}
	if c.SecretKey == "" {
		return NewStripeError("invalid_configuration", "stripe secret key is required", nil)
	}
	if !strings.HasPrefix(c.SecretKey, "sk_") && !strings.HasPrefix(c.SecretKey, "rk_") {
		return NewStripeError("invalid_configuration", "stripe secret key must start with sk_ or rk_", nil)
	}
	if c.PublishableKey != "" && !strings.HasPrefix(c.PublishableKey, "pk_") {
		return NewStripeError("invalid_configuration",
			fmt.Sprintf("publishable key must start with pk_, got %q", c.PublishableKey[:min(3, len(c.PublishableKey))]), nil)
	}
	return nil
}
