package api

const (
	// health and metrics routes

	// GET /ping for liveness checks
	pingEndpoint = "/ping"
	// GET /metrics to scrape the prometheus collectors
	metricsEndpoint = "/metrics"

	// checkout routes

	// POST /checkout/subscription/start to reconcile or initialize a subscription checkout
	checkoutSubscriptionStartEndpoint = "/checkout/subscription/start"
	// POST /checkout/booking/start to reconcile or initialize a booking checkout
	checkoutBookingStartEndpoint = "/checkout/booking/start"
	// POST /checkout/subscription/confirm to submit the subscription payment form
	checkoutSubscriptionConfirmEndpoint = "/checkout/subscription/confirm"
	// POST /checkout/booking/confirm to submit the booking payment form
	checkoutBookingConfirmEndpoint = "/checkout/booking/confirm"
	// POST /checkout/reconcile to resume a checkout from a page URL
	checkoutReconcileEndpoint = "/checkout/reconcile"
	// GET /checkout/return is the vendor return_url for browser redirects
	checkoutReturnEndpoint = "/checkout/return"

	// subscription routes

	// GET /subscription/status to get the current subscription
	subscriptionStatusEndpoint = "/subscription/status"
	// POST /subscription/cancel to cancel the current subscription
	subscriptionCancelEndpoint = "/subscription/cancel"

	// payment method routes

	// GET /payment-methods to list and POST /payment-methods to add
	paymentMethodsEndpoint = "/payment-methods"
	// DELETE /payment-methods/{id} to remove a payment method
	paymentMethodEndpoint = "/payment-methods/{id}"
	// POST /payment-methods/{id}/default to mark it as default
	paymentMethodDefaultEndpoint = "/payment-methods/{id}/default"

	// stories routes

	// GET /stories to page through the feed
	storiesEndpoint = "/stories"
	// GET /stories/{id} to get a single story
	storyEndpoint = "/stories/{id}"
)
