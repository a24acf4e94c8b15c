package api

import "time"

const (
	// requestTimeout bounds every handler, including the backend round trips.
	requestTimeout = 45 * time.Second
	// storiesMaxLimit caps the page size of the feed proxy.
	storiesMaxLimit = 50

	// userIDClaim is the JWT claim identifying the user.
	userIDClaim = "userId"
	// checkoutErrorParam carries the translated failure to the landing page
	// of a browser return.
	checkoutErrorParam = "checkout_error"
	// subscriptionPage and bookingPagePrefix are the webapp pages a browser
	// return lands on.
	subscriptionPage  = "/teacher/subscription"
	bookingPagePrefix = "/bookings/"
)
