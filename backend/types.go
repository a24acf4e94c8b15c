package backend

import "time"

// SetupIntentRequest asks the backend for a fresh SetupIntent. Exactly one of
// Interval (subscriptions) or BookingID (bookings) is set.
type SetupIntentRequest struct {
	Interval  string `json:"interval,omitempty"`
	BookingID string `json:"booking_id,omitempty"`
}

// SetupIntent authorizes capturing a payment method before charging.
type SetupIntent struct {
	ClientSecret  string `json:"clientSecret"`
	SetupIntentID string `json:"setupIntentId"`
}

// PaymentIntentRequest charges a booking with the payment method authorized
// by the given SetupIntent.
type PaymentIntentRequest struct {
	BookingID     string `json:"booking_id"`
	SetupIntentID string `json:"setup_intent_id"`
}

// PaymentIntent is one attempt to charge a booking or subscription.
type PaymentIntent struct {
	PaymentIntentID string `json:"paymentIntentId"`
	ClientSecret    string `json:"clientSecret"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	Status          string `json:"status"`
	Type            string `json:"type"`
}

// SubscriptionRequest creates the teacher subscription once the SetupIntent
// has succeeded.
type SubscriptionRequest struct {
	Interval      string `json:"interval"`
	SetupIntentID string `json:"setup_intent_id"`
}

// Subscription as returned by the backend after creation.
type Subscription struct {
	SubscriptionID        string     `json:"subscriptionId"`
	StripeSubscriptionID  string     `json:"stripeSubscriptionId"`
	Status                string     `json:"status"`
	Interval              string     `json:"interval"`
	CurrentPeriodEnd      *time.Time `json:"currentPeriodEnd,omitempty"`
	ClientSecret          *string    `json:"clientSecret"`
	RequiresPaymentMethod bool       `json:"requiresPaymentMethod"`
}

// SubscriptionStatus describes the current plan of a teacher.
type SubscriptionStatus struct {
	Active            bool       `json:"active"`
	Status            string     `json:"status"`
	Interval          string     `json:"interval,omitempty"`
	CurrentPeriodEnd  *time.Time `json:"currentPeriodEnd,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancelAtPeriodEnd"`
}

// PaymentMethod is a stored payment method of the current user.
type PaymentMethod struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Brand     string `json:"brand,omitempty"`
	Last4     string `json:"last4,omitempty"`
	ExpMonth  int    `json:"expMonth,omitempty"`
	ExpYear   int    `json:"expYear,omitempty"`
	Email     string `json:"email,omitempty"`
	IsDefault bool   `json:"isDefault"`
}

// AddPaymentMethodRequest persists a vendor tokenized payment method.
type AddPaymentMethodRequest struct {
	PaymentMethodID string `json:"paymentMethodId"`
	SetDefault      bool   `json:"setDefault,omitempty"`
}

// Story is a short video of the feed.
type Story struct {
	ID              string    `json:"id"`
	TeacherID       string    `json:"teacherId"`
	TeacherName     string    `json:"teacherName,omitempty"`
	Title           string    `json:"title"`
	VideoURL        string    `json:"videoUrl"`
	ThumbnailURL    string    `json:"thumbnailUrl,omitempty"`
	DurationSeconds int       `json:"durationSeconds"`
	Likes           int       `json:"likes"`
	CreatedAt       time.Time `json:"createdAt"`
}

// StoriesQuery pages through the feed.
type StoriesQuery struct {
	Cursor string
	Limit  int
}

// StoryPage is one page of the feed.
type StoryPage struct {
	Stories    []Story `json:"stories"`
	NextCursor string  `json:"nextCursor,omitempty"`
}
