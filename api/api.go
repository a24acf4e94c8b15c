// Package api provides the HTTP API of the tutoring marketplace web front:
// the checkout flows, the subscription and payment method management and
// the stories feed. Every protected route forwards the caller's bearer token
// to the backend.
package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth/v5"
	"github.com/tutorhub/webfront/backend"
	"github.com/tutorhub/webfront/checkout"
	"github.com/tutorhub/webfront/internal/log"
	"github.com/tutorhub/webfront/metrics"
	"github.com/tutorhub/webfront/stripe"
	"github.com/tutorhub/webfront/translate"
	"github.com/tutorhub/webfront/validator"
)

// Backend is the part of the REST backend proxied by the API.
type Backend interface {
	SubscriptionStatus(ctx context.Context, token string) (*backend.SubscriptionStatus, error)
	CancelSubscription(ctx context.Context, token string) (*backend.SubscriptionStatus, error)
	PaymentMethods(ctx context.Context, token string) ([]backend.PaymentMethod, error)
	AddPaymentMethod(ctx context.Context, token string, req *backend.AddPaymentMethodRequest) (*backend.PaymentMethod, error)
	DeletePaymentMethod(ctx context.Context, token, id string) error
	SetDefaultPaymentMethod(ctx context.Context, token, id string) error
	Stories(ctx context.Context, token string, q backend.StoriesQuery) (*backend.StoryPage, error)
	Story(ctx context.Context, token, id string) (*backend.Story, error)
}

// Tokenizer turns raw payment details into a vendor payment method.
type Tokenizer interface {
	CreatePaymentMethod(ctx context.Context, p *stripe.PaymentMethodParams) (string, error)
	PublishableKey() string
}

type Config struct {
	Host   string
	Port   int
	Secret string
	// WebAppURL is the origin of the web application. Browser returns land
	// on its pages and checkout page URLs must belong to it.
	WebAppURL string
	// ServerURL is the public origin of this service, allowed as return URL.
	ServerURL  string
	Backend    Backend
	Checkout   *checkout.Service
	Tokenizer  Tokenizer
	Translator *translate.Translator
	// Metrics is optional.
	Metrics *metrics.Metrics
}

// API type represents the API HTTP server with JWT authentication capabilities.
type API struct {
	auth       *jwtauth.JWTAuth
	host       string
	port       int
	router     *chi.Mux
	server     *http.Server
	webApp     *url.URL
	serverURL  *url.URL
	backend    Backend
	checkout   *checkout.Service
	tokenizer  Tokenizer
	translator *translate.Translator
	validator  *validator.Validator
	metrics    *metrics.Metrics
}

// New creates a new API HTTP server. It does not start the server. Use Start() for that.
func New(conf *Config) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Backend == nil || conf.Checkout == nil || conf.Tokenizer == nil || conf.Translator == nil {
		return nil, fmt.Errorf("backend, checkout, tokenizer and translator are required")
	}
	if conf.Secret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	webApp, err := url.Parse(conf.WebAppURL)
	if err != nil || webApp.Host == "" {
		return nil, fmt.Errorf("invalid webapp URL %q", conf.WebAppURL)
	}
	var serverURL *url.URL
	if conf.ServerURL != "" {
		if serverURL, err = url.Parse(conf.ServerURL); err != nil || serverURL.Host == "" {
			return nil, fmt.Errorf("invalid server URL %q", conf.ServerURL)
		}
	}
	a := &API{
		auth:       jwtauth.New("HS256", []byte(conf.Secret), nil),
		host:       conf.Host,
		port:       conf.Port,
		webApp:     webApp,
		serverURL:  serverURL,
		backend:    conf.Backend,
		checkout:   conf.Checkout,
		tokenizer:  conf.Tokenizer,
		translator: conf.Translator,
		validator:  validator.New(),
		metrics:    conf.Metrics,
	}
	a.router = a.initRouter()
	return a, nil
}

// Router returns the HTTP handler of the API.
func (a *API) Router() http.Handler {
	return a.router
}

// Start starts the API HTTP server (non blocking).
func (a *API) Start() {
	a.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.host, a.port),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
}

// Shutdown stops the server gracefully.
func (a *API) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() *chi.Mux {
	// Create the router with a basic middleware stack
	r := chi.NewRouter()
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{a.webApp.Scheme + "://" + a.webApp.Host},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Throttle(100))
	r.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	r.Use(middleware.Timeout(requestTimeout))
	if a.metrics != nil {
		r.Use(a.metrics.Middleware)
	}

	// protected routes
	r.Group(func(r chi.Router) {
		// seek, verify and validate JWT tokens, from the Authorization
		// header or the jwt cookie on browser returns
		r.Use(jwtauth.Verifier(a.auth))
		// handle valid JWT tokens
		r.Use(a.authenticator)

		// CHECKOUT ROUTES
		log.Infow("new route", "method", "POST", "path", checkoutSubscriptionStartEndpoint)
		r.With(a.validator.AddModelMiddleware(SubscriptionStartRequest{}), a.validator.InputValidator).
			Post(checkoutSubscriptionStartEndpoint, a.subscriptionStartHandler)
		log.Infow("new route", "method", "POST", "path", checkoutBookingStartEndpoint)
		r.With(a.validator.AddModelMiddleware(BookingStartRequest{}), a.validator.InputValidator).
			Post(checkoutBookingStartEndpoint, a.bookingStartHandler)
		log.Infow("new route", "method", "POST", "path", checkoutSubscriptionConfirmEndpoint)
		r.With(a.validator.AddModelMiddleware(ConfirmRequest{}), a.validator.InputValidator).
			Post(checkoutSubscriptionConfirmEndpoint, a.confirmHandler(checkout.KindSubscription))
		log.Infow("new route", "method", "POST", "path", checkoutBookingConfirmEndpoint)
		r.With(a.validator.AddModelMiddleware(ConfirmRequest{}), a.validator.InputValidator).
			Post(checkoutBookingConfirmEndpoint, a.confirmHandler(checkout.KindBooking))
		log.Infow("new route", "method", "POST", "path", checkoutReconcileEndpoint)
		r.With(a.validator.AddModelMiddleware(ReconcileRequest{}), a.validator.InputValidator).
			Post(checkoutReconcileEndpoint, a.reconcileHandler)
		log.Infow("new route", "method", "GET", "path", checkoutReturnEndpoint)
		r.Get(checkoutReturnEndpoint, a.checkoutReturnHandler)

		// SUBSCRIPTION ROUTES
		log.Infow("new route", "method", "GET", "path", subscriptionStatusEndpoint)
		r.Get(subscriptionStatusEndpoint, a.subscriptionStatusHandler)
		log.Infow("new route", "method", "POST", "path", subscriptionCancelEndpoint)
		r.Post(subscriptionCancelEndpoint, a.cancelSubscriptionHandler)

		// PAYMENT METHOD ROUTES
		log.Infow("new route", "method", "GET", "path", paymentMethodsEndpoint)
		r.Get(paymentMethodsEndpoint, a.paymentMethodsHandler)
		log.Infow("new route", "method", "POST", "path", paymentMethodsEndpoint)
		r.With(a.validator.AddModelMiddleware(AddPaymentMethodRequest{}), a.validator.InputValidator).
			Post(paymentMethodsEndpoint, a.addPaymentMethodHandler)
		log.Infow("new route", "method", "DELETE", "path", paymentMethodEndpoint)
		r.Delete(paymentMethodEndpoint, a.deletePaymentMethodHandler)
		log.Infow("new route", "method", "POST", "path", paymentMethodDefaultEndpoint)
		r.Post(paymentMethodDefaultEndpoint, a.setDefaultPaymentMethodHandler)

		// STORIES ROUTES
		log.Infow("new route", "method", "GET", "path", storiesEndpoint)
		r.Get(storiesEndpoint, a.storiesHandler)
		log.Infow("new route", "method", "GET", "path", storyEndpoint)
		r.Get(storyEndpoint, a.storyHandler)
	})

	// Public routes
	r.Group(func(r chi.Router) {
		r.Get(pingEndpoint, func(w http.ResponseWriter, _ *http.Request) {
			if _, err := w.Write([]byte(".")); err != nil {
				log.Warnw("failed to write ping response", "error", err)
			}
		})
		if a.metrics != nil {
			log.Infow("new route", "method", "GET", "path", metricsEndpoint)
			r.Method(http.MethodGet, metricsEndpoint, a.metrics.Handler())
		}
	})
	return r
}
