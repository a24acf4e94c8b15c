package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/tutorhub/webfront/checkout"
	"github.com/tutorhub/webfront/errors"
	"github.com/tutorhub/webfront/internal/log"
	"github.com/tutorhub/webfront/validator"
)

// validatedRequest returns the body decoded and validated by InputValidator.
func validatedRequest[T any](r *http.Request) (*T, bool) {
	model, ok := validator.GetValidatedModel(r.Context())
	if !ok {
		return nil, false
	}
	req, ok := model.(*T)
	return req, ok
}

func (a *API) newFlow(r *http.Request, kind checkout.Kind, interval, bookingID string) *checkout.Flow {
	return a.checkout.NewFlow(&checkout.FlowParams{
		Kind:      kind,
		Owner:     userID(r.Context()),
		Token:     bearerToken(r.Context()),
		Lang:      a.lang(r),
		Interval:  interval,
		BookingID: bookingID,
		Callbacks: checkout.Callbacks{
			OnSuccess: func(id string) {
				log.Infow("checkout completed", "flow", kind, "user", userID(r.Context()), "result", id)
			},
		},
	})
}

// subscriptionStartHandler reconciles the page URL when it carries a pending
// subscription return, and otherwise initializes a new subscription checkout.
//
//	@Summary		Start a subscription checkout
//	@Tags			checkout
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		SubscriptionStartRequest	true	"Interval and page URL"
//	@Success		200		{object}	CheckoutResponse
//	@Failure		400		{object}	errors.Error	"Invalid input data"
//	@Failure		401		{object}	errors.Error	"Unauthorized"
//	@Failure		502		{object}	errors.Error	"Backend error"
//	@Router			/checkout/subscription/start [post]
func (a *API) subscriptionStartHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := validatedRequest[SubscriptionStartRequest](r)
	if !ok {
		errors.ErrMalformedBody.Write(w)
		return
	}
	page, ok := a.pageURL(req.URL)
	if !ok {
		errors.ErrInvalidReturnURL.Write(w)
		return
	}
	flow := a.newFlow(r, checkout.KindSubscription, req.Interval, "")
	out, err := flow.Start(r.Context(), page)
	a.writeCheckout(w, r, flow, out, err)
}

// bookingStartHandler is subscriptionStartHandler for lesson bookings.
//
//	@Summary		Start a booking checkout
//	@Tags			checkout
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		BookingStartRequest	true	"Booking and page URL"
//	@Success		200		{object}	CheckoutResponse
//	@Failure		400		{object}	errors.Error	"Invalid input data"
//	@Failure		401		{object}	errors.Error	"Unauthorized"
//	@Failure		502		{object}	errors.Error	"Backend error"
//	@Router			/checkout/booking/start [post]
func (a *API) bookingStartHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := validatedRequest[BookingStartRequest](r)
	if !ok {
		errors.ErrMalformedBody.Write(w)
		return
	}
	page, ok := a.pageURL(req.URL)
	if !ok {
		errors.ErrInvalidReturnURL.Write(w)
		return
	}
	flow := a.newFlow(r, checkout.KindBooking, "", req.BookingID)
	out, err := flow.Start(r.Context(), page)
	a.writeCheckout(w, r, flow, out, err)
}

// confirmHandler submits the payment form of the given flow kind. A payment
// method needing an off-site authorization answers with the redirect URL.
//
//	@Summary		Confirm a checkout
//	@Tags			checkout
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		ConfirmRequest	true	"Payment form"
//	@Success		200		{object}	CheckoutResponse
//	@Failure		400		{object}	errors.Error	"Invalid input data"
//	@Failure		402		{object}	errors.Error	"Payment declined"
//	@Failure		500		{object}	errors.Error	"Unexpected payment state"
//	@Router			/checkout/subscription/confirm [post]
//	@Router			/checkout/booking/confirm [post]
func (a *API) confirmHandler(kind checkout.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := validatedRequest[ConfirmRequest](r)
		if !ok {
			errors.ErrMalformedBody.Write(w)
			return
		}
		switch {
		case kind == checkout.KindSubscription && req.Interval == "":
			errors.ErrInvalidData.With("interval is required").Write(w)
			return
		case kind == checkout.KindBooking && req.BookingID == "":
			errors.ErrInvalidData.With("bookingId is required").Write(w)
			return
		}
		page, ok := a.pageURL(req.URL)
		if !ok {
			errors.ErrInvalidReturnURL.Write(w)
			return
		}
		flow := a.newFlow(r, kind, req.Interval, req.BookingID)
		flow.SetSetupIntent(req.ClientSecret, req.SetupIntentID)
		out, err := flow.Confirm(r.Context(), &checkout.ConfirmRequest{
			PaymentMethodID: req.PaymentMethodID,
			PageURL:         page,
		})
		a.writeCheckout(w, r, flow, out, err)
	}
}

// reconcileHandler resumes the checkout whose return parameters are in the
// posted page URL. The response carries the URL the browser must replace
// its history entry with.
//
//	@Summary		Reconcile a checkout return
//	@Tags			checkout
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		ReconcileRequest	true	"Page URL"
//	@Success		200		{object}	CheckoutResponse
//	@Failure		400		{object}	errors.Error	"Invalid input data"
//	@Failure		500		{object}	errors.Error	"Unexpected payment state"
//	@Router			/checkout/reconcile [post]
func (a *API) reconcileHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := validatedRequest[ReconcileRequest](r)
	if !ok {
		errors.ErrMalformedBody.Write(w)
		return
	}
	page, ok := a.pageURL(req.URL)
	if !ok {
		errors.ErrInvalidReturnURL.Write(w)
		return
	}
	rc := checkout.ParseReturnContext(page)
	if rc.Idle() {
		httpWriteJSON(w, &CheckoutResponse{Phase: checkout.PhaseIdle})
		return
	}
	flow := a.newFlow(r, rc.Kind, rc.Interval, rc.BookingID)
	out, err := flow.Reconcile(r.Context(), rc)
	a.writeCheckout(w, r, flow, out, err)
}

// checkoutReturnHandler is the landing of a vendor redirect when the return
// URL points to this service. It reconciles and sends the browser to the
// webapp page of the purchase, marked as successful or carrying the error.
//
//	@Summary		Browser return of a checkout redirect
//	@Tags			checkout
//	@Security		BearerAuth
//	@Success		303
//	@Router			/checkout/return [get]
func (a *API) checkoutReturnHandler(w http.ResponseWriter, r *http.Request) {
	rc := checkout.ParseReturnContext(r.URL)
	landing := a.landingPage(rc)
	if rc.Idle() {
		http.Redirect(w, r, landing.String(), http.StatusSeeOther)
		return
	}
	flow := a.newFlow(r, rc.Kind, rc.Interval, rc.BookingID)
	out, err := flow.Reconcile(r.Context(), rc)
	if err != nil {
		log.Debugw("checkout return cancelled", "flow", rc.Kind, "error", err.Error())
		return
	}
	q := url.Values{}
	switch out.Phase {
	case checkout.PhaseSucceeded:
		q.Set(markerParam(rc.Kind), checkout.MarkerSuccess)
	case checkout.PhaseFailed:
		q.Set(checkoutErrorParam, out.Error)
	}
	landing.RawQuery = q.Encode()
	http.Redirect(w, r, landing.String(), http.StatusSeeOther)
}

// landingPage is the webapp page of the purchase a return belongs to.
func (a *API) landingPage(rc checkout.ReturnContext) *url.URL {
	u := *a.webApp
	base := strings.TrimRight(u.Path, "/")
	u.RawQuery, u.Fragment, u.RawPath = "", "", ""
	switch {
	case rc.Kind == checkout.KindBooking && a.validator.Var(rc.BookingID, "required,max=64,excludesall=/?#%") == nil:
		u.Path = base + bookingPagePrefix + rc.BookingID
	case rc.Kind == checkout.KindBooking:
		u.Path = base + "/"
	default:
		u.Path = base + subscriptionPage
	}
	return &u
}

func markerParam(kind checkout.Kind) string {
	if kind == checkout.KindBooking {
		return checkout.ParamPayment
	}
	return checkout.ParamSubscription
}
