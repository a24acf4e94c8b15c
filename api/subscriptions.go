package api

import (
	"net/http"

	"github.com/tutorhub/webfront/errors"
)

// subscriptionStatusHandler returns the current subscription of the teacher.
//
//	@Summary		Get the subscription status
//	@Tags			subscription
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	backend.SubscriptionStatus
//	@Failure		401	{object}	errors.Error	"Unauthorized"
//	@Failure		404	{object}	errors.Error	"No subscription"
//	@Router			/subscription/status [get]
func (a *API) subscriptionStatusHandler(w http.ResponseWriter, r *http.Request) {
	st, err := a.backend.SubscriptionStatus(r.Context(), bearerToken(r.Context()))
	if err != nil {
		writeBackendError(w, err, errors.ErrNotFound)
		return
	}
	httpWriteJSON(w, st)
}

// cancelSubscriptionHandler cancels the subscription at the end of the
// current period.
//
//	@Summary		Cancel the subscription
//	@Tags			subscription
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	backend.SubscriptionStatus
//	@Failure		400	{object}	errors.Error	"Rejected by the backend"
//	@Router			/subscription/cancel [post]
func (a *API) cancelSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	st, err := a.backend.CancelSubscription(r.Context(), bearerToken(r.Context()))
	if err != nil {
		writeBackendError(w, err, errors.ErrNotFound)
		return
	}
	httpWriteJSON(w, st)
}
