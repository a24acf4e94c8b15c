package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tutorhub/webfront/backend"
	"github.com/tutorhub/webfront/errors"
	"github.com/tutorhub/webfront/stripe"
)

// paymentMethodsHandler lists the stored payment methods.
//
//	@Summary		List payment methods
//	@Tags			payment-methods
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}		backend.PaymentMethod
//	@Failure		401	{object}	errors.Error	"Unauthorized"
//	@Router			/payment-methods [get]
func (a *API) paymentMethodsHandler(w http.ResponseWriter, r *http.Request) {
	pms, err := a.backend.PaymentMethods(r.Context(), bearerToken(r.Context()))
	if err != nil {
		writeBackendError(w, err, errors.ErrNotFound)
		return
	}
	if pms == nil {
		pms = []backend.PaymentMethod{}
	}
	httpWriteJSON(w, pms)
}

// addPaymentMethodHandler stores a payment method. Raw card or PayPal
// details are tokenized by the vendor first; the backend only ever receives
// the vendor payment method id.
//
//	@Summary		Add a payment method
//	@Tags			payment-methods
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		AddPaymentMethodRequest	true	"Payment method"
//	@Success		200		{object}	backend.PaymentMethod
//	@Failure		400		{object}	errors.Error	"Invalid payment method details"
//	@Router			/payment-methods [post]
func (a *API) addPaymentMethodHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := validatedRequest[AddPaymentMethodRequest](r)
	if !ok {
		errors.ErrMalformedBody.Write(w)
		return
	}
	pmID := req.PaymentMethodID
	if pmID == "" {
		var err error
		pmID, err = a.tokenizer.CreatePaymentMethod(r.Context(), &stripe.PaymentMethodParams{
			Type:      req.Type,
			CardToken: req.CardToken,
			Name:      req.Name,
			Email:     req.Email,
		})
		if err != nil {
			if se, ok := stripe.AsStripeError(err); ok {
				errors.ErrInvalidPaymentInput.WithErr(se).
					WithMessage(a.translator.T(a.lang(r), se.MessageID(), nil)).Write(w)
				return
			}
			errors.ErrStripeError.WithErr(err).Write(w)
			return
		}
	}
	pm, err := a.backend.AddPaymentMethod(r.Context(), bearerToken(r.Context()), &backend.AddPaymentMethodRequest{
		PaymentMethodID: pmID,
		SetDefault:      req.SetDefault,
	})
	if err != nil {
		writeBackendError(w, err, errors.ErrPaymentMethodNotFound)
		return
	}
	httpWriteJSON(w, pm)
}

// deletePaymentMethodHandler removes a stored payment method.
func (a *API) deletePaymentMethodHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := a.paymentMethodID(r)
	if !ok {
		errors.ErrMalformedURLParam.With("invalid payment method id").Write(w)
		return
	}
	if err := a.backend.DeletePaymentMethod(r.Context(), bearerToken(r.Context()), id); err != nil {
		writeBackendError(w, err, errors.ErrPaymentMethodNotFound)
		return
	}
	httpWriteOK(w)
}

// setDefaultPaymentMethodHandler marks a stored payment method as default.
func (a *API) setDefaultPaymentMethodHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := a.paymentMethodID(r)
	if !ok {
		errors.ErrMalformedURLParam.With("invalid payment method id").Write(w)
		return
	}
	if err := a.backend.SetDefaultPaymentMethod(r.Context(), bearerToken(r.Context()), id); err != nil {
		writeBackendError(w, err, errors.ErrPaymentMethodNotFound)
		return
	}
	httpWriteOK(w)
}

func (a *API) paymentMethodID(r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	return id, a.validator.Var(id, "required,stripeid=pm") == nil
}
