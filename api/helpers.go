package api

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/tutorhub/webfront/backend"
	"github.com/tutorhub/webfront/checkout"
	"github.com/tutorhub/webfront/errors"
	"github.com/tutorhub/webfront/internal/log"
)

// httpWriteJSON helper function allows to write a JSON response.
func httpWriteJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// httpWriteOK helper function allows to write an OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// lang returns the language of the user messages: the lang query parameter
// first, then the Accept-Language header.
func (a *API) lang(r *http.Request) string {
	return a.translator.Match(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language")).String()
}

// pageURL parses the URL of the page driving a checkout. It must be an
// absolute URL on the webapp or on this service, since the vendor will send
// the browser back to it.
func (a *API) pageURL(raw string) (*url.URL, bool) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, false
	}
	if sameOrigin(u, a.webApp) || (a.serverURL != nil && sameOrigin(u, a.serverURL)) {
		return u, true
	}
	return nil, false
}

func sameOrigin(u, origin *url.URL) bool {
	return u.Scheme == origin.Scheme && u.Host == origin.Host
}

// writeBackendError maps a backend failure of a proxied call. notFound is
// written on 404 answers.
func writeBackendError(w http.ResponseWriter, err error, notFound errors.Error) {
	be, ok := backend.AsError(err)
	switch {
	case !ok:
		errors.ErrBackendUnavailable.WithErr(err).Write(w)
	case be.NotFound():
		notFound.WithErr(be).Write(w)
	case be.StatusCode == http.StatusUnauthorized:
		errors.ErrUnauthorized.WithErr(be).Write(w)
	case be.ClientError():
		e := errors.ErrBackendRejected.WithErr(be)
		if !be.Fallback {
			e = e.WithMessage(be.Message)
		}
		e.Write(w)
	default:
		errors.ErrBackendUnavailable.WithErr(be).Write(w)
	}
}

// newCheckoutResponse merges a flow outcome and the state the payment form
// needs.
func (a *API) newCheckoutResponse(out *checkout.Outcome, st checkout.State) *CheckoutResponse {
	resp := &CheckoutResponse{
		Phase:    out.Phase,
		ResultID: out.ResultID,
		Status:   out.Status,
		Redirect: out.Redirect,
		CleanURL: out.CleanURL,
		Error:    out.Error,
	}
	if out.Phase == checkout.PhaseReady {
		resp.ClientSecret = st.ClientSecret
		resp.SetupIntentID = st.SetupIntentID
		resp.PublishableKey = a.tokenizer.PublishableKey()
	}
	return resp
}

// writeCheckout writes the outcome of a flow operation. A failed outcome is
// written as an error carrying the translated message and the outcome, so
// the browser still gets the clean URL.
func (a *API) writeCheckout(w http.ResponseWriter, r *http.Request, f *checkout.Flow, out *checkout.Outcome, err error) {
	if err != nil {
		// the caller went away and the result was discarded; the timeout
		// middleware answers when the deadline was ours
		log.Debugw("checkout request cancelled", "flow", f.Kind(), "path", r.URL.Path, "error", err.Error())
		return
	}
	resp := a.newCheckoutResponse(out, f.State())
	if out.Failure == nil {
		httpWriteJSON(w, resp)
		return
	}
	checkoutError(out.Failure).WithMessage(out.Error).WithData(resp).Write(w)
}

// checkoutError picks the API error of a flow failure.
func checkoutError(e *checkout.Error) errors.Error {
	switch e.Kind {
	case checkout.KindPrecondition:
		if e == checkout.ErrNotInitialized {
			return errors.ErrCheckoutNotReady
		}
		return errors.ErrInvalidData.With(e.MessageID)
	case checkout.KindVendor:
		return errors.ErrPaymentFailed.WithErr(e)
	case checkout.KindUnexpectedState:
		return errors.ErrUnexpectedPaymentState.WithErr(e)
	default:
		if be, ok := backend.AsError(e); ok && be.ClientError() {
			return errors.ErrBackendRejected.WithErr(e)
		}
		return errors.ErrBackendUnavailable.WithErr(e)
	}
}
