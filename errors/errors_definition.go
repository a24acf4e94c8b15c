// Package errors provides the error type returned by the HTTP API together
// with the catalogue of error codes.
//
//nolint:lll
package errors

import (
	"fmt"
	"net/http"
)

// Error codes in the 40001-49999 range are the user's fault and return HTTP
// Status 4xx. Error codes 50001-59999 are the server's fault and return 5xx.
//
// NEVER change any of the current error codes, only append new errors after
// the current last 4XXX or 5XXX. Gaps in the sequence belong to retired
// errors and must not be reused.
var (
	// Authentication errors (401)
	ErrUnauthorized = Error{Code: 40001, HTTPstatus: http.StatusUnauthorized, Err: fmt.Errorf("authentication required"), LogLevel: "info"}

	// Validation errors (400)
	ErrMalformedBody       = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid JSON request body")}
	ErrMalformedURLParam   = Error{Code: 40010, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid URL parameter")}
	ErrInvalidData         = Error{Code: 40037, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid data provided")}
	ErrCheckoutNotReady    = Error{Code: 40041, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("checkout is not initialized")}
	ErrPaymentFailed       = Error{Code: 40042, HTTPstatus: http.StatusPaymentRequired, Err: fmt.Errorf("payment could not be completed"), LogLevel: "info"}
	ErrInvalidReturnURL    = Error{Code: 40043, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid return URL")}
	ErrBackendRejected     = Error{Code: 40044, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("request rejected by the backend"), LogLevel: "info"}
	ErrInvalidPaymentInput = Error{Code: 40045, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid payment method details")}

	// Not found errors (404)
	ErrNotFound              = Error{Code: 40401, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrPaymentMethodNotFound = Error{Code: 40402, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("payment method not found")}
	ErrStoryNotFound         = Error{Code: 40403, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("story not found")}

	// Server errors (500) - These should be used sparingly and only for true internal errors
	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: failed to process response"), LogLevel: "error"}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: operation failed"), LogLevel: "error"}
	ErrStripeError                = Error{Code: 50005, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: payment processing failed"), LogLevel: "error"}
	ErrBackendUnavailable         = Error{Code: 50009, HTTPstatus: http.StatusBadGateway, Err: fmt.Errorf("server error: backend request failed"), LogLevel: "error"}
	ErrUnexpectedPaymentState     = Error{Code: 50010, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: unexpected payment state"), LogLevel: "error"}
)
