package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedResponse is returned when a 2xx body cannot be decoded.
var ErrMalformedResponse = errors.New("backend: malformed response body")

// Error is a non-2xx answer of the backend. Message carries the body's
// "error" or "message" field; Fallback is true when neither was present and
// Message is a generic text.
type Error struct {
	StatusCode int
	Message    string
	Fallback   bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend error [%d]: %s", e.StatusCode, e.Message)
}

// NotFound reports a 404 answer.
func (e *Error) NotFound() bool { return e.StatusCode == 404 }

// ClientError reports a 4xx answer.
func (e *Error) ClientError() bool { return e.StatusCode >= 400 && e.StatusCode < 500 }

// newError extracts the backend's message from body. It prefers "error"
// over "message" and falls back to a generic text when the body is empty,
// not JSON or has neither field.
func newError(status int, body []byte) *Error {
	var payload struct {
		Error   any `json:"error"`
		Message any `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, v := range []any{payload.Error, payload.Message} {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return &Error{StatusCode: status, Message: s}
			}
		}
	}
	return &Error{
		StatusCode: status,
		Message:    fmt.Sprintf("request failed with status %d", status),
		Fallback:   true,
	}
}

// AsError unwraps err into a backend *Error.
func AsError(err error) (*Error, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
