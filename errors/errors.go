package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"

	"github.com/tutorhub/webfront/internal/log"
)

// Error is used by handler functions to wrap errors, assigning a unique error code
// and also specifying which HTTP Status should be used.
type Error struct {
	Err        error  // Original error
	Code       int    // Error code
	HTTPstatus int    // HTTP status code to return
	LogLevel   string // Log level for this error (defaults to "debug")
	Message    string // Translated, user presentable message (optional)
	Data       any    // Optional data to include in the error response
}

// MarshalJSON returns a JSON containing Err.Error(), Code and the translated
// message when present. Field HTTPstatus is ignored.
//
// Example output: {"error":"payment method not found","code":40402,"message":"..."}
func (e Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(
		struct {
			Error   string `json:"error"`
			Code    int    `json:"code"`
			Message string `json:"message,omitempty"`
			Data    any    `json:"data,omitempty"`
		}{
			Error:   e.Err.Error(),
			Code:    e.Code,
			Message: e.Message,
			Data:    e.Data,
		})
}

// Error returns the message contained inside the Error
func (e Error) Error() string {
	return e.Err.Error()
}

// Unwrap exposes the wrapped error to errors.Is / errors.As.
func (e Error) Unwrap() error {
	return e.Err
}

// Write serializes a JSON msg using Error.Err and Error.Code and passes that
// to the response writer. It also logs the error with the appropriate level.
func (e Error) Write(w http.ResponseWriter) {
	msg, err := json.Marshal(e)
	if err != nil {
		log.Warn(err)
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}

	pc, file, line, _ := runtime.Caller(1)
	caller := runtime.FuncForPC(pc).Name()

	logLevel := e.LogLevel
	if logLevel == "" {
		if e.HTTPstatus >= 500 {
			logLevel = log.LogLevelError
		} else {
			logLevel = log.LogLevelDebug
		}
	}

	if e.HTTPstatus >= 500 {
		log.Errorw(e.Err, "API error response",
			"status", e.HTTPstatus, "code", e.Code, "caller", caller, "file", fmt.Sprintf("%s:%d", file, line))
	} else {
		switch logLevel {
		case log.LogLevelInfo:
			log.Infow("API error response", "status", e.HTTPstatus, "error", e.Error(), "code", e.Code, "caller", caller)
		case log.LogLevelWarn:
			log.Warnw("API error response", "status", e.HTTPstatus, "error", e.Error(), "code", e.Code, "caller", caller)
		default:
			log.Debugw("API error response", "status", e.HTTPstatus, "error", e.Error(), "code", e.Code, "caller", caller)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(e.HTTPstatus)
	if _, err := w.Write(append(msg, '\n')); err != nil {
		log.Warnw("failed to write error response", "error", err)
	}
}

// Withf returns a copy of Error with the Sprintf formatted string appended at the end of e.Err
func (e Error) Withf(format string, args ...any) Error {
	c := e
	c.Err = fmt.Errorf("%w: %v", e.Err, fmt.Sprintf(format, args...))
	return c
}

// With returns a copy of Error with the string appended at the end of e.Err
func (e Error) With(s string) Error {
	c := e
	c.Err = fmt.Errorf("%w: %v", e.Err, s)
	return c
}

// WithErr returns a copy of Error with err.Error() appended at the end of e.Err
func (e Error) WithErr(err error) Error {
	c := e
	c.Err = fmt.Errorf("%w: %v", e.Err, err.Error())
	return c
}

// WithMessage returns a copy of Error carrying a translated message for the user.
func (e Error) WithMessage(msg string) Error {
	c := e
	c.Message = msg
	return c
}

// WithLogLevel returns a copy of Error with the specified log level
func (e Error) WithLogLevel(level string) Error {
	c := e
	c.LogLevel = level
	return c
}

// WithData returns a copy of Error with data attached to the response.
func (e Error) WithData(data any) Error {
	c := e
	c.Data = data
	return c
}
