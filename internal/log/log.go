// Package log is the process-wide structured logger. It keeps the
// Infow/Debugf/Errorw call-site style and refuses to print secrets: values
// logged under a sensitive key, and any Secret value, are written as
// "[REDACTED]".
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Log levels accepted by Init.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Redacted is written in place of every secret value.
const Redacted = "[REDACTED]"

var (
	mu     sync.RWMutex
	logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	level  = LogLevelInfo
)

// sensitiveKeys are compared case-insensitively after removing '_' and '-'.
var sensitiveKeys = map[string]struct{}{
	"clientsecret":  {},
	"secret":        {},
	"token":         {},
	"accesstoken":   {},
	"authorization": {},
	"password":      {},
	"apikey":        {},
	"stripekey":     {},
}

// Secret wraps a value that must never reach a log sink.
type Secret string

// String implements fmt.Stringer.
func (Secret) String() string { return Redacted }

// GoString implements fmt.GoStringer so %#v is covered too.
func (Secret) GoString() string { return Redacted }

// MarshalText keeps JSON encoders from printing the value.
func (Secret) MarshalText() ([]byte, error) { return []byte(Redacted), nil }

// Init configures the global logger. output is "stdout", "stderr" or a
// file path; an empty errOutput keeps everything on output.
func Init(logLevel, output string, errOutput io.Writer) error {
	var w io.Writer
	switch output {
	case "stdout":
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	case "stderr", "":
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	default:
		f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("cannot open log output %s: %w", output, err)
		}
		w = f
	}
	if errOutput != nil {
		w = zerolog.MultiLevelWriter(w, errorWriter{errOutput})
	}
	return setup(logLevel, w)
}

// InitWriter configures the logger to write JSON lines to w. Used by tests.
func InitWriter(logLevel string, w io.Writer) error {
	return setup(logLevel, w)
}

func setup(logLevel string, w io.Writer) error {
	lvl, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	mu.Lock()
	defer mu.Unlock()
	logger = zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	level = logLevel
	return nil
}

// Level returns the configured level name.
func Level() string {
	mu.RLock()
	defer mu.RUnlock()
	return level
}

func current() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := logger
	return &l
}

// Debugw logs msg with key/value pairs at debug level.
func Debugw(msg string, keyvalues ...any) { current().Debug().Fields(Fields(keyvalues...)).Msg(msg) }

// Infow logs msg with key/value pairs at info level.
func Infow(msg string, keyvalues ...any) { current().Info().Fields(Fields(keyvalues...)).Msg(msg) }

// Warnw logs msg with key/value pairs at warn level.
func Warnw(msg string, keyvalues ...any) { current().Warn().Fields(Fields(keyvalues...)).Msg(msg) }

// Errorw logs err and msg with key/value pairs at error level.
func Errorw(err error, msg string, keyvalues ...any) {
	current().Error().Err(err).Fields(Fields(keyvalues...)).Msg(msg)
}

func Debugf(format string, args ...any) { current().Debug().Msg(sprintf(format, args...)) }
func Infof(format string, args ...any)  { current().Info().Msg(sprintf(format, args...)) }
func Warnf(format string, args ...any)  { current().Warn().Msg(sprintf(format, args...)) }
func Errorf(format string, args ...any) { current().Error().Msg(sprintf(format, args...)) }

// Warn logs a single value at warn level.
func Warn(v any) { current().Warn().Msg(sprintf("%v", v)) }

// Fatalf logs at fatal level and exits.
func Fatalf(format string, args ...any) { current().Fatal().Msg(sprintf(format, args...)) }

// Fatal logs v at fatal level and exits.
func Fatal(v any) { current().Fatal().Msg(sprintf("%v", v)) }

// Fields turns alternating key/value pairs into a redacted field map. A
// trailing key without value is kept with a nil value.
func Fields(keyvalues ...any) map[string]any {
	fields := make(map[string]any, len(keyvalues)/2)
	for i := 0; i < len(keyvalues); i += 2 {
		key := fmt.Sprint(keyvalues[i])
		var value any
		if i+1 < len(keyvalues) {
			value = keyvalues[i+1]
		}
		if IsSensitiveKey(key) {
			value = Redacted
		}
		if _, ok := value.(Secret); ok {
			value = Redacted
		}
		fields[key] = value
	}
	return fields
}

// IsSensitiveKey reports whether values logged under key are redacted.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(key))
	_, ok := sensitiveKeys[k]
	return ok
}

// sprintf formats with Secret arguments replaced.
func sprintf(format string, args ...any) string {
	for i, a := range args {
		if _, ok := a.(Secret); ok {
			args[i] = Redacted
		}
	}
	return fmt.Sprintf(format, args...)
}

// errorWriter forwards only error-and-above entries.
type errorWriter struct{ w io.Writer }

func (e errorWriter) Write(p []byte) (int, error) { return e.w.Write(p) }

func (e errorWriter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l < zerolog.ErrorLevel {
		return len(p), nil
	}
	return e.w.Write(p)
}
