package log

import (
	"bytes"
	"fmt"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestRedactsSensitiveKeys(t *testing.T) {
	c := qt.New(t)
	var buf bytes.Buffer
	c.Assert(InitWriter(LogLevelDebug, &buf), qt.IsNil)

	Infow("setup intent created",
		"setupIntentId", "seti_123",
		"clientSecret", "seti_123_secret_abcdef",
		"client_secret", "seti_123_secret_abcdef",
		"Authorization", "Bearer eyJhbGciOi",
	)
	out := buf.String()
	c.Assert(out, qt.Contains, "seti_123")
	c.Assert(out, qt.Not(qt.Contains), "secret_abcdef")
	c.Assert(out, qt.Not(qt.Contains), "eyJhbGciOi")
	c.Assert(out, qt.Contains, Redacted)
}

func TestSecretNeverPrints(t *testing.T) {
	c := qt.New(t)
	var buf bytes.Buffer
	c.Assert(InitWriter(LogLevelDebug, &buf), qt.IsNil)

	s := Secret("pi_1_secret_zzz")
	Debugf("confirming with %s", s)
	Warnw("odd field", "value", s)
	c.Assert(buf.String(), qt.Not(qt.Contains), "zzz")
	c.Assert(fmt.Sprintf("%v %s %#v", s, s, s), qt.Not(qt.Contains), "zzz")
}

func TestLevelFiltering(t *testing.T) {
	c := qt.New(t)
	var buf bytes.Buffer
	c.Assert(InitWriter(LogLevelWarn, &buf), qt.IsNil)
	Infow("hidden")
	c.Assert(buf.Len(), qt.Equals, 0)
	Warnw("shown")
	c.Assert(buf.String(), qt.Contains, "shown")
	c.Assert(Level(), qt.Equals, LogLevelWarn)

	c.Assert(InitWriter("nonsense", &buf), qt.IsNotNil)
}

func TestIsSensitiveKey(t *testing.T) {
	c := qt.New(t)
	for _, k := range []string{"token", "client-secret", "ClientSecret", "API_KEY", "password"} {
		c.Assert(IsSensitiveKey(k), qt.IsTrue, qt.Commentf("key %s", k))
	}
	for _, k := range []string{"setupIntentId", "status", "bookingId"} {
		c.Assert(IsSensitiveKey(k), qt.IsFalse, qt.Commentf("key %s", k))
	}
}
