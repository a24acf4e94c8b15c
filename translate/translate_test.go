package translate

import (
	"io/fs"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/pelletier/go-toml/v2"
)

func TestTranslate(t *testing.T) {
	c := qt.New(t)
	tr := MustNew()

	c.Assert(tr.T("en", ErrCardDeclined, nil), qt.Equals, "Your card was declined.")
	c.Assert(tr.T("es", ErrCardDeclined, nil), qt.Equals, "Tu tarjeta ha sido rechazada.")
	c.Assert(tr.T("es-MX", ErrCardDeclined, nil), qt.Equals, "Tu tarjeta ha sido rechazada.")
	// unsupported languages fall back to english
	c.Assert(tr.T("ja", ErrCardDeclined, nil), qt.Equals, "Your card was declined.")
	c.Assert(tr.T("", ErrCardDeclined, nil), qt.Equals, "Your card was declined.")
}

func TestTemplateData(t *testing.T) {
	c := qt.New(t)
	tr := MustNew()
	msg := tr.T("en", ErrUnexpectedStatus, map[string]any{"Status": "weird_status"})
	c.Assert(msg, qt.Equals, "Unexpected payment status: weird_status")
}

func TestUnknownIDFallsBackToGeneric(t *testing.T) {
	c := qt.New(t)
	tr := MustNew()
	c.Assert(tr.T("fr", "NoSuchMessage", nil), qt.Equals, tr.T("fr", ErrGeneric, nil))
}

func TestMatch(t *testing.T) {
	c := qt.New(t)
	tr := MustNew()
	c.Assert(tr.Match("fr-CA,fr;q=0.9,en;q=0.5").String(), qt.Equals, "fr")
	c.Assert(tr.Match("de").String(), qt.Equals, "en")
	c.Assert(tr.Match().String(), qt.Equals, "en")
}

// Every locale must define the same identifiers as the english one.
func TestLocalesAreComplete(t *testing.T) {
	c := qt.New(t)
	read := func(name string) map[string]string {
		data, err := fs.ReadFile(locales, name)
		c.Assert(err, qt.IsNil)
		m := map[string]string{}
		c.Assert(toml.Unmarshal(data, &m), qt.IsNil)
		return m
	}
	en := read("locales/active.en.toml")
	files, err := fs.Glob(locales, "locales/*.toml")
	c.Assert(err, qt.IsNil)
	c.Assert(files, qt.HasLen, 3)
	for _, f := range files {
		other := read(f)
		for id := range en {
			_, ok := other[id]
			c.Assert(ok, qt.IsTrue, qt.Commentf("%s misses %s", f, id))
		}
	}
}
