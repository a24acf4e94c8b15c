// Package translate turns message identifiers into user presentable strings
// in the caller's language. Messages live in the embedded locales directory,
// one TOML file per language.
package translate

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

// DefaultLanguage is used when the requested language has no translation.
var DefaultLanguage = language.English

// Message identifiers used across the application.
const (
	ErrGeneric                        = "ErrGeneric"
	ErrBackendGeneric                 = "ErrBackendGeneric"
	ErrCheckoutNotReady               = "ErrCheckoutNotReady"
	ErrMissingPaymentMethod           = "ErrMissingPaymentMethod"
	ErrSetupIntentFailed              = "ErrSetupIntentFailed"
	ErrCardDeclined                   = "ErrCardDeclined"
	ErrExpiredCard                    = "ErrExpiredCard"
	ErrIncorrectCVC                   = "ErrIncorrectCVC"
	ErrIncorrectNumber                = "ErrIncorrectNumber"
	ErrInsufficientFunds              = "ErrInsufficientFunds"
	ErrProcessingError                = "ErrProcessingError"
	ErrAuthenticationFailed           = "ErrAuthenticationFailed"
	ErrProviderDeclined               = "ErrProviderDeclined"
	ErrRequiresDifferentPaymentMethod = "ErrRequiresDifferentPaymentMethod"
	ErrPaymentRequiresAction          = "ErrPaymentRequiresAction"
	ErrUnexpectedStatus               = "ErrUnexpectedStatus"
	ErrPaymentCanceled                = "ErrPaymentCanceled"
)

//go:embed locales/*.toml
var locales embed.FS

// Translator resolves message identifiers for a language.
type Translator struct {
	bundle  *i18n.Bundle
	matcher language.Matcher
}

// New loads every embedded locale file into a new Translator.
func New() (*Translator, error) {
	bundle := i18n.NewBundle(DefaultLanguage)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	files, err := fs.Glob(locales, "locales/*.toml")
	if err != nil {
		return nil, err
	}
	for _, name := range files {
		data, err := locales.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("cannot read locale %s: %w", name, err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, path.Base(name)); err != nil {
			return nil, fmt.Errorf("cannot parse locale %s: %w", name, err)
		}
	}
	return &Translator{
		bundle:  bundle,
		matcher: language.NewMatcher(bundle.LanguageTags()),
	}, nil
}

// MustNew is New for package initialisation and tests.
func MustNew() *Translator {
	t, err := New()
	if err != nil {
		panic(err)
	}
	return t
}

// Languages lists the tags with a locale file, default language first.
func (t *Translator) Languages() []language.Tag {
	return t.bundle.LanguageTags()
}

// Match picks the best supported language for the given preferences. Each
// preference may be a tag ("es") or a full Accept-Language header value.
func (t *Translator) Match(prefs ...string) language.Tag {
	tag, _ := language.MatchStrings(t.matcher, prefs...)
	base, _ := tag.Base()
	return language.Make(base.String())
}

// T translates id for lang. data fills template fields such as {{.Status}}.
// Unknown identifiers fall back to the generic error message, so callers
// always get something presentable.
func (t *Translator) T(lang, id string, data map[string]any) string {
	loc := i18n.NewLocalizer(t.bundle, lang, DefaultLanguage.String())
	msg, err := loc.Localize(&i18n.LocalizeConfig{MessageID: id, TemplateData: data})
	if err == nil {
		return msg
	}
	if id != ErrGeneric {
		return t.T(lang, ErrGeneric, nil)
	}
	return "Something went wrong."
}
