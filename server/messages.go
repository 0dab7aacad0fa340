package server

import (
	"encoding/json"
	"errors"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/minios-linux/ars/langmeta"
	"github.com/minios-linux/ars/msgtree"
	"github.com/minios-linux/ars/pack"
)

// Translation strings may carry i18next {{interpolation}}; delimiters
// that never occur keep go-i18n from executing them as templates.
const (
	noLeftDelim  = "\x00{{"
	noRightDelim = "}}\x00"
)

// errUnknownMessage reports a path absent from every language.
var errUnknownMessage = errors.New("unknown message")

// catalog holds the messages of one packaged widget.
type catalog struct {
	bundle      *i18n.Bundle
	defaultLang string
	languages   []string
	// paths lists message ids in default-language order.
	paths []string
}

// newCatalog loads the locale documents of a widget. Documents that do
// not parse are logged and skipped.
func newCatalog(c pack.WebComponent, log *zap.Logger) *catalog {
	cat := &catalog{}
	for _, l := range c.Locales {
		cat.languages = append(cat.languages, l.Lang)
	}
	cat.defaultLang = defaultLanguage(c, cat.languages)

	tag, err := langmeta.Parse(cat.defaultLang)
	if err != nil {
		tag = language.Und
	}
	cat.bundle = i18n.NewBundle(tag)

	for _, l := range c.Locales {
		lt, err := langmeta.Parse(l.Lang)
		if err != nil {
			log.Warn("skipping locale with invalid language tag", zap.String("widget", c.Name), zap.String("lang", l.Lang))
			continue
		}
		tree, err := msgtree.ParseJSON(l.Bytes)
		if err != nil {
			log.Warn("skipping malformed locale document", zap.String("widget", c.Name), zap.String("lang", l.Lang), zap.Error(err))
			continue
		}
		var msgs []*i18n.Message
		for _, leaf := range tree.Leaves() {
			msgs = append(msgs, &i18n.Message{
				ID:         leaf.Path,
				Other:      leaf.Value,
				LeftDelim:  noLeftDelim,
				RightDelim: noRightDelim,
			})
			if l.Lang == cat.defaultLang {
				cat.paths = append(cat.paths, leaf.Path)
			}
		}
		if err := cat.bundle.AddMessages(lt, msgs...); err != nil {
			log.Warn("skipping locale", zap.String("widget", c.Name), zap.String("lang", l.Lang), zap.Error(err))
		}
	}
	return cat
}

// defaultLanguage reads the default language from the widget's metadata
// document, falling back to the first packaged language.
func defaultLanguage(c pack.WebComponent, languages []string) string {
	if len(c.Metadata) > 0 {
		var doc struct {
			DefaultLanguage string `json:"defaultLanguage"`
		}
		if json.Unmarshal(c.Metadata, &doc) == nil && doc.DefaultLanguage != "" {
			return doc.DefaultLanguage
		}
	}
	if len(languages) > 0 {
		return languages[0]
	}
	return ""
}

func (cat *catalog) localizer(lang string) *i18n.Localizer {
	return i18n.NewLocalizer(cat.bundle, lang, cat.defaultLang)
}

// message resolves one path in lang, falling back to the default language.
// It returns the language the message was found in.
func (cat *catalog) message(lang, path string) (string, string, error) {
	text, tag, err := cat.localizer(lang).LocalizeWithTag(&i18n.LocalizeConfig{MessageID: path})
	if err != nil {
		var notFound *i18n.MessageNotFoundErr
		if errors.As(err, &notFound) {
			return "", "", errUnknownMessage
		}
		return "", "", err
	}
	return text, tag.String(), nil
}

// all resolves every default-language path in lang.
func (cat *catalog) all(lang string) map[string]string {
	loc := cat.localizer(lang)
	out := make(map[string]string, len(cat.paths))
	for _, p := range cat.paths {
		text, err := loc.Localize(&i18n.LocalizeConfig{MessageID: p})
		if err != nil {
			continue
		}
		out[p] = text
	}
	return out
}
