// Package langmeta resolves display metadata (native names and emoji
// flags) for language codes and picks default languages among the
// languages a widget actually ships.
package langmeta

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Meta describes language display metadata.
type Meta struct {
	Name string
	Flag string
}

func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Parse returns the BCP 47 tag for a language code, accepting
// underscore variants like pt_BR.
func Parse(lang string) (language.Tag, error) {
	return language.Parse(canonicalize(lang))
}

// Resolve returns the native language name and a region flag for a
// language code. Unknown codes resolve to the code itself and no flag.
func Resolve(lang string) Meta {
	tag, err := Parse(lang)
	if err != nil {
		return Meta{Name: lang}
	}
	name := display.Self.Name(tag)
	if name == "" {
		name = lang
	}
	m := Meta{Name: name}
	if region, conf := tag.Region(); conf != language.No {
		m.Flag = flagFromRegion(region.String())
	}
	return m
}

// flagFromRegion turns a two-letter region code into its emoji flag.
func flagFromRegion(region string) string {
	if len(region) != 2 {
		return ""
	}
	region = strings.ToUpper(region)
	var b strings.Builder
	for _, r := range region {
		if r < 'A' || r > 'Z' {
			return ""
		}
		b.WriteRune(0x1F1E6 + (r - 'A'))
	}
	return b.String()
}

// Match picks the language from available that best serves preferred.
// An exact code match wins; otherwise BCP 47 matching is used, falling
// back to the first parseable available language. Returns "" when
// available is empty.
func Match(preferred string, available []string) string {
	if len(available) == 0 {
		return ""
	}
	for _, lang := range available {
		if lang == preferred {
			return lang
		}
	}

	var tags []language.Tag
	var codes []string
	for _, lang := range available {
		tag, err := Parse(lang)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		codes = append(codes, lang)
	}
	if len(tags) == 0 {
		return available[0]
	}

	want, err := Parse(preferred)
	if err != nil {
		return codes[0]
	}
	_, idx, _ := language.NewMatcher(tags).Match(want)
	if idx < 0 || idx >= len(codes) {
		return codes[0]
	}
	return codes[idx]
}
