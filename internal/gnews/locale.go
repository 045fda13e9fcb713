package gnews

import (
	"strings"

	"golang.org/x/text/language"
)

// fallbackLocale is used when the caller asks for "all" languages or none.
const fallbackLocale = "en-US"

// Negotiate resolves the language and country sent to the provider. The
// language is the lowercase base subtag of locale, narrowed to the supported
// list when one is configured. The country is the explicit country argument,
// else the region of locale, else the region x/text infers for the language,
// else the uppercased language.
func (c *Config) Negotiate(locale, country string) (lang, cc string) {
	locale = strings.TrimSpace(locale)
	if locale == "" || strings.EqualFold(locale, "all") {
		locale = fallbackLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}

	base, _ := tag.Base()
	lang = strings.ToLower(base.String())
	if c.matcher != nil {
		if matched, ok := c.matchLanguage(tag); ok {
			lang = matched
		} else {
			lang = "en"
		}
	}

	cc = strings.ToUpper(strings.TrimSpace(country))
	if cc == "" {
		if region, conf := tag.Region(); conf != language.No && region.String() != "ZZ" {
			cc = region.String()
		}
	}
	if cc == "" {
		cc = strings.ToUpper(lang)
	}
	return lang, cc
}

func (c *Config) matchLanguage(tag language.Tag) (string, bool) {
	_, idx, conf := c.matcher.Match(tag)
	if conf == language.No || idx >= len(c.supported) {
		return "", false
	}
	base, _ := c.supported[idx].Base()
	return strings.ToLower(base.String()), true
}
