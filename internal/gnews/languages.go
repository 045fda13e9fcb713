package gnews

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PreferencesURL lists the interface languages Google accepts.
const PreferencesURL = "https://www.google.com/preferences?#languages"

// ParseSupportedLanguages reads the language radio buttons of the preferences
// page and returns language code -> display name.
func ParseSupportedLanguages(r io.Reader) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse preferences page: %w", err)
	}

	languages := make(map[string]string)
	doc.Find(`#langSec input[name="lang"]`).Each(func(_ int, s *goquery.Selection) {
		code := strings.TrimSpace(s.AttrOr("value", ""))
		if code == "" {
			return
		}
		languages[code] = strings.TrimSpace(s.AttrOr("data-name", ""))
	})
	return languages, nil
}
