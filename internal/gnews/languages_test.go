package gnews

import (
	"strings"
	"testing"
)

func TestParseSupportedLanguages(t *testing.T) {
	page := `<html><body>
	<div id="langSec">
	  <div><input type="radio" name="lang" value="de" data-name="Deutsch"></div>
	  <div><input type="radio" name="lang" value="en" data-name="English"></div>
	  <div><input type="radio" name="lang" value="zh-TW" data-name="中文 (繁體)"></div>
	  <input type="radio" name="lang" value="" data-name="Empty">
	  <input type="checkbox" name="other" value="xx" data-name="Not a language">
	</div>
	<input type="radio" name="lang" value="fr" data-name="Outside section">
	</body></html>`

	got, err := ParseSupportedLanguages(strings.NewReader(page))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{"de": "Deutsch", "en": "English", "zh-TW": "中文 (繁體)"}
	if len(got) != len(want) {
		t.Fatalf("expected %d languages, got %v", len(want), got)
	}
	for code, name := range want {
		if got[code] != name {
			t.Errorf("language %s = %q, want %q", code, got[code], name)
		}
	}
}
