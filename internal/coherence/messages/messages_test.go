package messages

import (
	"strings"
	"testing"
)

func TestRenderFillsPlaceholders(t *testing.T) {
	out := Render("conflict", "en", map[string]string{"drug": "Lisinopril"})
	if !strings.Contains(out, "Lisinopril") {
		t.Fatalf("expected drug name substituted, got %q", out)
	}
}

func TestRenderFallsBackToGenericForUnknownType(t *testing.T) {
	out := Render("not-a-real-type", "en", nil)
	if out == "" {
		t.Fatal("expected a non-empty fallback message")
	}
}

func TestRenderFallsBackToEnglishForUnknownLang(t *testing.T) {
	enOut := Render("dose", "en", map[string]string{"drug": "x"})
	unknownOut := Render("dose", "xx", map[string]string{"drug": "x"})
	if enOut != unknownOut {
		t.Fatalf("expected unknown language to fall back to English: %q vs %q", enOut, unknownOut)
	}
}

func TestAllTemplatesAvoidAlarmLanguage(t *testing.T) {
	banned := []string{"immediately", "urgently", "emergency", "danger", "warning"}
	for alertType, byLang := range loaded {
		for lang, tmpl := range byLang {
			lower := strings.ToLower(tmpl)
			for _, word := range banned {
				if strings.Contains(lower, word) {
					t.Errorf("template %s/%s contains banned word %q: %q", alertType, lang, word, tmpl)
				}
			}
		}
	}
}
