// Package messages renders calm, patient-facing text for coherence
// detector findings from a bundled multilingual template file. (The safety
// package's escalation messages are not part of it; they are written in
// the code of that package.)
package messages

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var templatesYAML []byte

type catalog map[string]map[string]string // alertType -> lang -> template

var loaded catalog

func init() {
	var raw catalog
	if err := yaml.Unmarshal(templatesYAML, &raw); err != nil {
		panic(fmt.Sprintf("messages: invalid template bundle: %v", err))
	}
	if _, ok := raw["generic"]; !ok {
		panic("messages: template bundle is missing the generic fallback entry")
	}
	loaded = raw
}

// Render fills {{name}} placeholders in alertType's lang template with
// params. An unknown alertType falls back to the generic template; an
// unknown lang falls back to English.
func Render(alertType, lang string, params map[string]string) string {
	byLang, ok := loaded[alertType]
	if !ok {
		byLang = loaded["generic"]
	}
	tmpl, ok := byLang[lang]
	if !ok {
		tmpl = byLang["en"]
	}
	out := tmpl
	for k, v := range params {
		out = strings.ReplaceAll(out, "{{"+k+"}}", v)
	}
	return out
}
