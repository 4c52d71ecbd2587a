// Package modelrouter chooses an extraction strategy and structuring model
// from a file's category, the set of enabled models, and their capability
// tags, following spec.md's routing table as a straight rule evaluation —
// no runtime reflection, matching the corpus's small-interface dispatch
// style.
package modelrouter

import (
	"fmt"
	"strings"
)

// Category is the document category the format/extract stages produced.
type Category int

const (
	CategoryPlainText Category = iota
	CategoryDigitalPdf
	CategoryScannedPdf
	CategoryImage
)

// ExtractionKind names the chosen extraction strategy.
type ExtractionKind int

const (
	ExtractionDirectText ExtractionKind = iota
	ExtractionPdfiumText
	ExtractionVisionOCR
)

// ProcessingMode controls whether extraction and structuring run against
// the same model (Interleaved) or as two sequential batches with a model
// swap in between (BatchStages).
type ProcessingMode int

const (
	ModeInterleaved ProcessingMode = iota
	ModeBatchStages
)

// ModelInfo is an installed, enabled model and its capability tags.
type ModelInfo struct {
	Name         string
	Capabilities map[string]bool // "vision", "medical", "txt", "png", "jpeg", ...
}

// Plan is the router's decision for one document.
type Plan struct {
	Extraction       ExtractionKind
	ExtractionModel  string // empty when Extraction == ExtractionPdfiumText/DirectText
	StructuringModel string
	Mode             ProcessingMode
}

// ErrNoModelAvailable is returned when a vision-tagged model is required
// but none is installed/enabled, or when no structuring model can be chosen.
type ErrNoModelAvailable struct{ Category Category }

func (e ErrNoModelAvailable) Error() string {
	return fmt.Sprintf("modelrouter: no suitable model available for category %v", e.Category)
}

// Route picks extraction strategy + structuring model for one document.
// userPreference is the user's preferred structuring model name, or "".
func Route(category Category, enabled []ModelInfo, userPreference string) (Plan, error) {
	var plan Plan

	visionModel, hasVision := firstWithCapability(enabled, "vision")

	switch category {
	case CategoryPlainText:
		plan.Extraction = ExtractionDirectText
	case CategoryDigitalPdf:
		if hasVision {
			plan.Extraction = ExtractionVisionOCR
			plan.ExtractionModel = visionModel
		} else {
			plan.Extraction = ExtractionPdfiumText
		}
	case CategoryScannedPdf, CategoryImage:
		if !hasVision {
			return Plan{}, ErrNoModelAvailable{Category: category}
		}
		plan.Extraction = ExtractionVisionOCR
		plan.ExtractionModel = visionModel
	default:
		return Plan{}, fmt.Errorf("modelrouter.Route: unknown category %v", category)
	}

	plan.StructuringModel = chooseStructuringModel(enabled, userPreference)
	if plan.StructuringModel == "" {
		return Plan{}, ErrNoModelAvailable{Category: category}
	}

	if plan.ExtractionModel != "" && plan.ExtractionModel != plan.StructuringModel {
		plan.Mode = ModeBatchStages
	} else {
		plan.Mode = ModeInterleaved
	}

	return plan, nil
}

func firstWithCapability(models []ModelInfo, cap string) (string, bool) {
	for _, m := range models {
		if m.Capabilities[cap] {
			return m.Name, true
		}
	}
	return "", false
}

var medicalFamilyPrefixes = []string{"meditron", "biomistral", "medalpaca"}

func chooseStructuringModel(models []ModelInfo, userPreference string) string {
	if userPreference != "" {
		for _, m := range models {
			if m.Name == userPreference {
				return m.Name
			}
		}
	}
	if name, ok := firstWithCapability(models, "medical"); ok {
		return name
	}
	for _, m := range models {
		lower := strings.ToLower(m.Name)
		for _, prefix := range medicalFamilyPrefixes {
			if strings.HasPrefix(lower, prefix) {
				return m.Name
			}
		}
	}
	if len(models) > 0 {
		return models[0].Name
	}
	return ""
}
