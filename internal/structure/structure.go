// Package structure turns raw extracted document text into validated
// clinical entities: prompt assembly, the guarded LLM call, response
// parsing, entity validation, and confidence scoring, per spec.md §4.9.
// It is the bridge between internal/extract's raw text and
// internal/entitystore's typed persistence.
package structure

import (
	"context"
	"fmt"
	"strings"

	"github.com/ktiyab/coheara/internal/llmclient"
	"github.com/ktiyab/coheara/internal/modelrouter"
	"github.com/ktiyab/coheara/internal/safety"
	"github.com/ktiyab/coheara/internal/streamguard"
)

// Strategy names which prompt shape the structurer builds.
type Strategy int

const (
	// MarkdownList asks for a terse per-domain bullet list — the cheapest
	// prompt, used when extraction and structuring share one model pass.
	MarkdownList Strategy = iota
	// IterativeDrill first asks the model to enumerate every entity it
	// sees, then to fill in fields per entity — more tokens, used when a
	// model swap between extraction and structuring already paid the
	// latency cost of a second pass.
	IterativeDrill
	// LegacyJSON asks directly for the full entity JSON schema in one
	// shot, the fallback when neither of the above is selected.
	LegacyJSON
)

func (s Strategy) String() string {
	switch s {
	case MarkdownList:
		return "markdown_list"
	case IterativeDrill:
		return "iterative_drill"
	case LegacyJSON:
		return "legacy_json"
	default:
		return "unknown"
	}
}

// ChooseStrategy picks a prompt strategy from the router's processing
// mode: BatchStages already pays for a model swap, so the extra tokens an
// IterativeDrill enumeration costs are relatively cheap; Interleaved stays
// on the terse MarkdownList form to keep the single combined pass fast.
func ChooseStrategy(mode modelrouter.ProcessingMode) Strategy {
	if mode == modelrouter.ModeBatchStages {
		return IterativeDrill
	}
	return MarkdownList
}

// Input is everything BuildPrompt needs to assemble one structuring call.
type Input struct {
	DocumentText    string
	DocType         string
	OCRConfidence   *float64
	LowOCRThreshold float64
}

// Structurer runs the guarded LLM call and assembles a final Result from
// one document's extracted text.
type Structurer struct {
	Client   *llmclient.Client
	Model    string
	GuardCfg streamguard.Config
}

func NewStructurer(client *llmclient.Client, model string, guardCfg streamguard.Config) *Structurer {
	return &Structurer{Client: client, Model: model, GuardCfg: guardCfg}
}

// Result is the fully validated, scored outcome of structuring one
// document: what the model extracted plus whatever validation degraded.
type Result struct {
	Entities   ExtractedEntities
	Confidence float64
	Warnings   []string
}

// Structure sanitizes input, builds the prompt for strategy, calls the LLM
// under a StreamGuard, parses the response, validates every entity against
// allergies (always run, regardless of how much the model is trusted), and
// scores overall confidence.
func (s *Structurer) Structure(ctx context.Context, in Input, strategy Strategy, knownAllergens []string) (Result, error) {
	prompt := BuildPrompt(in, strategy)

	guard := streamguard.New(s.GuardCfg)
	var sb strings.Builder
	err := s.Client.GenerateStream(ctx, llmclient.GenerateRequest{Model: s.Model, Prompt: prompt}, func(token string) error {
		if abort := guard.Feed(token); abort != nil {
			sb.WriteString(token)
			return fmt.Errorf("structure.Structure: stream aborted: %s", abort.Pattern)
		}
		sb.WriteString(token)
		return nil
	})
	raw := sb.String()
	if err != nil && raw == "" {
		return Result{}, fmt.Errorf("structure.Structure: %w", err)
	}

	raw = safety.SanitizeLLMOutput(raw)
	entities := ParseResponse(raw)

	vr := Validate(&entities, lowConfidence(in), knownAllergens)
	confidence := ComputeConfidence(entities, vr.Warnings, groundingScore(in, entities))

	return Result{Entities: entities, Confidence: confidence, Warnings: vr.Warnings}, nil
}

func lowConfidence(in Input) bool {
	threshold := in.LowOCRThreshold
	if threshold == 0 {
		threshold = 0.6
	}
	return in.OCRConfidence != nil && *in.OCRConfidence < threshold
}

// groundingScore is a coarse token-overlap check between the source text
// and what the model claimed to extract — the same grounding idea
// chatextract's verifier uses for chat-derived entities, applied here to
// document-derived ones.
func groundingScore(in Input, e ExtractedEntities) float64 {
	names := entityNames(e)
	if len(names) == 0 {
		return 1.0
	}
	lowerSource := strings.ToLower(in.DocumentText)
	found := 0
	for _, n := range names {
		if n == "" {
			continue
		}
		if strings.Contains(lowerSource, strings.ToLower(n)) {
			found++
		}
	}
	return float64(found) / float64(len(names))
}
