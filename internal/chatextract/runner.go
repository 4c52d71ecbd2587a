package chatextract

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ktiyab/coheara/internal/safety"
)

// BatchRunner orchestrates a full extraction pass over one conversation:
// analyze → per-domain extract (one LLM call at a time, since a CPU-bound
// local model runtime has no concurrency to exploit) → verify → filter by
// confidence threshold.
type BatchRunner struct {
	analyzer   *Analyzer
	extractors []DomainExtractor
	verifier   *SemanticVerifier
	config     Config
}

func NewBatchRunner(extractors []DomainExtractor, config Config) *BatchRunner {
	return &BatchRunner{
		analyzer:   NewAnalyzer(),
		extractors: extractors,
		verifier:   NewSemanticVerifier(config.MaxItemsPerDomain),
		config:     config,
	}
}

// ExtractConversation runs extraction on a single conversation and returns
// every verified item clearing the confidence threshold, ready for storage
// as pending review items.
func (r *BatchRunner) ExtractConversation(ctx context.Context, conversation ConversationBatch, patientContext PatientContext, llm LLM) (ConversationExtractionResult, error) {
	analysis := r.analyzer.Analyze(conversation)
	if analysis.IsPureQA || len(analysis.Domains) == 0 {
		return ConversationExtractionResult{ConversationID: conversation.ID, Skipped: true}, nil
	}

	var allItems []VerifiedItem
	var domainsFound []Domain

	for _, match := range analysis.Domains {
		extractor := r.extractorFor(match.Domain)
		if extractor == nil {
			continue
		}

		input := BuildInput(conversation, match, patientContext)
		prompt := extractor.BuildPrompt(input)

		rawResponse, err := llm.Generate(ctx, r.config.ModelName, extractionSystemPrompt, prompt)
		if err != nil {
			return ConversationExtractionResult{}, fmt.Errorf("chatextract.BatchRunner.ExtractConversation: %w", err)
		}
		response := safety.SanitizeLLMOutput(rawResponse)

		items, err := extractor.ParseResponse(response)
		if err != nil {
			// A single domain failing to parse doesn't fail the conversation —
			// the model may simply have misbehaved for this one prompt.
			continue
		}
		if len(items) == 0 {
			continue
		}
		AssignSourceMessages(items, conversation.Messages)

		verification := r.verifier.Verify(items, input)
		for _, vi := range verification.Items {
			if vi.Confidence >= r.config.ConfidenceThreshold {
				allItems = append(allItems, vi)
			}
		}
		domainsFound = append(domainsFound, match.Domain)
	}

	return ConversationExtractionResult{
		ConversationID: conversation.ID,
		DomainsFound:   domainsFound,
		Items:          allItems,
	}, nil
}

func (r *BatchRunner) extractorFor(domain Domain) DomainExtractor {
	for _, e := range r.extractors {
		if e.Domain() == domain {
			return e
		}
	}
	return nil
}

// NewBatchID generates a fresh batch identifier for one extraction run.
func NewBatchID() string { return uuid.NewString() }
