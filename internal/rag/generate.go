package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ktiyab/coheara/internal/llmclient"
	"github.com/ktiyab/coheara/internal/repository"
	"github.com/ktiyab/coheara/internal/safety"
	"github.com/ktiyab/coheara/internal/streamguard"
)

// maxContextChunks bounds the prompt's token budget by chunk count rather
// than a precise tokenizer, matching the coarse word-based estimate chunk
// already uses.
const maxContextChunks = 12

// Generator turns retrieved context into a cited, confidence-gated answer,
// streamed under a StreamGuard and checked against the pediatric escalation
// rule table before the model is ever consulted.
type Generator struct {
	client         *llmclient.Client
	model          string
	guardCfg       streamguard.Config
	documents      *repository.DocumentRepo
	confidenceGate float64
}

func NewGenerator(client *llmclient.Client, model string, guardCfg streamguard.Config, documents *repository.DocumentRepo, confidenceGate float64) *Generator {
	return &Generator{client: client, model: model, guardCfg: guardCfg, documents: documents, confidenceGate: confidenceGate}
}

// GenerateOpts carries the per-turn context Generate needs beyond the
// retrieved chunks: conversation history, escalation inputs, and language.
type GenerateOpts struct {
	History   []repository.Message
	AgeMonths *int
	IsMinor   bool
	Lang      string
}

// Generate produces a RagResponse for query given retrieved context.
// Escalation is checked first and, for a Replace action, short-circuits
// generation entirely — the model is never trusted for pediatric triage.
func (g *Generator) Generate(ctx context.Context, query string, retrieved Retrieved, opts GenerateOpts) (*RagResponse, error) {
	sanitized := safety.SanitizePatientInput(query, 4000)
	query = sanitized.Text

	escalation, found := safety.CheckEscalation(query, opts.AgeMonths, opts.IsMinor, opts.Lang)
	if found && escalation.Action == safety.ActionReplaceWithEmergency {
		return &RagResponse{
			Answer:           escalation.Message,
			Confidence:       1.0,
			Boundary:         BoundaryUnderstanding,
			Escalated:        true,
			EscalationRuleID: escalation.RuleID,
		}, nil
	}

	chunks := retrieved.Chunks
	if len(chunks) > maxContextChunks {
		chunks = chunks[:maxContextChunks]
	}

	if len(chunks) == 0 && len(retrieved.Structured.Lines) == 0 {
		resp := &RagResponse{
			Answer:     noContextMessage(opts.Lang),
			Confidence: 0,
			Boundary:   BoundaryOutOfBounds,
		}
		applyEscalation(resp, escalation, found)
		return resp, nil
	}

	prompt := buildPrompt(query, chunks, retrieved.Structured, opts.History)

	raw, err := g.generateUnderGuard(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("rag.Generate: %w", err)
	}
	raw = safety.SanitizeLLMOutput(raw)

	parsed := parseResponse(raw)
	citations := g.validateCitations(ctx, parsed.Citations, chunks)

	resp := &RagResponse{
		Answer:         parsed.Answer,
		Citations:      citations,
		Boundary:       parsed.Boundary,
		ChunksIncluded: chunks,
	}
	resp.Confidence = computeConfidence(parsed.Boundary, len(citations), len(chunks), parsed.Confidence)
	if resp.Confidence < g.confidenceGate {
		resp.Answer = limitedInformationDisclaimer(opts.Lang) + "\n\n" + resp.Answer
	}
	applyEscalation(resp, escalation, found)
	return resp, nil
}

func applyEscalation(resp *RagResponse, escalation *safety.EscalationResult, found bool) {
	if !found {
		return
	}
	resp.Escalated = true
	resp.EscalationRuleID = escalation.RuleID
	switch escalation.Action {
	case safety.ActionPrependWarning:
		resp.Answer = escalation.Message + "\n\n" + resp.Answer
	case safety.ActionAppendWarning:
		resp.Answer = resp.Answer + "\n\n" + escalation.Message
	}
}

func (g *Generator) generateUnderGuard(ctx context.Context, prompt string) (string, error) {
	guard := streamguard.New(g.guardCfg)
	var sb strings.Builder
	err := g.client.GenerateStream(ctx, llmclient.GenerateRequest{Model: g.model, Prompt: prompt}, func(token string) error {
		if abort := guard.Feed(token); abort != nil {
			sb.WriteString(token)
			return fmt.Errorf("rag.generateUnderGuard: stream aborted: %s", abort.Pattern)
		}
		sb.WriteString(token)
		return nil
	})
	if err != nil {
		if sb.Len() > 0 {
			return sb.String(), nil
		}
		return "", err
	}
	return sb.String(), nil
}

type parsedResponse struct {
	Answer     string
	Boundary   BoundaryCheck
	Confidence float64
	Citations  []rawCitation
}

type rawCitation struct {
	Index   int
	Excerpt string
}

type generationJSON struct {
	Answer        string  `json:"answer"`
	BoundaryCheck string  `json:"boundary_check"`
	Confidence    float64 `json:"confidence"`
	Citations     []struct {
		Index   int    `json:"index"`
		Excerpt string `json:"excerpt"`
	} `json:"citations"`
}

// parseResponse extracts the model's structured answer. A response that
// isn't valid JSON is treated as a plain-text answer with no citations and
// an OutOfBounds boundary, so a malformed response never silently claims
// full confidence.
func parseResponse(raw string) parsedResponse {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		lines := strings.Split(cleaned, "\n")
		if len(lines) >= 3 {
			cleaned = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}
	cleaned = strings.TrimSpace(cleaned)

	var parsed generationJSON
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return parsedResponse{Answer: raw, Boundary: BoundaryOutOfBounds}
	}

	boundary := BoundaryOutOfBounds
	if strings.EqualFold(parsed.BoundaryCheck, "understanding") {
		boundary = BoundaryUnderstanding
	}

	citations := make([]rawCitation, 0, len(parsed.Citations))
	for _, c := range parsed.Citations {
		citations = append(citations, rawCitation{Index: c.Index, Excerpt: c.Excerpt})
	}

	return parsedResponse{Answer: parsed.Answer, Boundary: boundary, Confidence: parsed.Confidence, Citations: citations}
}

// validateCitations maps each raw citation index (1-based, into chunks) to
// its chunk/document id, then confirms the document still exists in the
// current corpus — a citation pointing at a since-deleted document is
// dropped rather than surfaced as if it were still grounded.
func (g *Generator) validateCitations(ctx context.Context, raw []rawCitation, chunks []ScoredChunk) []Citation {
	var out []Citation
	for _, c := range raw {
		if c.Index < 1 || c.Index > len(chunks) {
			continue
		}
		chunk := chunks[c.Index-1]
		if _, err := g.documents.GetByID(ctx, chunk.DocumentID); err != nil {
			continue
		}
		out = append(out, Citation{Index: c.Index, ChunkID: chunk.ChunkID, DocumentID: chunk.DocumentID, Excerpt: c.Excerpt})
	}
	return out
}

// computeConfidence folds boundary, citation coverage, and the model's own
// self-reported confidence into one score. An OutOfBounds answer is capped
// low regardless of what the model claims.
func computeConfidence(boundary BoundaryCheck, citationCount, chunkCount int, modelConfidence float64) float64 {
	if boundary == BoundaryOutOfBounds {
		if modelConfidence > 0.2 {
			return 0.2
		}
		return modelConfidence
	}
	if modelConfidence > 0 {
		return modelConfidence
	}
	if chunkCount == 0 {
		return 0
	}
	coverage := float64(citationCount) / float64(chunkCount)
	if coverage > 1 {
		coverage = 1
	}
	return 0.4 + 0.6*coverage
}

func buildPrompt(query string, chunks []ScoredChunk, structured StructuredContext, history []repository.Message) string {
	var sb strings.Builder
	sb.WriteString("=== CONTEXT CHUNKS ===\n")
	for i, c := range chunks {
		sb.WriteString(fmt.Sprintf("[%d] (document: %s, score: %.2f)\n%s\n\n", i+1, c.DocumentID, c.Similarity, c.Content))
	}
	if len(structured.Lines) > 0 {
		sb.WriteString("=== STRUCTURED RECORD DATA ===\n")
		for _, line := range structured.Lines {
			sb.WriteString("- ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	if len(history) > 0 {
		sb.WriteString("=== CONVERSATION HISTORY ===\n")
		for _, m := range history {
			sb.WriteString(fmt.Sprintf("%s: %s\n", m.Role, m.Content))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("=== QUERY ===\n")
	sb.WriteString(query)
	sb.WriteString("\n\n")
	sb.WriteString("Only use the context above to answer. Never speculate beyond it. ")
	sb.WriteString("Cite every factual claim as [1], [2], etc, referencing the chunk numbers. ")
	sb.WriteString("If the context does not contain enough information to answer, set boundary_check to \"OutOfBounds\"; ")
	sb.WriteString("otherwise set it to \"Understanding\".\n")
	sb.WriteString(`Respond as JSON: {"answer": "...", "boundary_check": "Understanding|OutOfBounds", "citations": [{"index": N, "excerpt": "..."}], "confidence": 0.0-1.0}`)
	return sb.String()
}

func noContextMessage(lang string) string {
	switch lang {
	case "fr":
		return "Aucun document ou renseignement n'est disponible dans ce dossier pour répondre à cette question."
	case "de":
		return "In dieser Akte sind keine Dokumente oder Informationen verfügbar, um diese Frage zu beantworten."
	default:
		return "There are no documents or information in this record to answer that question."
	}
}

func limitedInformationDisclaimer(lang string) string {
	switch lang {
	case "fr":
		return "Les informations disponibles pour répondre à cette question sont limitées."
	case "de":
		return "Die verfügbaren Informationen zur Beantwortung dieser Frage sind begrenzt."
	default:
		return "The information available to answer this question is limited."
	}
}
