// Package chatextract turns a patient/assistant conversation into reviewable
// candidate medical facts: it analyzes which domains a conversation touches,
// asks the model to extract structured data per domain, verifies the result
// against the source text, and stores what passes as a PendingReviewItem for
// the patient to confirm, edit, or dismiss. Grounded on
// original_source/src-tauri/src/pipeline/batch_extraction/{runner,verifier,
// dispatch,store}.rs.
package chatextract

import "time"

// Domain is one of the three kinds of fact a conversation can yield.
type Domain string

const (
	DomainSymptom     Domain = "symptom"
	DomainMedication  Domain = "medication"
	DomainAppointment Domain = "appointment"
)

// Grounding is how well an extracted item's key terms were found in the
// conversation's own text.
type Grounding string

const (
	GroundingGrounded   Grounding = "grounded"
	GroundingPartial    Grounding = "partial"
	GroundingUngrounded Grounding = "ungrounded"
)

// ConversationMessage is one turn of a chat conversation.
type ConversationMessage struct {
	ID      string
	Role    string // "patient" or "assistant"
	Content string
}

// ConversationBatch is the unit extraction runs over: one conversation's
// full message history as of the time extraction is triggered.
type ConversationBatch struct {
	ID            string
	Messages      []ConversationMessage
	LastMessageAt time.Time
}

// PatientContext carries the few patient attributes extraction prompts need
// (age for pediatric phrasing, preferred language for the prompt/response).
type PatientContext struct {
	AgeMonths *int
	Language  string
}

// ExtractedItem is one candidate fact the model returned for a domain,
// before verification.
type ExtractedItem struct {
	Domain               Domain
	Data                 map[string]any
	SourceMessageIndices []int
}

// VerifiedItem is an ExtractedItem annotated with its grounding assessment
// and the confidence score derived from it.
type VerifiedItem struct {
	Item       ExtractedItem
	Grounding  Grounding
	Confidence float64
}

// VerificationResult is SemanticVerifier.Verify's output: the items that
// survived date-reasonableness checking, plus any warnings raised along
// the way (too many items, a rejected date) that never fail the batch.
type VerificationResult struct {
	Items    []VerifiedItem
	Warnings []string
}

// DomainMatch is one domain the analyzer judged the conversation touches.
type DomainMatch struct {
	Domain Domain
}

// Analysis is Analyzer.Analyze's verdict on a conversation.
type Analysis struct {
	IsPureQA bool
	Domains  []DomainMatch
}

// ExtractionInput is what a DomainExtractor's prompt is built from.
type ExtractionInput struct {
	ConversationID   string
	Messages         []ConversationMessage
	ConversationDate time.Time
	PatientContext   PatientContext
	Domain           Domain
}

// Config tunes a BatchRunner: which model to call, the minimum confidence a
// verified item needs to become a pending review item, and how many items
// one domain may surface per conversation before the rest are dropped.
type Config struct {
	ModelName           string
	ConfidenceThreshold float64
	MaxItemsPerDomain   int
}

// ConversationExtractionResult is BatchRunner.ExtractConversation's output.
type ConversationExtractionResult struct {
	ConversationID string
	DomainsFound   []Domain
	Items          []VerifiedItem
	DurationMS     int64
	Skipped        bool
}

// DispatchResult reports what dispatching one confirmed pending item did.
type DispatchResult struct {
	ItemID           string
	Domain           Domain
	CreatedRecordID  string
	Correlations     []string
	DuplicateWarning string
}

// DuplicateStatus is CheckDuplicate's verdict.
type DuplicateStatus int

const (
	DuplicateStatusNew DuplicateStatus = iota
	DuplicateStatusPossible
	DuplicateStatusAlreadyTracked
)
