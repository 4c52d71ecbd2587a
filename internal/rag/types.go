// Package rag implements query classification, hybrid retrieval, temporal
// reranking, generation under StreamGuard, citation validation, and
// confidence gating. Adapted from the teacher's internal/service/
// retriever.go and generator.go, generalized from pgvector + Gemini to the
// brute-force vectorstore and the local loopback llmclient.
package rag

import "time"

// QueryType selects retrieval parameters for one query.
type QueryType int

const (
	QueryGeneral QueryType = iota
	QueryFactual
	QueryTimeline
	QuerySymptom
	QueryMedication
)

func (t QueryType) String() string {
	switch t {
	case QueryFactual:
		return "factual"
	case QueryTimeline:
		return "timeline"
	case QuerySymptom:
		return "symptom"
	case QueryMedication:
		return "medication"
	default:
		return "general"
	}
}

// RetrievalParams tunes one query type's retrieval behavior.
type RetrievalParams struct {
	SemanticTopK     int
	TemporalWeight   float64 // w in score' = (1-w)*score + w*recency
	IncludeMedications bool
	IncludeDiagnoses   bool
	IncludeLabResults  bool
	IncludeSymptoms    bool
}

// paramsByType is the routing table queries are classified into.
var paramsByType = map[QueryType]RetrievalParams{
	QueryGeneral:    {SemanticTopK: 10, TemporalWeight: 0.15, IncludeMedications: true, IncludeDiagnoses: true, IncludeLabResults: true, IncludeSymptoms: true},
	QueryFactual:    {SemanticTopK: 8, TemporalWeight: 0.05, IncludeMedications: true, IncludeDiagnoses: true, IncludeLabResults: true},
	QueryTimeline:   {SemanticTopK: 15, TemporalWeight: 0.50, IncludeMedications: true, IncludeDiagnoses: true, IncludeSymptoms: true},
	QuerySymptom:    {SemanticTopK: 10, TemporalWeight: 0.30, IncludeSymptoms: true, IncludeDiagnoses: true},
	QueryMedication: {SemanticTopK: 10, TemporalWeight: 0.10, IncludeMedications: true},
}

// ParamsFor returns the retrieval parameters for a classified query type.
func ParamsFor(t QueryType) RetrievalParams {
	if p, ok := paramsByType[t]; ok {
		return p
	}
	return paramsByType[QueryGeneral]
}

// BoundaryCheck is the model's self-reported answerability marker.
type BoundaryCheck int

const (
	BoundaryUnderstanding BoundaryCheck = iota
	BoundaryOutOfBounds
)

// Citation is a validated [n] reference to a retrieved chunk.
type Citation struct {
	Index      int
	ChunkID    string
	DocumentID string
	Excerpt    string
}

// ScoredChunk is a retrieved chunk with its semantic and reranked scores.
type ScoredChunk struct {
	ChunkID      string
	DocumentID   string
	Content      string
	Similarity   float64
	FinalScore   float64
	DocDate      *time.Time
}

// StructuredContext holds the structured-table rows pulled in for a query,
// kept opaque as rendered text so the prompt builder doesn't need to know
// each table's shape.
type StructuredContext struct {
	Lines []string
}

// RagResponse is the full result of one query() call.
type RagResponse struct {
	Answer          string
	Citations       []Citation
	Confidence      float64
	Boundary        BoundaryCheck
	ChunksIncluded  []ScoredChunk
	Escalated       bool
	EscalationRuleID string
}
