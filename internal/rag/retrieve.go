package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ktiyab/coheara/internal/repository"
	"github.com/ktiyab/coheara/internal/vectorstore"
	"golang.org/x/sync/errgroup"
)

// semanticRelevanceFloor is the minimum cosine similarity a chunk must clear
// to survive into the ranked result set.
const semanticRelevanceFloor = 0.30

// recencyHorizonDays is the age at which a document's recency boost decays
// to zero; a document with no date gets the neutral midpoint instead.
const recencyHorizonDays = 365
const missingDateRecency = 0.5

// QueryEmbedder embeds one query string into a vector.
type QueryEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// chunkSourceAdapter adapts repository.ChunkRepo's denormalized Chunk shape
// into vectorstore.Chunk, so the brute-force store never imports repository.
type chunkSourceAdapter struct {
	repo *repository.ChunkRepo
}

func (a chunkSourceAdapter) ListAll(ctx context.Context) ([]vectorstore.Chunk, error) {
	rows, err := a.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]vectorstore.Chunk, len(rows))
	for i, c := range rows {
		vc := vectorstore.Chunk{ChunkID: c.ChunkID, DocumentID: c.DocumentID, Content: c.Content, Embedding: c.Embedding}
		if c.DocType != nil {
			vc.DocType = *c.DocType
		}
		if c.DocDate != nil {
			secs := c.DocDate.Unix()
			vc.DocDate = &secs
		}
		if c.ProfessionalName != nil {
			vc.ProfessionalName = *c.ProfessionalName
		}
		out[i] = vc
	}
	return out, nil
}

// Retriever runs the hybrid semantic + structured retrieval stage.
type Retriever struct {
	embedder    QueryEmbedder
	vectors     *vectorstore.Store
	medications *repository.MedicationRepo
	clinical    *repository.ClinicalRepo
	alerts      *repository.AlertRepo
	model       string
}

func NewRetriever(embedder QueryEmbedder, chunks *repository.ChunkRepo, medications *repository.MedicationRepo, clinical *repository.ClinicalRepo, alerts *repository.AlertRepo, embeddingModel string) *Retriever {
	return &Retriever{
		embedder:    embedder,
		vectors:     vectorstore.New(chunkSourceAdapter{repo: chunks}),
		medications: medications,
		clinical:    clinical,
		alerts:      alerts,
		model:       embeddingModel,
	}
}

// Retrieved is the combined semantic + structured result of one Retrieve call.
type Retrieved struct {
	Chunks         []ScoredChunk
	Structured     StructuredContext
	DismissedKeys  map[string]bool
}

// Retrieve runs semantic and structured retrieval concurrently, reranks the
// semantic results temporally, and dedupes by chunk id keeping the highest
// score for each.
func (r *Retriever) Retrieve(ctx context.Context, query string, queryType QueryType, now time.Time) (Retrieved, error) {
	params := ParamsFor(queryType)

	var chunks []ScoredChunk
	var structured StructuredContext
	var dismissed map[string]bool

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		vecs, err := r.embedder.Embed(gCtx, []string{query})
		if err != nil {
			return fmt.Errorf("rag.Retrieve: embed query: %w", err)
		}
		if len(vecs) == 0 {
			return fmt.Errorf("rag.Retrieve: embedder returned no vector")
		}
		results, err := r.vectors.Search(gCtx, vecs[0], params.SemanticTopK)
		if err != nil {
			return fmt.Errorf("rag.Retrieve: semantic search: %w", err)
		}
		chunks = rerankTemporal(results, params.TemporalWeight, now)
		return nil
	})

	g.Go(func() error {
		sc, err := r.retrieveStructured(gCtx, query, params)
		if err != nil {
			return fmt.Errorf("rag.Retrieve: structured: %w", err)
		}
		structured = sc
		return nil
	})

	g.Go(func() error {
		keys, err := r.alerts.DismissedNaturalKeys(gCtx)
		if err != nil {
			return fmt.Errorf("rag.Retrieve: dismissed alerts: %w", err)
		}
		dismissed = keys
		return nil
	})

	if err := g.Wait(); err != nil {
		return Retrieved{}, err
	}

	return Retrieved{Chunks: dedupeByChunkID(chunks), Structured: structured, DismissedKeys: dismissed}, nil
}

// rerankTemporal drops chunks below semanticRelevanceFloor, applies
// score' = (1-w)*score + w*recency, and resorts descending.
func rerankTemporal(results []vectorstore.ScoredChunk, weight float64, now time.Time) []ScoredChunk {
	ranked := make([]ScoredChunk, 0, len(results))
	for _, res := range results {
		if res.Similarity < semanticRelevanceFloor {
			continue
		}
		var docDate *time.Time
		recency := missingDateRecency
		if res.Chunk.DocDate != nil {
			t := time.Unix(*res.Chunk.DocDate, 0).UTC()
			docDate = &t
			recency = recencyScore(t, now)
		}
		final := (1-weight)*res.Similarity + weight*recency
		ranked = append(ranked, ScoredChunk{
			ChunkID:    res.Chunk.ChunkID,
			DocumentID: res.Chunk.DocumentID,
			Content:    res.Chunk.Content,
			Similarity: res.Similarity,
			FinalScore: final,
			DocDate:    docDate,
		})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].FinalScore > ranked[j].FinalScore })
	return ranked
}

// recencyScore = 1 - clamp(days_old/365, 0, 1).
func recencyScore(docDate, now time.Time) float64 {
	daysOld := now.Sub(docDate).Hours() / 24
	clamped := math.Max(0, math.Min(daysOld/recencyHorizonDays, 1))
	return 1 - clamped
}

func dedupeByChunkID(chunks []ScoredChunk) []ScoredChunk {
	best := make(map[string]ScoredChunk)
	var order []string
	for _, c := range chunks {
		existing, ok := best[c.ChunkID]
		if !ok || c.FinalScore > existing.FinalScore {
			if !ok {
				order = append(order, c.ChunkID)
			}
			best[c.ChunkID] = c
		}
	}
	out := make([]ScoredChunk, 0, len(order))
	for _, id := range order {
		out = append(out, best[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FinalScore > out[j].FinalScore })
	return out
}

func (r *Retriever) retrieveStructured(ctx context.Context, query string, params RetrievalParams) (StructuredContext, error) {
	var lines []string
	keyword := strings.ToLower(query)

	if params.IncludeMedications {
		meds, err := r.medications.List(ctx)
		if err != nil {
			return StructuredContext{}, err
		}
		for _, m := range meds {
			if !strings.Contains(keyword, strings.ToLower(m.GenericName)) && !keywordMatchesBrand(keyword, m.BrandName) && !isGeneralKeyword(keyword) {
				continue
			}
			lines = append(lines, formatMedication(m))
		}
	}
	if params.IncludeDiagnoses {
		diagnoses, err := r.clinical.ListDiagnoses(ctx)
		if err != nil {
			return StructuredContext{}, err
		}
		for _, d := range diagnoses {
			lines = append(lines, fmt.Sprintf("Diagnosis: %s (status: %s)", d.Name, d.Status))
		}
	}
	if params.IncludeLabResults {
		labs, err := r.clinical.ListLabResults(ctx)
		if err != nil {
			return StructuredContext{}, err
		}
		for _, l := range labs {
			lines = append(lines, formatLabResult(l))
		}
	}
	if params.IncludeSymptoms {
		symptoms, err := r.clinical.ListSymptoms(ctx)
		if err != nil {
			return StructuredContext{}, err
		}
		for _, s := range symptoms {
			lines = append(lines, fmt.Sprintf("Symptom: %s", s.Description))
		}
	}
	return StructuredContext{Lines: lines}, nil
}

func isGeneralKeyword(keyword string) bool {
	return strings.Contains(keyword, "medication") || strings.Contains(keyword, "all my")
}

func keywordMatchesBrand(keyword string, brand *string) bool {
	return brand != nil && strings.Contains(keyword, strings.ToLower(*brand))
}

func formatMedication(m repository.Medication) string {
	dose := ""
	if m.Dose != nil {
		dose = *m.Dose
	}
	freq := ""
	if m.Frequency != nil {
		freq = *m.Frequency
	}
	return fmt.Sprintf("Medication: %s %s %s (status: %s)", m.GenericName, dose, freq, m.Status)
}

func formatLabResult(l repository.LabResult) string {
	if l.Value != nil {
		return fmt.Sprintf("Lab: %s = %.2f %s (%s)", l.TestName, *l.Value, unitOrEmpty(l.Unit), l.AbnormalFlag)
	}
	if l.ValueText != nil {
		return fmt.Sprintf("Lab: %s = %s (%s)", l.TestName, *l.ValueText, l.AbnormalFlag)
	}
	return fmt.Sprintf("Lab: %s (%s)", l.TestName, l.AbnormalFlag)
}

func unitOrEmpty(u *string) string {
	if u == nil {
		return ""
	}
	return *u
}
