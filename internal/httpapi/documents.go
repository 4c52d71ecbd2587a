package httpapi

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ktiyab/coheara/internal/chunk"
	"github.com/ktiyab/coheara/internal/cherr"
	"github.com/ktiyab/coheara/internal/embed"
	"github.com/ktiyab/coheara/internal/entitystore"
	"github.com/ktiyab/coheara/internal/extract"
	"github.com/ktiyab/coheara/internal/format"
	"github.com/ktiyab/coheara/internal/modelrouter"
	"github.com/ktiyab/coheara/internal/repository"
	"github.com/ktiyab/coheara/internal/staging"
	"github.com/ktiyab/coheara/internal/streamguard"
	"github.com/ktiyab/coheara/internal/structure"
)

// maxUploadBytes bounds a single document upload; well above any scanned
// multi-page letter, far below anything that would stall the pipeline.
const maxUploadBytes = 50 << 20

// visionModelPrefixes names the locally-installed model families known to
// carry vision capability, the same name-prefix fallback modelrouter itself
// uses for the "medical" capability when no explicit tag is available.
var visionModelPrefixes = []string{"llava", "bakllava", "moondream", "llama3.2-vision", "qwen2-vl", "qwen2.5vl"}

func capabilitiesForModel(name string) map[string]bool {
	lower := strings.ToLower(name)
	caps := map[string]bool{}
	for _, prefix := range visionModelPrefixes {
		if strings.HasPrefix(lower, prefix) {
			caps["vision"] = true
			break
		}
	}
	for _, prefix := range medicalModelPrefixes {
		if strings.HasPrefix(lower, prefix) {
			caps["medical"] = true
			break
		}
	}
	return caps
}

// medicalModelPrefixes mirrors modelrouter's own medicalFamilyPrefixes; kept
// local since that slice is unexported.
var medicalModelPrefixes = []string{"meditron", "biomistral", "medalpaca"}

func (s *Server) enabledModels(ctx context.Context) ([]modelrouter.ModelInfo, error) {
	models, err := s.llm.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]modelrouter.ModelInfo, len(models))
	for i, m := range models {
		out[i] = modelrouter.ModelInfo{Name: m.Name, Capabilities: capabilitiesForModel(m.Name)}
	}
	return out, nil
}

// uploadDocumentResponse reports what the pipeline produced for the patient
// to review: the stored document id, overall structuring confidence, and
// any warnings raised along the way (low OCR confidence, a dropped
// nameless medication, an injection-pattern entity name stripped).
type uploadDocumentResponse struct {
	DocumentID string   `json:"document_id"`
	DocType    string   `json:"doc_type"`
	Confidence float64  `json:"confidence"`
	Warnings   []string `json:"warnings,omitempty"`
}

// handleUploadDocument runs the full ingestion pipeline: sniff the format,
// stage and permanently store the original, extract text, route to a
// structuring model, structure and validate the extraction, persist every
// entity, then chunk and embed the markdown for retrieval.
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOrError(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		WriteError(w, cherr.Wrap(cherr.KindValidation, "could not read uploaded document", "try a smaller file", false, err))
		return
	}
	if len(data) == 0 {
		WriteError(w, cherr.New(cherr.KindValidation, "uploaded document is empty", "", false))
		return
	}
	docType := r.URL.Query().Get("doc_type")
	if docType == "" {
		docType = "unspecified"
	}
	title := r.URL.Query().Get("title")
	if title == "" {
		title = "Untitled document"
	}

	db, err := sess.DB()
	if err != nil {
		WriteError(w, err)
		return
	}

	kind := format.Sniff(data, nil)
	if kind == format.Unsupported {
		WriteError(w, cherr.New(cherr.KindFormat, "unrecognized document format", "upload a plain-text, image, or PDF file", false))
		return
	}

	docID := uuid.NewString()
	profileDir := filepath.Join(s.cfg.ProfileRoot, sess.ProfileID.String())

	if _, err := staging.WriteOriginal(profileDir, docID, data, sess.Key()); err != nil {
		WriteError(w, err)
		return
	}

	extractor := &extract.Extractor{} // OCR/PDF rendering are injected external collaborators; none configured here.
	extracted, err := extractor.Extract(r.Context(), kind, data)
	if err != nil {
		WriteError(w, cherr.Wrap(cherr.KindFormat, "could not extract text from this document", "a scanned or image document needs an OCR engine configured for this installation", true, err))
		return
	}

	category := categoryForKind(kind)
	models, err := s.enabledModels(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	preference, _, err := repository.NewPrefsRepo(db).GetPreference(r.Context(), "structuring_model")
	if err != nil {
		WriteError(w, err)
		return
	}
	plan, err := modelrouter.Route(category, models, preference)
	if err != nil {
		WriteError(w, cherr.Wrap(cherr.KindLLM, "no suitable local model is available to structure this document", "install a structuring model", false, err))
		return
	}

	doc := &repository.Document{
		ID: docID, DocType: docType, Title: title,
		IngestionDate: time.Now().UTC(), SourceFile: docID + ".enc",
		PipelineStatus: "extracted",
	}
	if err := repository.NewDocumentRepo(db).Create(r.Context(), doc); err != nil {
		WriteError(w, err)
		return
	}

	ocrConf := extracted.Confidence
	structurer := structure.NewStructurer(s.llm, plan.StructuringModel, streamguard.DefaultConfig())
	strategy := structure.ChooseStrategy(plan.Mode)
	knownAllergens, err := knownAllergenNames(r.Context(), db)
	if err != nil {
		WriteError(w, err)
		return
	}

	result, err := structurer.Structure(r.Context(), structure.Input{
		DocumentText: extracted.Text, DocType: docType, OCRConfidence: &ocrConf, LowOCRThreshold: 0.6,
	}, strategy, knownAllergens)
	if err != nil {
		WriteError(w, cherr.Wrap(cherr.KindLLM, "could not structure this document", "try again once the local model is available", true, err))
		return
	}

	store := entitystore.New(repository.NewProfessionalRepo(db), repository.NewMedicationRepo(db), repository.NewClinicalRepo(db))
	medResult, err := store.StoreMedications(r.Context(), docID, structure.ToMedicationEntities(docID, result.Entities.Medications))
	if err != nil {
		WriteError(w, err)
		return
	}
	clinicalResult, err := store.StoreClinical(r.Context(), docID, structure.ToClinicalEntities(docID, result.Entities))
	if err != nil {
		WriteError(w, err)
		return
	}
	warnings := append(append(append([]string{}, result.Warnings...), medResult.Warnings...), clinicalResult.Warnings...)

	markdown := extracted.Text
	markdownFile, err := staging.WriteMarkdown(profileDir, docID, []byte(markdown), sess.Key())
	if err != nil {
		WriteError(w, err)
		return
	}
	documents := repository.NewDocumentRepo(db)
	if err := documents.SetMarkdown(r.Context(), docID, markdownFile, extracted.Confidence); err != nil {
		WriteError(w, err)
		return
	}

	chunker := chunk.New(s.cfg.ChunkMaxTokens, s.cfg.ChunkMinTokens, 0.15)
	chunks, err := chunker.Split(r.Context(), markdown, docID)
	if err != nil {
		WriteError(w, err)
		return
	}
	if len(chunks) > 0 {
		embedder := embed.New(embed.OllamaClient{Embed: s.llm.Embed}, embeddingModelName(models))
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Content
		}
		vectors, err := embedder.Embed(r.Context(), texts)
		if err != nil {
			WriteError(w, err)
			return
		}
		repoChunks := make([]repository.Chunk, len(chunks))
		for i, c := range chunks {
			repoChunks[i] = repository.Chunk{ChunkID: c.ChunkID, DocumentID: docID, Content: c.Content, Embedding: vectors[i]}
		}
		if err := repository.NewChunkRepo(db).ReplaceForDocument(r.Context(), docID, repoChunks); err != nil {
			WriteError(w, err)
			return
		}
	}

	if err := documents.UpdatePipelineStatus(r.Context(), docID, "indexed"); err != nil {
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, uploadDocumentResponse{
		DocumentID: docID, DocType: docType, Confidence: result.Confidence, Warnings: warnings,
	})
}

func categoryForKind(k format.Kind) modelrouter.Category {
	switch k {
	case format.PlainText:
		return modelrouter.CategoryPlainText
	case format.DigitalPdf:
		return modelrouter.CategoryDigitalPdf
	case format.ScannedPdf:
		return modelrouter.CategoryScannedPdf
	case format.Image:
		return modelrouter.CategoryImage
	default:
		return modelrouter.CategoryPlainText
	}
}

// embeddingModelName picks the first installed model as the embedding
// model. It consults no preference; model_preferences is not read here.
func embeddingModelName(models []modelrouter.ModelInfo) string {
	if len(models) == 0 {
		return ""
	}
	return models[0].Name
}

func knownAllergenNames(ctx context.Context, db *repository.DB) ([]string, error) {
	allergies, err := repository.NewClinicalRepo(db).ListAllergies(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(allergies))
	for i, a := range allergies {
		out[i] = a.Allergen
	}
	return out, nil
}
