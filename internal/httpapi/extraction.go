package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ktiyab/coheara/internal/chatextract"
	"github.com/ktiyab/coheara/internal/cherr"
	"github.com/ktiyab/coheara/internal/repository"
)

type extractConversationRequest struct {
	ConversationID string                             `json:"conversation_id"`
	Messages       []chatextract.ConversationMessage `json:"messages"`
	ModelName      string                             `json:"model_name"`
}

func (s *Server) handleExtractConversation(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOrError(w, r)
	if !ok {
		return
	}
	var req extractConversationRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if len(req.Messages) == 0 {
		WriteError(w, cherr.New(cherr.KindValidation, "httpapi: messages must not be empty", "", false))
		return
	}

	db, err := sess.DB()
	if err != nil {
		WriteError(w, err)
		return
	}

	cfg := chatextract.Config{ModelName: req.ModelName, ConfidenceThreshold: 0.5, MaxItemsPerDomain: 10}
	runner := chatextract.NewBatchRunner([]chatextract.DomainExtractor{
		chatextract.SymptomExtractor{}, chatextract.MedicationExtractor{}, chatextract.AppointmentExtractor{},
	}, cfg)

	conv := chatextract.ConversationBatch{ID: req.ConversationID, Messages: req.Messages, LastMessageAt: time.Now().UTC()}
	llm := chatextract.NewClientAdapter(s.llm)

	result, err := runner.ExtractConversation(r.Context(), conv, chatextract.PatientContext{}, llm)
	if err != nil {
		WriteError(w, err)
		return
	}
	if result.Skipped || len(result.Items) == 0 {
		writeJSON(w, http.StatusOK, result)
		return
	}

	batchID, err := chatextract.StorePending(r.Context(), repository.NewExtractionRepo(db), req.ConversationID, result.Items)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"batch_id": batchID, "result": result})
}

func (s *Server) handleListPendingItems(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOrError(w, r)
	if !ok {
		return
	}
	db, err := sess.DB()
	if err != nil {
		WriteError(w, err)
		return
	}
	items, err := repository.NewExtractionRepo(db).ListPendingByStatus(r.Context(), "pending")
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type resolvePendingItemRequest struct {
	Decision   string         `json:"decision"`
	EditedData map[string]any `json:"edited_data,omitempty"`
}

func (s *Server) handleResolvePendingItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOrError(w, r)
	if !ok {
		return
	}
	itemID := chi.URLParam(r, "itemID")
	var req resolvePendingItemRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	db, err := sess.DB()
	if err != nil {
		WriteError(w, err)
		return
	}

	repos := chatextract.Repos{
		Documents:     repository.NewDocumentRepo(db),
		Clinical:      repository.NewClinicalRepo(db),
		Medications:   repository.NewMedicationRepo(db),
		Professionals: repository.NewProfessionalRepo(db),
	}

	outcome, err := chatextract.ResolvePendingItem(r.Context(), repository.NewExtractionRepo(db), repos, chatextract.ResolveRequest{
		PendingItemID: itemID,
		Decision:      chatextract.ResolveDecision(req.Decision),
		EditedData:    req.EditedData,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}
