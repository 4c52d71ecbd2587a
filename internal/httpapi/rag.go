package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ktiyab/coheara/internal/cherr"
	"github.com/ktiyab/coheara/internal/embed"
	"github.com/ktiyab/coheara/internal/rag"
	"github.com/ktiyab/coheara/internal/repository"
	"github.com/ktiyab/coheara/internal/streamguard"
)

type ragQueryRequest struct {
	ConversationID string `json:"conversation_id"`
	Query          string `json:"query"`
	AgeMonths      *int   `json:"age_months,omitempty"`
	IsMinor        bool   `json:"is_minor,omitempty"`
	Lang           string `json:"lang,omitempty"`
}

// handleRagQuery runs one end-to-end patient query turn: classify,
// retrieve, generate under StreamGuard, cite, and persist the exchange.
func (s *Server) handleRagQuery(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOrError(w, r)
	if !ok {
		return
	}
	var req ragQueryRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Query == "" {
		WriteError(w, cherr.New(cherr.KindValidation, "httpapi: query must not be empty", "", false))
		return
	}

	db, err := sess.DB()
	if err != nil {
		WriteError(w, err)
		return
	}

	models, err := s.enabledModels(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	structuringModel := embeddingModelName(models)
	if structuringModel == "" {
		WriteError(w, cherr.New(cherr.KindLLM, "no local model is installed to answer this query", "install a model", false))
		return
	}

	chatRepo := repository.NewChatRepo(db)
	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
		if err := chatRepo.CreateConversation(r.Context(), repository.Conversation{ID: conversationID, CreatedAt: time.Now().UTC()}); err != nil {
			WriteError(w, err)
			return
		}
	}

	embedder := embed.New(embed.OllamaClient{Embed: s.llm.Embed}, structuringModel)
	retriever := rag.NewRetriever(embedder, repository.NewChunkRepo(db), repository.NewMedicationRepo(db), repository.NewClinicalRepo(db), repository.NewAlertRepo(db), structuringModel)
	generator := rag.NewGenerator(s.llm, structuringModel, streamguard.DefaultConfig(), repository.NewDocumentRepo(db), s.cfg.RAGConfidenceGate)
	service := rag.NewService(retriever, generator, chatRepo)

	resp, err := service.Query(r.Context(), conversationID, req.Query, rag.QueryOpts{
		AgeMonths: req.AgeMonths, IsMinor: req.IsMinor, Lang: req.Lang,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversation_id": conversationID, "response": resp})
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOrError(w, r)
	if !ok {
		return
	}
	db, err := sess.DB()
	if err != nil {
		WriteError(w, err)
		return
	}
	convos, err := repository.NewChatRepo(db).ListConversations(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, convos)
}
