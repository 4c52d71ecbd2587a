package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ktiyab/coheara/internal/middleware"
)

// Version is the build version reported by /healthz.
const Version = "1.0.0"

// quickReadTimeout bounds the clinical listing, timeline, alert, CA profile
// and backup-preview reads and the /v1/models management routes. Routes
// that run a model generation (document upload, the RAG query endpoint,
// conversation extraction, coherence scan) carry no timeout, since a local
// model call can legitimately run far longer than any fixed budget here;
// the conversation and pending-review listings carry none either.
const quickReadTimeout = 10 * time.Second

// NewRouter wires every domain package into the HTTPS surface the mobile
// companion talks to: profile lifecycle, clinical data reads, backup/
// restore, cryptographic erasure, and conversation extraction review.
func NewRouter(s *Server) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": Version})
	})

	r.Route("/v1/profiles", func(r chi.Router) {
		r.Get("/", s.handleListProfiles)
		r.Post("/", s.handleCreateProfile)

		r.Route("/{profileID}", func(r chi.Router) {
			r.Post("/sessions", s.handleOpenSession)
			r.Delete("/sessions", s.handleCloseSession)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(quickReadTimeout))
				r.Get("/symptoms", s.handleListSymptoms)
				r.Get("/medications", s.handleListMedications)
				r.Get("/appointments", s.handleListAppointments)
				r.Get("/timeline", s.handleGetTimeline)
				r.Get("/ca/mobileconfig", s.handleMobileTrustProfile)
				r.Get("/coherence/alerts", s.handleListAlerts)
			})

			r.Post("/backup", s.handleCreateBackup)
			r.Post("/erasure", s.handleEraseProfile)

			r.Route("/conversations", func(r chi.Router) {
				r.Post("/extract", s.handleExtractConversation)
				r.Get("/", s.handleListConversations)
			})
			r.Route("/pending", func(r chi.Router) {
				r.Get("/", s.handleListPendingItems)
				r.Post("/{itemID}/resolve", s.handleResolvePendingItem)
			})

			r.Route("/documents", func(r chi.Router) {
				r.Post("/", s.handleUploadDocument)
			})

			r.Post("/query", s.handleRagQuery)

			r.Route("/coherence", func(r chi.Router) {
				r.Post("/scan", s.handleScanCoherence)
				r.Post("/alerts/{alertID}/dismiss", s.handleRequestAlertDismissal)
				r.Post("/alerts/{alertID}/confirm-dismiss", s.handleConfirmAlertDismissal)
			})
		})
	})

	r.With(middleware.Timeout(quickReadTimeout)).Get("/v1/backup/preview", s.handlePreviewBackup)
	r.Post("/v1/backup/restore", s.handleRestoreBackup)

	r.Route("/v1/models", func(r chi.Router) {
		r.Use(middleware.Timeout(quickReadTimeout))
		r.Get("/", s.handleListModels)
		r.Post("/show", s.handleShowModel)
		r.Delete("/", s.handleDeleteModel)
	})

	return r
}
