package middleware

import (
	"net/http"
	"time"
)

// Timeout wraps a handler with an http.TimeoutHandler, returning the same
// JSON error body shape httpapi.WriteError uses. The router applies it to
// DB reads (clinical listings, alerts, timeline) and to the model-management
// routes; document upload, the RAG query endpoint, and conversation
// extraction run model generations, can legitimately run far longer than
// any fixed budget here, and are not wrapped.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	body := `{"title":"Something went wrong","message":"The request took too long to complete.","retry_possible":true}`
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, body)
	}
}
