// Package httpapi wires every domain package into the HTTPS surface the
// mobile companion app talks to: chi routing, structured error responses,
// and the request middleware stack, the way the teacher's own HTTP layer
// is built.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/ktiyab/coheara/internal/cherr"
)

// errorBody is the patient-facing shape every error response takes:
// a short title, a plain-language message, an optional suggestion, and
// whether retrying the same request might succeed.
type errorBody struct {
	Title         string `json:"title"`
	Message       string `json:"message"`
	Suggestion    string `json:"suggestion,omitempty"`
	RetryPossible bool   `json:"retry_possible"`
}

func kindTitle(k cherr.Kind) string {
	switch k {
	case cherr.KindCrypto:
		return "Security error"
	case cherr.KindDatabase:
		return "Storage error"
	case cherr.KindFormat:
		return "Invalid data"
	case cherr.KindLLM:
		return "Assistant unavailable"
	case cherr.KindDegeneration:
		return "Response interrupted"
	case cherr.KindValidation:
		return "Invalid request"
	case cherr.KindAuthorizationDenied:
		return "Access denied"
	default:
		return "Something went wrong"
	}
}

func statusForKind(k cherr.Kind) int {
	switch k {
	case cherr.KindValidation, cherr.KindFormat:
		return http.StatusBadRequest
	case cherr.KindAuthorizationDenied:
		return http.StatusForbidden
	case cherr.KindCrypto:
		return http.StatusUnauthorized
	case cherr.KindLLM, cherr.KindDatabase:
		return http.StatusServiceUnavailable
	case cherr.KindDegeneration:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteError translates any error into the patient-facing JSON error body.
// A *cherr.Error carries its own kind, suggestion, and retry policy; any
// other error is reported as an opaque internal error with no details
// leaked, since an un-taxonomized error was never vetted for what it might
// reveal (a raw driver message, a file path, key material).
func WriteError(w http.ResponseWriter, err error) {
	if cerr, ok := cherr.As(err); ok {
		writeJSON(w, statusForKind(cerr.Kind), errorBody{
			Title:         kindTitle(cerr.Kind),
			Message:       cerr.Message,
			Suggestion:    cerr.Suggestion,
			RetryPossible: cerr.Retryable,
		})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorBody{
		Title:   "Something went wrong",
		Message: "An unexpected error occurred.",
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
