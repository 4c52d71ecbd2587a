package trust

import "strings"

// RecoveryStrategy tells a caller (CLI, mobile companion) how to respond to
// a failure class without needing to parse error prose.
type RecoveryStrategy struct {
	Kind       RecoveryKind
	Suggestion string
}

type RecoveryKind string

const (
	RecoveryRetry               RecoveryKind = "retry"
	RecoveryRetryWithBackoff    RecoveryKind = "retry_with_backoff"
	RecoveryFatal               RecoveryKind = "fatal"
	RecoveryUserActionRequired  RecoveryKind = "user_action_required"
	RecoveryFallbackAvailable   RecoveryKind = "fallback_available"
)

// RecoveryFor maps an error message's content to a recovery strategy. It
// operates on substrings rather than typed errors because it exists to
// classify messages surfaced from the full error taxonomy, including wrapped
// ones whose concrete type a caller several layers up no longer has.
func RecoveryFor(message string) RecoveryStrategy {
	m := strings.ToLower(message)
	switch {
	case strings.Contains(m, "database"):
		return RecoveryStrategy{Kind: RecoveryRetry, Suggestion: "try again in a moment"}
	case strings.Contains(m, "encryption"):
		return RecoveryStrategy{Kind: RecoveryFatal, Suggestion: "this profile may need to be restored from backup"}
	case strings.Contains(m, "wrong password"), strings.Contains(m, "incorrect password"):
		return RecoveryStrategy{Kind: RecoveryUserActionRequired, Suggestion: "re-enter the password"}
	case strings.Contains(m, "timeout"):
		return RecoveryStrategy{Kind: RecoveryRetryWithBackoff, Suggestion: "retrying with backoff"}
	case strings.Contains(m, "ocr"):
		return RecoveryStrategy{Kind: RecoveryFallbackAvailable, Suggestion: "the document can still be reviewed without OCR text"}
	case strings.Contains(m, "ollama"), strings.Contains(m, "not running"):
		return RecoveryStrategy{Kind: RecoveryFallbackAvailable, Suggestion: "start the local model server and try again"}
	default:
		return RecoveryStrategy{Kind: RecoveryUserActionRequired, Suggestion: "check the error details and try again"}
	}
}
