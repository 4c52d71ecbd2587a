// Package cherr defines the error taxonomy shared across Coheara's layers.
// Every kind maps to a structured, patient-facing payload at the HTTP
// boundary; sensitive content (keys, raw PHI) never appears in a Kind's
// Message.
package cherr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for HTTP-boundary translation and retry policy.
type Kind int

const (
	KindUnknown Kind = iota
	KindCrypto
	KindDatabase
	KindFormat
	KindLLM
	KindDegeneration
	KindValidation
	KindAuthorizationDenied
)

func (k Kind) String() string {
	switch k {
	case KindCrypto:
		return "crypto"
	case KindDatabase:
		return "database"
	case KindFormat:
		return "format"
	case KindLLM:
		return "llm"
	case KindDegeneration:
		return "degeneration"
	case KindValidation:
		return "validation"
	case KindAuthorizationDenied:
		return "authorization_denied"
	default:
		return "unknown"
	}
}

// Error is a taxonomy-tagged error. Wrap lower-level errors into one of
// these at each layer boundary rather than letting raw driver/library
// errors reach the HTTP surface.
type Error struct {
	Kind       Kind
	Message    string
	Suggestion string
	Retryable  bool
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a taxonomy error with no underlying cause.
func New(kind Kind, message, suggestion string, retryable bool) *Error {
	return &Error{Kind: kind, Message: message, Suggestion: suggestion, Retryable: retryable}
}

// Wrap attaches a taxonomy kind to a lower-level error.
func Wrap(kind Kind, message, suggestion string, retryable bool, cause error) *Error {
	return &Error{Kind: kind, Message: message, Suggestion: suggestion, Retryable: retryable, cause: cause}
}

// Sentinel errors for errors.Is checks where no extra context is needed.
var (
	ErrDecryption            = errors.New("decryption failed")
	ErrWrongPassword         = errors.New("incorrect password or corrupted archive")
	ErrNonLocalEndpoint      = errors.New("llm endpoint is not loopback")
	ErrInvalidModelName      = errors.New("invalid model name")
	ErrNoModelAvailable      = errors.New("no suitable model available")
	ErrModelNotFound         = errors.New("model not found")
	ErrAuthorizationDenied   = errors.New("authorization denied")
	ErrNotFound              = errors.New("not found")
)

// As reports whether err (or an error it wraps) is a *Error, returning it.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
