package coherence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ktiyab/coheara/internal/repository"
)

// Engine runs the detector set over a snapshot and persists new findings.
// Dedup happens twice: once in-process against DismissedAlertKeys so a
// dismissed condition is never even offered to the repository, and again at
// the repository layer via AlertRepo.Upsert's natural-key conflict, which
// is the authoritative guard against resurrecting a dismissed alert.
type Engine struct {
	alerts *repository.AlertRepo
	lang   string
}

func NewEngine(alerts *repository.AlertRepo, lang string) *Engine {
	return &Engine{alerts: alerts, lang: lang}
}

// documentScopedAlertTypes are the detectors whose findings concern a single
// document's content; the rest (gap, drift, temporal) inherently span the
// corpus and never carry a document id, even from AnalyzeNewDocument.
var documentScopedAlertTypes = map[string]bool{
	"conflict": true, "duplicate": true, "allergy": true, "dose": true, "critical": true,
}

// AnalyzeNewDocument runs a scan immediately after one document finishes
// structuring. Findings from document-scoped detectors (conflict, duplicate,
// allergy, dose, critical) are tagged with documentID; gap/drift/temporal
// findings carry no document id regardless of call site, matching the
// original's corpus-spanning detectors.
func (e *Engine) AnalyzeNewDocument(ctx context.Context, documentID string, snap RepositorySnapshot, ref CoherenceReferenceData) ([]repository.CoherenceAlert, error) {
	return e.scan(ctx, &documentID, snap, ref)
}

// AnalyzeFull runs a scan over the entire corpus, e.g. from the periodic
// background sweep. No finding carries a document id.
func (e *Engine) AnalyzeFull(ctx context.Context, snap RepositorySnapshot, ref CoherenceReferenceData) ([]repository.CoherenceAlert, error) {
	return e.scan(ctx, nil, snap, ref)
}

// Scan is AnalyzeFull's underlying entry point, kept for callers (and
// existing tests) that don't need document scoping.
func (e *Engine) Scan(ctx context.Context, snap RepositorySnapshot, ref CoherenceReferenceData) ([]repository.CoherenceAlert, error) {
	return e.scan(ctx, nil, snap, ref)
}

func (e *Engine) scan(ctx context.Context, documentID *string, snap RepositorySnapshot, ref CoherenceReferenceData) ([]repository.CoherenceAlert, error) {
	var findings []Finding
	findings = append(findings, detectConflict(snap, ref, e.lang)...)
	findings = append(findings, detectDuplicate(snap, ref, e.lang)...)
	findings = append(findings, detectGap(snap, e.lang)...)
	findings = append(findings, detectDrift(snap, e.lang)...)
	findings = append(findings, detectTemporal(snap, e.lang)...)
	findings = append(findings, detectAllergy(snap, ref, e.lang)...)
	findings = append(findings, detectDose(snap, ref, e.lang)...)
	findings = append(findings, detectCritical(snap, e.lang)...)

	now := time.Now().UTC()
	var inserted []repository.CoherenceAlert
	for _, f := range findings {
		if snap.DismissedAlertKeys[f.NaturalKey] {
			continue
		}
		entityIDs, err := json.Marshal(f.EntityIDs)
		if err != nil {
			return inserted, fmt.Errorf("coherence.Engine.scan: marshal entity ids: %w", err)
		}
		alert := repository.CoherenceAlert{
			ID:             uuid.NewString(),
			AlertType:      f.AlertType,
			Severity:       f.Severity,
			EntityIDs:      string(entityIDs),
			NaturalKey:     f.NaturalKey,
			PatientMessage: f.PatientMessage,
			DetectedAt:     now,
		}
		if documentID != nil && documentScopedAlertTypes[f.AlertType] {
			alert.DocumentID = documentID
		}
		isNew, err := e.alerts.Upsert(ctx, alert)
		if err != nil {
			return inserted, fmt.Errorf("coherence.Engine.scan: %w", err)
		}
		if isNew {
			inserted = append(inserted, alert)
		}
	}
	return inserted, nil
}

// RequestDismissal begins the two-step dismissal flow for an alert. A
// critical-severity alert additionally requires ConfirmDismissal with a
// non-empty reason before it is considered dismissed; the repository layer
// enforces that requirement.
func (e *Engine) RequestDismissal(ctx context.Context, alertID string) error {
	return e.alerts.RequestDismissal(ctx, alertID)
}

// ConfirmDismissal completes the two-step dismissal flow.
func (e *Engine) ConfirmDismissal(ctx context.Context, alertID, reason string) error {
	return e.alerts.ConfirmDismissal(ctx, alertID, reason)
}
