package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ktiyab/coheara/internal/cherr"
)

// AlertRepo persists coherence detector findings and dismissal decisions.
// Insertion is dedup-on-natural-key: a detector re-running over an unchanged
// repository snapshot must not create duplicate alerts.
type AlertRepo struct{ db *DB }

func NewAlertRepo(db *DB) *AlertRepo { return &AlertRepo{db: db} }

// Upsert inserts a new alert unless natural_key already has a row, in which
// case it is left untouched — an existing, possibly-dismissed alert is not
// resurrected by a later scan that rediscovers the same condition.
func (r *AlertRepo) Upsert(ctx context.Context, a CoherenceAlert) (bool, error) {
	r.db.Mu.Lock()
	defer r.db.Mu.Unlock()

	res, err := r.db.SQL.ExecContext(ctx, `
		INSERT INTO coherence_alerts (id, document_id, alert_type, severity, entity_ids, natural_key,
			patient_message, detected_at, dismissed, dismissed_by, two_step_confirmed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, 0)
		ON CONFLICT(natural_key) DO NOTHING`,
		a.ID, a.DocumentID, a.AlertType, a.Severity, a.EntityIDs, a.NaturalKey, a.PatientMessage, a.DetectedAt)
	if err != nil {
		return false, wrapDBErr("repository.AlertRepo.Upsert", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("repository.AlertRepo.Upsert: %w", err)
	}
	return n > 0, nil
}

func (r *AlertRepo) ListActive(ctx context.Context) ([]CoherenceAlert, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `
		SELECT id, document_id, alert_type, severity, entity_ids, natural_key, patient_message,
			detected_at, dismissed, dismissed_by, two_step_confirmed
		FROM coherence_alerts WHERE dismissed = 0 ORDER BY detected_at DESC`)
	if err != nil {
		return nil, wrapDBErr("repository.AlertRepo.ListActive", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

func (r *AlertRepo) ListAll(ctx context.Context) ([]CoherenceAlert, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `
		SELECT id, document_id, alert_type, severity, entity_ids, natural_key, patient_message,
			detected_at, dismissed, dismissed_by, two_step_confirmed
		FROM coherence_alerts ORDER BY detected_at DESC`)
	if err != nil {
		return nil, wrapDBErr("repository.AlertRepo.ListAll", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

// ListCritical returns every active critical-severity alert, the input to
// the emergency-action derivation.
func (r *AlertRepo) ListCritical(ctx context.Context) ([]CoherenceAlert, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `
		SELECT id, document_id, alert_type, severity, entity_ids, natural_key, patient_message,
			detected_at, dismissed, dismissed_by, two_step_confirmed
		FROM coherence_alerts WHERE dismissed = 0 AND severity = 'critical' ORDER BY detected_at DESC`)
	if err != nil {
		return nil, wrapDBErr("repository.AlertRepo.ListCritical", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

func (r *AlertRepo) GetByID(ctx context.Context, id string) (*CoherenceAlert, error) {
	var a CoherenceAlert
	var dismissed, twoStep int
	var dismissedBy, documentID sql.NullString
	err := r.db.SQL.QueryRowContext(ctx, `
		SELECT id, document_id, alert_type, severity, entity_ids, natural_key, patient_message,
			detected_at, dismissed, dismissed_by, two_step_confirmed
		FROM coherence_alerts WHERE id = ?`, id).
		Scan(&a.ID, &documentID, &a.AlertType, &a.Severity, &a.EntityIDs, &a.NaturalKey, &a.PatientMessage,
			&a.DetectedAt, &dismissed, &dismissedBy, &twoStep)
	if err != nil {
		return nil, wrapDBErr("repository.AlertRepo.GetByID", err)
	}
	a.Dismissed = dismissed != 0
	a.TwoStepConfirmed = twoStep != 0
	if dismissedBy.Valid {
		a.DismissedBy = &dismissedBy.String
	}
	if documentID.Valid {
		a.DocumentID = &documentID.String
	}
	return &a, nil
}

// RequestDismissal marks the first step of a critical alert's two-step
// dismissal: the patient has asked to dismiss, but the alert is not yet
// suppressed until ConfirmDismissal follows with an explicit reason.
func (r *AlertRepo) RequestDismissal(ctx context.Context, alertID string) error {
	a, err := r.GetByID(ctx, alertID)
	if err != nil {
		return err
	}
	if a.Severity != "critical" {
		return r.ConfirmDismissal(ctx, alertID, "")
	}
	r.db.Mu.Lock()
	defer r.db.Mu.Unlock()
	_, err = r.db.SQL.ExecContext(ctx,
		`UPDATE coherence_alerts SET two_step_confirmed = 0 WHERE id = ?`, alertID)
	if err != nil {
		return wrapDBErr("repository.AlertRepo.RequestDismissal", err)
	}
	return nil
}

// ConfirmDismissal finalizes dismissal, recording it in dismissed_alerts so
// DismissedNaturalKeys keeps reporting the natural key. That row references
// the alert with ON DELETE CASCADE, so deleting the alert row removes it.
func (r *AlertRepo) ConfirmDismissal(ctx context.Context, alertID, reason string) error {
	a, err := r.GetByID(ctx, alertID)
	if err != nil {
		return err
	}
	if reason == "" && a.Severity == "critical" {
		return cherr.New(cherr.KindValidation, "repository.AlertRepo.ConfirmDismissal: critical alerts require a dismissal reason",
			"explain why this alert no longer applies", false)
	}

	r.db.Mu.Lock()
	defer r.db.Mu.Unlock()

	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return wrapDBErr("repository.AlertRepo.ConfirmDismissal", err)
	}
	defer tx.Rollback()

	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE coherence_alerts SET dismissed = 1, dismissed_by = 'patient', two_step_confirmed = 1 WHERE id = ?`,
		alertID); err != nil {
		return fmt.Errorf("repository.AlertRepo.ConfirmDismissal: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO dismissed_alerts (id, alert_id, natural_key, reason, dismissed_at, two_step_confirmed)
		VALUES (?, ?, ?, ?, datetime('now'), 1)`,
		alertID+"-dismissal", alertID, a.NaturalKey, reasonPtr); err != nil {
		return fmt.Errorf("repository.AlertRepo.ConfirmDismissal: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return wrapDBErr("repository.AlertRepo.ConfirmDismissal", err)
	}
	return nil
}

// DismissedNaturalKeys returns every natural_key that has ever been
// dismissed, so a fresh scan can skip re-raising suppressed conditions.
func (r *AlertRepo) DismissedNaturalKeys(ctx context.Context) (map[string]bool, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `SELECT DISTINCT natural_key FROM dismissed_alerts`)
	if err != nil {
		return nil, wrapDBErr("repository.AlertRepo.DismissedNaturalKeys", err)
	}
	defer rows.Close()
	out := make(map[string]bool)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("repository.AlertRepo.DismissedNaturalKeys: %w", err)
		}
		out[k] = true
	}
	return out, rows.Err()
}

func scanAlerts(rows *sql.Rows) ([]CoherenceAlert, error) {
	var out []CoherenceAlert
	for rows.Next() {
		var a CoherenceAlert
		var dismissed, twoStep int
		var dismissedBy, documentID sql.NullString
		if err := rows.Scan(&a.ID, &documentID, &a.AlertType, &a.Severity, &a.EntityIDs, &a.NaturalKey, &a.PatientMessage,
			&a.DetectedAt, &dismissed, &dismissedBy, &twoStep); err != nil {
			return nil, fmt.Errorf("repository.scanAlerts: %w", err)
		}
		a.Dismissed = dismissed != 0
		a.TwoStepConfirmed = twoStep != 0
		if dismissedBy.Valid {
			a.DismissedBy = &dismissedBy.String
		}
		if documentID.Valid {
			a.DocumentID = &documentID.String
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
