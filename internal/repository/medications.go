package repository

import (
	"context"
	"fmt"
)

// MedicationRepo persists medications and their nested rows (compound
// ingredients, tapering steps, instructions) plus dose-change history.
type MedicationRepo struct{ db *DB }

func NewMedicationRepo(db *DB) *MedicationRepo { return &MedicationRepo{db: db} }

// ReplaceForDocument deletes every medication (and nested rows, via
// ON DELETE CASCADE) previously stored for documentID, then inserts meds
// fresh — the idempotent reprocessing rule from spec.md §4.10/§9.
func (r *MedicationRepo) ReplaceForDocument(ctx context.Context, documentID string, meds []Medication, compounds []CompoundIngredient, tapers []TaperingStep, instructions []MedicationInstruction) error {
	r.db.Mu.Lock()
	defer r.db.Mu.Unlock()

	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return wrapDBErr("repository.MedicationRepo.ReplaceForDocument", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM medications WHERE document_id = ?`, documentID); err != nil {
		return wrapDBErr("repository.MedicationRepo.ReplaceForDocument", err)
	}

	for _, m := range meds {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO medications (id, document_id, generic_name, brand_name, dose, frequency,
				route, prescriber_id, status, start_date, end_date, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))`,
			m.ID, documentID, m.GenericName, m.BrandName, m.Dose, m.Frequency,
			m.Route, m.PrescriberID, m.Status, nullTime(m.StartDate), nullTime(m.EndDate),
		); err != nil {
			return fmt.Errorf("repository.MedicationRepo.ReplaceForDocument: insert medication: %w", err)
		}
	}
	for _, c := range compounds {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO compound_ingredients (id, medication_id, ingredient_name, dose) VALUES (?, ?, ?, ?)`,
			c.ID, c.MedicationID, c.IngredientName, c.Dose); err != nil {
			return fmt.Errorf("repository.MedicationRepo.ReplaceForDocument: insert compound: %w", err)
		}
	}
	for _, t := range tapers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tapering_steps (id, medication_id, step_order, dose, start_date, end_date) VALUES (?, ?, ?, ?, ?, ?)`,
			t.ID, t.MedicationID, t.StepOrder, t.Dose, nullTime(t.StartDate), nullTime(t.EndDate)); err != nil {
			return fmt.Errorf("repository.MedicationRepo.ReplaceForDocument: insert taper: %w", err)
		}
	}
	for _, ins := range instructions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO medication_instructions (id, medication_id, instruction) VALUES (?, ?, ?)`,
			ins.ID, ins.MedicationID, ins.Instruction); err != nil {
			return fmt.Errorf("repository.MedicationRepo.ReplaceForDocument: insert instruction: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapDBErr("repository.MedicationRepo.ReplaceForDocument", err)
	}
	return nil
}

// List returns every medication in the corpus, for coherence snapshots.
func (r *MedicationRepo) List(ctx context.Context) ([]Medication, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `
		SELECT id, document_id, generic_name, brand_name, dose, frequency, route,
			prescriber_id, status, start_date, end_date, created_at FROM medications`)
	if err != nil {
		return nil, wrapDBErr("repository.MedicationRepo.List", err)
	}
	defer rows.Close()

	var out []Medication
	for rows.Next() {
		var m Medication
		if err := rows.Scan(&m.ID, &m.DocumentID, &m.GenericName, &m.BrandName, &m.Dose, &m.Frequency,
			&m.Route, &m.PrescriberID, &m.Status, &m.StartDate, &m.EndDate, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository.MedicationRepo.List: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// RecordDoseChange inserts a dose_changes row observed during structuring
// or reconciliation. reason is nil when the source text gave none — the
// drift detector flags exactly that case.
func (r *MedicationRepo) RecordDoseChange(ctx context.Context, dc DoseChange) error {
	r.db.Mu.Lock()
	defer r.db.Mu.Unlock()
	_, err := r.db.SQL.ExecContext(ctx, `
		INSERT INTO dose_changes (id, document_id, medication_id, old_dose, new_dose, reason, changed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		dc.ID, dc.DocumentID, dc.MedicationID, dc.OldDose, dc.NewDose, dc.Reason, dc.ChangedAt)
	if err != nil {
		return wrapDBErr("repository.MedicationRepo.RecordDoseChange", err)
	}
	return nil
}

func (r *MedicationRepo) ListDoseChanges(ctx context.Context) ([]DoseChange, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `
		SELECT id, document_id, medication_id, old_dose, new_dose, reason, changed_at FROM dose_changes`)
	if err != nil {
		return nil, wrapDBErr("repository.MedicationRepo.ListDoseChanges", err)
	}
	defer rows.Close()
	var out []DoseChange
	for rows.Next() {
		var dc DoseChange
		if err := rows.Scan(&dc.ID, &dc.DocumentID, &dc.MedicationID, &dc.OldDose, &dc.NewDose, &dc.Reason, &dc.ChangedAt); err != nil {
			return nil, fmt.Errorf("repository.MedicationRepo.ListDoseChanges: %w", err)
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}

func (r *MedicationRepo) ListCompoundIngredients(ctx context.Context) ([]CompoundIngredient, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `SELECT id, medication_id, ingredient_name, dose FROM compound_ingredients`)
	if err != nil {
		return nil, wrapDBErr("repository.MedicationRepo.ListCompoundIngredients", err)
	}
	defer rows.Close()
	var out []CompoundIngredient
	for rows.Next() {
		var c CompoundIngredient
		if err := rows.Scan(&c.ID, &c.MedicationID, &c.IngredientName, &c.Dose); err != nil {
			return nil, fmt.Errorf("repository.MedicationRepo.ListCompoundIngredients: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
