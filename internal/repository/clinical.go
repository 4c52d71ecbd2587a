package repository

import (
	"context"
	"fmt"
)

// ClinicalRepo groups the smaller per-document entity tables that share the
// same idempotent replace-on-reprocess shape as MedicationRepo, except
// appointments, which InsertAppointment adds one row at a time.
type ClinicalRepo struct{ db *DB }

func NewClinicalRepo(db *DB) *ClinicalRepo { return &ClinicalRepo{db: db} }

func (r *ClinicalRepo) ReplaceDiagnoses(ctx context.Context, documentID string, rows []Diagnosis) error {
	r.db.Mu.Lock()
	defer r.db.Mu.Unlock()
	if _, err := r.db.SQL.ExecContext(ctx, `DELETE FROM diagnoses WHERE document_id = ?`, documentID); err != nil {
		return wrapDBErr("repository.ClinicalRepo.ReplaceDiagnoses", err)
	}
	for _, d := range rows {
		if _, err := r.db.SQL.ExecContext(ctx,
			`INSERT INTO diagnoses (id, document_id, name, icd_code, status, diagnosed_date) VALUES (?, ?, ?, ?, ?, ?)`,
			d.ID, documentID, d.Name, d.ICDCode, d.Status, nullTime(d.DiagnosedDate)); err != nil {
			return fmt.Errorf("repository.ClinicalRepo.ReplaceDiagnoses: %w", err)
		}
	}
	return nil
}

func (r *ClinicalRepo) ListDiagnoses(ctx context.Context) ([]Diagnosis, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `SELECT id, document_id, name, icd_code, status, diagnosed_date FROM diagnoses`)
	if err != nil {
		return nil, wrapDBErr("repository.ClinicalRepo.ListDiagnoses", err)
	}
	defer rows.Close()
	var out []Diagnosis
	for rows.Next() {
		var d Diagnosis
		if err := rows.Scan(&d.ID, &d.DocumentID, &d.Name, &d.ICDCode, &d.Status, &d.DiagnosedDate); err != nil {
			return nil, fmt.Errorf("repository.ClinicalRepo.ListDiagnoses: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *ClinicalRepo) ReplaceAllergies(ctx context.Context, documentID string, rows []Allergy) error {
	r.db.Mu.Lock()
	defer r.db.Mu.Unlock()
	if _, err := r.db.SQL.ExecContext(ctx, `DELETE FROM allergies WHERE document_id = ?`, documentID); err != nil {
		return wrapDBErr("repository.ClinicalRepo.ReplaceAllergies", err)
	}
	for _, a := range rows {
		if _, err := r.db.SQL.ExecContext(ctx,
			`INSERT INTO allergies (id, document_id, allergen, reaction, severity) VALUES (?, ?, ?, ?, ?)`,
			a.ID, documentID, a.Allergen, a.Reaction, a.Severity); err != nil {
			return fmt.Errorf("repository.ClinicalRepo.ReplaceAllergies: %w", err)
		}
	}
	return nil
}

func (r *ClinicalRepo) ListAllergies(ctx context.Context) ([]Allergy, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `SELECT id, document_id, allergen, reaction, severity FROM allergies`)
	if err != nil {
		return nil, wrapDBErr("repository.ClinicalRepo.ListAllergies", err)
	}
	defer rows.Close()
	var out []Allergy
	for rows.Next() {
		var a Allergy
		if err := rows.Scan(&a.ID, &a.DocumentID, &a.Allergen, &a.Reaction, &a.Severity); err != nil {
			return nil, fmt.Errorf("repository.ClinicalRepo.ListAllergies: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *ClinicalRepo) ReplaceProcedures(ctx context.Context, documentID string, rows []Procedure) error {
	r.db.Mu.Lock()
	defer r.db.Mu.Unlock()
	if _, err := r.db.SQL.ExecContext(ctx, `DELETE FROM procedures WHERE document_id = ?`, documentID); err != nil {
		return wrapDBErr("repository.ClinicalRepo.ReplaceProcedures", err)
	}
	for _, p := range rows {
		if _, err := r.db.SQL.ExecContext(ctx,
			`INSERT INTO procedures (id, document_id, name, performed_date, performed_by) VALUES (?, ?, ?, ?, ?)`,
			p.ID, documentID, p.Name, nullTime(p.PerformedDate), p.PerformedBy); err != nil {
			return fmt.Errorf("repository.ClinicalRepo.ReplaceProcedures: %w", err)
		}
	}
	return nil
}

func (r *ClinicalRepo) ListProcedures(ctx context.Context) ([]Procedure, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `SELECT id, document_id, name, performed_date, performed_by FROM procedures`)
	if err != nil {
		return nil, wrapDBErr("repository.ClinicalRepo.ListProcedures", err)
	}
	defer rows.Close()
	var out []Procedure
	for rows.Next() {
		var p Procedure
		if err := rows.Scan(&p.ID, &p.DocumentID, &p.Name, &p.PerformedDate, &p.PerformedBy); err != nil {
			return nil, fmt.Errorf("repository.ClinicalRepo.ListProcedures: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ClinicalRepo) ReplaceReferrals(ctx context.Context, documentID string, rows []Referral) error {
	r.db.Mu.Lock()
	defer r.db.Mu.Unlock()
	if _, err := r.db.SQL.ExecContext(ctx, `DELETE FROM referrals WHERE document_id = ?`, documentID); err != nil {
		return wrapDBErr("repository.ClinicalRepo.ReplaceReferrals", err)
	}
	for _, rf := range rows {
		if _, err := r.db.SQL.ExecContext(ctx,
			`INSERT INTO referrals (id, document_id, to_specialty, to_professional_id, reason, referred_date) VALUES (?, ?, ?, ?, ?, ?)`,
			rf.ID, documentID, rf.ToSpecialty, rf.ToProfessionalID, rf.Reason, nullTime(rf.ReferredDate)); err != nil {
			return fmt.Errorf("repository.ClinicalRepo.ReplaceReferrals: %w", err)
		}
	}
	return nil
}

func (r *ClinicalRepo) ReplaceSymptoms(ctx context.Context, documentID string, rows []Symptom) error {
	r.db.Mu.Lock()
	defer r.db.Mu.Unlock()
	if _, err := r.db.SQL.ExecContext(ctx, `DELETE FROM symptoms WHERE document_id = ?`, documentID); err != nil {
		return wrapDBErr("repository.ClinicalRepo.ReplaceSymptoms", err)
	}
	for _, s := range rows {
		if _, err := r.db.SQL.ExecContext(ctx,
			`INSERT INTO symptoms (id, document_id, description, onset_date, resolved_date) VALUES (?, ?, ?, ?, ?)`,
			s.ID, documentID, s.Description, nullTime(s.OnsetDate), nullTime(s.ResolvedDate)); err != nil {
			return fmt.Errorf("repository.ClinicalRepo.ReplaceSymptoms: %w", err)
		}
	}
	return nil
}

func (r *ClinicalRepo) ListSymptoms(ctx context.Context) ([]Symptom, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `SELECT id, document_id, description, onset_date, resolved_date FROM symptoms`)
	if err != nil {
		return nil, wrapDBErr("repository.ClinicalRepo.ListSymptoms", err)
	}
	defer rows.Close()
	var out []Symptom
	for rows.Next() {
		var s Symptom
		if err := rows.Scan(&s.ID, &s.DocumentID, &s.Description, &s.OnsetDate, &s.ResolvedDate); err != nil {
			return nil, fmt.Errorf("repository.ClinicalRepo.ListSymptoms: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *ClinicalRepo) InsertAppointment(ctx context.Context, a Appointment) error {
	r.db.Mu.Lock()
	defer r.db.Mu.Unlock()
	_, err := r.db.SQL.ExecContext(ctx,
		`INSERT INTO appointments (id, document_id, professional_id, scheduled_at, reason, status) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.DocumentID, a.ProfessionalID, a.ScheduledAt, a.Reason, a.Status)
	if err != nil {
		return wrapDBErr("repository.ClinicalRepo.InsertAppointment", err)
	}
	return nil
}

func (r *ClinicalRepo) ListAppointments(ctx context.Context) ([]Appointment, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `SELECT id, document_id, professional_id, scheduled_at, reason, status FROM appointments`)
	if err != nil {
		return nil, wrapDBErr("repository.ClinicalRepo.ListAppointments", err)
	}
	defer rows.Close()
	var out []Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.DocumentID, &a.ProfessionalID, &a.ScheduledAt, &a.Reason, &a.Status); err != nil {
			return nil, fmt.Errorf("repository.ClinicalRepo.ListAppointments: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *ClinicalRepo) ReplaceVitalSigns(ctx context.Context, documentID string, rows []VitalSign) error {
	r.db.Mu.Lock()
	defer r.db.Mu.Unlock()
	if _, err := r.db.SQL.ExecContext(ctx, `DELETE FROM vital_signs WHERE document_id = ?`, documentID); err != nil {
		return wrapDBErr("repository.ClinicalRepo.ReplaceVitalSigns", err)
	}
	for _, v := range rows {
		if _, err := r.db.SQL.ExecContext(ctx,
			`INSERT INTO vital_signs (id, document_id, kind, value, unit, measured_at) VALUES (?, ?, ?, ?, ?, ?)`,
			v.ID, documentID, v.Kind, v.Value, v.Unit, nullTime(v.MeasuredAt)); err != nil {
			return fmt.Errorf("repository.ClinicalRepo.ReplaceVitalSigns: %w", err)
		}
	}
	return nil
}

func (r *ClinicalRepo) ListVitalSigns(ctx context.Context) ([]VitalSign, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `
		SELECT id, document_id, kind, value, unit, measured_at FROM vital_signs`)
	if err != nil {
		return nil, wrapDBErr("repository.ClinicalRepo.ListVitalSigns", err)
	}
	defer rows.Close()
	var out []VitalSign
	for rows.Next() {
		var v VitalSign
		if err := rows.Scan(&v.ID, &v.DocumentID, &v.Kind, &v.Value, &v.Unit, &v.MeasuredAt); err != nil {
			return nil, fmt.Errorf("repository.ClinicalRepo.ListVitalSigns: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ReplaceLabResults stores lab_results for a document, idempotently.
func (r *ClinicalRepo) ReplaceLabResults(ctx context.Context, documentID string, rows []LabResult) error {
	r.db.Mu.Lock()
	defer r.db.Mu.Unlock()
	if _, err := r.db.SQL.ExecContext(ctx, `DELETE FROM lab_results WHERE document_id = ?`, documentID); err != nil {
		return wrapDBErr("repository.ClinicalRepo.ReplaceLabResults", err)
	}
	for _, lr := range rows {
		if _, err := r.db.SQL.ExecContext(ctx, `
			INSERT INTO lab_results (id, document_id, test_name, value, value_text, unit,
				reference_range_low, reference_range_high, abnormal_flag, collection_date,
				lab_facility, ordering_physician_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			lr.ID, documentID, lr.TestName, lr.Value, lr.ValueText, lr.Unit,
			lr.ReferenceRangeLow, lr.ReferenceRangeHigh, lr.AbnormalFlag, nullTime(lr.CollectionDate),
			lr.LabFacility, lr.OrderingPhysicianID); err != nil {
			return fmt.Errorf("repository.ClinicalRepo.ReplaceLabResults: %w", err)
		}
	}
	return nil
}

func (r *ClinicalRepo) ListLabResults(ctx context.Context) ([]LabResult, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `
		SELECT id, document_id, test_name, value, value_text, unit, reference_range_low,
			reference_range_high, abnormal_flag, collection_date, lab_facility, ordering_physician_id
		FROM lab_results`)
	if err != nil {
		return nil, wrapDBErr("repository.ClinicalRepo.ListLabResults", err)
	}
	defer rows.Close()
	var out []LabResult
	for rows.Next() {
		var lr LabResult
		if err := rows.Scan(&lr.ID, &lr.DocumentID, &lr.TestName, &lr.Value, &lr.ValueText, &lr.Unit,
			&lr.ReferenceRangeLow, &lr.ReferenceRangeHigh, &lr.AbnormalFlag, &lr.CollectionDate,
			&lr.LabFacility, &lr.OrderingPhysicianID); err != nil {
			return nil, fmt.Errorf("repository.ClinicalRepo.ListLabResults: %w", err)
		}
		out = append(out, lr)
	}
	return out, rows.Err()
}
