package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PrefsRepo covers the small singleton/keyed tables: user preferences,
// model routing overrides, the trust singleton, and bundled dose references.
type PrefsRepo struct{ db *DB }

func NewPrefsRepo(db *DB) *PrefsRepo { return &PrefsRepo{db: db} }

func (r *PrefsRepo) SetPreference(ctx context.Context, key, value string) error {
	r.db.Mu.Lock()
	defer r.db.Mu.Unlock()
	_, err := r.db.SQL.ExecContext(ctx, `
		INSERT INTO user_preferences (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return wrapDBErr("repository.PrefsRepo.SetPreference", err)
	}
	return nil
}

func (r *PrefsRepo) GetPreference(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := r.db.SQL.QueryRowContext(ctx, `SELECT value FROM user_preferences WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrapDBErr("repository.PrefsRepo.GetPreference", err)
	}
	return v, true, nil
}

func (r *PrefsRepo) SetModelPreference(ctx context.Context, p ModelPreference) error {
	r.db.Mu.Lock()
	defer r.db.Mu.Unlock()
	_, err := r.db.SQL.ExecContext(ctx, `
		INSERT INTO model_preferences (category, model_name, disabled) VALUES (?, ?, ?)
		ON CONFLICT(category) DO UPDATE SET model_name = excluded.model_name, disabled = excluded.disabled`,
		p.Category, p.ModelName, p.Disabled)
	if err != nil {
		return wrapDBErr("repository.PrefsRepo.SetModelPreference", err)
	}
	return nil
}

func (r *PrefsRepo) ListModelPreferences(ctx context.Context) ([]ModelPreference, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `SELECT category, model_name, disabled FROM model_preferences`)
	if err != nil {
		return nil, wrapDBErr("repository.PrefsRepo.ListModelPreferences", err)
	}
	defer rows.Close()
	var out []ModelPreference
	for rows.Next() {
		var p ModelPreference
		var disabled int
		if err := rows.Scan(&p.Category, &p.ModelName, &disabled); err != nil {
			return nil, fmt.Errorf("repository.PrefsRepo.ListModelPreferences: %w", err)
		}
		p.Disabled = disabled != 0
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PrefsRepo) GetTrust(ctx context.Context) (*ProfileTrust, error) {
	var t ProfileTrust
	err := r.db.SQL.QueryRowContext(ctx,
		`SELECT dose_reference_version, last_erasure_check FROM profile_trust WHERE id = 1`).
		Scan(&t.DoseReferenceVersion, &t.LastErasureCheck)
	if err == sql.ErrNoRows {
		return &ProfileTrust{}, nil
	}
	if err != nil {
		return nil, wrapDBErr("repository.PrefsRepo.GetTrust", err)
	}
	return &t, nil
}

func (r *PrefsRepo) SetTrust(ctx context.Context, t ProfileTrust) error {
	r.db.Mu.Lock()
	defer r.db.Mu.Unlock()
	_, err := r.db.SQL.ExecContext(ctx, `
		INSERT INTO profile_trust (id, dose_reference_version, last_erasure_check) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET dose_reference_version = excluded.dose_reference_version,
			last_erasure_check = excluded.last_erasure_check`,
		t.DoseReferenceVersion, t.LastErasureCheck)
	if err != nil {
		return wrapDBErr("repository.PrefsRepo.SetTrust", err)
	}
	return nil
}

// ReplaceDoseReferences replaces the entire bundled dose-reference table —
// it ships as one versioned unit, never patched row by row.
func (r *PrefsRepo) ReplaceDoseReferences(ctx context.Context, refs []DoseReference) error {
	r.db.Mu.Lock()
	defer r.db.Mu.Unlock()

	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return wrapDBErr("repository.PrefsRepo.ReplaceDoseReferences", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM dose_references`); err != nil {
		return fmt.Errorf("repository.PrefsRepo.ReplaceDoseReferences: %w", err)
	}
	for _, d := range refs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO dose_references (generic_name, typical_min_mg, typical_max_mg, absolute_max_mg, unit, source)
			VALUES (?, ?, ?, ?, ?, ?)`,
			d.GenericName, d.TypicalMinMg, d.TypicalMaxMg, d.AbsoluteMaxMg, d.Unit, d.Source); err != nil {
			return fmt.Errorf("repository.PrefsRepo.ReplaceDoseReferences: %w", err)
		}
	}
	return tx.Commit()
}

// ListDoseReferences returns the entire bundled dose-reference table, the
// shape a coherence scan needs to build its generic-name-keyed lookup.
func (r *PrefsRepo) ListDoseReferences(ctx context.Context) ([]DoseReference, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `
		SELECT generic_name, typical_min_mg, typical_max_mg, absolute_max_mg, unit, source
		FROM dose_references`)
	if err != nil {
		return nil, wrapDBErr("repository.PrefsRepo.ListDoseReferences", err)
	}
	defer rows.Close()
	var out []DoseReference
	for rows.Next() {
		var d DoseReference
		if err := rows.Scan(&d.GenericName, &d.TypicalMinMg, &d.TypicalMaxMg, &d.AbsoluteMaxMg, &d.Unit, &d.Source); err != nil {
			return nil, fmt.Errorf("repository.PrefsRepo.ListDoseReferences: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PrefsRepo) GetDoseReference(ctx context.Context, genericName string) (*DoseReference, error) {
	var d DoseReference
	err := r.db.SQL.QueryRowContext(ctx, `
		SELECT generic_name, typical_min_mg, typical_max_mg, absolute_max_mg, unit, source
		FROM dose_references WHERE lower(generic_name) = lower(?)`, genericName).
		Scan(&d.GenericName, &d.TypicalMinMg, &d.TypicalMaxMg, &d.AbsoluteMaxMg, &d.Unit, &d.Source)
	if err != nil {
		return nil, wrapDBErr("repository.PrefsRepo.GetDoseReference", err)
	}
	return &d, nil
}
