package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ProfessionalRepo resolves care-provider identity. FindOrCreate is the
// only entry point the document structurer uses, matching spec.md §4.10's
// idempotent, case-insensitive name match.
type ProfessionalRepo struct{ db *DB }

func NewProfessionalRepo(db *DB) *ProfessionalRepo { return &ProfessionalRepo{db: db} }

// ErrAmbiguous is returned when more than one professional matches a name
// case-insensitively; callers surface this as a ProfessionalNameAmbiguous warning.
type ErrAmbiguous struct{ Name string }

func (e ErrAmbiguous) Error() string {
	return fmt.Sprintf("repository: professional name %q is ambiguous", e.Name)
}

// FindOrCreate looks up a professional by case-insensitive name; if none
// exists it creates one. If more than one row matches, it returns
// ErrAmbiguous rather than guessing.
func (r *ProfessionalRepo) FindOrCreate(ctx context.Context, name string, specialty *string) (*Professional, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("repository.ProfessionalRepo.FindOrCreate: empty name")
	}

	rows, err := r.db.SQL.QueryContext(ctx, `
		SELECT id, name, specialty, phone, created_at FROM professionals
		WHERE lower(name) = lower(?)`, name)
	if err != nil {
		return nil, wrapDBErr("repository.ProfessionalRepo.FindOrCreate", err)
	}
	defer rows.Close()

	var matches []Professional
	for rows.Next() {
		var p Professional
		if err := rows.Scan(&p.ID, &p.Name, &p.Specialty, &p.Phone, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository.ProfessionalRepo.FindOrCreate: scan: %w", err)
		}
		matches = append(matches, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.ProfessionalRepo.FindOrCreate: %w", err)
	}

	switch len(matches) {
	case 0:
		p := Professional{ID: uuid.NewString(), Name: name, Specialty: specialty}
		r.db.Mu.Lock()
		_, err := r.db.SQL.ExecContext(ctx,
			`INSERT INTO professionals (id, name, specialty, phone, created_at) VALUES (?, ?, ?, ?, datetime('now'))`,
			p.ID, p.Name, p.Specialty, p.Phone)
		r.db.Mu.Unlock()
		if err != nil {
			return nil, wrapDBErr("repository.ProfessionalRepo.FindOrCreate", err)
		}
		return &p, nil
	case 1:
		return &matches[0], nil
	default:
		return nil, ErrAmbiguous{Name: name}
	}
}

func (r *ProfessionalRepo) GetByID(ctx context.Context, id string) (*Professional, error) {
	var p Professional
	err := r.db.SQL.QueryRowContext(ctx,
		`SELECT id, name, specialty, phone, created_at FROM professionals WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Specialty, &p.Phone, &p.CreatedAt)
	if err != nil {
		return nil, wrapDBErr("repository.ProfessionalRepo.GetByID", err)
	}
	return &p, nil
}

func (r *ProfessionalRepo) List(ctx context.Context) ([]Professional, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `SELECT id, name, specialty, phone, created_at FROM professionals`)
	if err != nil {
		return nil, wrapDBErr("repository.ProfessionalRepo.List", err)
	}
	defer rows.Close()
	var out []Professional
	for rows.Next() {
		var p Professional
		if err := rows.Scan(&p.ID, &p.Name, &p.Specialty, &p.Phone, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository.ProfessionalRepo.List: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
