package repository

import (
	"context"
	"database/sql"
)

// LocalCARepo persists the single local certificate authority bundle used
// to issue the server's HTTPS certificate for companion-device pairing.
type LocalCARepo struct{ db *DB }

func NewLocalCARepo(db *DB) *LocalCARepo { return &LocalCARepo{db: db} }

func (r *LocalCARepo) Get(ctx context.Context) (*LocalCARecord, error) {
	var rec LocalCARecord
	err := r.db.SQL.QueryRowContext(ctx,
		`SELECT cert_der, key_encrypted, fingerprint, created_at FROM local_ca WHERE id = 1`).
		Scan(&rec.CertDER, &rec.KeyEncrypted, &rec.Fingerprint, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBErr("repository.LocalCARepo.Get", err)
	}
	return &rec, nil
}

func (r *LocalCARepo) Save(ctx context.Context, rec LocalCARecord) error {
	r.db.Mu.Lock()
	defer r.db.Mu.Unlock()
	_, err := r.db.SQL.ExecContext(ctx, `
		INSERT INTO local_ca (id, cert_der, key_encrypted, fingerprint, created_at) VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET cert_der = excluded.cert_der, key_encrypted = excluded.key_encrypted,
			fingerprint = excluded.fingerprint, created_at = excluded.created_at`,
		rec.CertDER, rec.KeyEncrypted, rec.Fingerprint, rec.CreatedAt)
	if err != nil {
		return wrapDBErr("repository.LocalCARepo.Save", err)
	}
	return nil
}
