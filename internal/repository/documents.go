package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DocumentRepo is the CRUD surface for the documents table, the anchor
// every clinical entity's document_id points at.
type DocumentRepo struct{ db *DB }

func NewDocumentRepo(db *DB) *DocumentRepo { return &DocumentRepo{db: db} }

func (r *DocumentRepo) Create(ctx context.Context, d *Document) error {
	r.db.Mu.Lock()
	defer r.db.Mu.Unlock()
	_, err := r.db.SQL.ExecContext(ctx, `
		INSERT INTO documents (id, doc_type, title, document_date, ingestion_date,
			professional_id, source_file, markdown_file, ocr_confidence, verified,
			perceptual_hash, pipeline_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.DocType, d.Title, nullTime(d.DocumentDate), d.IngestionDate,
		d.ProfessionalID, d.SourceFile, d.MarkdownFile, d.OCRConfidence, d.Verified,
		d.PerceptualHash, d.PipelineStatus,
	)
	if err != nil {
		return wrapDBErr("repository.DocumentRepo.Create", err)
	}
	return nil
}

func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*Document, error) {
	row := r.db.SQL.QueryRowContext(ctx, `
		SELECT id, doc_type, title, document_date, ingestion_date, professional_id,
			source_file, markdown_file, ocr_confidence, verified, perceptual_hash, pipeline_status
		FROM documents WHERE id = ?`, id)

	var d Document
	var docDate sql.NullTime
	if err := row.Scan(&d.ID, &d.DocType, &d.Title, &docDate, &d.IngestionDate, &d.ProfessionalID,
		&d.SourceFile, &d.MarkdownFile, &d.OCRConfidence, &d.Verified, &d.PerceptualHash, &d.PipelineStatus); err != nil {
		return nil, wrapDBErr("repository.DocumentRepo.GetByID", err)
	}
	if docDate.Valid {
		d.DocumentDate = &docDate.Time
	}
	return &d, nil
}

// UpdatePipelineStatus transitions a document's pipeline_status (e.g.
// pending -> structured -> indexed).
func (r *DocumentRepo) UpdatePipelineStatus(ctx context.Context, id, status string) error {
	r.db.Mu.Lock()
	defer r.db.Mu.Unlock()
	_, err := r.db.SQL.ExecContext(ctx, `UPDATE documents SET pipeline_status = ? WHERE id = ?`, status, id)
	if err != nil {
		return wrapDBErr("repository.DocumentRepo.UpdatePipelineStatus", err)
	}
	return nil
}

// SetMarkdown records the encrypted markdown sidecar path and OCR
// confidence once the structuring stage finishes.
func (r *DocumentRepo) SetMarkdown(ctx context.Context, id, markdownFile string, ocrConfidence float64) error {
	r.db.Mu.Lock()
	defer r.db.Mu.Unlock()
	_, err := r.db.SQL.ExecContext(ctx,
		`UPDATE documents SET markdown_file = ?, ocr_confidence = ? WHERE id = ?`,
		markdownFile, ocrConfidence, id)
	if err != nil {
		return wrapDBErr("repository.DocumentRepo.SetMarkdown", err)
	}
	return nil
}

// Delete removes a document; ON DELETE CASCADE takes every dependent
// clinical entity and chunk with it. coherence_alerts rows naming the
// document have no foreign key and are not removed.
func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	r.db.Mu.Lock()
	defer r.db.Mu.Unlock()
	_, err := r.db.SQL.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return wrapDBErr("repository.DocumentRepo.Delete", err)
	}
	return nil
}

// List returns every document, newest first, for timeline/coherence snapshots.
func (r *DocumentRepo) List(ctx context.Context) ([]Document, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `
		SELECT id, doc_type, title, document_date, ingestion_date, professional_id,
			source_file, markdown_file, ocr_confidence, verified, perceptual_hash, pipeline_status
		FROM documents ORDER BY ingestion_date DESC`)
	if err != nil {
		return nil, wrapDBErr("repository.DocumentRepo.List", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var d Document
		var docDate sql.NullTime
		if err := rows.Scan(&d.ID, &d.DocType, &d.Title, &docDate, &d.IngestionDate, &d.ProfessionalID,
			&d.SourceFile, &d.MarkdownFile, &d.OCRConfidence, &d.Verified, &d.PerceptualHash, &d.PipelineStatus); err != nil {
			return nil, fmt.Errorf("repository.DocumentRepo.List: scan: %w", err)
		}
		if docDate.Valid {
			d.DocumentDate = &docDate.Time
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
