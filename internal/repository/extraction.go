package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// ExtractionRepo persists chat-derived extraction batches and the pending
// review items inside them.
type ExtractionRepo struct{ db *DB }

func NewExtractionRepo(db *DB) *ExtractionRepo { return &ExtractionRepo{db: db} }

func (r *ExtractionRepo) CreateBatch(ctx context.Context, b ExtractionBatch) error {
	r.db.Mu.Lock()
	defer r.db.Mu.Unlock()
	_, err := r.db.SQL.ExecContext(ctx,
		`INSERT INTO extraction_batches (id, conversation_id, status, created_at) VALUES (?, ?, ?, ?)`,
		b.ID, b.ConversationID, b.Status, b.CreatedAt)
	if err != nil {
		return wrapDBErr("repository.ExtractionRepo.CreateBatch", err)
	}
	return nil
}

func (r *ExtractionRepo) SetBatchStatus(ctx context.Context, id, status string) error {
	r.db.Mu.Lock()
	defer r.db.Mu.Unlock()
	_, err := r.db.SQL.ExecContext(ctx, `UPDATE extraction_batches SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return wrapDBErr("repository.ExtractionRepo.SetBatchStatus", err)
	}
	return nil
}

// CreatePendingItem inserts a new pending_review item. Insertion is
// idempotent-by-id: re-running the same extraction with the same id is a
// no-op rather than a duplicate row.
func (r *ExtractionRepo) CreatePendingItem(ctx context.Context, item PendingReviewItem) error {
	r.db.Mu.Lock()
	defer r.db.Mu.Unlock()
	_, err := r.db.SQL.ExecContext(ctx, `
		INSERT INTO extraction_pending (id, conversation_id, batch_id, domain, extracted_data,
			confidence, grounding, duplicate_of, source_message_ids, status, created_at, reviewed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
		ON CONFLICT(id) DO NOTHING`,
		item.ID, item.ConversationID, item.BatchID, item.Domain, item.ExtractedData,
		item.Confidence, item.Grounding, item.DuplicateOf, item.SourceMessageIDs, item.Status, item.CreatedAt)
	if err != nil {
		return wrapDBErr("repository.ExtractionRepo.CreatePendingItem", err)
	}
	return nil
}

func (r *ExtractionRepo) GetPendingItem(ctx context.Context, id string) (*PendingReviewItem, error) {
	var it PendingReviewItem
	var reviewedAt sql.NullTime
	err := r.db.SQL.QueryRowContext(ctx, `
		SELECT id, conversation_id, batch_id, domain, extracted_data, confidence, grounding,
			duplicate_of, source_message_ids, status, created_at, reviewed_at
		FROM extraction_pending WHERE id = ?`, id).
		Scan(&it.ID, &it.ConversationID, &it.BatchID, &it.Domain, &it.ExtractedData, &it.Confidence,
			&it.Grounding, &it.DuplicateOf, &it.SourceMessageIDs, &it.Status, &it.CreatedAt, &reviewedAt)
	if err != nil {
		return nil, wrapDBErr("repository.ExtractionRepo.GetPendingItem", err)
	}
	if reviewedAt.Valid {
		it.ReviewedAt = &reviewedAt.Time
	}
	return &it, nil
}

func (r *ExtractionRepo) ListPendingByBatch(ctx context.Context, batchID string) ([]PendingReviewItem, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `
		SELECT id, conversation_id, batch_id, domain, extracted_data, confidence, grounding,
			duplicate_of, source_message_ids, status, created_at, reviewed_at
		FROM extraction_pending WHERE batch_id = ? ORDER BY created_at ASC`, batchID)
	if err != nil {
		return nil, wrapDBErr("repository.ExtractionRepo.ListPendingByBatch", err)
	}
	defer rows.Close()

	var out []PendingReviewItem
	for rows.Next() {
		var it PendingReviewItem
		var reviewedAt sql.NullTime
		if err := rows.Scan(&it.ID, &it.ConversationID, &it.BatchID, &it.Domain, &it.ExtractedData, &it.Confidence,
			&it.Grounding, &it.DuplicateOf, &it.SourceMessageIDs, &it.Status, &it.CreatedAt, &reviewedAt); err != nil {
			return nil, fmt.Errorf("repository.ExtractionRepo.ListPendingByBatch: %w", err)
		}
		if reviewedAt.Valid {
			it.ReviewedAt = &reviewedAt.Time
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ListPendingByStatus returns every pending_review item in a given status
// across all batches, oldest first — the patient's review queue.
func (r *ExtractionRepo) ListPendingByStatus(ctx context.Context, status string) ([]PendingReviewItem, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `
		SELECT id, conversation_id, batch_id, domain, extracted_data, confidence, grounding,
			duplicate_of, source_message_ids, status, created_at, reviewed_at
		FROM extraction_pending WHERE status = ? ORDER BY created_at ASC`, status)
	if err != nil {
		return nil, wrapDBErr("repository.ExtractionRepo.ListPendingByStatus", err)
	}
	defer rows.Close()

	var out []PendingReviewItem
	for rows.Next() {
		var it PendingReviewItem
		var reviewedAt sql.NullTime
		if err := rows.Scan(&it.ID, &it.ConversationID, &it.BatchID, &it.Domain, &it.ExtractedData, &it.Confidence,
			&it.Grounding, &it.DuplicateOf, &it.SourceMessageIDs, &it.Status, &it.CreatedAt, &reviewedAt); err != nil {
			return nil, fmt.Errorf("repository.ExtractionRepo.ListPendingByStatus: %w", err)
		}
		if reviewedAt.Valid {
			it.ReviewedAt = &reviewedAt.Time
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ResolvePendingItem transitions an item to a terminal status: confirmed,
// edited_confirmed, or dismissed. editedData is nil unless status is
// edited_confirmed, in which case it replaces extracted_data before the
// caller persists it into the structured entity tables.
func (r *ExtractionRepo) ResolvePendingItem(ctx context.Context, id, status string, editedData *string, reviewedAt sql.NullTime) error {
	r.db.Mu.Lock()
	defer r.db.Mu.Unlock()

	if editedData != nil {
		_, err := r.db.SQL.ExecContext(ctx,
			`UPDATE extraction_pending SET status = ?, extracted_data = ?, reviewed_at = ? WHERE id = ?`,
			status, *editedData, reviewedAt, id)
		if err != nil {
			return wrapDBErr("repository.ExtractionRepo.ResolvePendingItem", err)
		}
		return nil
	}
	_, err := r.db.SQL.ExecContext(ctx,
		`UPDATE extraction_pending SET status = ?, reviewed_at = ? WHERE id = ?`,
		status, reviewedAt, id)
	if err != nil {
		return wrapDBErr("repository.ExtractionRepo.ResolvePendingItem", err)
	}
	return nil
}
